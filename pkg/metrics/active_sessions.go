package metrics

import "context"

// ActiveSessionsProvider maps each user to their live session count over
// the last 5 minutes
type ActiveSessionsProvider struct{}

func (ActiveSessionsProvider) Name() string { return "activeSessions" }

func (ActiveSessionsProvider) Compute(ctx context.Context, in Inputs) (Result, error) {
	sessions, err := in.Store.ActiveSessionsByUser(ctx, in.FiveMinutesAgoMs)
	if err != nil {
		return nil, err
	}
	return activeSessionsResult(sessions), nil
}

type activeSessionsResult map[string]int64

func (r activeSessionsResult) fill(s *Snapshot) {
	s.ActiveSessionsByUser = map[string]int64(r)
}
