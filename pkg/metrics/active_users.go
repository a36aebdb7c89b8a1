package metrics

import "context"

// ActiveUsersProvider counts distinct users active in the last 5 minutes
type ActiveUsersProvider struct{}

func (ActiveUsersProvider) Name() string { return "activeUsers" }

func (ActiveUsersProvider) Compute(ctx context.Context, in Inputs) (Result, error) {
	count, err := in.Store.ActiveUserCount(ctx, in.FiveMinutesAgoMs)
	if err != nil {
		return nil, err
	}
	return activeUsersResult(count), nil
}

type activeUsersResult int64

func (r activeUsersResult) fill(s *Snapshot) {
	s.ActiveUsersCount = int64(r)
}
