package metrics

import (
	"context"

	"github.com/shwetankt93/liftlab-assignment/pkg/storage"
)

// TopPagesProvider ranks the most viewed pages over the last 15 minutes
type TopPagesProvider struct{}

func (TopPagesProvider) Name() string { return "topPages" }

func (TopPagesProvider) Compute(ctx context.Context, in Inputs) (Result, error) {
	pages, err := in.Store.TopPages(ctx, TopPagesLimit, in.FifteenMinutesAgoMs)
	if err != nil {
		return nil, err
	}
	return topPagesResult(pages), nil
}

type topPagesResult []storage.PageView

func (r topPagesResult) fill(s *Snapshot) {
	s.TopPages = []storage.PageView(r)
}
