package infra

import (
	"context"
	"errors"

	"rento/middleware/ratelimit/domain"
)

// MultiStats records every event to each store and joins their errors.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, st := range m {
		if st == nil {
			continue
		}
		if err := st.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
