package advisory

import (
	"context"
	"fmt"

	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/sourcegraph/conc/pool"
)

// Warm precomputes the FAQ answers and each of questions, running at most
// concurrency requests at once. A failing question does not stop the others;
// all failures are returned joined.
func (s *Service) Warm(ctx context.Context, questions []string, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	p := pool.New().WithContext(ctx).WithMaxGoroutines(concurrency)

	p.Go(func(ctx context.Context) error {
		if _, err := s.Query(ctx, models.KindFAQ, ""); err != nil {
			return fmt.Errorf("warm faq: %w", err)
		}
		return nil
	})
	for _, q := range questions {
		p.Go(func(ctx context.Context) error {
			if _, err := s.Query(ctx, models.KindAdHoc, q); err != nil {
				return fmt.Errorf("warm %q: %w", q, err)
			}
			return nil
		})
	}
	return p.Wait()
}
