package graphstore

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/branchgraph/branchgraph/pkg/apperror"
	"github.com/branchgraph/branchgraph/pkg/metrics"
)

// WithRetry runs op under the taxonomy retry policy (spec §7): Transient
// errors retry up to 3 times with exponential backoff, a single Conflict
// retry is attempted once, everything else returns immediately. Grounded on
// the teacher's newServerRetryBackoff/backoff.Retry pattern for MySQL
// transient-connection errors, generalised to apperror's taxonomy.
func WithRetry(ctx context.Context, op func() error) error {
	attempt := 0
	conflictRetried := false

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 5 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		appErr, ok := err.(*apperror.Error)
		if !ok {
			return backoff.Permanent(err)
		}
		switch appErr.Code {
		case apperror.ErrTransient.Code:
			attempt++
			if attempt > 3 {
				return backoff.Permanent(err)
			}
			metrics.ErrorRetried(ctx)
			return err
		case apperror.ErrConflict.Code:
			if conflictRetried {
				return backoff.Permanent(err)
			}
			conflictRetried = true
			metrics.ErrorRetried(ctx)
			return err
		default:
			return backoff.Permanent(err)
		}
	}, backoff.WithContext(bo, ctx))
}
