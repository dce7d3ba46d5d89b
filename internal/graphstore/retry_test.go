package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/branchgraph/branchgraph/pkg/apperror"
)

func TestWithRetrySucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return apperror.ErrTransient
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestWithRetryGivesUpAfterMaxTransientAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return apperror.ErrTransient
	})
	require.Error(t, err)
	require.Equal(t, 4, calls) // 1 initial + 3 retries
}

func TestWithRetryRetriesConflictExactlyOnce(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return apperror.ErrConflict
	})
	require.Error(t, err)
	require.Equal(t, 2, calls)
}

func TestWithRetryDoesNotRetryOtherKinds(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return apperror.ErrValidation
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
