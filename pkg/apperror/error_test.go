package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without internal error",
			err:      &Error{HTTPStatus: http.StatusNotFound, Code: "NotFound", Message: "not found"},
			expected: "NotFound: not found",
		},
		{
			name: "with internal error",
			err: &Error{
				HTTPStatus: http.StatusInternalServerError,
				Code:       "Fatal",
				Message:    "invariant violated",
				Internal:   errors.New("connection closed"),
			},
			expected: "Fatal: invariant violated (connection closed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Code: "Fatal", Internal: cause}
	require.Equal(t, cause, errors.Unwrap(err))

	bare := &Error{Code: "NotFound"}
	require.Nil(t, errors.Unwrap(bare))
}

func TestWithInternalPreservesFields(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	got := ErrTransient.WithInternal(cause)

	require.Equal(t, ErrTransient.HTTPStatus, got.HTTPStatus)
	require.Equal(t, ErrTransient.Code, got.Code)
	require.Equal(t, cause, got.Internal)
	// original sentinel is untouched
	require.Nil(t, ErrTransient.Internal)
}

func TestWithMessageAndDetailsAreCopies(t *testing.T) {
	details := map[string]any{"field": "level"}
	got := ErrValidation.WithMessage("level out of range").WithDetails(details)

	require.Equal(t, "level out of range", got.Message)
	require.Equal(t, details, got.Details)
	require.NotEqual(t, ErrValidation.Message, got.Message)
}

func TestNewMergeConflictDetails(t *testing.T) {
	err := NewMergeConflict("car:c1", "nbr_seats", 4, 5)
	require.Equal(t, ErrMergeConflict.Code, err.Code)
	require.Equal(t, "car:c1", err.Details["entity"])
	require.Equal(t, "nbr_seats", err.Details["attribute"])
	require.Equal(t, 4, err.Details["branch_value"])
	require.Equal(t, 5, err.Details["base_value"])
}

func TestNewNotFoundMessage(t *testing.T) {
	err := NewNotFound("branch", "feature-x")
	require.Equal(t, `branch "feature-x" not found`, err.Message)
	require.Equal(t, http.StatusNotFound, err.HTTPStatus)
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(ErrTransient))
	require.True(t, IsRetryable(ErrConflict))
	require.False(t, IsRetryable(ErrMergeConflict))
	require.False(t, IsRetryable(errors.New("plain error")))
}

func TestToHTTPError(t *testing.T) {
	status, body := ToHTTPError(ErrInvalidBranchName)
	require.Equal(t, http.StatusBadRequest, status)
	errObj := body["error"].(map[string]any)
	require.Equal(t, "InvalidBranchName", errObj["code"])

	status, body = ToHTTPError(errors.New("unknown"))
	require.Equal(t, http.StatusInternalServerError, status)
	errObj = body["error"].(map[string]any)
	require.Equal(t, "Fatal", errObj["code"])
}
