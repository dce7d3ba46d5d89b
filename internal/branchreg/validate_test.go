package branchreg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/branchgraph/branchgraph/pkg/apperror"
)

func TestValidateName(t *testing.T) {
	valid := []string{"main", "branch2", "feature/x-1", "a", "A0_-.9"}
	for _, name := range valid {
		require.NoError(t, ValidateName(name), "expected %q to be valid", name)
	}

	invalid := []string{"", "not valid", "-leading-dash", "has space", "emoji🙂"}
	for _, name := range invalid {
		err := ValidateName(name)
		require.Error(t, err, "expected %q to be rejected", name)
		appErr, ok := err.(*apperror.Error)
		require.True(t, ok)
		require.Equal(t, apperror.ErrInvalidBranchName.Code, appErr.Code)
	}
}

func TestValidateNameMaxLength(t *testing.T) {
	tooLong := make([]byte, 65)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	require.Error(t, ValidateName(string(tooLong)))

	exactly64 := make([]byte, 64)
	for i := range exactly64 {
		exactly64[i] = 'a'
	}
	require.NoError(t, ValidateName(string(exactly64)))
}
