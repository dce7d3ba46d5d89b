package branchreg

import (
	"regexp"

	"github.com/branchgraph/branchgraph/pkg/apperror"
)

// nameGrammar is the branch-name grammar from spec §6.
var nameGrammar = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-./]{0,63}$`)

// ValidateName rejects names that don't match spec §6's grammar, returning
// apperror.ErrInvalidBranchName on failure.
func ValidateName(name string) error {
	if !nameGrammar.MatchString(name) {
		return apperror.ErrInvalidBranchName.WithMessage("branch name " + quote(name) + " does not match ^[A-Za-z0-9][A-Za-z0-9_\\-./]{0,63}$")
	}
	return nil
}

func quote(s string) string {
	return "\"" + s + "\""
}
