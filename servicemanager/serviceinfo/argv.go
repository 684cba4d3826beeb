package serviceinfo

import (
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
)

// JoinArgs quotes every argument in single quotes and joins them with
// spaces. A single quote inside an argument is written as '\''.
func JoinArgs(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}

// SplitArgs splits a stored command line back into its arguments using
// shell-like rules.
func SplitArgs(s string) ([]string, error) {
	argv, err := shlex.Split(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to split command line")
	}
	return argv, nil
}
