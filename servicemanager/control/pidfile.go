package control

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadPIDFile reads the supervisor's and the child's PIDs from a pid file
// written by the run loop. child is 0 if the file only has one line.
func ReadPIDFile(path string) (supervisor, child int, err error) {
	if path == "" {
		return 0, 0, errors.New("no pid file configured")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to read pid file")
	}

	lines := strings.Fields(string(b))
	if len(lines) == 0 {
		return 0, 0, errors.New("pid file is empty")
	}

	supervisor, err = strconv.Atoi(lines[0])
	if err != nil || supervisor <= 0 {
		return 0, 0, errors.Errorf("invalid supervisor pid %q", lines[0])
	}

	if len(lines) > 1 {
		child, err = strconv.Atoi(lines[1])
		if err != nil {
			return 0, 0, errors.Errorf("invalid child pid %q", lines[1])
		}
	}

	return supervisor, child, nil
}
