package journal

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/journal/backwardio"
)

// Tail returns up to the last n non-empty lines of the log file at path, in
// file order.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}
	defer f.Close()

	r := backwardio.NewReader(f)
	lines := make([]string, 0, n)

	for len(lines) < n {
		b, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		if len(b) > 0 && b[len(b)-1] == '\r' {
			b = b[:len(b)-1]
		}
		if len(b) == 0 {
			continue
		}

		lines = append(lines, string(b))
	}

	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}

	return lines, nil
}
