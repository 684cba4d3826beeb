// Package serviceinfo reads and writes the per-service information records
// that install creates and every other action consumes.
//
// A record is a plain text file of key=value lines. Keys are matched
// case-insensitively and the first matching line wins; lines without an
// equal sign and unknown keys are ignored.
package serviceinfo

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Line is a single key=value line of a record.
type Line struct {
	Key   string
	Value string
}

// Record is a parsed service-info file. Lines are kept in file order.
type Record struct {
	lines []Line
}

// maxLine bounds a single record line. Command lines can get long.
const maxLine = 1 << 20

// Parse reads a record from r.
func Parse(r io.Reader) (*Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)

	var rec Record

	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")

		k, v, ok := strings.Cut(text, "=")
		if !ok || k == "" {
			continue
		}

		rec.lines = append(rec.lines, Line{Key: k, Value: v})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read record")
	}

	return &rec, nil
}

// Get returns the value of the first line whose key matches key, ignoring
// case.
func (r *Record) Get(key string) (string, bool) {
	for _, line := range r.lines {
		if strings.EqualFold(line.Key, key) {
			return line.Value, true
		}
	}
	return "", false
}

// Add appends a line. It does not replace earlier lines with the same key.
func (r *Record) Add(key, value string) {
	r.lines = append(r.lines, Line{Key: key, Value: value})
}

// Lines returns a copy of all lines in file order.
func (r *Record) Lines() []Line {
	return append([]Line(nil), r.lines...)
}

// ErrInvalidValue is returned for a line that cannot be written without
// breaking the record apart.
var ErrInvalidValue = errors.New("line break in record value")

// Validate checks that every line survives a round trip through the record
// file: keys are non-empty without an equal sign, and neither keys nor
// values contain line breaks.
func (r *Record) Validate() error {
	for _, line := range r.lines {
		if line.Key == "" || strings.ContainsAny(line.Key, "=\r\n") {
			return errors.Errorf("invalid key %q", line.Key)
		}
		if strings.ContainsAny(line.Value, "\r\n") {
			return errors.Wrapf(ErrInvalidValue, "key %q", line.Key)
		}
	}
	return nil
}

// WriteTo writes the record to w, one key=value line each. Nothing is
// written if the record does not validate.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	var n int64

	for _, line := range r.lines {
		i, err := io.WriteString(w, line.Key+"="+line.Value+"\n")
		n += int64(i)
		if err != nil {
			return n, errors.Wrap(err, "failed to write record")
		}
	}

	return n, nil
}
