package backwardio

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// setLimits shrinks the chunk and line sizes for the duration of the test.
func setLimits(t *testing.T, chunk, line int) {
	oldChunk, oldLine := chunkSize, maxLine
	chunkSize, maxLine = chunk, line
	t.Cleanup(func() { chunkSize, maxLine = oldChunk, oldLine })
}

func readAll(t *testing.T, r *Reader) []string {
	t.Helper()

	var lines []string
	for {
		b, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, string(b))
	}
}

func TestReader(t *testing.T) {
	tests := []struct {
		name  string
		chunk int
		input string
		lines []string
	}{
		{"trailing newline", 2, "aa\nbb\ncc\ndd\n", []string{"", "dd", "cc", "bb", "aa"}},
		{"leading and trailing", 2, "\naa\nbb\n", []string{"", "bb", "aa", ""}},
		{"leading newline", 2, "\naa\nbb", []string{"bb", "aa", ""}},
		{"single bytes", 2, "a\nb\nc\n", []string{"", "c", "b", "a"}},
		{"odd chunk", 3, "one\ntwo\nsix", []string{"six", "two", "one"}},
		{"one chunk", 4096, "2024-01-02 03:04:05\tstarted\n", []string{"", "2024-01-02 03:04:05\tstarted"}},
		{"crlf kept", 4, "a\r\nb\r\n", []string{"", "b\r", "a\r"}},
		{"empty", 2, "", nil},
		{"no newline", 2, "x", []string{"x"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			setLimits(t, test.chunk, 8)

			r := NewReader(strings.NewReader(test.input))
			require.Equal(t, test.lines, readAll(t, r))

			// EOF sticks.
			_, err := r.ReadLine()
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestReaderTooLong(t *testing.T) {
	setLimits(t, 2, 3)

	r := NewReader(strings.NewReader("aaaaa\nbbbbb"))

	_, err := r.ReadLine()
	require.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestReaderSeekerErrors(t *testing.T) {
	errCustom := errors.New("custom error")

	tests := []struct {
		name  string
		fail  failStage
		error string
	}{
		{"seek end", failSeekEnd, "failed to find end of file"},
		{"seek start", failSeekStart, "failed to seek backwards"},
		{"read", failRead, "failed to read seeked chunk"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := NewReader(failSeeker{err: errCustom, fail: test.fail})

			_, err := r.ReadLine()
			require.ErrorIs(t, err, errCustom)
			require.ErrorContains(t, err, test.error)
		})
	}
}

type failStage int

const (
	failSeekEnd failStage = iota
	failSeekStart
	failRead
)

// failSeeker pretends to be a 10 byte file that fails at one stage.
type failSeeker struct {
	err  error
	fail failStage
}

func (s failSeeker) Read(b []byte) (int, error) {
	if s.fail == failRead {
		return 0, s.err
	}
	return len(b), nil
}

func (s failSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekEnd:
		if s.fail == failSeekEnd {
			return 0, s.err
		}
		return 10, nil
	case io.SeekStart:
		if s.fail == failSeekStart {
			return 0, s.err
		}
		return offset, nil
	default:
		return 0, errors.New("unexpected whence value")
	}
}
