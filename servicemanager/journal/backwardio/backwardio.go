// Package backwardio implements a line reader that reads a file from its end
// towards its start.
package backwardio

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var (
	chunkSize = 4096
	maxLine   = bufio.MaxScanTokenSize
)

// Reader reads lines backwards, similar to bufio except that the last line
// comes first.
type Reader struct {
	r    io.ReadSeeker
	buf  []byte // unread bytes starting at off
	off  int64
	init bool
	done bool
}

// NewReader creates a backwards reader. The reader starts at the current end
// of r.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

// ReadLine returns the line before the previously returned one, without its
// newline. A file ending with a newline yields an empty line first. io.EOF is
// returned once the start of the file has been passed, and bufio.ErrTooLong
// if a line doesn't fit into the maximum line size.
func (r *Reader) ReadLine() ([]byte, error) {
	if !r.init {
		end, err := r.r.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, errors.Wrap(err, "failed to find end of file")
		}
		r.off = end
		r.done = end == 0
		r.init = true
	}

	for {
		if r.done {
			return nil, io.EOF
		}

		if i := bytes.LastIndexByte(r.buf, '\n'); i >= 0 {
			line := r.buf[i+1:]
			r.buf = r.buf[:i]
			return line, nil
		}

		if r.off == 0 {
			line := r.buf
			r.buf = nil
			r.done = true
			return line, nil
		}

		if len(r.buf) >= maxLine {
			return nil, bufio.ErrTooLong
		}

		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

// fill prepends the chunk before off to the buffer.
func (r *Reader) fill() error {
	n := int64(chunkSize)
	if n > r.off {
		n = r.off
	}

	if _, err := r.r.Seek(r.off-n, io.SeekStart); err != nil {
		return errors.Wrap(err, "failed to seek backwards")
	}

	buf := make([]byte, int(n)+len(r.buf))

	if _, err := io.ReadFull(r.r, buf[:n]); err != nil {
		return errors.Wrap(err, "failed to read seeked chunk")
	}

	copy(buf[n:], r.buf)

	r.buf = buf
	r.off -= n
	return nil
}
