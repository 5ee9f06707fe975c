package hugemem

import "errors"

var (
	// ErrClosed is returned by operations attempted on a closed Buffer.
	ErrClosed = errors.New("hugemem: buffer is closed")

	// ErrOutOfRange is returned by TouchAt when the requested offset
	// falls outside the buffer.
	ErrOutOfRange = errors.New("hugemem: offset out of range")
)
