package sink

import "errors"

var (
	// ErrBadMagic is returned when reading a stream whose magic marker
	// doesn't match.
	ErrBadMagic = errors.New("sink: bad magic marker")

	// ErrHeaderAlreadyWritten is returned by WriteHeader when called a
	// second time on the same sink.
	ErrHeaderAlreadyWritten = errors.New("sink: header already written")

	// ErrHeaderNotWritten is returned by WriteSample when called before
	// WriteHeader.
	ErrHeaderNotWritten = errors.New("sink: header not written yet")
)
