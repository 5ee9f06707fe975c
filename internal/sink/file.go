package sink

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// magic is the fixed 4-byte marker every stream starts with.
var magic = [4]byte{'C', 'P', 'R', '1'}

// FileSink writes the wire layout from spec.md §6: the magic marker,
// then one length-prefixed header message, then a sequence of
// length-prefixed sample messages. Lengths are 32-bit little-endian byte
// counts of the JSON payload that follows. The framing is what the
// core's invariants depend on; the payload codec itself is opaque.
type FileSink struct {
	w             io.WriteCloser
	mu            sync.Mutex
	headerWritten bool
}

// NewFileSink creates path (truncating it if it exists) and writes the
// magic marker immediately.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: create %q: %w", path, err)
	}
	if _, err := f.Write(magic[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("sink: write magic: %w", err)
	}
	return &FileSink{w: f}, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("sink: write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("sink: write frame payload: %w", err)
	}
	return nil
}

func (f *FileSink) WriteHeader(h Header) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headerWritten {
		return ErrHeaderAlreadyWritten
	}
	payload, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("sink: marshal header: %w", err)
	}
	if err := writeFrame(f.w, payload); err != nil {
		return err
	}
	f.headerWritten = true
	return nil
}

func (f *FileSink) WriteSample(s Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.headerWritten {
		return ErrHeaderNotWritten
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("sink: marshal sample: %w", err)
	}
	return writeFrame(f.w, payload)
}

func (f *FileSink) Close() error {
	return f.w.Close()
}

// readFrame reads one length-prefixed payload from r.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("sink: read frame payload: %w", err)
	}
	return payload, nil
}

// ReadStream parses a stream written by FileSink back into a Header and
// its Samples, for round-trip verification and offline tooling.
func ReadStream(r io.Reader) (Header, []Sample, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return Header{}, nil, fmt.Errorf("sink: read magic: %w", err)
	}
	if gotMagic != magic {
		return Header{}, nil, ErrBadMagic
	}

	headerPayload, err := readFrame(r)
	if err != nil {
		return Header{}, nil, fmt.Errorf("sink: read header frame: %w", err)
	}
	var h Header
	if err := json.Unmarshal(headerPayload, &h); err != nil {
		return Header{}, nil, fmt.Errorf("sink: unmarshal header: %w", err)
	}

	var samples []Sample
	for {
		payload, err := readFrame(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return Header{}, nil, err
		}
		var s Sample
		if err := json.Unmarshal(payload, &s); err != nil {
			return Header{}, nil, fmt.Errorf("sink: unmarshal sample: %w", err)
		}
		samples = append(samples, s)
	}
	return h, samples, nil
}
