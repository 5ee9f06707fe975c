package sink

// Sink is the pluggable destination for one run's header and samples.
// WriteHeader is called exactly once, before any WriteSample call. The
// sink guarantees durability of each call; the core does not retry.
type Sink interface {
	WriteHeader(h Header) error
	WriteSample(s Sample) error
	Close() error
}

// MultiSink fans every call out to all of its members, in order.
// WriteHeader and WriteSample stop at the first error; Close closes every
// member and returns the first error. It supplements spec.md's single-sink core
// with the original tool's "write to a file while also printing a live
// summary" behavior.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one Sink.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) WriteHeader(h Header) error {
	for _, s := range m.sinks {
		if err := s.WriteHeader(h); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) WriteSample(s Sample) error {
	for _, sk := range m.sinks {
		if err := sk.WriteSample(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
