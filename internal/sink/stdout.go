package sink

import (
	"fmt"
	"io"

	"github.com/ja7ad/cachepirate/pkg/types"
)

// StdoutSummary prints one human-readable line per header/sample instead
// of the binary framed format, for live progress visibility alongside a
// FileSink (see MultiSink).
type StdoutSummary struct {
	w io.Writer
}

// NewStdoutSummary writes summary lines to w.
func NewStdoutSummary(w io.Writer) *StdoutSummary {
	return &StdoutSummary{w: w}
}

func (s *StdoutSummary) WriteHeader(h Header) error {
	_, err := fmt.Fprintf(s.w, "cachepirate: %d pirate(s) on %v, total_size=%s, way_size=%s, no_sweep=%v\n",
		h.Pirate.NPirates, h.Pirate.PirateCPUs,
		types.Bytes(h.Pirate.TotalSize).Humanized(), types.Bytes(h.Pirate.WaySize).Humanized(),
		h.Pirate.NoSweep)
	return err
}

func (s *StdoutSummary) WriteSample(sm Sample) error {
	_, err := fmt.Fprintf(s.w, "sample: target_size=%s pirate_size=%s target=%v pirate=%v\n",
		types.Bytes(sm.TargetSize).Humanized(), types.Bytes(sm.PirateSize).Humanized(),
		sm.TargetValues, sm.PirateValues)
	return err
}

func (s *StdoutSummary) Close() error { return nil }
