//go:build linux

package bootstrap

import (
	"fmt"

	"github.com/ja7ad/cachepirate/internal/hwevent"
	"github.com/ja7ad/cachepirate/internal/perf"
)

// mandatoryPirateEvents are attached to every pirate group before any
// event names the caller adds, per spec.md §6 ("pirate events ... added
// to every pirate group in addition to instructions+cycles").
var mandatoryPirateEvents = []string{"instructions", "cycles"}

func resolveDescriptors(names []string) ([]perf.Descriptor, error) {
	out := make([]perf.Descriptor, 0, len(names))
	for _, name := range names {
		d, err := hwevent.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: resolve event %q: %w", name, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func pirateDescriptors(extra []string) ([]perf.Descriptor, error) {
	return resolveDescriptors(append(append([]string{}, mandatoryPirateEvents...), extra...))
}

func buildGroup(descs []perf.Descriptor, pid, cpu int, opts perf.AttachOptions) (*perf.AttachedGroup, error) {
	if len(descs) == 0 {
		return nil, perf.ErrEmptyGroup
	}
	g := perf.New(descs[0])
	for _, d := range descs[1:] {
		if err := g.Append(d); err != nil {
			return nil, err
		}
	}
	return g.Attach(pid, cpu, opts)
}
