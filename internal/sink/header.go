package sink

import "github.com/ja7ad/cachepirate/internal/perf"

// PirateConfig is the pirate-side portion of the run header.
type PirateConfig struct {
	Ways        int               `json:"ways"`
	TotalSize   uint64            `json:"total_size"`
	LineStride  uint64            `json:"line_stride"`
	WaySize     uint64            `json:"way_size"`
	NoSweep     bool              `json:"no_sweep"`
	NPirates    int               `json:"n_pirates"`
	PirateCPUs  []int             `json:"pirate_cpus"`
	Descriptors []perf.Descriptor `json:"pirate_counters"`
}

// TargetConfig is the target-side portion of the run header.
type TargetConfig struct {
	CPU          int               `json:"cpu"`
	SamplePeriod uint64            `json:"sample_period"`
	Descriptors  []perf.Descriptor `json:"target_counters"`
	Command      []string          `json:"command"`
}

// Reference is the one-time, optional pirate-only normalization datum
// described in spec.md §4.5.
type Reference struct {
	Values      []uint64 `json:"values"`
	TimeEnabled uint64   `json:"time_enabled"`
	TimeRunning uint64   `json:"time_running"`
}

// Header is written exactly once, before any Sample, and carries every
// piece of run configuration a downstream reader needs to interpret the
// samples that follow.
type Header struct {
	Pirate    PirateConfig `json:"pirate"`
	Target    TargetConfig `json:"target"`
	Reference *Reference   `json:"reference,omitempty"`
}

// Sample is one sweep-point measurement: the working-set split between
// target and pirates at the moment of the read, plus every counter
// group's grouped values. TargetSize + PirateSize always equals the
// pirate configuration's TotalSize.
type Sample struct {
	TargetSize   uint64     `json:"target_size"`
	PirateSize   uint64     `json:"pirate_size"`
	TargetValues []uint64   `json:"target_values"`
	PirateValues [][]uint64 `json:"pirate_values"`
}
