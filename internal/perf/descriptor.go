package perf

// Descriptor identifies one hardware event to be opened as a counter.
// It is immutable once attached to a Group.
type Descriptor struct {
	// Type is the perf_event_attr type field (PERF_TYPE_HARDWARE,
	// PERF_TYPE_HW_CACHE, PERF_TYPE_RAW, ...).
	Type uint32

	// Config, Config1, Config2 are the up-to-three configuration words
	// (perf_event_attr.config/config1/config2).
	Config, Config1, Config2 uint64

	// Name is a human-readable event name, used only for logging and for
	// header metadata; it plays no role in attach().
	Name string

	// Pinned and Exclusive may only be set on a group's leader descriptor.
	Pinned    bool
	Exclusive bool
}

// perf_event_attr.read_format bits (linux/perf_event.h).
const (
	formatTotalTimeEnabled uint64 = 1 << 0
	formatTotalTimeRunning uint64 = 1 << 1
	formatGroup            uint64 = 1 << 3
)

// perf_event_attr bitfield positions (linux/perf_event.h), packed into the
// single 64-bit word golang.org/x/sys/unix exposes as PerfEventAttr.Bits.
const (
	bitDisabled      = 0
	bitInherit       = 1
	bitPinned        = 2
	bitExclusive     = 3
	bitExcludeUser   = 4
	bitExcludeKernel = 5
	bitExcludeHV     = 6
	bitExcludeIdle   = 7
	bitMmap          = 8
	bitComm          = 9
	bitFreq          = 10
	bitEnableOnExec  = 12
	bitWatermark     = 14
	bitSampleIDAll   = 18
)

func attrBits(d Descriptor, isLeader bool, startDisabled, enableOnExec, sampleIDAll bool) uint64 {
	var bits uint64
	if startDisabled {
		bits |= 1 << bitDisabled
	}
	if isLeader && d.Pinned {
		bits |= 1 << bitPinned
	}
	if isLeader && d.Exclusive {
		bits |= 1 << bitExclusive
	}
	if enableOnExec {
		bits |= 1 << bitEnableOnExec
	}
	if sampleIDAll {
		bits |= 1 << bitSampleIDAll
	}
	return bits
}
