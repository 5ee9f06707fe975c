package pirate

import (
	"sync/atomic"

	"github.com/ja7ad/cachepirate/internal/hugemem"
)

// LoopVariant selects which touching-loop shape a worker runs. It is
// chosen once, by NewConfig; AssignedRanges switches on it again on every
// pass.
type LoopVariant int

const (
	// LoopExact is used when way_size is a power of two: the buffer is
	// sliced into n_pirates equal chunks, one per worker.
	LoopExact LoopVariant = iota
	// LoopHugePageAligned is used otherwise: one way per huge page, each
	// worker scanning only its chunk within each huge page.
	LoopHugePageAligned
)

// Config holds the LLC-derived parameters the sweep is driven from. Every
// field except CurrentSize is fixed for the run's lifetime; CurrentSize is
// the one piece of mutable shared state, written by the coordinator and
// read by every worker.
type Config struct {
	Ways        int
	TotalSize   uint64
	LineStride  uint64
	WaySize     uint64
	LoopVariant LoopVariant
	AllocSize   uint64
	NPirates    int

	currentSize atomic.Uint64
}

// NewConfig derives WaySize from TotalSize/Ways and picks the loop variant
// (exact when WaySize is a power of two, huge-page-aligned otherwise). It
// validates the invariants from the pirate configuration data model:
// TotalSize divides evenly by Ways, AllocSize >= TotalSize and is a
// multiple of the huge page size.
func NewConfig(ways int, totalSize, lineStride, allocSize uint64, nPirates int) (*Config, error) {
	if nPirates <= 0 {
		return nil, ErrNoPirates
	}
	if ways <= 0 || totalSize%uint64(ways) != 0 {
		return nil, ErrTotalSizeNotDivisible
	}
	if allocSize < totalSize || allocSize%hugemem.PageSize != 0 {
		return nil, ErrInvalidAllocSize
	}

	waySize := totalSize / uint64(ways)
	variant := LoopHugePageAligned
	if isPowerOfTwo(waySize) {
		variant = LoopExact
	}

	return &Config{
		Ways:        ways,
		TotalSize:   totalSize,
		LineStride:  lineStride,
		WaySize:     waySize,
		LoopVariant: variant,
		AllocSize:   allocSize,
		NPirates:    nPirates,
	}, nil
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// CurrentSize returns the working-set size for the next sweep iteration.
func (c *Config) CurrentSize() uint64 { return c.currentSize.Load() }

// SetCurrentSize publishes a new working-set size. Only the coordinator
// calls this.
func (c *Config) SetCurrentSize(size uint64) { c.currentSize.Store(size) }

// Advance moves CurrentSize forward by WaySize, wrapping to zero once it
// would reach or exceed TotalSize, and returns the new value.
func (c *Config) Advance() uint64 {
	next := c.currentSize.Load() + c.WaySize
	if next >= c.TotalSize {
		next = 0
	}
	c.currentSize.Store(next)
	return next
}

// ChunkSize returns the number of bytes one worker scans per way, given
// NPirates workers share each way evenly.
func (c *Config) ChunkSize() uint64 {
	return c.WaySize / uint64(c.NPirates)
}
