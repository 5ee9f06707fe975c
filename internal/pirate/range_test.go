package pirate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignedRanges_ExactVariantDisjoint(t *testing.T) {
	const size = 1 << 20
	const nPirates = 4

	seen := make([]bool, size)
	for i := 0; i < nPirates; i++ {
		ranges := AssignedRanges(LoopExact, i, nPirates, 0, size)
		for _, r := range ranges {
			assert.LessOrEqual(t, r.Start+r.Len, uint64(size))
			for off := r.Start; off < r.Start+r.Len; off++ {
				assert.False(t, seen[off], "offset %d claimed by more than one worker", off)
				seen[off] = true
			}
		}
	}
}

func TestAssignedRanges_HugePageVariantStaysWithinWays(t *testing.T) {
	const waySize = 64 * 1024
	const size = 3 * waySize
	const nPirates = 2

	for i := 0; i < nPirates; i++ {
		ranges := AssignedRanges(LoopHugePageAligned, i, nPirates, waySize, size)
		for _, r := range ranges {
			assert.LessOrEqual(t, r.Start+r.Len, uint64(size))
			// every range must lie fully within a single way.
			wayStart := (r.Start / waySize) * waySize
			assert.LessOrEqual(t, r.Start+r.Len, wayStart+waySize)
		}
	}
}

func TestAssignedRanges_HugePageVariantHandlesPartialWay(t *testing.T) {
	const waySize = 64 * 1024
	const size = waySize + waySize/2 // one full way, one partial way
	const nPirates = 2

	var total uint64
	for i := 0; i < nPirates; i++ {
		ranges := AssignedRanges(LoopHugePageAligned, i, nPirates, waySize, size)
		for _, r := range ranges {
			total += r.Len
			assert.LessOrEqual(t, r.Start+r.Len, uint64(size))
		}
	}
	assert.LessOrEqual(t, total, uint64(size))
}

func TestAssignedRanges_ZeroSizeIsEmpty(t *testing.T) {
	assert.Nil(t, AssignedRanges(LoopExact, 0, 2, 0, 0))
	assert.Nil(t, AssignedRanges(LoopHugePageAligned, 0, 2, 64*1024, 0))
}
