//go:build linux

package hwevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestResolve_Symbolic(t *testing.T) {
	d, err := Resolve("cycles")
	require.NoError(t, err)
	assert.Equal(t, uint32(unix.PERF_TYPE_HARDWARE), d.Type)
	assert.Equal(t, uint64(unix.PERF_COUNT_HW_CPU_CYCLES), d.Config)
	assert.Equal(t, "cycles", d.Name)
}

func TestResolve_CacheEvent(t *testing.T) {
	d, err := Resolve("LLC-load-misses")
	require.NoError(t, err)
	assert.Equal(t, uint32(unix.PERF_TYPE_HW_CACHE), d.Type)

	want := cacheConfig(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)
	assert.Equal(t, want, d.Config)
}

func TestResolve_Raw(t *testing.T) {
	d, err := Resolve("raw:412e")
	require.NoError(t, err)
	assert.Equal(t, uint32(unix.PERF_TYPE_RAW), d.Type)
	assert.Equal(t, uint64(0x412e), d.Config)
	assert.Equal(t, "raw:412e", d.Name)
}

func TestResolve_RawInvalidHex(t *testing.T) {
	_, err := Resolve("raw:zz")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestResolve_UnknownName(t *testing.T) {
	_, err := Resolve("not-a-real-event")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestNames_SortedAndNonEmpty(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}
