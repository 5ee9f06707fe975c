//go:build linux

package hwevent

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/ja7ad/cachepirate/internal/perf"
)

func cacheConfig(cacheID, opID, resultID uint64) uint64 {
	return cacheID | (opID << 8) | (resultID << 16)
}

// symbolic maps perf-tools-style event names to (type, config) pairs.
var symbolic = map[string]struct {
	typ    uint32
	config uint64
}{
	"cycles":              {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES},
	"instructions":        {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_INSTRUCTIONS},
	"cache-references":    {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_REFERENCES},
	"cache-misses":        {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_MISSES},
	"branch-instructions": {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS},
	"branch-misses":       {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_MISSES},
	"bus-cycles":          {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BUS_CYCLES},
	"ref-cycles":          {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_REF_CPU_CYCLES},

	"LLC-loads": {unix.PERF_TYPE_HW_CACHE, cacheConfig(
		unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS)},
	"LLC-load-misses": {unix.PERF_TYPE_HW_CACHE, cacheConfig(
		unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)},
	"LLC-stores": {unix.PERF_TYPE_HW_CACHE, cacheConfig(
		unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_WRITE, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS)},
	"LLC-store-misses": {unix.PERF_TYPE_HW_CACHE, cacheConfig(
		unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_WRITE, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)},
	"L1-dcache-loads": {unix.PERF_TYPE_HW_CACHE, cacheConfig(
		unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS)},
	"L1-dcache-load-misses": {unix.PERF_TYPE_HW_CACHE, cacheConfig(
		unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)},
	"dTLB-loads": {unix.PERF_TYPE_HW_CACHE, cacheConfig(
		unix.PERF_COUNT_HW_CACHE_DTLB, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS)},
	"dTLB-load-misses": {unix.PERF_TYPE_HW_CACHE, cacheConfig(
		unix.PERF_COUNT_HW_CACHE_DTLB, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)},
}

const rawPrefix = "raw:"

// Resolve turns an event name into a counter descriptor's type/config
// fields. Two forms are accepted: a symbolic name from the table above, or
// raw:<hex>, a PERF_TYPE_RAW event with config set to the parsed hex word.
// Name is preserved verbatim on the returned descriptor for logging.
func Resolve(name string) (perf.Descriptor, error) {
	if rest, ok := strings.CutPrefix(name, rawPrefix); ok {
		config, err := strconv.ParseUint(rest, 16, 64)
		if err != nil {
			return perf.Descriptor{}, fmt.Errorf("%w: %q: %v", ErrUnknownEvent, name, err)
		}
		return perf.Descriptor{Type: unix.PERF_TYPE_RAW, Config: config, Name: name}, nil
	}

	ev, ok := symbolic[name]
	if !ok {
		return perf.Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return perf.Descriptor{Type: ev.typ, Config: ev.config, Name: name}, nil
}

// Names returns the sorted symbolic table keys, for CLI help/validation text.
func Names() []string {
	names := make([]string, 0, len(symbolic))
	for n := range symbolic {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
