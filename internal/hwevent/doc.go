// Package hwevent resolves hardware event names into counter descriptor
// fields. It knows two spellings: a table of symbolic names matching the
// perf-tools convention (cycles, instructions, cache-misses, ...), and a
// raw:<hex> form carrying a PERF_TYPE_RAW config word directly.
//
// Package import path: github.com/ja7ad/cachepirate/internal/hwevent
package hwevent
