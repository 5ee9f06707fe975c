// Package pirate implements the cache-pirate workers: CPU-pinned threads
// that occupy a controlled, sweepable share of the shared last-level
// cache while the target runs alongside them.
//
// A Config describes the LLC parameters the sweep is driven from. A
// Worker owns one CPU, one hugemem.View, and one attached perf.Group; its
// State cell is written by the worker itself (RUNNING), by the
// coordinator (NEXT_SIZE, to request an advance) and by the run's
// teardown (FINISHED).
//
// Package import path: github.com/ja7ad/cachepirate/internal/pirate
package pirate
