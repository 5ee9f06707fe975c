// Package hugemem manages the single huge-page-backed buffer shared,
// read-only-in-intent, by the target's pirate workers.
//
// Buffer is the owning allocation; View is a non-owning handle a worker
// receives to read through without risking a write. View exposes TouchAt,
// a compiler-opaque byte load that defeats dead-load elimination so the
// touching loop's memory accesses cannot be optimized away.
//
// Package import path: github.com/ja7ad/cachepirate/internal/hugemem
package hugemem
