// Package sink defines the sample sink interface the coordination engine
// writes its header and per-sweep-point samples to, plus the concrete
// implementations this repo ships: a framed binary file sink, a live
// stdout summary, and a fan-out sink combining several others.
//
// Package import path: github.com/ja7ad/cachepirate/internal/sink
package sink
