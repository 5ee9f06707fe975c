// Package target controls the measured process: it spawns the target
// under ptrace, pins it to its assigned CPU at the earliest possible
// point, and passes the kernel's signal-delivery notifications (the
// performance counter's overflow SIGIO, among others) back to the
// coordination engine.
//
// Package import path: github.com/ja7ad/cachepirate/internal/target
package target
