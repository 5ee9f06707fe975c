// Package perf manages grouped Linux hardware performance counters.
//
// A Group is an ordered, non-empty sequence of Descriptors sharing one
// group leader. Groups are built with New/Append, then Attach to a
// (pid, cpu) tuple, which opens one kernel fd per descriptor and returns
// an AttachedGroup. All counters in a group are scheduled atomically by
// the kernel, so a grouped Read returns values that correspond to the
// same execution window.
//
// Package import path: github.com/ja7ad/cachepirate/internal/perf
package perf
