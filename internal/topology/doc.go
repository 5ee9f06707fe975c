// Package topology discovers the shared last-level-cache geometry that
// internal/bootstrap and internal/pirate need: associativity, total size,
// and line stride. The real source is sysfs; tests substitute a fake
// Oracle instead of requiring a particular CPU topology.
package topology
