package pirate

import "errors"

var (
	// ErrNoPirates is returned by NewConfig when n_pirates is zero.
	ErrNoPirates = errors.New("pirate: at least one pirate is required")

	// ErrTotalSizeNotDivisible is returned when total_size does not
	// divide evenly into the requested number of ways.
	ErrTotalSizeNotDivisible = errors.New("pirate: total_size not evenly divisible by ways")

	// ErrInvalidAllocSize is returned when alloc_size is smaller than
	// total_size or not a multiple of the huge page size.
	ErrInvalidAllocSize = errors.New("pirate: alloc_size must be >= total_size and a multiple of the huge page size")
)
