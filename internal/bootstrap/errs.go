package bootstrap

import "errors"

var (
	// ErrNoPirateCPUs is returned when Options carries no pirate CPUs.
	ErrNoPirateCPUs = errors.New("bootstrap: at least one pirate cpu is required")

	// ErrCPUConflict is returned by ValidateCPUPins when the target CPU,
	// the controller CPU and the pirate CPU list are not pairwise distinct.
	ErrCPUConflict = errors.New("bootstrap: target and pirate cpu pins must be pairwise distinct")

	// ErrNoTargetEvents is returned when Options specifies no target
	// counter events at all (the leader event is mandatory).
	ErrNoTargetEvents = errors.New("bootstrap: at least one target event is required")
)
