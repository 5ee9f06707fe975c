package target

import "errors"

var (
	// ErrNoCommand is returned by Spawn when given an empty argv.
	ErrNoCommand = errors.New("target: no command given")

	// ErrUnexpectedStop is returned when the initial exec-stop does not
	// look like the one ptrace+execve is documented to produce.
	ErrUnexpectedStop = errors.New("target: unexpected stop during spawn")
)
