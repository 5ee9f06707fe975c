package coordinator

import "errors"

// ErrUnexpectedStop is logged (never returned fatally) when the target
// stops with SIGTRAP outside of WAIT_EXEC, which the state table treats
// as pass-through-but-noteworthy.
var ErrUnexpectedStop = errors.New("coordinator: unexpected SIGTRAP from target")
