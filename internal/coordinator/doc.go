// Package coordinator implements the coordination engine: the state
// machine that reacts to the target's ptrace stops, drives the pirate
// working-set sweep, and triggers counter-group reads that become
// samples.
//
// A single Engine owns target_state; each pirate worker owns its own
// pirate_state[i] (see package pirate). All coordination beyond these
// cells goes through the ptrace stop/continue protocol in package
// target.
//
// Package import path: github.com/ja7ad/cachepirate/internal/coordinator
package coordinator
