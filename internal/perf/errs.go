package perf

import "errors"

var (
	// ErrAttached is returned by Append when called on an already-attached group.
	ErrAttached = errors.New("perf: group already attached")

	// ErrEmptyGroup is returned by Attach on a group with no descriptors.
	ErrEmptyGroup = errors.New("perf: group has no descriptors")

	// ErrFollowerFlags is returned by Append when a follower descriptor
	// carries Pinned or Exclusive, which only the leader may set.
	ErrFollowerFlags = errors.New("perf: only the group leader may be pinned or exclusive")

	// ErrNotAttached is returned by operations that require an attached group.
	ErrNotAttached = errors.New("perf: group not attached")

	// ErrShortRead indicates a grouped read returned fewer bytes than the
	// group's descriptor count requires.
	ErrShortRead = errors.New("perf: short read from counter group")
)
