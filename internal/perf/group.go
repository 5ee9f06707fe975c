//go:build linux

package perf

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// nativeEndian decodes the byte order perf_event_open uses for its read()
// payload, which always matches the host's native endianness.
var nativeEndian = binary.NativeEndian

// Group is an ordered, non-empty sequence of Descriptors sharing one group
// leader. It carries no kernel resources until Attach is called.
type Group struct {
	descriptors []Descriptor
	attached    bool
}

// New allocates a group whose single member (and leader) is d.
func New(leader Descriptor) *Group {
	return &Group{descriptors: []Descriptor{leader}}
}

// Append adds a follower descriptor at the tail of the group. It fails if
// the group has already been attached, or if the descriptor carries
// Pinned/Exclusive (only the leader may set those).
func (g *Group) Append(d Descriptor) error {
	if g.attached {
		return ErrAttached
	}
	if d.Pinned || d.Exclusive {
		return ErrFollowerFlags
	}
	g.descriptors = append(g.descriptors, d)
	return nil
}

// Len returns the number of descriptors in the group.
func (g *Group) Len() int { return len(g.descriptors) }

// Descriptors returns a copy of the group's descriptors in insertion order.
func (g *Group) Descriptors() []Descriptor {
	out := make([]Descriptor, len(g.descriptors))
	copy(out, g.descriptors)
	return out
}

// AttachOptions configures leader-only sampling behavior at Attach time.
type AttachOptions struct {
	// SamplePeriod sets the leader's overflow period in events. Zero means
	// no periodic overflow notification.
	SamplePeriod uint64
	// Freq, if true, interprets SamplePeriod as a frequency (Hz) instead
	// of a raw event period.
	Freq bool
	// WakeupEvents requests an overflow notification every N samples
	// (1 is the usual choice for per-overflow signal delivery).
	WakeupEvents uint32
	// EnableOnExec sets perf_event_attr.enable_on_exec so counting begins
	// at the next execve in the target pid rather than immediately.
	EnableOnExec bool
	// StartDisabled opens every descriptor disabled; the caller is
	// expected to call Reset+Enable (or just Enable) once ready.
	StartDisabled bool
}

// readFormat is shared by every descriptor in a group: grouped reads always
// return time_enabled/time_running alongside the per-member values.
const readFormat = formatGroup | formatTotalTimeEnabled | formatTotalTimeRunning

func buildAttr(d Descriptor, isLeader bool, opts AttachOptions) *unix.PerfEventAttr {
	attr := &unix.PerfEventAttr{
		Type:        d.Type,
		Size:        uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Config:      d.Config,
		Ext1:        d.Config1,
		Ext2:        d.Config2,
		Read_format: readFormat,
		Bits:        attrBits(d, isLeader, opts.StartDisabled, opts.EnableOnExec, false),
	}
	if isLeader {
		attr.Sample = opts.SamplePeriod
		attr.Wakeup = opts.WakeupEvents
		if opts.Freq {
			attr.Bits |= 1 << bitFreq
		}
	}
	return attr
}

// Attach opens one kernel counter for each descriptor in order, passing
// the leader's fd as the group fd for every follower and -1 for the
// leader. On any failure, every fd already opened for this group is
// closed before the error is returned.
func (g *Group) Attach(pid, cpu int, opts AttachOptions) (*AttachedGroup, error) {
	if g.attached {
		return nil, ErrAttached
	}
	if len(g.descriptors) == 0 {
		return nil, ErrEmptyGroup
	}

	fds := make([]int, 0, len(g.descriptors))
	closeAll := func() {
		for _, fd := range fds {
			_ = unix.Close(fd)
		}
	}

	leaderFD := -1
	for i, d := range g.descriptors {
		isLeader := i == 0
		attr := buildAttr(d, isLeader, opts)
		groupFD := -1
		if !isLeader {
			groupFD = leaderFD
		}
		fd, err := unix.PerfEventOpen(attr, pid, cpu, groupFD, unix.PERF_FLAG_FD_CLOEXEC)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("perf: open descriptor %d (%s): %w", i, d.Name, err)
		}
		if isLeader {
			leaderFD = fd
		}
		fds = append(fds, fd)
	}

	g.attached = true
	return &AttachedGroup{
		descriptors: g.Descriptors(),
		fds:         fds,
		leaderFD:    leaderFD,
	}, nil
}

// AttachedGroup is a Group that has been opened against a (pid, cpu)
// tuple: one kernel fd per descriptor, sharing the leader's group.
type AttachedGroup struct {
	descriptors []Descriptor
	fds         []int
	leaderFD    int
	closed      bool
}

// LeaderFD returns the leader's file descriptor.
func (ag *AttachedGroup) LeaderFD() int { return ag.leaderFD }

// Len returns the number of members in the group.
func (ag *AttachedGroup) Len() int { return len(ag.descriptors) }

// Reset resets every counter in the group. Addressed to each fd
// individually, as ioctl(PERF_EVENT_IOC_RESET) on a group member resets
// that member's count but the kernel schedules group members together so
// the reset lands within one unscheduled window.
func (ag *AttachedGroup) Reset() error {
	for _, fd := range ag.fds {
		if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_RESET, 0); err != nil {
			return fmt.Errorf("perf: reset fd %d: %w", fd, err)
		}
	}
	return nil
}

// Enable enables every counter in the group.
func (ag *AttachedGroup) Enable() error {
	for _, fd := range ag.fds {
		if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
			return fmt.Errorf("perf: enable fd %d: %w", fd, err)
		}
	}
	return nil
}

// Disable disables every counter in the group.
func (ag *AttachedGroup) Disable() error {
	for _, fd := range ag.fds {
		if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_DISABLE, 0); err != nil {
			return fmt.Errorf("perf: disable fd %d: %w", fd, err)
		}
	}
	return nil
}

// GroupRead is one grouped read of a counter group: nr member values, in
// insertion order, plus the two scheduling-time metadata fields.
type GroupRead struct {
	NR          uint64
	TimeEnabled uint64
	TimeRunning uint64
	Values      []uint64
}

// groupReadHeaderWords is the (nr, time_enabled, time_running) prefix every
// PERF_FORMAT_GROUP read carries ahead of the per-member values.
const groupReadHeaderWords = 3

// Read performs one grouped read of the leader fd, returning all member
// values in insertion order. Short reads are fatal; transient EAGAIN is
// retried.
func (ag *AttachedGroup) Read() (GroupRead, error) {
	nr := len(ag.descriptors)
	buf := make([]byte, 8*(groupReadHeaderWords+nr))

	for {
		n, err := unix.Read(ag.leaderFD, buf)
		if err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return GroupRead{}, fmt.Errorf("perf: read leader fd %d: %w", ag.leaderFD, err)
		}
		if n != len(buf) {
			return GroupRead{}, fmt.Errorf("%w: got %d bytes, want %d", ErrShortRead, n, len(buf))
		}
		break
	}

	words := make([]uint64, groupReadHeaderWords+nr)
	for i := range words {
		words[i] = nativeEndian.Uint64(buf[i*8 : i*8+8])
	}

	gr := GroupRead{
		NR:          words[0],
		TimeEnabled: words[1],
		TimeRunning: words[2],
		Values:      make([]uint64, nr),
	}
	copy(gr.Values, words[groupReadHeaderWords:])
	return gr, nil
}

// SetAsyncOwner arranges for the leader's overflow notifications to be
// delivered as a signal to ownerPID (asynchronous I/O mode), the mechanism
// the coordination engine relies on to be woken via SIGIO.
func (ag *AttachedGroup) SetAsyncOwner(ownerPID int) error {
	if _, err := unix.FcntlInt(uintptr(ag.leaderFD), unix.F_SETOWN, ownerPID); err != nil {
		return fmt.Errorf("perf: fcntl F_SETOWN: %w", err)
	}
	flags, err := unix.FcntlInt(uintptr(ag.leaderFD), unix.F_GETFL, 0)
	if err != nil {
		return fmt.Errorf("perf: fcntl F_GETFL: %w", err)
	}
	if _, err := unix.FcntlInt(uintptr(ag.leaderFD), unix.F_SETFL, flags|unix.FASYNC); err != nil {
		return fmt.Errorf("perf: fcntl F_SETFL FASYNC: %w", err)
	}
	return nil
}

// Close closes every open fd in the group. It is idempotent.
func (ag *AttachedGroup) Close() error {
	if ag.closed {
		return nil
	}
	ag.closed = true
	var firstErr error
	for _, fd := range ag.fds {
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("perf: close fd %d: %w", fd, err)
		}
	}
	return firstErr
}
