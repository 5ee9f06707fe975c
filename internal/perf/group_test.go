//go:build linux

package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestGroup_AppendRejectsPinnedFollower(t *testing.T) {
	g := New(Descriptor{Type: unix.PERF_TYPE_HARDWARE, Config: unix.PERF_COUNT_HW_CPU_CYCLES, Name: "cycles"})

	err := g.Append(Descriptor{Type: unix.PERF_TYPE_HARDWARE, Config: unix.PERF_COUNT_HW_INSTRUCTIONS, Pinned: true, Name: "instructions"})
	assert.ErrorIs(t, err, ErrFollowerFlags)

	err = g.Append(Descriptor{Type: unix.PERF_TYPE_HARDWARE, Config: unix.PERF_COUNT_HW_INSTRUCTIONS, Exclusive: true, Name: "instructions"})
	assert.ErrorIs(t, err, ErrFollowerFlags)
}

func TestGroup_AppendOrdering(t *testing.T) {
	g := New(Descriptor{Type: unix.PERF_TYPE_HARDWARE, Config: unix.PERF_COUNT_HW_CPU_CYCLES, Name: "cycles"})
	require.NoError(t, g.Append(Descriptor{Type: unix.PERF_TYPE_HW_CACHE, Config: 0, Name: "cache-misses"}))
	require.NoError(t, g.Append(Descriptor{Type: unix.PERF_TYPE_HARDWARE, Config: unix.PERF_COUNT_HW_INSTRUCTIONS, Name: "instructions"}))

	require.Equal(t, 3, g.Len())
	names := []string{}
	for _, d := range g.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"cycles", "cache-misses", "instructions"}, names)
}

func TestGroup_AppendAfterAttachRejected(t *testing.T) {
	g := New(Descriptor{Type: unix.PERF_TYPE_HARDWARE, Config: unix.PERF_COUNT_HW_CPU_CYCLES, Name: "cycles"})
	g.attached = true

	err := g.Append(Descriptor{Type: unix.PERF_TYPE_HARDWARE, Config: unix.PERF_COUNT_HW_INSTRUCTIONS, Name: "instructions"})
	assert.ErrorIs(t, err, ErrAttached)

	_, err = g.Attach(0, 0, AttachOptions{})
	assert.ErrorIs(t, err, ErrAttached)
}

func TestGroup_AttachEmptyGroupRejected(t *testing.T) {
	g := &Group{}
	_, err := g.Attach(0, 0, AttachOptions{})
	assert.ErrorIs(t, err, ErrEmptyGroup)
}

func TestBuildAttr_LeaderCarriesSampleAndWakeup(t *testing.T) {
	d := Descriptor{Type: unix.PERF_TYPE_HARDWARE, Config: unix.PERF_COUNT_HW_CPU_CYCLES, Pinned: true, Name: "cycles"}
	attr := buildAttr(d, true, AttachOptions{SamplePeriod: 1_000_000, WakeupEvents: 1})

	assert.Equal(t, uint64(1_000_000), attr.Sample)
	assert.Equal(t, uint32(1), attr.Wakeup)
	assert.NotZero(t, attr.Bits&(1<<bitPinned))
	assert.Equal(t, readFormat, attr.Read_format)
}

func TestBuildAttr_FollowerIgnoresSampleAndPinned(t *testing.T) {
	d := Descriptor{Type: unix.PERF_TYPE_HARDWARE, Config: unix.PERF_COUNT_HW_INSTRUCTIONS, Pinned: true, Name: "instructions"}
	attr := buildAttr(d, false, AttachOptions{SamplePeriod: 1_000_000, WakeupEvents: 1})

	assert.Zero(t, attr.Sample)
	assert.Zero(t, attr.Wakeup)
	assert.Zero(t, attr.Bits&(1<<bitPinned))
}

func TestBuildAttr_FreqSetsBit(t *testing.T) {
	d := Descriptor{Type: unix.PERF_TYPE_HARDWARE, Config: unix.PERF_COUNT_HW_CPU_CYCLES, Name: "cycles"}
	attr := buildAttr(d, true, AttachOptions{Freq: true, SamplePeriod: 100})

	assert.NotZero(t, attr.Bits&(1<<bitFreq))
}

func TestAttachedGroup_CloseIsIdempotent(t *testing.T) {
	ag := &AttachedGroup{descriptors: []Descriptor{{Name: "cycles"}}, fds: []int{}, leaderFD: -1}
	require.NoError(t, ag.Close())
	require.NoError(t, ag.Close())
}
