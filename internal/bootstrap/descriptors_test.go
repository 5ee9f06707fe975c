//go:build linux

package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/cachepirate/internal/perf"
)

func TestResolveDescriptors_Unknown(t *testing.T) {
	_, err := resolveDescriptors([]string{"not-a-real-event"})
	assert.Error(t, err)
}

func TestPirateDescriptors_IncludesMandatoryPair(t *testing.T) {
	descs, err := pirateDescriptors([]string{"cache-misses"})
	require.NoError(t, err)
	require.Len(t, descs, 3)
	assert.Equal(t, "instructions", descs[0].Name)
	assert.Equal(t, "cycles", descs[1].Name)
	assert.Equal(t, "cache-misses", descs[2].Name)
}

func TestPirateDescriptors_NoExtras(t *testing.T) {
	descs, err := pirateDescriptors(nil)
	require.NoError(t, err)
	require.Len(t, descs, 2)
}

func TestBuildGroup_EmptyDescriptors(t *testing.T) {
	_, err := buildGroup(nil, 0, 0, perf.AttachOptions{})
	assert.ErrorIs(t, err, perf.ErrEmptyGroup)
}

func TestBuildGroup_RejectsPinnedFollower(t *testing.T) {
	descs := []perf.Descriptor{
		{Type: 0, Config: 0, Name: "leader"},
		{Type: 0, Config: 1, Name: "follower", Pinned: true},
	}
	_, err := buildGroup(descs, 0, 0, perf.AttachOptions{})
	assert.ErrorIs(t, err, perf.ErrFollowerFlags)
}
