//go:build linux

package bootstrap

import (
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/cachepirate/internal/coordinator"
	"github.com/ja7ad/cachepirate/internal/perf"
	"github.com/ja7ad/cachepirate/internal/pirate"
	"github.com/ja7ad/cachepirate/internal/sink"
)

// recordingGroup is a deterministic stand-in for perf.AttachedGroup,
// playing both the target's and a pirate's counter group.
type recordingGroup struct {
	mu     sync.Mutex
	values []uint64
}

func (g *recordingGroup) Reset() error   { return nil }
func (g *recordingGroup) Enable() error  { return nil }
func (g *recordingGroup) Disable() error { return nil }
func (g *recordingGroup) Read() (perf.GroupRead, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return perf.GroupRead{Values: append([]uint64(nil), g.values...)}, nil
}

// noopController satisfies coordinator.TargetController; handleSigint
// never calls Continue, so it only needs to exist.
type noopController struct{}

func (noopController) Continue(sig int) error { return nil }

// orderedSink appends "emit" to a shared event log on every sample,
// letting a test assert ordering against a recordingKiller's "kill".
type orderedSink struct {
	mu      sync.Mutex
	events  *[]string
	samples int
}

func (s *orderedSink) WriteHeader(sink.Header) error { return nil }
func (s *orderedSink) WriteSample(sink.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples++
	*s.events = append(*s.events, "emit")
	return nil
}
func (s *orderedSink) Close() error { return nil }

type recordingKiller struct {
	mu     sync.Mutex
	events *[]string
	killed bool
}

func (k *recordingKiller) Kill() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.killed = true
	*k.events = append(*k.events, "kill")
	return nil
}

func newSigintTestEngine(t *testing.T, events *[]string) (*coordinator.Engine, *orderedSink) {
	t.Helper()
	cfg, err := pirate.NewConfig(4, 4<<20, 64, 4<<20, 1)
	require.NoError(t, err)

	targetGroup := &recordingGroup{values: []uint64{10, 20}}
	pirateGroup := &recordingGroup{values: []uint64{1, 2}}
	worker := &pirate.Worker{Index: 0, Config: cfg, Group: pirateGroup, State: pirate.NewCell(pirate.StateRunning)}

	sk := &orderedSink{events: events}
	engine := coordinator.NewEngine(noopController{}, targetGroup, []*pirate.Worker{worker}, cfg, sk, time.Millisecond, false)
	return engine, sk
}

// TestHandleSigint_EmitsBeforeKilling exercises spec.md's named SIGINT
// scenario: a final sample must reach the sink before the target is
// killed, not after.
func TestHandleSigint_EmitsBeforeKilling(t *testing.T) {
	var events []string
	engine, sk := newSigintTestEngine(t, &events)
	kl := &recordingKiller{events: &events}

	handleSigint(engine, kl, syscall.SIGINT)

	require.Equal(t, []string{"emit", "kill"}, events)
	assert.Equal(t, 1, sk.samples)
	assert.True(t, kl.killed)
}

// TestHandleSigint_FinishIsIdempotentAfterTargetDies mirrors the real
// sequence in Run: the SIGINT goroutine finishes and kills the target,
// then the wait-loop's own unconditional Finish call fires once the now
// signal-killed target is observed to have died. The second call must
// not emit a second sample or re-close the sink.
func TestHandleSigint_FinishIsIdempotentAfterTargetDies(t *testing.T) {
	var events []string
	engine, sk := newSigintTestEngine(t, &events)
	kl := &recordingKiller{events: &events}

	handleSigint(engine, kl, syscall.SIGINT)
	engine.Finish()

	assert.Equal(t, 1, sk.samples)
	assert.Equal(t, []string{"emit", "kill"}, events)
}
