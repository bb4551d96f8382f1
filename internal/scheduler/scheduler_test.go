package scheduler

import (
	"testing"
	"time"

	"et112-cache-gateway/internal/register"
	"github.com/stretchr/testify/require"
)

func TestContiguityBatchingMatchesReferenceScenario(t *testing.T) {
	backend := register.ET112()
	s := New(backend, 500*time.Millisecond)

	now := time.Now()
	// Static set is non-empty for ET112, so the first tick polls
	// static registers; mark all static fetched to force dynamic mode.
	for _, a := range backend.Static() {
		s.MarkFetched(a, false)
	}
	require.True(t, s.StaticComplete())

	runs := s.Tick(now, 0)
	require.Equal(t, []Run{
		{Start: 0, Count: 24},
		{Start: 32, Count: 4},
	}, runs)
}

func TestBackpressureSkipsTick(t *testing.T) {
	backend := register.ET112()
	s := New(backend, 500*time.Millisecond)
	now := time.Now()
	runs := s.Tick(now, 3)
	require.Nil(t, runs)
}

func TestMinIntervalGating(t *testing.T) {
	backend := register.ET112()
	s := New(backend, 500*time.Millisecond)
	now := time.Now()
	require.NotNil(t, s.Tick(now, 0))
	require.Nil(t, s.Tick(now.Add(100*time.Millisecond), 0))
	require.NotNil(t, s.Tick(now.Add(600*time.Millisecond), 0))
}

func TestRunLengthsNeverExceedCap(t *testing.T) {
	backend := register.ET112()
	s := New(backend, 500*time.Millisecond)
	for _, a := range backend.Static() {
		s.MarkFetched(a, false)
	}
	runs := s.Tick(time.Now(), 0)
	for _, r := range runs {
		require.LessOrEqual(t, r.Count, MaxRunWords)
	}
}

func TestStaticSetRemovedOncePolled(t *testing.T) {
	backend := register.ET112()
	s := New(backend, 500*time.Millisecond)
	now := time.Now()
	runs := s.Tick(now, 0)
	require.NotEmpty(t, runs)
	require.False(t, s.StaticComplete())

	for _, a := range backend.Static() {
		s.MarkFetched(a, false)
	}
	require.True(t, s.StaticComplete())
	runs = s.Tick(now.Add(time.Second), 0)
	// Now in dynamic mode: first run must start at the first dynamic
	// address (0), never revisiting static addresses.
	require.NotEmpty(t, runs)
	require.Equal(t, uint16(0), runs[0].Start)
}
