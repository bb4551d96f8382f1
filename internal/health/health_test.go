package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotOperationalBeforeFirstUpdate(t *testing.T) {
	s := New(500 * time.Millisecond)
	require.False(t, s.IsOperational(time.Now(), true, true))
}

func TestOperationalRequiresBothCompletionFlags(t *testing.T) {
	s := New(500 * time.Millisecond)
	now := time.Now()
	s.RecordSuccess(now)
	require.False(t, s.IsOperational(now, false, true))
	require.False(t, s.IsOperational(now, true, false))
	require.True(t, s.IsOperational(now, true, true))
}

func TestOperationalGoesFalseAfterStalenessWindow(t *testing.T) {
	s := New(500 * time.Millisecond)
	now := time.Now()
	s.RecordSuccess(now)
	require.True(t, s.IsOperational(now.Add(6*time.Second), true, true))
	require.False(t, s.IsOperational(now.Add(6*time.Second+500*time.Millisecond+time.Millisecond), true, true))
}
