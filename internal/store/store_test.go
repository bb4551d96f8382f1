package store

import (
	"testing"
	"time"

	"et112-cache-gateway/internal/snapshot"
	"github.com/stretchr/testify/require"
)

func TestOpenMigratesAndWritesSnapshot(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	snap := snapshot.Snapshot{
		TakenAt:    time.Now(),
		BogusCount: 2,
		Registers: []snapshot.RegisterReading{
			{Address: 0, Description: "Voltage", Raw: 230.1, RawHigh: 235.0, RawLow: 220.0},
		},
	}
	require.NoError(t, s.WriteSnapshot(snap))

	var rows []HistoryRow
	require.NoError(t, s.ORM.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, uint16(0), rows[0].Address)
	require.InDelta(t, 230.1, rows[0].Value, 1e-9)
}

func TestWriteSnapshotWithNoRegistersIsNoop(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteSnapshot(snapshot.Snapshot{TakenAt: time.Now()}))
	var rows []HistoryRow
	require.NoError(t, s.ORM.Find(&rows).Error)
	require.Len(t, rows, 0)
}
