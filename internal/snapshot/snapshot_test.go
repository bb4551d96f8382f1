package snapshot

import (
	"bytes"
	"testing"
	"time"

	"et112-cache-gateway/internal/register"
	"github.com/stretchr/testify/require"
)

func TestBuildIsConsistentForAllDynamicRegisters(t *testing.T) {
	backend := register.ET112()
	backend.WriteRaw(0, 2301, 230.1)
	snap := Build(time.Now(), backend, 3, 9600, true, true, true)
	require.Len(t, snap.Registers, len(backend.Dynamic()))
	require.Equal(t, uint64(3), snap.BogusCount)
	require.True(t, snap.IsOperational)
}

func TestWriteJSONRoundTrips(t *testing.T) {
	backend := register.ET112()
	snap := Build(time.Now(), backend, 0, 9600, false, false, false)
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, snap))
	require.Contains(t, buf.String(), "is_operational")
}

func TestWriteCSVHasHeaderAndOneRowPerRegister(t *testing.T) {
	backend := register.ET112()
	snap := Build(time.Now(), backend, 0, 9600, false, false, false)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, snap))
	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	require.Equal(t, len(backend.Dynamic())+1, lines)
}
