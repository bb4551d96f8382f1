package register

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefinitionsPairwiseDisjoint(t *testing.T) {
	m := ET112()
	occupied := make(map[uint16]bool)
	for _, a := range m.Definitions() {
		d, ok := m.Definition(a)
		require.True(t, ok)
		for w := 0; w < d.Kind.Width(); w++ {
			addr := a + uint16(w)
			require.False(t, occupied[addr], "address %d claimed twice", addr)
			occupied[addr] = true
		}
	}
}

func TestWriteRawThenReadScaled(t *testing.T) {
	m := ET112()
	// Address 0: Voltage, int32, scale 0.1. Raw 2301 -> 230.1 V.
	m.WriteRaw(0, 2301, 230.1)
	got, ok := m.ReadScaled(0)
	require.True(t, ok)
	require.InDelta(t, 230.1, got, 1e-9)
}

func TestReadWordsPrefixConsistent(t *testing.T) {
	m := ET112()
	m.WriteRaw(0, 0x0001_0002, 0) // low word 0x0002, high word 0x0001
	m.WriteRaw(2, 100, 0)
	full := m.ReadWords(0, 4)
	require.Len(t, full, 4)
	for k := 1; k <= 4; k++ {
		prefix := m.ReadWords(0, k)
		require.Equal(t, full[:k], prefix)
	}
}

func TestReadWordsMidEndianOrder(t *testing.T) {
	m := ET112()
	// bits: high word 0x0001, low word 0x0002 -> low word first on wire.
	m.WriteRaw(0, 0x0001_0002, 0)
	words := m.ReadWords(0, 2)
	require.Equal(t, []uint16{0x0002, 0x0001}, words)
}

func TestReadWordsStraddleEmitsFirstWordOnly(t *testing.T) {
	m := ET112()
	m.WriteRaw(0, 0x0001_0002, 0)
	words := m.ReadWords(0, 1)
	require.Equal(t, []uint16{0x0002}, words)
}

func TestReadUnmappedAddressRecordsUnexpected(t *testing.T) {
	m := ET112()
	width, bits := m.ReadRaw(9999)
	require.Equal(t, 1, width)
	require.Equal(t, uint32(0), bits)
	require.Contains(t, m.UnexpectedAddresses(), uint16(9999))
}

func TestWatermarksNeverReset(t *testing.T) {
	m := ET112()
	m.WriteRaw(0, 2301, 230.1)
	m.WriteRaw(0, 2200, 220.0)
	m.WriteRaw(0, 2350, 235.0)
	high, low, ok := m.Watermarks(0)
	require.True(t, ok)
	require.Equal(t, 235.0, high)
	require.Equal(t, 220.0, low)
}

func TestBaudRateCodeMapping(t *testing.T) {
	require.Equal(t, 9600, BaudRateCode[1])
	require.Equal(t, 115200, BaudRateCode[5])
}

func TestMetricName(t *testing.T) {
	require.Equal(t, "active_power", MetricName("Active power"))
	require.Equal(t, "power_factor", MetricName("Power factor"))
}
