package upstream

import (
	"encoding/binary"
	"testing"

	"et112-cache-gateway/internal/register"
	"et112-cache-gateway/internal/sanity"
	"et112-cache-gateway/internal/scheduler"
	"github.com/stretchr/testify/require"
)

func midEndianWord(low, high uint16) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], low)
	binary.BigEndian.PutUint16(buf[2:4], high)
	return buf
}

func TestDecodeResponseHappyPath(t *testing.T) {
	backend := register.ET112()
	sched := scheduler.New(backend, 0)
	filter := &sanity.Filter{}
	codec := NewCodec(backend, filter, sched)

	// Voltage 230.1V -> raw 2301 (scale 0.1) -> bits 2301.
	payload := midEndianWord(2301, 0)
	codec.DecodeResponse(0, 2, payload)

	got, ok := backend.ReadScaled(0)
	require.True(t, ok)
	require.InDelta(t, 230.1, got, 1e-9)
}

func TestDecodeResponseSanityRejectionKeepsPriorValue(t *testing.T) {
	backend := register.ET112()
	sched := scheduler.New(backend, 0)
	filter := &sanity.Filter{}
	codec := NewCodec(backend, filter, sched)

	codec.DecodeResponse(0, 2, midEndianWord(2301, 0))
	before := filter.BogusCount()

	// Volts = 9999.9 -> raw 99999 (scale 0.1), split into low/high words.
	codec.DecodeResponse(0, 2, midEndianWord(99999&0xFFFF, 99999>>16))

	got, ok := backend.ReadScaled(0)
	require.True(t, ok)
	require.InDelta(t, 230.1, got, 1e-9)
	require.Equal(t, before+1, filter.BogusCount())
}

func TestDecodeResponseMarksFetched(t *testing.T) {
	backend := register.ET112()
	sched := scheduler.New(backend, 0)
	filter := &sanity.Filter{}
	codec := NewCodec(backend, filter, sched)

	codec.DecodeResponse(0, 2, midEndianWord(2301, 0))
	require.False(t, sched.DynamicComplete())

	// The remaining dynamic registers arrive in the two reference runs.
	codec.DecodeResponse(0, 24, make([]byte, 48))
	codec.DecodeResponse(32, 4, make([]byte, 8))
	require.True(t, sched.DynamicComplete())
}

func TestDecodeResponseSkipsUnmappedWithoutPanicking(t *testing.T) {
	backend := register.ET112()
	sched := scheduler.New(backend, 0)
	filter := &sanity.Filter{}
	codec := NewCodec(backend, filter, sched)

	// Address 1 has no identity definition of its own (it's the high
	// word of the 32-bit register at 0); decoding starting at 1 should
	// not panic and should skip forward.
	require.NotPanics(t, func() {
		codec.DecodeResponse(1, 1, []byte{0x00, 0x00})
	})
}
