package sanity

import (
	"testing"

	"et112-cache-gateway/internal/register"
	"github.com/stretchr/testify/require"
)

func TestAcceptUninitialisedAlwaysTrue(t *testing.T) {
	f := &Filter{}
	d := register.Definition{Unit: register.UnitVolt}
	require.True(t, f.Accept(d, 0, false, 9999.9))
	require.Equal(t, uint64(0), f.BogusCount())
}

func TestVoltageBounds(t *testing.T) {
	f := &Filter{}
	d := register.Definition{Unit: register.UnitVolt}
	require.True(t, f.Accept(d, 230.1, true, 231.0))
	require.False(t, f.Accept(d, 230.1, true, 9999.9))
	require.Equal(t, uint64(1), f.BogusCount())
}

func TestRejectionLeavesBogusCounterIncrementedByOne(t *testing.T) {
	f := &Filter{}
	d := register.Definition{Unit: register.UnitVolt}
	before := f.BogusCount()
	ok := f.Accept(d, 230.1, true, 9999.9)
	require.False(t, ok)
	require.Equal(t, before+1, f.BogusCount())
}

func TestKWhDeltaBound(t *testing.T) {
	f := &Filter{}
	d := register.Definition{Unit: register.UnitKWh}
	require.True(t, f.Accept(d, 1000.0, true, 1020.0))
	require.False(t, f.Accept(d, 1000.0, true, 1050.1))
}

func TestOtherUnitsAlwaysAccept(t *testing.T) {
	f := &Filter{}
	d := register.Definition{Unit: register.UnitNone}
	require.True(t, f.Accept(d, 5, true, 99999))
}
