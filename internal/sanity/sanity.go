// Package sanity implements the cache engine's watermark and
// plausibility filter (C2): a per-unit acceptance rule guarding which
// upstream values are allowed to update a register cell.
package sanity

import "et112-cache-gateway/internal/register"

// Filter holds the running bogus-rejection count. It carries no other
// state — watermarks live on the register cells themselves
// (internal/register), and acceptance bounds are a pure function of a
// register's unit tag.
type Filter struct {
	bogus uint64
}

// Accept applies the per-unit plausibility rule to a proposed scaled
// value for a register, given the cell's current scaled value and
// whether that cell has ever been written. It does not touch the
// register cell; a rejection increments the bogus counter. Call
// Model.WriteRaw afterwards on accept.
func (f *Filter) Accept(d register.Definition, current float64, currentWritten bool, proposed float64) bool {
	if !currentWritten || current == 0 {
		return true
	}
	ok := withinBounds(d.Unit, current, proposed)
	if !ok {
		f.bogus++
	}
	return ok
}

// BogusCount returns the monotonically increasing count of rejected
// upstream values.
func (f *Filter) BogusCount() uint64 {
	return f.bogus
}

func withinBounds(u register.Unit, current, proposed float64) bool {
	switch u {
	case register.UnitVolt:
		return proposed >= 205.0 && proposed <= 265.0
	case register.UnitAmp:
		return proposed >= -150.0 && proposed <= 150.0
	case register.UnitWatt, register.UnitVoltAmp, register.UnitVar:
		return proposed >= -25000.0 && proposed <= 25000.0
	case register.UnitHertz:
		return proposed >= 40.0 && proposed <= 65.0
	case register.UnitKWh, register.UnitKVArh:
		delta := proposed - current
		if delta < 0 {
			delta = -delta
		}
		return delta <= 30.0
	default:
		return true
	}
}
