// Package translate implements the optional register translation layer
// (C9): it re-presents the backend device as an alternate meter model
// by mapping destination registers onto backend registers and applying
// an optional transform.
package translate

import "et112-cache-gateway/internal/register"

// Layer is stateless except for its read access to the backend model;
// it performs no I/O and stores no cells of its own — every read is
// computed fresh from the backend's current cache.
type Layer struct {
	destination *register.Model
	backend     *register.Model
}

// New constructs a translation layer over a destination register table
// and the backend model those destinations may reference.
func New(destination, backend *register.Model) *Layer {
	return &Layer{destination: destination, backend: backend}
}

// ReadWords serves the downstream read path for the translated model,
// mirroring register.Model.ReadWords's mid-endian serialization and
// straddle handling but resolving each destination definition against
// the backend on demand.
func (l *Layer) ReadWords(start uint16, count int) []uint16 {
	out := make([]uint16, 0, count)
	addr := start
	for len(out) < count {
		d, ok := l.destination.Definition(addr)
		if !ok {
			if prev, found := l.destination.Definition(addr - 1); addr > 0 && found && prev.Kind.Width() == 2 {
				bits := l.resolve(prev)
				out = append(out, uint16(bits>>16))
				addr++
				continue
			}
			out = append(out, 0)
			addr++
			continue
		}
		bits := l.resolve(d)
		if d.Kind.Width() == 1 {
			out = append(out, uint16(bits))
			addr++
			continue
		}
		out = append(out, uint16(bits&0xFFFF))
		addr++
		if len(out) >= count {
			break
		}
		out = append(out, uint16(bits>>16))
		addr++
	}
	return out
}

// resolve computes the raw bits for one destination definition: zero
// words if it carries no backend_address, else the backend value
// scaled, transformed (if a Transform is present), and re-encoded into
// the destination's own width and encoding.
func (l *Layer) resolve(d register.Definition) uint32 {
	if !d.HasBackend {
		return 0
	}
	scaled, ok := l.backend.ReadScaled(d.BackendAddress)
	if !ok {
		return 0
	}
	if d.Transform != nil {
		scaled = d.Transform(l.backend, scaled)
	}
	return register.EncodeValue(d, scaled)
}

// IsOperational reports the backend's operational status: the
// translation layer performs no I/O of its own, so "operational" for a
// translated register can only mean the backend data behind it is
// fresh (see DESIGN.md, Open Question 2).
func (l *Layer) IsOperational(backendOperational bool) bool {
	return backendOperational
}
