// Package upstream implements the upstream Modbus codec (C5) and
// request dispatcher (C6): encoding reads against the ET112, decoding
// its mid-endian responses into register writes, and selecting
// between the RTU and TCP upstream transports.
package upstream

import (
	"encoding/binary"

	"et112-cache-gateway/internal/register"
	"et112-cache-gateway/internal/sanity"
	"et112-cache-gateway/internal/scheduler"
)

// SlaveUnitID is the fixed upstream unit id for all requests, per the
// wire contract (§6).
const SlaveUnitID = 1

// Codec decodes upstream read responses into register writes, guarded
// by the sanity filter and feeding the scheduler's completion
// tracking. It is not internally synchronized — the engine calls it
// only while holding the shared mutex.
type Codec struct {
	Backend *register.Model
	Filter  *sanity.Filter
	Sched   *scheduler.Scheduler
}

// NewCodec constructs a Codec over the given components.
func NewCodec(backend *register.Model, filter *sanity.Filter, sched *scheduler.Scheduler) *Codec {
	return &Codec{Backend: backend, Filter: filter, Sched: sched}
}

// DecodeResponse processes a response payload for the in-flight entry
// (start, count), per §4.5: the payload is a big-endian stream of
// 16-bit words; 32-bit identity addresses consume two words in
// mid-endian order (low word first), 16-bit addresses consume one,
// unmapped addresses are skipped without being recorded as unexpected
// (the batching may include filler). Accepted values are written
// through the sanity filter and marked fetched on the scheduler.
func (c *Codec) DecodeResponse(start uint16, count int, payload []byte) {
	words := make([]uint16, count)
	for i := 0; i < count && (i+1)*2 <= len(payload); i++ {
		words[i] = binary.BigEndian.Uint16(payload[i*2 : i*2+2])
	}

	idx := 0
	for idx < count {
		addr := start + uint16(idx)
		d, ok := c.Backend.Definition(addr)
		if !ok {
			idx++
			continue
		}
		if d.Kind.Width() == 2 {
			if idx+1 >= count {
				// Truncated trailing half: nothing usable to decode.
				break
			}
			low := words[idx]
			high := words[idx+1]
			bits := uint32(high)<<16 | uint32(low)
			c.offer(addr, d, bits)
			idx += 2
			continue
		}
		bits := uint32(words[idx])
		c.offer(addr, d, bits)
		idx++
	}
}

func (c *Codec) offer(addr uint16, d register.Definition, bits uint32) {
	proposed, _ := c.Backend.ProposeScaled(addr, bits)
	current, written := c.Backend.CurrentScaled(addr)
	if !c.Filter.Accept(d, current, written, proposed) {
		return
	}
	c.Backend.WriteRaw(addr, bits, proposed)
	c.Sched.MarkFetched(addr, d.Dynamic)
}
