// Package cacheserver implements the downstream cache servers (C7 RTU,
// C8 TCP): they serve function codes 3, 4 and 6 entirely from the
// engine's cache, never blocking on the upstream link.
//
// Both personalities share one function-code dispatch table (Mux),
// generalizing the GoAethereal-modbus Mux/Handler idea (callback
// fields instead of a hand-rolled switch) across both wire framings.
package cacheserver

import "encoding/binary"

const (
	UnitID = 1

	fcReadHolding  = 0x03
	fcReadInput    = 0x04
	fcWriteSingle  = 0x06

	excIllegalDataAddr = 0x02
	excIllegalDataVal  = 0x03
)

// Engine is the subset of the cache engine the downstream servers
// depend on. Injecting it as a parameter (rather than reaching a
// process-wide singleton) is the re-expression of the reference
// implementation's global-engine anti-pattern (see DESIGN.md).
type Engine interface {
	IsOperational() bool
	ReadWords(start uint16, count int) []uint16
	WriteSingle(address, value uint16)
}

// Mux dispatches a unit-id-qualified PDU to the cache, matching the
// reference behavior: any unit id other than UnitID, or any function
// code other than 3/4/6, yields no response at all (ok=false) rather
// than a Modbus exception.
type Mux struct {
	Engine Engine
}

// Handle processes one request PDU (function code byte followed by
// its payload, with no unit id or framing bytes) and returns the
// response PDU. ok is false when the server must stay silent: wrong
// unit id, unsupported function code, or (for reads) a non-operational
// engine.
func (m *Mux) Handle(unitID byte, pdu []byte) (response []byte, ok bool) {
	if unitID != UnitID || len(pdu) == 0 {
		return nil, false
	}
	switch pdu[0] {
	case fcReadHolding, fcReadInput:
		return m.handleRead(pdu)
	case fcWriteSingle:
		return m.handleWrite(pdu)
	default:
		return nil, false
	}
}

func (m *Mux) handleRead(pdu []byte) ([]byte, bool) {
	if !m.Engine.IsOperational() {
		return nil, false
	}
	if len(pdu) < 5 {
		return exception(pdu[0], excIllegalDataVal), true
	}
	start := binary.BigEndian.Uint16(pdu[1:3])
	count := int(binary.BigEndian.Uint16(pdu[3:5]))
	if count == 0 || count > 125 {
		return exception(pdu[0], excIllegalDataVal), true
	}

	words := m.Engine.ReadWords(start, count)
	body := make([]byte, 2+len(words)*2)
	body[0] = pdu[0]
	body[1] = byte(len(words) * 2)
	for i, w := range words {
		binary.BigEndian.PutUint16(body[2+i*2:4+i*2], w)
	}
	return body, true
}

func (m *Mux) handleWrite(pdu []byte) ([]byte, bool) {
	if len(pdu) < 5 {
		return exception(pdu[0], excIllegalDataVal), true
	}
	address := binary.BigEndian.Uint16(pdu[1:3])
	value := binary.BigEndian.Uint16(pdu[3:5])
	m.Engine.WriteSingle(address, value)
	// Echo the request back verbatim, regardless of upstream outcome
	// (no rollback on a later upstream failure — see DESIGN.md).
	echo := make([]byte, 5)
	copy(echo, pdu[:5])
	return echo, true
}

func exception(function byte, code byte) []byte {
	return []byte{function | 0x80, code}
}
