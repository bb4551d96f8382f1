package cacheserver

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"
)

func dialTCPServer(t *testing.T, srv *TCPServer) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestTCPServerServesReadHolding(t *testing.T) {
	eng := newFakeEngine()
	eng.operational = true
	eng.words = []uint16{0x00E6, 0x0000}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &TCPServer{mux: &Mux{Engine: eng}, listener: ln}
	go srv.Serve()
	defer srv.Close()

	conn := dialTCPServer(t, srv)
	req := make([]byte, 12)
	binary.BigEndian.PutUint16(req[0:2], 7) // transaction id
	binary.BigEndian.PutUint16(req[4:6], 6) // length: unit+pdu
	req[6] = UnitID
	req[7] = fcReadHolding
	binary.BigEndian.PutUint16(req[8:10], 0)
	binary.BigEndian.PutUint16(req[10:12], 2)

	if _, err := conn.Write(req); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp := make([]byte, 11) // mbap(7)+fn+bytecount+4 data
	if _, err := io.ReadFull(conn, resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := binary.BigEndian.Uint16(resp[0:2]); got != 7 {
		t.Fatalf("transaction id mismatch: got %d", got)
	}
	if resp[6] != UnitID {
		t.Fatalf("unit id mismatch: got %d", resp[6])
	}
	if resp[7] != fcReadHolding {
		t.Fatalf("function code mismatch: got %d", resp[7])
	}
	if resp[8] != 4 {
		t.Fatalf("byte count mismatch: got %d", resp[8])
	}
}

func TestTCPServerSilentOnNonOperational(t *testing.T) {
	eng := newFakeEngine()
	eng.operational = false

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &TCPServer{mux: &Mux{Engine: eng}, listener: ln}
	go srv.Serve()
	defer srv.Close()

	conn := dialTCPServer(t, srv)
	req := make([]byte, 12)
	binary.BigEndian.PutUint16(req[4:6], 6)
	req[6] = UnitID
	req[7] = fcReadHolding
	binary.BigEndian.PutUint16(req[10:12], 2)
	if _, err := conn.Write(req); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Fatalf("expected no response from a non-operational engine")
	}
}
