package cacheserver

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"
)

// TCPConfig resolves the §6 downstream TCP listener settings.
type TCPConfig struct {
	Port int
}

// TCPServer is the downstream TCP cache server personality (C8): one
// accept loop, one goroutine per connection, each request served from
// the cache via the shared Mux. Framing follows the teacher's
// internal/modbus.Server.handleConnection MBAP loop.
type TCPServer struct {
	mux      *Mux
	listener net.Listener
	log      *zap.Logger
}

// NewTCPServer binds the configured port and constructs the server.
// The caller is responsible for calling Serve and Close.
func NewTCPServer(cfg TCPConfig, engine Engine, log *zap.Logger) (*TCPServer, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("cacheserver: listen on port %d: %w", cfg.Port, err)
	}
	return &TCPServer{
		mux:      &Mux{Engine: engine},
		listener: ln,
		log:      log,
	}, nil
}

// Serve accepts connections until the listener is closed.
func (s *TCPServer) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConnection(conn)
	}
}

// Close stops accepting new connections.
func (s *TCPServer) Close() error {
	return s.listener.Close()
}

// handleConnection reads one MBAP-framed request at a time off conn
// and writes back the matching MBAP-framed response, for as long as
// the peer keeps the connection open.
func (s *TCPServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	for {
		header := make([]byte, 7)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		transactionID := header[0:2]
		length := binary.BigEndian.Uint16(header[4:6])
		unitID := header[6]
		if length == 0 {
			return
		}

		pdu := make([]byte, length-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		respPDU, ok := s.mux.Handle(unitID, pdu)
		if !ok {
			// Matches the non-operational / unsupported-function
			// silence of the RTU personality: drop the request rather
			// than return a Modbus exception.
			continue
		}

		resp := make([]byte, 7+len(respPDU))
		copy(resp[0:2], transactionID)
		resp[2], resp[3] = 0, 0 // protocol id
		binary.BigEndian.PutUint16(resp[4:6], uint16(len(respPDU)+1))
		resp[6] = unitID
		copy(resp[7:], respPDU)

		if _, err := conn.Write(resp); err != nil {
			if s.log != nil {
				s.log.Warn("tcp cache server write failed", zap.Error(err))
			}
			return
		}
	}
}
