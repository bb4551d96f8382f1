package cacheserver

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/goburrow/serial"
	"go.uber.org/zap"
)

// RTUConfig resolves the §6 downstream RTU line settings.
type RTUConfig struct {
	SerialPort string
	BaudRate   int
	Framing    string // informational; 8-N-1 is always used on the wire
	RTSPin     string // informational, consumed by link bring-up (out of scope here)
}

// RTUServer is the downstream RTU cache server personality (C7): it
// owns its serial port exclusively and serves FC3/FC4/FC6 from the
// cache, framed the way the teacher's cmd/server RTU prototype does
// (address+function header, CRC-16), generalized onto the shared Mux.
type RTUServer struct {
	mux    *Mux
	port   io.ReadWriteCloser
	log    *zap.Logger
	closed chan struct{}
}

// NewRTUServer opens the configured serial port and constructs the
// server. The caller is responsible for calling Serve and Close.
func NewRTUServer(cfg RTUConfig, engine Engine, log *zap.Logger) (*RTUServer, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = 9600
	}
	sc := &serial.Config{
		Address:  cfg.SerialPort,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
	}
	port, err := serial.Open(sc)
	if err != nil {
		return nil, fmt.Errorf("cacheserver: open serial port %s: %w", cfg.SerialPort, err)
	}
	return &RTUServer{
		mux:    &Mux{Engine: engine},
		port:   port,
		log:    log,
		closed: make(chan struct{}),
	}, nil
}

// Serve processes frames until the port is closed. It owns the
// downstream serial port exclusively for its lifetime.
func (s *RTUServer) Serve() error {
	for {
		head := make([]byte, 2)
		if _, err := io.ReadFull(s.port, head); err != nil {
			select {
			case <-s.closed:
				return nil
			default:
				return err
			}
		}
		addr, fn := head[0], head[1]

		switch fn {
		case fcReadHolding, fcReadInput, fcWriteSingle:
			rest := make([]byte, 6) // 2 body words + 2-byte CRC
			if _, err := io.ReadFull(s.port, rest); err != nil {
				return err
			}
			frame := append([]byte{addr, fn}, rest[:4]...)
			if crc16(frame) != binary.LittleEndian.Uint16(rest[4:]) {
				continue // bad CRC: silently drop, matching a transport error
			}
			pdu := append([]byte{fn}, rest[:4]...)
			respPDU, ok := s.mux.Handle(addr, pdu)
			if !ok {
				continue
			}
			s.writeFrame(addr, respPDU)
		default:
			// Unsupported function code on this wire: ignore the
			// frame as if it were never addressed to us.
			continue
		}
	}
}

func (s *RTUServer) writeFrame(addr byte, pdu []byte) {
	out := append([]byte{addr}, pdu...)
	tail := make([]byte, 2)
	binary.LittleEndian.PutUint16(tail, crc16(out))
	out = append(out, tail...)
	if _, err := s.port.Write(out); err != nil && s.log != nil {
		s.log.Warn("rtu cache server write failed", zap.Error(err))
	}
}

// Close releases the serial port, unblocking Serve.
func (s *RTUServer) Close() error {
	close(s.closed)
	return s.port.Close()
}

// crc16 computes the Modbus CRC-16 (polynomial 0xA001), grounded on
// the teacher's crc16Modbus helper.
func crc16(data []byte) uint16 {
	var crc uint16 = 0xFFFF
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
