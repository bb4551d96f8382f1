package upstream

import (
	"fmt"
	"io"
	"time"

	mb "github.com/goburrow/modbus"
)

// TransportConfig resolves the §6 configuration keys that select and
// parameterize the upstream transport.
type TransportConfig struct {
	ClientIsRTU bool

	TargetIP string
	TCPPort  int

	SerialPort       string
	UpstreamBaud     int
	UpstreamFraming  string // e.g. "8N1"

	Timeout time.Duration
}

// handlerWithConn mirrors the teacher's handlerWithConn interface: the
// goburrow handler types satisfy mb.ClientHandler and additionally
// expose lifecycle methods not on that interface.
type handlerWithConn interface {
	mb.ClientHandler
	Connect() error
	Close() error
}

// NewClient builds a connected Modbus client for the configured
// upstream transport (RTU or TCP), grounded on the teacher's
// Collector.newHandler transport-selection idiom.
func NewClient(cfg TransportConfig) (mb.Client, io.Closer, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}

	var h handlerWithConn
	if cfg.ClientIsRTU {
		if cfg.SerialPort == "" {
			return nil, nil, fmt.Errorf("upstream: serial_port required for RTU transport")
		}
		rh := mb.NewRTUClientHandler(cfg.SerialPort)
		rh.BaudRate = cfg.UpstreamBaud
		rh.DataBits = 8
		rh.StopBits = 1
		rh.Parity = "N"
		rh.SlaveId = SlaveUnitID
		rh.Timeout = timeout
		h = rh
	} else {
		address := fmt.Sprintf("%s:%d", cfg.TargetIP, cfg.TCPPort)
		th := mb.NewTCPClientHandler(address)
		th.SlaveId = SlaveUnitID
		th.Timeout = timeout
		h = th
	}

	if err := h.Connect(); err != nil {
		return nil, nil, fmt.Errorf("upstream connect: %w", err)
	}
	return mb.NewClient(h), h, nil
}
