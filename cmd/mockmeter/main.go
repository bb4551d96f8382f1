// Command mockmeter simulates a Carlo-Gavazzi ET112 energy meter: it
// serves the same register catalogue the gateway polls, over RTU or
// TCP, with dynamic registers drifting by a small random walk each
// tick. It exists so the gateway (and its tests) can run against a
// meter-shaped peer without physical hardware, the way the teacher's
// cmd/server prototype served a hand-built register table over its
// own RTU loop.
//
// It reuses internal/cacheserver's RTU/TCP framing verbatim by
// presenting itself as a cacheserver.Engine: the same FC3/FC4/FC6
// dispatch the real gateway serves downstream is exactly what a meter
// must answer upstream.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"et112-cache-gateway/internal/cacheserver"
	"et112-cache-gateway/internal/register"
)

func main() {
	var (
		rtuPort = flag.String("rtu-port", "", "serial device to serve RTU on, e.g. /dev/ttyUSB0 (disabled if empty)")
		rtuBaud = flag.Int("rtu-baud", 9600, "RTU baud rate")
		tcpPort = flag.Int("tcp-port", 1502, "TCP port to serve on (0 disables)")
		jitter  = flag.Bool("jitter", true, "randomly walk dynamic register values")
	)
	flag.Parse()

	eng := newMeter()
	if *jitter {
		go eng.walk()
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zlog.Sync()

	errCh := make(chan error, 2)
	running := 0

	if *rtuPort != "" {
		srv, err := cacheserver.NewRTUServer(cacheserver.RTUConfig{
			SerialPort: *rtuPort,
			BaudRate:   *rtuBaud,
		}, eng, zlog)
		if err != nil {
			fatal(err)
		}
		defer srv.Close()
		running++
		go func() { errCh <- srv.Serve() }()
	}

	if *tcpPort != 0 {
		srv, err := cacheserver.NewTCPServer(cacheserver.TCPConfig{Port: *tcpPort}, eng, zlog)
		if err != nil {
			fatal(err)
		}
		defer srv.Close()
		running++
		go func() { errCh <- srv.Serve() }()
	}

	if running == 0 {
		fatal(fmt.Errorf("mockmeter: neither -rtu-port nor -tcp-port configured"))
	}

	if err := <-errCh; err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	log.Println(err)
	os.Exit(1)
}

// meter implements cacheserver.Engine over a register.Model seeded
// with plausible ET112 demo values; it is always operational, since a
// simulated meter has no upstream link of its own to go stale.
type meter struct {
	mu      sync.Mutex
	backend *register.Model
}

func newMeter() *meter {
	m := &meter{backend: register.ET112()}
	m.seed()
	return m
}

func (m *meter) seed() {
	set := func(address uint16, scaled float64) {
		bits, ok := m.backend.EncodeScaled(address, scaled)
		if !ok {
			return
		}
		m.backend.WriteRaw(address, bits, scaled)
	}
	set(0, 230.1)  // Voltage
	set(2, 0.532)  // Current
	set(4, 122.5)  // Active power
	set(6, 130.0)  // Apparent power
	set(8, 20.0)   // Reactive power
	set(10, 120.0) // Demand
	set(12, 140.0) // Demand peak
	set(14, 0.94)  // Power factor
	set(15, 50.0)  // Frequency
	set(16, 1000.0)
	set(18, 50.0)
	set(20, 100.0)
	set(22, 5.0)
	set(32, 40.0)
	set(34, 2.0)

	set(11, 1)    // Identification code
	set(770, 3)   // Version
	set(771, 1)   // Revision
	set(4112, 60) // Demand integration time
	set(4355, 0)  // Measurement mode
	set(8193, 1)  // RS-485 baud code: 9600
	for a := uint16(20480); a <= 20486; a++ {
		set(a, float64(a-20480+1))
	}
}

// walk perturbs dynamic registers by a small percentage each tick,
// simulating a live meter under a varying load.
func (m *meter) walk() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.mu.Lock()
		for _, addr := range m.backend.Dynamic() {
			current, written := m.backend.CurrentScaled(addr)
			if !written {
				continue
			}
			delta := (rand.Float64() - 0.5) * 0.01 * current
			bits, ok := m.backend.EncodeScaled(addr, current+delta)
			if !ok {
				continue
			}
			m.backend.WriteRaw(addr, bits, current+delta)
		}
		m.mu.Unlock()
	}
}

func (m *meter) IsOperational() bool { return true }

func (m *meter) ReadWords(start uint16, count int) []uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.ReadWords(start, count)
}

func (m *meter) WriteSingle(address, value uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bits := uint32(value)
	scaled, _ := m.backend.ProposeScaled(address, bits)
	m.backend.WriteRaw(address, bits, scaled)
}
