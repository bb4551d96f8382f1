// Package snapshot implements the cache engine's snapshot service
// (C11): an atomic, consistent picture of the dynamic register set for
// telemetry and diagnostic consumers.
package snapshot

import (
	"time"

	"et112-cache-gateway/internal/register"
)

// RegisterReading is one dynamic register's presentation for an
// observer.
type RegisterReading struct {
	Address     uint16  `json:"address"`
	Description string  `json:"description"`
	Value       string  `json:"value"`
	High        string  `json:"high"`
	Low         string  `json:"low"`
	Raw         float64 `json:"raw"`
	RawHigh     float64 `json:"raw_high"`
	RawLow      float64 `json:"raw_low"`
}

// Snapshot is the atomic structure produced by Build. "Atomic" means
// it is assembled under the same short lock that guards register
// writes, so consumers never observe a half-updated 32-bit value.
type Snapshot struct {
	TakenAt     time.Time         `json:"taken_at"`
	Registers   []RegisterReading `json:"registers"`
	Unexpected  []uint16          `json:"unexpected_addresses"`
	BogusCount  uint64            `json:"bogus_count"`
	UpstreamBaud int              `json:"upstream_baud"`

	IsOperational   bool `json:"is_operational"`
	StaticComplete  bool `json:"static_complete"`
	DynamicComplete bool `json:"dynamic_complete"`
}

// Build assembles a Snapshot. The caller must hold the engine's shared
// mutex for the duration of this call — it is the only synchronization
// this atomicity guarantee relies on.
func Build(now time.Time, backend *register.Model, bogusCount uint64, upstreamBaud int, operational, staticComplete, dynamicComplete bool) Snapshot {
	snap := Snapshot{
		TakenAt:         now,
		Unexpected:      backend.UnexpectedAddresses(),
		BogusCount:      bogusCount,
		UpstreamBaud:    upstreamBaud,
		IsOperational:   operational,
		StaticComplete:  staticComplete,
		DynamicComplete: dynamicComplete,
	}
	for _, addr := range backend.Dynamic() {
		d, _ := backend.Definition(addr)
		value, _ := backend.ReadScaled(addr)
		high, low, _ := backend.Watermarks(addr)
		snap.Registers = append(snap.Registers, RegisterReading{
			Address:     addr,
			Description: d.Description,
			Value:       register.FormatValue(d, value),
			High:        register.FormatValue(d, high),
			Low:         register.FormatValue(d, low),
			Raw:         value,
			RawHigh:     high,
			RawLow:      low,
		})
	}
	return snap
}
