// Package config loads the TOML configuration file described in
// SPEC_FULL.md §6 into a Resolved value, the way the
// teacher's internal/collector.LoadYAML resolves its own
// config/config.yaml — except the wire format here is TOML
// (github.com/BurntSushi/toml), not YAML, since this gateway's config
// now has to describe two transports, two downstream servers and
// history settings instead of one collector's device list.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Upstream resolves the single upstream link (the ET112 meter).
type Upstream struct {
	ClientIsRTU bool   `toml:"client_is_rtu"`
	TargetIP    string `toml:"target_ip"`
	TCPPort     int    `toml:"tcp_port"`
	SerialPort  string `toml:"serial_port"`
	Baud        int    `toml:"upstream_baud"`
	Framing     string `toml:"upstream_framing"`
}

// Downstream resolves both cache server personalities.
type Downstream struct {
	TCPPort    int    `toml:"server_tcp_port"`
	SerialPort string `toml:"serial_port"`
	Baud       int    `toml:"downstream_baud"`
	Framing    string `toml:"downstream_framing"`
	RTSPin     string `toml:"downstream_rts_pin"`
}

// History resolves the optional periodic sqlite history writer.
type History struct {
	Enabled      bool   `toml:"history_enabled"`
	Path         string `toml:"history_path"`
	IntervalMS   int    `toml:"history_interval_ms"`
}

// Translation resolves the optional destination register table (C9).
type Translation struct {
	Enabled          bool   `toml:"translation_enabled"`
	DestinationTable string `toml:"destination_table_path"`
}

// File is the root shape of the TOML config document.
type File struct {
	PollIntervalMS int         `toml:"poll_interval_ms"`
	Upstream       Upstream    `toml:"upstream"`
	Downstream     Downstream  `toml:"downstream"`
	History        History     `toml:"history"`
	Translation    Translation `toml:"translation"`
}

// Resolved is File after defaults have been applied and durations
// converted; this is what cmd/gateway hands to the engine.
type Resolved struct {
	PollInterval time.Duration
	Upstream     Upstream
	Downstream   Downstream
	History      History
	HistoryEvery time.Duration
	Translation  Translation
}

// Load reads and resolves the TOML file at path.
func Load(path string) (Resolved, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return Resolved{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return resolve(f), nil
}

func resolve(f File) Resolved {
	r := Resolved{
		Upstream:    f.Upstream,
		Downstream:  f.Downstream,
		History:     f.History,
		Translation: f.Translation,
	}
	if f.PollIntervalMS <= 0 {
		f.PollIntervalMS = 500
	}
	r.PollInterval = time.Duration(f.PollIntervalMS) * time.Millisecond

	if r.Upstream.Baud <= 0 {
		r.Upstream.Baud = 9600
	}
	if r.Downstream.Baud <= 0 {
		r.Downstream.Baud = 9600
	}
	if f.History.IntervalMS <= 0 {
		f.History.IntervalMS = 60000
	}
	r.HistoryEvery = time.Duration(f.History.IntervalMS) * time.Millisecond
	return r
}
