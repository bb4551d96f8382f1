package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"et112-cache-gateway/internal/register"
)

// LoadDestinationTable reads the CSV-described translation destination
// table named by translation_enabled's destination_table_path (C9),
// one row per destination register. Column lookup and error wrapping
// follow the teacher's devices-csv loader
// (internal/collector/config.go's loadDevicesFromCSV); a destination
// register always maps onto a single backend address with no
// Transform, since a closure cannot be expressed in a config file.
func LoadDestinationTable(path string) ([]register.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open destination table %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("destination table %s: empty file", path)
		}
		return nil, fmt.Errorf("destination table %s: read header: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	required := []string{"address", "backend_address", "kind"}
	for _, key := range required {
		if _, ok := index[key]; !ok {
			return nil, fmt.Errorf("destination table %s: missing required column %q", path, key)
		}
	}

	var defs []register.Definition
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("destination table %s: read row: %w", path, err)
		}
		col := func(key string) string {
			i, ok := index[key]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		address, err := strconv.ParseUint(col("address"), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("destination table %s: invalid address %q", path, col("address"))
		}
		backendAddress, err := strconv.ParseUint(col("backend_address"), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("destination table %s: invalid backend_address %q", path, col("backend_address"))
		}
		kind, err := register.ParseKind(col("kind"))
		if err != nil {
			return nil, fmt.Errorf("destination table %s: %w", path, err)
		}
		unit, err := register.ParseUnit(col("unit"))
		if err != nil {
			return nil, fmt.Errorf("destination table %s: %w", path, err)
		}
		scale := 1.0
		if v := col("scale"); v != "" {
			scale, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("destination table %s: invalid scale %q", path, v)
			}
		}
		dynamic := true
		if v := col("dynamic"); v != "" {
			dynamic, err = strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("destination table %s: invalid dynamic %q", path, v)
			}
		}

		defs = append(defs, register.Definition{
			Address:        uint16(address),
			Kind:           kind,
			Scale:          scale,
			Unit:           unit,
			Description:    col("description"),
			Dynamic:        dynamic,
			HasBackend:     true,
			BackendAddress: uint16(backendAddress),
		})
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("destination table %s: no rows", path)
	}
	return defs, nil
}
