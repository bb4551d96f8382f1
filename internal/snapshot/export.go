package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// WriteJSON renders a Snapshot as indented JSON, grounded on the
// teacher's internal/output.WriteJSON shape.
func WriteJSON(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// WriteCSV renders a Snapshot's dynamic register readings as CSV,
// grounded on the teacher's internal/output.WriteCSV shape.
func WriteCSV(w io.Writer, snap Snapshot) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"address", "description", "value", "high", "low"}); err != nil {
		return err
	}
	for _, r := range snap.Registers {
		row := []string{
			strconv.Itoa(int(r.Address)),
			r.Description,
			r.Value,
			r.High,
			r.Low,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for address %d: %w", r.Address, err)
		}
	}
	return nil
}
