package store

import "time"

// HistoryRow is a point-in-time, read-only audit copy of a dynamic
// register's state (see SPEC_FULL.md §3, "Register history row"). It
// never feeds back into the cache.
type HistoryRow struct {
	ID          uint `gorm:"primarykey"`
	TakenAt     time.Time
	Address     uint16
	Description string
	Value       float64
	High        float64
	Low         float64
	BogusCount  uint64
}
