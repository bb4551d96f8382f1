// Package store persists periodic register history for offline
// diagnostics. It is strictly an audit trail: nothing here is ever
// read back into the cache engine.
package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"et112-cache-gateway/internal/snapshot"
)

// Store wraps a gorm handle over a sqlite file, grounded on the
// teacher's internal/db/sqlite.go + internal/db/orm.go migration
// pattern — completed here into a single, actually-wired ORM field
// (see DESIGN.md).
type Store struct {
	ORM *gorm.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// migrates the history schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&HistoryRow{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{ORM: db}, nil
}

// WriteSnapshot appends one history row per dynamic register in snap.
func (s *Store) WriteSnapshot(snap snapshot.Snapshot) error {
	rows := make([]HistoryRow, 0, len(snap.Registers))
	for _, r := range snap.Registers {
		rows = append(rows, HistoryRow{
			TakenAt:     snap.TakenAt,
			Address:     r.Address,
			Description: r.Description,
			Value:       r.Raw,
			High:        r.RawHigh,
			Low:         r.RawLow,
			BogusCount:  snap.BogusCount,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.ORM.Create(&rows).Error
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.ORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
