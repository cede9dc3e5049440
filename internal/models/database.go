package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// GrabRecord is the history of one accepted download request.
type GrabRecord struct {
	ID        uint64 `boltholdKey:"ID"`
	Series    string `boltholdIndex:"Series"`
	Number    int
	FileName  string
	TorrentID string
	GrabbedAt time.Time
}

// Database wraps the bolthold store holding the grab history.
type Database struct {
	store *bolthold.Store
}

// NewDatabase opens the grab history store, creating it if needed.
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection.
func (db *Database) Close() error {
	return db.store.Close()
}

// RecordGrab stores a newly accepted download request.
func (db *Database) RecordGrab(record *GrabRecord) error {
	record.GrabbedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), record)
}

// GetGrabsBySeries retrieves the grab history of one series.
func (db *Database) GetGrabsBySeries(series string) ([]*GrabRecord, error) {
	var records []*GrabRecord
	err := db.store.Find(&records, bolthold.Where("Series").Eq(series))
	return records, err
}

// GetRecentGrabs retrieves the most recent grabs across all series.
func (db *Database) GetRecentGrabs(limit int) ([]*GrabRecord, error) {
	var records []*GrabRecord
	query := (&bolthold.Query{}).SortBy("GrabbedAt").Reverse().Limit(limit)
	err := db.store.Find(&records, query)
	return records, err
}

// CountGrabs returns the total number of recorded grabs.
func (db *Database) CountGrabs() (int, error) {
	return db.store.Count(&GrabRecord{}, nil)
}
