// Package sqlite persists the in-memory hatchery state to a single SQLite table as
// JSON blobs, one row per entity bucket.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/memory"
)

var _ repository.Store = (*Store)(nil)

// Store serves reads from memory and snapshots the full state after every write.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

const (
	bucketSequence   = "sequence"
	bucketSpecies    = "species"
	bucketBreeds     = "breeds"
	bucketIncubators = "incubators"
	bucketTrays      = "trays"
	bucketBatches    = "batches"
	bucketEvents     = "events"
	bucketReadings   = "readings"
)

var buckets = []string{bucketSequence, bucketSpecies, bucketBreeds, bucketIncubators, bucketTrays, bucketBatches, bucketEvents, bucketReadings}

// NewStore opens (or creates) the database at path and loads its state.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "hatchery.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}

	s := &Store{db: db, path: path}
	snapshot, err := s.load()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.Store = memory.New(memory.WithCommitHook(s.persist))
	if snapshot != nil {
		s.Store.ImportState(*snapshot)
	}
	return s, nil
}

func (s *Store) load() (*memory.Snapshot, error) {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{}
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		target := bucketTarget(&snapshot, bucket)
		if target == nil {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", bucket, err)
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &snapshot, nil
}

func bucketTarget(snapshot *memory.Snapshot, bucket string) any {
	switch bucket {
	case bucketSequence:
		return &snapshot.Sequence
	case bucketSpecies:
		return &snapshot.Species
	case bucketBreeds:
		return &snapshot.Breeds
	case bucketIncubators:
		return &snapshot.Incubators
	case bucketTrays:
		return &snapshot.Trays
	case bucketBatches:
		return &snapshot.Batches
	case bucketEvents:
		return &snapshot.Events
	case bucketReadings:
		return &snapshot.Readings
	}
	return nil
}

func (s *Store) persist(snapshot memory.Snapshot) (retErr error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		data, err := json.Marshal(bucketTarget(&snapshot, bucket))
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
