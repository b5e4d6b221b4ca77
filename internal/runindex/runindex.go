package runindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"go.etcd.io/bbolt"
)

const (
	dbFile        = "exe-ctld.run-index"
	bucketName    = "run_index"
	dbPermissions = 0600
)

// ErrNoIndex is returned by Open when there is no legacy index to read.
var ErrNoIndex = errors.New("run index not found")

// RunIndex reads the run frequencies recorded by the previous launcher daemon.
// The database is opened read-only; counts now live in the history file.
type RunIndex struct {
	db *bbolt.DB
}

// DefaultPath returns where the previous daemon kept its index.
func DefaultPath() string {
	return filepath.Join(xdg.CacheHome, "ade", dbFile)
}

// Open opens the index at path for reading.
func Open(path string) (*RunIndex, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoIndex, path)
		}
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}

	db, err := bbolt.Open(path, dbPermissions, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &RunIndex{db: db}, nil
}

// Counts returns every recorded path with its run count.
func (ri *RunIndex) Counts() (map[string]uint64, error) {
	counts := make(map[string]uint64)
	err := ri.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil // Bucket doesn't exist, no frequencies
		}
		return b.ForEach(func(k, v []byte) error {
			if len(v) != 8 {
				return fmt.Errorf("malformed count for %q", k)
			}
			counts[string(k)] = binary.BigEndian.Uint64(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Close closes the database connection.
func (ri *RunIndex) Close() error {
	if ri.db != nil {
		err := ri.db.Close()
		ri.db = nil
		return err
	}
	return nil
}
