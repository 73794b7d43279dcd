package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

/*
Responsibilities
- Open and hold the single badgerhold database every Site/Crawl/CrawlLog/
  Settings store reads and writes through
- Give the Crawl store a raw *badger.DB handle for the one place this
  package needs a real transaction: the "one active crawl per site"
  admission check

This is a query-convenience mirror, never the crawl's source of truth —
the on-disk state file C6 reads and writes is. A process can lose this
database entirely and recover by replaying C6's state files; it cannot
recover a lost state file from this database.
*/

// DB wraps the badgerhold store every table in this package shares.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open creates (or reopens) the badgerhold database at path, creating
// parent directories as needed.
func Open(path string, logger arbor.ILogger) (*DB, error) {
	if logger == nil {
		logger = arbor.NewLogger()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &DB{store: store, logger: logger}, nil
}

// Store returns the underlying badgerhold store.
func (db *DB) Store() *badgerhold.Store {
	return db.store
}

// Badger returns the raw badger handle, used only where badgerhold's
// non-transactional API can't express an atomic check-then-write.
func (db *DB) Badger() *badger.DB {
	return db.store.Badger()
}

func (db *DB) Close() error {
	if db.store != nil {
		return db.store.Close()
	}
	return nil
}
