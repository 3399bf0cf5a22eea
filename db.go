// Package treekv is an embedded, single-file key/value store backed by an
// immutable copy-on-write binary search tree.
//
// A handle reads immediately and writes durably only on Commit: Set builds
// a new in-memory path from root to leaf, and Commit appends the dirty
// records and atomically republishes the root address in the file's
// superblock. One writer at a time holds an exclusive advisory file lock;
// readers take no lock and always observe the latest committed tree.
//
// The tree is intentionally unbalanced and does not support deletion.
package treekv

import (
	"go.uber.org/zap"

	"treekv/internal/storage"
	"treekv/internal/tree"
)

// Key is a type-tagged, totally ordered key. Build one with Int, Uint,
// Float or String.
type Key = tree.Key

// Entry is one key/value pair.
type Entry = tree.Entry

// Int returns a signed integer key.
func Int(v int64) Key { return tree.Int(v) }

// Uint returns an unsigned integer key.
func Uint(v uint64) Key { return tree.Uint(v) }

// Float returns a floating-point key, also usable as a Chop threshold
// between integer keys.
func Float(v float64) Key { return tree.Float(v) }

// String returns a string key.
func String(v string) Key { return tree.String(v) }

// DB is a handle on one database file. It owns the underlying record file
// and tree; Close is terminal.
type DB struct {
	file *storage.File
	tree *tree.Tree
	log  *zap.Logger
}

// Connect opens the database file at path, creating it if absent, and
// returns a ready handle.
func Connect(path string, opts ...Option) (*DB, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := storage.Open(path, storage.Options{Mode: cfg.mode, Logger: cfg.logger})
	if err != nil {
		return nil, err
	}
	t, err := tree.New(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	cfg.logger.Debug("connected", zap.String("path", path))
	return &DB{file: f, tree: t, log: cfg.logger}, nil
}

// ok fails every operation once the handle has been closed.
func (db *DB) ok() error {
	if db.file.Closed() {
		return ErrClosed
	}
	return nil
}

// Get returns the value stored under key.
func (db *DB) Get(key Key) ([]byte, error) {
	if err := db.ok(); err != nil {
		return nil, err
	}
	return db.tree.Get(key)
}

// Set inserts or replaces the value under key. The change is visible to
// this handle immediately but is durable, and visible to other handles,
// only after Commit.
func (db *DB) Set(key Key, value []byte) error {
	if err := db.ok(); err != nil {
		return err
	}
	return db.tree.Set(key, value)
}

// Commit makes every Set since the last Commit durable and releases the
// write lock. A failed Commit leaves the previous committed state intact.
func (db *DB) Commit() error {
	if err := db.ok(); err != nil {
		return err
	}
	return db.tree.Commit()
}

// Delete is not supported by this store.
func (db *DB) Delete(key Key) error {
	if err := db.ok(); err != nil {
		return err
	}
	return db.tree.Delete(key)
}

// GetMin returns the value under the smallest key.
func (db *DB) GetMin() ([]byte, error) {
	if err := db.ok(); err != nil {
		return nil, err
	}
	return db.tree.GetMin()
}

// GetLeft returns the entry of the literal left child of the node holding
// key (the immediate child, not the in-order predecessor).
func (db *DB) GetLeft(key Key) (Entry, error) {
	if err := db.ok(); err != nil {
		return Entry{}, err
	}
	return db.tree.GetLeft(key)
}

// GetRight returns the entry of the literal right child of the node
// holding key (the immediate child, not the in-order successor).
func (db *DB) GetRight(key Key) (Entry, error) {
	if err := db.ok(); err != nil {
		return Entry{}, err
	}
	return db.tree.GetRight(key)
}

// Chop returns every entry with key <= threshold. The order is the one
// produced by the expand-point walk, not necessarily sorted.
func (db *DB) Chop(threshold Key) ([]Entry, error) {
	if err := db.ok(); err != nil {
		return nil, err
	}
	return db.tree.Chop(threshold)
}

// Scan returns every entry in key order.
func (db *DB) Scan() ([]Entry, error) {
	if err := db.ok(); err != nil {
		return nil, err
	}
	return db.tree.Scan()
}

// Close releases the write lock if held and closes the file. Uncommitted
// changes are discarded. Close is idempotent; every other operation on a
// closed handle returns ErrClosed.
func (db *DB) Close() error {
	if db.file.Closed() {
		return nil
	}
	db.log.Debug("closing", zap.String("path", db.file.Path()))
	return db.file.Close()
}
