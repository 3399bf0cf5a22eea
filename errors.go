package treekv

import (
	"treekv/internal/storage"
	"treekv/internal/tree"
)

// Error kinds surfaced by the facade, re-exported so callers can use
// errors.Is without importing internal packages.
var (
	// ErrKeyNotFound is returned when a key (or a requested child of a
	// found key) does not exist.
	ErrKeyNotFound = tree.ErrKeyNotFound

	// ErrClosed is returned by every operation after Close.
	ErrClosed = storage.ErrClosed

	// ErrUnsupported is returned by Delete.
	ErrUnsupported = tree.ErrUnsupported

	// ErrMalformedRecord is returned when an on-disk record decodes to
	// structurally invalid data.
	ErrMalformedRecord = storage.ErrMalformedRecord
)
