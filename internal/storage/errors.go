package storage

import "github.com/cockroachdb/errors"

var (
	// ErrClosed is returned for any operation after Close.
	ErrClosed = errors.New("storage: file closed")

	// ErrMalformedRecord is returned when a record cannot be read in full,
	// e.g. a truncated length-prefixed payload or an implausible length.
	ErrMalformedRecord = errors.New("storage: malformed record")
)
