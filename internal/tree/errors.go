package tree

import "github.com/cockroachdb/errors"

var (
	// ErrKeyNotFound is returned when a lookup reaches a nil reference
	// before matching, and by child lookups when the requested child is nil.
	ErrKeyNotFound = errors.New("tree: key not found")

	// ErrUnsupported is returned by Delete. The tree keeps parity with a
	// companion balanced variant that cannot support cheap deletion.
	ErrUnsupported = errors.New("tree: delete is not supported")
)
