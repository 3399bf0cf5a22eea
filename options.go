package treekv

import (
	"os"

	"go.uber.org/zap"
)

// Option configures a DB handle at Connect time.
type Option func(*config)

type config struct {
	logger *zap.Logger
	mode   os.FileMode
}

func defaultConfig() config {
	return config{
		logger: zap.NewNop(),
		mode:   0644,
	}
}

// WithLogger attaches a structured logger to the handle. Storage-level
// events (superblock init, lock acquisition, root commits) log at Debug.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFileMode sets the permission bits used when the database file is
// created. The default is 0644.
func WithFileMode(mode os.FileMode) Option {
	return func(c *config) {
		c.mode = mode
	}
}
