package local

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config holds all information needed to open a local table file.
type Config struct {
	Path   string
	Layout string `option:"layout" help:"use this backend directory layout (default: sidecar)"`

	LockTimeout time.Duration `option:"lock-timeout" help:"how long to wait for a locked table (default: 10s)"`
}

// NewConfig returns a new config with default options applied.
func NewConfig() Config {
	return Config{
		LockTimeout: 10 * time.Second,
	}
}

// ParseConfig parses a local backend config. Both "local:/path/table.csv"
// and a plain path are accepted.
func ParseConfig(s string) (*Config, error) {
	s = strings.TrimPrefix(s, "local:")
	if s == "" {
		return nil, errors.New("invalid format, table path is empty")
	}

	cfg := NewConfig()
	cfg.Path = s
	return &cfg, nil
}
