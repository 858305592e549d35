package rawdb

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Supported key-value engines.
const (
	DBMemory  = "memory"
	DBPebble  = "pebble"
	DBLeveldb = "leveldb"
	DBBbolt   = "bbolt"
)

// KVDBConfig is the configuration for the key-value database.
type KVDBConfig struct {
	DBType   string `toml:",omitempty"`
	DBPath   string `toml:",omitempty"`
	Cache    int    `toml:",omitempty"` // megabytes, leveldb only
	Handles  int    `toml:",omitempty"`
	ReadOnly bool   `toml:",omitempty"`
}

// SanityCheck validates the engine name and requires a path for on-disk
// engines.
func (c *KVDBConfig) SanityCheck() error {
	switch c.DBType {
	case "", DBMemory:
		return nil
	case DBPebble, DBLeveldb, DBBbolt:
		if c.DBPath == "" {
			return errors.New("database path is required")
		}
		return nil
	}
	return fmt.Errorf("unknown database type %q", c.DBType)
}

// SetDefaultPath places the database under dataDir when no path is set.
func (c *KVDBConfig) SetDefaultPath(dataDir string) {
	if c.DBPath == "" && c.DBType != "" && c.DBType != DBMemory {
		c.DBPath = filepath.Join(dataDir, "statedata", c.DBType)
	}
}
