// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package rawdb

import (
	"github.com/rezbera/revm/ethdb"
	"github.com/rezbera/revm/ethdb/bboltdb"
	"github.com/rezbera/revm/ethdb/leveldb"
	"github.com/rezbera/revm/ethdb/memorydb"
	"github.com/rezbera/revm/ethdb/pebble"
	"github.com/rezbera/revm/log"
)

// NewMemoryDatabase creates an ephemeral in-memory key-value database.
func NewMemoryDatabase() ethdb.KeyValueStore {
	return memorydb.New()
}

// Open opens the key-value database described by cfg.
func Open(cfg KVDBConfig) (ethdb.KeyValueStore, error) {
	if err := cfg.SanityCheck(); err != nil {
		return nil, err
	}
	log.Info("Opening state database", "type", cfg.DBType, "path", cfg.DBPath, "readonly", cfg.ReadOnly)
	var (
		db  ethdb.KeyValueStore
		err error
	)
	switch cfg.DBType {
	case DBPebble:
		db, err = openPebble(cfg)
	case DBLeveldb:
		db, err = openLeveldb(cfg)
	case DBBbolt:
		db, err = openBbolt(cfg)
	default:
		db = NewMemoryDatabase()
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

func openPebble(cfg KVDBConfig) (ethdb.KeyValueStore, error) {
	db, err := pebble.New(cfg.DBPath, cfg.Handles, cfg.ReadOnly)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func openLeveldb(cfg KVDBConfig) (ethdb.KeyValueStore, error) {
	db, err := leveldb.New(cfg.DBPath, cfg.Cache, cfg.Handles, cfg.ReadOnly)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func openBbolt(cfg KVDBConfig) (ethdb.KeyValueStore, error) {
	db, err := bboltdb.New(cfg.DBPath, cfg.ReadOnly, false)
	if err != nil {
		return nil, err
	}
	return db, nil
}
