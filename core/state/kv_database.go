// Copyright 2024 The go-ethereum Authors
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

package state

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rezbera/revm/core/rawdb"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/ethdb"
	"github.com/rezbera/revm/log"
)

// KVDatabase is a Database persisted in a key-value store using the rawdb
// schema.
type KVDatabase struct {
	disk ethdb.KeyValueStore
}

// NewKVDatabase wraps disk.
func NewKVDatabase(disk ethdb.KeyValueStore) *KVDatabase {
	return &KVDatabase{disk: disk}
}

// DiskDB returns the underlying key-value store.
func (db *KVDatabase) DiskDB() ethdb.KeyValueStore {
	return db.disk
}

// Basic implements Database.
func (db *KVDatabase) Basic(addr common.Address) (*types.Account, error) {
	return rawdb.ReadAccount(db.disk, addr)
}

// CodeByHash implements Database.
func (db *KVDatabase) CodeByHash(hash common.Hash) ([]byte, error) {
	return rawdb.ReadCode(db.disk, hash)
}

// Storage implements Database.
func (db *KVDatabase) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	return rawdb.ReadStorage(db.disk, addr, slot)
}

// BlockHash implements Database.
func (db *KVDatabase) BlockHash(number uint64) (common.Hash, error) {
	return rawdb.ReadBlockHash(db.disk, number)
}

// WriteBlockHash records the hash of block number.
func (db *KVDatabase) WriteBlockHash(number uint64, hash common.Hash) {
	rawdb.WriteBlockHash(db.disk, number, hash)
}

// Commit writes the change set atomically.
func (db *KVDatabase) Commit(changes *ChangeSet) error {
	defer commitTimer.UpdateSince(time.Now())

	batch := db.disk.NewBatch()
	var deleted int
	for _, change := range changes.Accounts {
		if change.Deleted || change.StorageCleared {
			if err := rawdb.DeleteStorage(db.disk, batch, change.Address); err != nil {
				return err
			}
		}
		if change.Deleted {
			rawdb.DeleteAccount(batch, change.Address)
			deleted++
			continue
		}
		rawdb.WriteAccount(batch, change.Address, change.Account)
		if change.Code != nil {
			rawdb.WriteCode(batch, change.Account.CodeHash, change.Code)
		}
		for slot, value := range change.Storage {
			rawdb.WriteStorage(batch, change.Address, slot, value)
		}
	}
	size := batch.ValueSize()
	if err := batch.Write(); err != nil {
		return err
	}
	commitAccountsMeter.Mark(int64(len(changes.Accounts) - deleted))
	commitDeletionsMeter.Mark(int64(deleted))
	commitSlotsMeter.Mark(int64(changes.Slots()))
	log.Debug("Committed state changes", "accounts", len(changes.Accounts), "deleted", deleted, "slots", changes.Slots(), "size", size)
	return nil
}
