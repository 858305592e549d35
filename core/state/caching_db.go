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
	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rezbera/revm/core/types"
)

const (
	// Number of codehash->code associations to keep.
	codeCacheSize = 10000
)

// CachingDB keeps recently read accounts, slots and code of another Database
// in memory. It is safe for concurrent reads.
type CachingDB struct {
	db       Database
	accounts *fastcache.Cache
	storage  *fastcache.Cache
	code     *lru.Cache
}

// NewCachingDB wraps db with caches of roughly cacheMB megabytes, split
// evenly between accounts and storage.
func NewCachingDB(db Database, cacheMB int) *CachingDB {
	if cacheMB < 1 {
		cacheMB = 1
	}
	code, _ := lru.New(codeCacheSize)
	return &CachingDB{
		db:       db,
		accounts: fastcache.New(cacheMB * 1024 * 1024 / 2),
		storage:  fastcache.New(cacheMB * 1024 * 1024 / 2),
		code:     code,
	}
}

// Basic implements Database. Missing accounts are cached as empty entries.
func (db *CachingDB) Basic(addr common.Address) (*types.Account, error) {
	if blob, ok := db.accounts.HasGet(nil, addr[:]); ok {
		accountCacheHitMeter.Mark(1)
		if len(blob) == 0 {
			return nil, nil
		}
		return types.DecodeAccount(blob)
	}
	accountCacheMissMeter.Mark(1)

	acct, err := db.db.Basic(addr)
	if err != nil {
		return nil, err
	}
	var blob []byte
	if acct != nil {
		if blob, err = types.EncodeAccount(acct); err != nil {
			return nil, err
		}
	}
	db.accounts.Set(addr[:], blob)
	return acct, nil
}

// CodeByHash implements Database.
func (db *CachingDB) CodeByHash(hash common.Hash) ([]byte, error) {
	if cached, ok := db.code.Get(hash); ok {
		codeCacheHitMeter.Mark(1)
		return cached.([]byte), nil
	}
	codeCacheMissMeter.Mark(1)

	code, err := db.db.CodeByHash(hash)
	if err != nil {
		return nil, err
	}
	if len(code) > 0 {
		db.code.Add(hash, code)
	}
	return code, nil
}

// Storage implements Database.
func (db *CachingDB) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	key := append(addr.Bytes(), slot[:]...)
	if blob, ok := db.storage.HasGet(nil, key); ok {
		storageCacheHitMeter.Mark(1)
		return common.BytesToHash(blob), nil
	}
	storageCacheMissMeter.Mark(1)

	value, err := db.db.Storage(addr, slot)
	if err != nil {
		return common.Hash{}, err
	}
	db.storage.Set(key, value[:])
	return value, nil
}

// BlockHash implements Database.
func (db *CachingDB) BlockHash(number uint64) (common.Hash, error) {
	return db.db.BlockHash(number)
}

// Commit applies the change set to the wrapped database and refreshes the
// caches.
func (db *CachingDB) Commit(changes *ChangeSet) error {
	inner, ok := db.db.(DatabaseCommit)
	if !ok {
		return ErrCommitUnsupported
	}
	if err := inner.Commit(changes); err != nil {
		// The backend may be partially written, forget everything.
		db.accounts.Reset()
		db.storage.Reset()
		return err
	}
	var cleared bool
	for _, change := range changes.Accounts {
		addr := change.Address
		db.accounts.Del(addr[:])
		if change.Deleted || change.StorageCleared {
			cleared = true
			continue
		}
		if change.Code != nil {
			db.code.Add(change.Account.CodeHash, change.Code)
		}
		for slot, value := range change.Storage {
			db.storage.Set(append(addr.Bytes(), slot[:]...), value[:])
		}
	}
	// Slots of a wiped account cannot be enumerated in the cache.
	if cleared {
		db.storage.Reset()
	}
	return nil
}

// UpdateStats reports the cache statistics for accounts and storage.
func (db *CachingDB) UpdateStats() (accounts, storage fastcache.Stats) {
	db.accounts.UpdateStats(&accounts)
	db.storage.UpdateStats(&storage)
	return accounts, storage
}
