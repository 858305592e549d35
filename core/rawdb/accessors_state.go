// Copyright 2020 The go-ethereum Authors
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
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/ethdb"
	"github.com/rezbera/revm/log"
)

// get wraps db.Get, reporting a missing key as nil without error.
func get(db ethdb.KeyValueReader, key []byte) ([]byte, error) {
	data, err := db.Get(key)
	if errors.Is(err, ethdb.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// ReadAccount retrieves the account stored for addr, or nil if there is none.
func ReadAccount(db ethdb.KeyValueReader, addr common.Address) (*types.Account, error) {
	defer rawdbGetAccountTimer.UpdateSince(time.Now())

	data, err := get(db, accountKey(addr))
	if err != nil || len(data) == 0 {
		return nil, err
	}
	return types.DecodeAccount(data)
}

// WriteAccount stores the account for addr.
func WriteAccount(db ethdb.KeyValueWriter, addr common.Address, account *types.Account) {
	data, err := types.EncodeAccount(account)
	if err != nil {
		log.Crit("Failed to encode account", "addr", addr, "err", err)
	}
	if err := db.Put(accountKey(addr), data); err != nil {
		log.Crit("Failed to store account", "err", err)
	}
}

// DeleteAccount removes the account entry for addr. Its storage is left alone.
func DeleteAccount(db ethdb.KeyValueWriter, addr common.Address) {
	if err := db.Delete(accountKey(addr)); err != nil {
		log.Crit("Failed to delete account", "err", err)
	}
}

// ReadStorage retrieves a storage slot, zero if it was never written.
func ReadStorage(db ethdb.KeyValueReader, addr common.Address, slot common.Hash) (common.Hash, error) {
	defer rawdbGetStorageTimer.UpdateSince(time.Now())

	data, err := get(db, storageKey(addr, slot))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(data), nil
}

// WriteStorage stores a storage slot. Zero values delete the entry.
func WriteStorage(db ethdb.KeyValueWriter, addr common.Address, slot, value common.Hash) {
	var err error
	if value == (common.Hash{}) {
		err = db.Delete(storageKey(addr, slot))
	} else {
		err = db.Put(storageKey(addr, slot), value.Bytes())
	}
	if err != nil {
		log.Crit("Failed to store storage slot", "err", err)
	}
}

// DeleteStorage removes every storage slot of addr. Deletions are written to
// w, which may be a batch over db.
func DeleteStorage(db ethdb.Iteratee, w ethdb.KeyValueWriter, addr common.Address) error {
	it := db.NewIterator(storagePrefix(addr), nil)
	defer it.Release()

	for it.Next() {
		if err := w.Delete(common.CopyBytes(it.Key())); err != nil {
			return err
		}
	}
	return it.Error()
}

// ReadCode retrieves the contract code of the provided code hash.
func ReadCode(db ethdb.KeyValueReader, hash common.Hash) ([]byte, error) {
	defer rawdbGetCodeTimer.UpdateSince(time.Now())
	return get(db, codeKey(hash))
}

// WriteCode writes the provided contract code database.
func WriteCode(db ethdb.KeyValueWriter, hash common.Hash, code []byte) {
	if err := db.Put(codeKey(hash), code); err != nil {
		log.Crit("Failed to store contract code", "err", err)
	}
}

// ReadBlockHash retrieves the hash of the canonical block at number, zero if
// it is unknown.
func ReadBlockHash(db ethdb.KeyValueReader, number uint64) (common.Hash, error) {
	defer rawdbGetBlockHashTimer.UpdateSince(time.Now())

	data, err := get(db, blockHashKey(number))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(data), nil
}

// WriteBlockHash stores the hash of the canonical block at number.
func WriteBlockHash(db ethdb.KeyValueWriter, number uint64, hash common.Hash) {
	if err := db.Put(blockHashKey(number), hash.Bytes()); err != nil {
		log.Crit("Failed to store block hash", "err", err)
	}
}
