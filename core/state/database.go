// Copyright 2017 The go-ethereum Authors
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
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rezbera/revm/core/types"
)

// ErrCommitUnsupported is returned when committing into a database that
// cannot persist change sets.
var ErrCommitUnsupported = errors.New("state database does not support commits")

// Database is the read side of a state backend. Missing accounts are
// reported as nil, missing slots and block hashes as the zero hash. Any
// returned error is a backend failure.
type Database interface {
	// Basic retrieves the account at addr.
	Basic(addr common.Address) (*types.Account, error)

	// CodeByHash retrieves the contract code with the given hash.
	CodeByHash(hash common.Hash) ([]byte, error)

	// Storage retrieves the value of a storage slot.
	Storage(addr common.Address, slot common.Hash) (common.Hash, error)

	// BlockHash retrieves the hash of the canonical block with the given number.
	BlockHash(number uint64) (common.Hash, error)
}

// DatabaseCommit is implemented by backends that can apply a change set.
type DatabaseCommit interface {
	Commit(changes *ChangeSet) error
}

// DatabaseError wraps a backend failure. It aborts the whole execution.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("state database %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// Fatal marks the error as unrecoverable for the interpreter.
func (e *DatabaseError) Fatal() bool { return true }

// MemoryDB is a map backed Database. It is safe for concurrent use.
type MemoryDB struct {
	lock        sync.RWMutex
	accounts    map[common.Address]*types.Account
	storage     map[common.Address]Storage
	code        map[common.Hash][]byte
	blockHashes map[uint64]common.Hash
}

// NewMemoryDB returns an empty in-memory state database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		accounts:    make(map[common.Address]*types.Account),
		storage:     make(map[common.Address]Storage),
		code:        make(map[common.Hash][]byte),
		blockHashes: make(map[uint64]common.Hash),
	}
}

// Basic implements Database.
func (db *MemoryDB) Basic(addr common.Address) (*types.Account, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if acct, ok := db.accounts[addr]; ok {
		return acct.Copy(), nil
	}
	return nil, nil
}

// CodeByHash implements Database.
func (db *MemoryDB) CodeByHash(hash common.Hash) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.code[hash], nil
}

// Storage implements Database.
func (db *MemoryDB) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.storage[addr][slot], nil
}

// BlockHash implements Database.
func (db *MemoryDB) BlockHash(number uint64) (common.Hash, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.blockHashes[number], nil
}

// SetAccount inserts or replaces the account at addr.
func (db *MemoryDB) SetAccount(addr common.Address, acct *types.Account) {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.accounts[addr] = acct.Copy()
}

// SetCode stores code and points the account at addr to it, creating the
// account if needed.
func (db *MemoryDB) SetCode(addr common.Address, code []byte) {
	db.lock.Lock()
	defer db.lock.Unlock()

	acct, ok := db.accounts[addr]
	if !ok {
		acct = types.NewEmptyAccount()
		db.accounts[addr] = acct
	}
	hash := crypto.Keccak256Hash(code)
	acct.CodeHash = hash
	db.code[hash] = common.CopyBytes(code)
}

// SetStorage writes a storage slot. Zero values remove the slot.
func (db *MemoryDB) SetStorage(addr common.Address, slot, value common.Hash) {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.setStorage(addr, slot, value)
}

func (db *MemoryDB) setStorage(addr common.Address, slot, value common.Hash) {
	if value == (common.Hash{}) {
		delete(db.storage[addr], slot)
		return
	}
	if db.storage[addr] == nil {
		db.storage[addr] = make(Storage)
	}
	db.storage[addr][slot] = value
}

// SetBlockHash records the hash of block number.
func (db *MemoryDB) SetBlockHash(number uint64, hash common.Hash) {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.blockHashes[number] = hash
}

// Commit implements DatabaseCommit.
func (db *MemoryDB) Commit(changes *ChangeSet) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	for _, change := range changes.Accounts {
		if change.Deleted {
			delete(db.accounts, change.Address)
			delete(db.storage, change.Address)
			continue
		}
		if change.StorageCleared {
			delete(db.storage, change.Address)
		}
		db.accounts[change.Address] = change.Account.Copy()
		if change.Code != nil {
			db.code[change.Account.CodeHash] = common.CopyBytes(change.Code)
		}
		for slot, value := range change.Storage {
			db.setStorage(change.Address, slot, value)
		}
	}
	return nil
}

// Dump returns a copy of all accounts and their storage.
func (db *MemoryDB) Dump() (map[common.Address]*types.Account, map[common.Address]Storage) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	accounts := make(map[common.Address]*types.Account, len(db.accounts))
	for addr, acct := range db.accounts {
		accounts[addr] = acct.Copy()
	}
	storage := make(map[common.Address]Storage, len(db.storage))
	for addr, slots := range db.storage {
		storage[addr] = slots.Copy()
	}
	return accounts, storage
}
