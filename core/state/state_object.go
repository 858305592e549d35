// Copyright 2014 The go-ethereum Authors
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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/types"
)

type Storage map[common.Hash]common.Hash

func (s Storage) String() (str string) {
	for key, value := range s {
		str += fmt.Sprintf("%X : %X\n", key, value)
	}
	return
}

func (s Storage) Copy() Storage {
	cpy := make(Storage, len(s))
	for key, value := range s {
		cpy[key] = value
	}
	return cpy
}

// stateObject represents an Ethereum account which is being modified.
//
// The usage pattern is as follows:
// - First you need to obtain a state object.
// - Account values as well as storages can be accessed and modified through the object.
// - Finally, call Finalize on the StateDB to collect the modified objects.
type stateObject struct {
	db      *StateDB
	address common.Address

	origin *types.Account // Account as held by the database, nil if it did not exist
	data   types.Account  // Account data with all mutations applied in the scope of execution

	code []byte // contract bytecode, which gets set when code is loaded

	originStorage Storage // Storage entries that have been accessed within the execution
	dirtyStorage  Storage // Storage entries that have been modified within the execution

	// Flag whether the object was created (or re-created over an existing
	// account) during this execution. Storage held by the database is hidden.
	created bool

	// Flag whether the account was marked as a contract by CreateContract in
	// this execution. Only such accounts are destroyed by EIP-6780
	// SELFDESTRUCT.
	newContract bool

	// Flag whether the account was marked as self-destructed. The account is
	// still accessible until the state is finalized.
	selfDestructed bool

	// Flag whether a balance change, even a zero one, touched the account.
	touched bool
}

// empty returns whether the account is considered empty.
func (s *stateObject) empty() bool {
	return s.data.Empty()
}

// newObject creates a state object.
func newObject(db *StateDB, address common.Address, origin *types.Account) *stateObject {
	var data types.Account
	if origin == nil {
		data = *types.NewEmptyAccount()
	} else {
		data = *origin.Copy()
	}
	return &stateObject{
		db:            db,
		address:       address,
		origin:        origin,
		data:          data,
		originStorage: make(Storage),
		dirtyStorage:  make(Storage),
	}
}

func (s *stateObject) markSelfdestructed() {
	if !s.selfDestructed {
		s.db.journal.append(selfDestructChange{account: s.address})
	}
	s.selfDestructed = true
}

func (s *stateObject) touch() {
	if s.touched {
		return
	}
	s.db.journal.append(touchChange{account: s.address})
	s.touched = true
}

// GetState retrieves a value associated with the given storage key.
func (s *stateObject) GetState(key common.Hash) common.Hash {
	if value, dirty := s.dirtyStorage[key]; dirty {
		return value
	}
	return s.GetCommittedState(key)
}

// GetCommittedState retrieves the value associated with the specific key
// as it was when the execution started.
func (s *stateObject) GetCommittedState(key common.Hash) common.Hash {
	// Storage of an account created in this execution starts out empty,
	// whatever the database holds.
	if s.created {
		return common.Hash{}
	}
	if value, cached := s.originStorage[key]; cached {
		return value
	}
	value, err := s.db.db.Storage(s.address, key)
	if err != nil {
		s.db.setError("storage", err)
		return common.Hash{}
	}
	s.originStorage[key] = value
	return value
}

// SetState updates a value in account storage.
func (s *stateObject) SetState(key, value common.Hash) {
	prev := s.GetState(key)
	if prev == value {
		return
	}
	s.db.journal.append(storageChange{
		account:  s.address,
		slot:     key,
		prevalue: prev,
	})
	s.setState(key, value)
}

func (s *stateObject) setState(key, value common.Hash) {
	s.dirtyStorage[key] = value
}

// storageChanges returns the slots whose value differs from the one the
// database holds.
func (s *stateObject) storageChanges() Storage {
	changes := make(Storage)
	for key, value := range s.dirtyStorage {
		if s.created {
			if value != (common.Hash{}) {
				changes[key] = value
			}
			continue
		}
		if value != s.GetCommittedState(key) {
			changes[key] = value
		}
	}
	return changes
}

// AddBalance adds amount to s's balance.
// It is used to add funds to the destination account of a transfer.
func (s *stateObject) AddBalance(amount *uint256.Int) {
	// EIP161: We must check emptiness for the objects such that the account
	// clearing (0,0,0 objects) can take effect.
	if amount.IsZero() {
		s.touch()
		return
	}
	s.SetBalance(new(uint256.Int).Add(s.Balance(), amount))
}

// SubBalance removes amount from s's balance.
// It is used to remove funds from the origin account of a transfer.
func (s *stateObject) SubBalance(amount *uint256.Int) {
	if amount.IsZero() {
		s.touch()
		return
	}
	s.SetBalance(new(uint256.Int).Sub(s.Balance(), amount))
}

func (s *stateObject) SetBalance(amount *uint256.Int) {
	if !s.db.journal.recorded(journalKey{kind: balanceKind, addr: s.address}) {
		s.db.journal.append(balanceChange{
			account: s.address,
			prev:    new(uint256.Int).Set(s.data.Balance),
		})
	}
	s.touch()
	s.setBalance(amount)
}

func (s *stateObject) setBalance(amount *uint256.Int) {
	s.data.Balance = new(uint256.Int).Set(amount)
}

// Code returns the contract code associated with this object, if any.
func (s *stateObject) Code() []byte {
	if s.code != nil {
		return s.code
	}
	if s.data.CodeHash == types.EmptyCodeHash || s.data.CodeHash == (common.Hash{}) {
		return nil
	}
	code, err := s.db.db.CodeByHash(s.data.CodeHash)
	if err != nil {
		s.db.setError(fmt.Sprintf("code %x", s.data.CodeHash), err)
		return nil
	}
	s.code = code
	return code
}

// CodeSize returns the size of the contract code associated with this object,
// or zero if none.
func (s *stateObject) CodeSize() int {
	return len(s.Code())
}

func (s *stateObject) SetCode(codeHash common.Hash, code []byte) {
	s.db.journal.append(codeChange{
		account:  s.address,
		prevhash: s.data.CodeHash,
		prevcode: s.Code(),
	})
	s.setCode(codeHash, code)
}

func (s *stateObject) setCode(codeHash common.Hash, code []byte) {
	s.code = code
	s.data.CodeHash = codeHash
}

// codeChanged reports whether the code differs from the one in the database.
func (s *stateObject) codeChanged() bool {
	if s.origin == nil {
		return s.data.CodeHash != types.EmptyCodeHash
	}
	return s.origin.CodeHash != s.data.CodeHash
}

func (s *stateObject) SetNonce(nonce uint64) {
	s.db.journal.append(nonceChange{
		account: s.address,
		prev:    s.data.Nonce,
	})
	s.setNonce(nonce)
}

func (s *stateObject) setNonce(nonce uint64) {
	s.data.Nonce = nonce
}

func (s *stateObject) CodeHash() common.Hash {
	return s.data.CodeHash
}

func (s *stateObject) Balance() *uint256.Int {
	return s.data.Balance
}

func (s *stateObject) Nonce() uint64 {
	return s.data.Nonce
}

// Address returns the address of the contract/account
func (s *stateObject) Address() common.Address {
	return s.address
}
