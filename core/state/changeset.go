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
	"github.com/ethereum/go-ethereum/common"
	"github.com/rezbera/revm/core/types"
)

// AccountChange is the finalized mutation of a single account.
type AccountChange struct {
	Address common.Address

	// Account holds the new account data, nil if the account was deleted.
	Account *types.Account

	// Code is set if the code hash of the account changed.
	Code []byte

	// Storage holds the slots whose value changed. A zero value removes the slot.
	Storage Storage

	// Deleted is set if the account must be removed along with its storage.
	Deleted bool

	// StorageCleared is set if the account was re-created over an existing
	// one, so the previous storage must be dropped before Storage is applied.
	StorageCleared bool
}

// ChangeSet is the set of state mutations produced by one top-level
// execution, ordered by address.
type ChangeSet struct {
	Accounts []*AccountChange
	Logs     []*types.Log
}

// Account returns the change recorded for addr, or nil.
func (cs *ChangeSet) Account(addr common.Address) *AccountChange {
	if cs == nil {
		return nil
	}
	for _, change := range cs.Accounts {
		if change.Address == addr {
			return change
		}
	}
	return nil
}

// Slots returns the number of storage slots written by the change set.
func (cs *ChangeSet) Slots() int {
	var n int
	for _, change := range cs.Accounts {
		n += len(change.Storage)
	}
	return n
}
