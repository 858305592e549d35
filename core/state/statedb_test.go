// Copyright 2016 The go-ethereum Authors
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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeDeletesTouchedEmpty(t *testing.T) {
	for _, deleteEmpty := range []bool{false, true} {
		s := New(newTestDB())
		s.AddBalance(testAddrs[2], new(uint256.Int)) // existing, empty
		s.AddBalance(testAddrs[3], new(uint256.Int)) // created, empty

		changes := s.Finalize(deleteEmpty)
		existing := changes.Account(testAddrs[2])
		created := changes.Account(testAddrs[3])
		if deleteEmpty {
			require.NotNil(t, existing)
			assert.True(t, existing.Deleted)
			assert.Nil(t, created, "never persisted account should be dropped")
		} else {
			assert.Nil(t, existing, "unchanged account emitted")
			require.NotNil(t, created)
			assert.True(t, created.Account.Empty())
		}
	}
}

func TestFinalizeStorageDiff(t *testing.T) {
	s := New(newTestDB())
	addr := testAddrs[1]

	s.SetState(addr, testSlots[1], common.Hash{0x12})
	s.SetState(addr, testSlots[1], common.Hash{0x11}) // back to committed
	s.SetState(addr, testSlots[2], common.Hash{})
	s.SetState(addr, testSlots[0], common.Hash{0x01})

	changes := s.Finalize(true)
	require.Len(t, changes.Accounts, 1)
	change := changes.Accounts[0]
	assert.Equal(t, Storage{testSlots[2]: {}, testSlots[0]: {0x01}}, change.Storage)
	assert.Nil(t, change.Code)
	assert.False(t, change.StorageCleared)
	assert.Equal(t, 2, changes.Slots())
}

func TestFinalizeOrderAndCode(t *testing.T) {
	s := New(newTestDB())
	code := []byte{0x5f, 0x5f, 0xfd}
	s.SetCode(testAddrs[3], code)
	s.SetNonce(testAddrs[0], 2)

	changes := s.Finalize(true)
	require.Len(t, changes.Accounts, 2)
	assert.Equal(t, testAddrs[0], changes.Accounts[0].Address)
	assert.Equal(t, testAddrs[3], changes.Accounts[1].Address)
	assert.Equal(t, code, changes.Accounts[1].Code)
	assert.Equal(t, crypto.Keccak256Hash(code), changes.Accounts[1].Account.CodeHash)
}

func TestSelfDestruct(t *testing.T) {
	s := New(newTestDB())
	addr := testAddrs[1]

	s.SelfDestruct(addr)
	assert.True(t, s.HasSelfDestructed(addr))
	assert.True(t, s.Exist(addr), "destructed account must exist until finalized")
	assert.True(t, s.GetBalance(addr).IsZero())

	changes := s.Finalize(true)
	require.NotNil(t, changes.Account(addr))
	assert.True(t, changes.Account(addr).Deleted)

	db := newTestDB()
	require.NoError(t, db.Commit(changes))
	acct, _ := db.Basic(addr)
	assert.Nil(t, acct)
	slot, _ := db.Storage(addr, testSlots[1])
	assert.Equal(t, common.Hash{}, slot)
}

func TestSelfdestruct6780(t *testing.T) {
	s := New(newTestDB())

	// Pre-existing contract survives.
	s.Selfdestruct6780(testAddrs[1])
	assert.False(t, s.HasSelfDestructed(testAddrs[1]))

	// Contract created in the same execution is destroyed.
	s.CreateAccount(testAddrs[3])
	s.CreateContract(testAddrs[3])
	s.Selfdestruct6780(testAddrs[3])
	assert.True(t, s.HasSelfDestructed(testAddrs[3]))
}

func TestCreateAccountOverExisting(t *testing.T) {
	db := newTestDB()
	s := New(db)
	addr := testAddrs[1]

	s.CreateAccount(addr)
	s.SetState(addr, testSlots[0], common.Hash{0x99})
	assert.Equal(t, common.Hash{}, s.GetCommittedState(addr, testSlots[1]))

	changes := s.Finalize(true)
	change := changes.Account(addr)
	require.NotNil(t, change)
	assert.True(t, change.StorageCleared)
	assert.Equal(t, uint256.NewInt(7), change.Account.Balance)

	require.NoError(t, db.Commit(changes))
	_, storage := db.Dump()
	assert.Equal(t, Storage{testSlots[0]: {0x99}}, storage[addr])
}

func TestTransientStorage(t *testing.T) {
	s := New(newTestDB())
	addr := testAddrs[0]

	id := s.Checkpoint()
	s.SetTransientState(addr, testSlots[1], common.Hash{1})
	assert.Equal(t, common.Hash{1}, s.GetTransientState(addr, testSlots[1]))
	s.RevertToCheckpoint(id)
	assert.Equal(t, common.Hash{}, s.GetTransientState(addr, testSlots[1]))

	s.SetTransientState(addr, testSlots[1], common.Hash{2})
	s.Prepare(params.Rules{}, addr, common.Address{}, nil, nil, nil)
	assert.Equal(t, common.Hash{}, s.GetTransientState(addr, testSlots[1]), "prepare must reset transient storage")
}

func TestPrepareAccessList(t *testing.T) {
	s := New(newTestDB())
	sender, dst, coinbase := testAddrs[0], testAddrs[1], testAddrs[2]
	precompile := common.BytesToAddress([]byte{0x01})
	list := types.AccessList{{Address: testAddrs[3], StorageKeys: []common.Hash{testSlots[2]}}}

	s.Prepare(params.Rules{IsBerlin: true, IsShanghai: true}, sender, coinbase, &dst, []common.Address{precompile}, list)
	for _, addr := range []common.Address{sender, dst, coinbase, precompile, testAddrs[3]} {
		assert.True(t, s.AddressInAccessList(addr), "%x not warm", addr)
	}
	addrOk, slotOk := s.SlotInAccessList(testAddrs[3], testSlots[2])
	assert.True(t, addrOk)
	assert.True(t, slotOk)

	// Pre-warmed entries are not part of any checkpoint.
	id := s.Checkpoint()
	s.AddSlotToAccessList(sender, testSlots[1])
	s.RevertToCheckpoint(id)
	assert.True(t, s.AddressInAccessList(sender))
	_, slotOk = s.SlotInAccessList(sender, testSlots[1])
	assert.False(t, slotOk)
}

func TestTransfer(t *testing.T) {
	s := New(newTestDB())
	s.Transfer(testAddrs[0], testAddrs[3], uint256.NewInt(40))
	assert.Equal(t, uint256.NewInt(60), s.GetBalance(testAddrs[0]))
	assert.Equal(t, uint256.NewInt(40), s.GetBalance(testAddrs[3]))

	// Returned balances are copies.
	s.GetBalance(testAddrs[0]).SetUint64(1)
	assert.Equal(t, uint256.NewInt(60), s.GetBalance(testAddrs[0]))
}

func TestLogIndex(t *testing.T) {
	s := New(newTestDB())
	s.AddLog(&types.Log{})
	id := s.Checkpoint()
	s.AddLog(&types.Log{})
	s.RevertToCheckpoint(id)
	s.AddLog(&types.Log{})

	logs := s.Finalize(true).Logs
	require.Len(t, logs, 2)
	assert.Equal(t, uint(1), logs[1].Index)
}

var errBackend = errors.New("disk on fire")

type failingDB struct {
	*MemoryDB
	failStorage bool
}

func (db *failingDB) Basic(addr common.Address) (*types.Account, error) {
	if addr == testAddrs[3] {
		return nil, errBackend
	}
	return db.MemoryDB.Basic(addr)
}

func (db *failingDB) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	if db.failStorage {
		return common.Hash{}, errBackend
	}
	return db.MemoryDB.Storage(addr, slot)
}

func TestDatabaseErrorMemo(t *testing.T) {
	s := New(&failingDB{MemoryDB: newTestDB(), failStorage: true})
	assert.NoError(t, s.Error())

	assert.Equal(t, common.Hash{}, s.GetState(testAddrs[1], testSlots[1]))
	err := s.Error()
	require.Error(t, err)
	assert.ErrorIs(t, err, errBackend)

	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.True(t, dbErr.Fatal())

	// The first failure is kept.
	s.Exist(testAddrs[3])
	assert.Same(t, dbErr, s.Error())
}

func TestMissingAccountNotCachedOnError(t *testing.T) {
	s := New(&failingDB{MemoryDB: newTestDB()})
	assert.False(t, s.Exist(testAddrs[3]))
	require.Error(t, s.Error())

	// No object may be conjured for an account that failed to load.
	s.AddBalance(testAddrs[3], uint256.NewInt(1))
	_, cached := s.stateObjects[testAddrs[3]]
	assert.False(t, cached)
}
