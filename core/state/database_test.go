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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/rawdb"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/ethdb/leveldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDB counts the reads reaching the wrapped database.
type countingDB struct {
	Database
	accounts, storage, code int
}

func (db *countingDB) Basic(addr common.Address) (*types.Account, error) {
	db.accounts++
	return db.Database.Basic(addr)
}

func (db *countingDB) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	db.storage++
	return db.Database.Storage(addr, slot)
}

func (db *countingDB) CodeByHash(hash common.Hash) ([]byte, error) {
	db.code++
	return db.Database.CodeByHash(hash)
}

func (db *countingDB) Commit(changes *ChangeSet) error {
	return db.Database.(DatabaseCommit).Commit(changes)
}

// populate writes the content of newTestDB through a change set.
func populate(t *testing.T, db DatabaseCommit) {
	s := New(newTestDB())
	for _, addr := range testAddrs[:3] {
		s.Touch(addr)
	}
	changes := &ChangeSet{}
	for _, addr := range testAddrs[:3] {
		obj := s.getStateObject(addr)
		change := &AccountChange{Address: addr, Account: obj.data.Copy(), Code: obj.Code(), Storage: make(Storage)}
		for _, slot := range testSlots {
			if v := obj.GetState(slot); v != (common.Hash{}) {
				change.Storage[slot] = v
			}
		}
		changes.Accounts = append(changes.Accounts, change)
	}
	require.NoError(t, db.Commit(changes))
}

func TestKVDatabaseCommit(t *testing.T) {
	disk := rawdb.NewMemoryDatabase()
	db := NewKVDatabase(disk)
	populate(t, db)

	s := New(db)
	assert.Equal(t, uint256.NewInt(100), s.GetBalance(testAddrs[0]))
	assert.Equal(t, common.Hash{0x22}, s.GetState(testAddrs[1], testSlots[2]))
	assert.Equal(t, []byte{0x60, 0x00, 0x60, 0x00, 0xf3}, s.GetCode(testAddrs[1]))
	assert.True(t, s.Exist(testAddrs[2]))
	assert.False(t, s.Exist(testAddrs[3]))

	s.SelfDestruct(testAddrs[1])
	s.SetState(testAddrs[0], testSlots[1], common.Hash{0x42})
	require.NoError(t, db.Commit(s.Finalize(true)))

	acct, err := db.Basic(testAddrs[1])
	require.NoError(t, err)
	assert.Nil(t, acct)
	slot, err := db.Storage(testAddrs[1], testSlots[2])
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, slot)
	slot, err = db.Storage(testAddrs[0], testSlots[1])
	require.NoError(t, err)
	assert.Equal(t, common.Hash{0x42}, slot)

	db.WriteBlockHash(7, common.Hash{7})
	assert.Equal(t, common.Hash{7}, New(db).BlockHash(7))
}

func TestKVDatabaseLeveldb(t *testing.T) {
	disk, err := leveldb.NewMemory()
	require.NoError(t, err)
	defer disk.Close()

	db := NewKVDatabase(disk)
	populate(t, db)
	acct, err := db.Basic(testAddrs[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), acct.Nonce)
}

func TestCachingDB(t *testing.T) {
	inner := &countingDB{Database: newTestDB()}
	db := NewCachingDB(inner, 1)

	for i := 0; i < 3; i++ {
		acct, err := db.Basic(testAddrs[0])
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(100), acct.Balance)

		acct, err = db.Basic(testAddrs[3])
		require.NoError(t, err)
		assert.Nil(t, acct)

		slot, err := db.Storage(testAddrs[1], testSlots[1])
		require.NoError(t, err)
		assert.Equal(t, common.Hash{0x11}, slot)

		acct, _ = db.Basic(testAddrs[1])
		_, err = db.CodeByHash(acct.CodeHash)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.accounts)
	assert.Equal(t, 1, inner.storage)
	assert.Equal(t, 1, inner.code)

	// Commits refresh the cached entries.
	s := New(db)
	s.SetState(testAddrs[1], testSlots[1], common.Hash{0x33})
	s.SetNonce(testAddrs[0], 5)
	require.NoError(t, db.Commit(s.Finalize(true)))

	acct, err := db.Basic(testAddrs[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(5), acct.Nonce)
	slot, err := db.Storage(testAddrs[1], testSlots[1])
	require.NoError(t, err)
	assert.Equal(t, common.Hash{0x33}, slot)

	accounts, _ := db.UpdateStats()
	assert.NotZero(t, accounts.GetCalls)
}

func TestCachingDBCommitUnsupported(t *testing.T) {
	db := NewCachingDB(struct{ Database }{NewMemoryDB()}, 1)
	assert.ErrorIs(t, db.Commit(&ChangeSet{}), ErrCommitUnsupported)
}
