// Copyright 2024 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rezbera/revm/core"
	"github.com/rezbera/revm/core/rawdb"
	"github.com/rezbera/revm/core/state"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/core/vm"
	"github.com/rezbera/revm/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prestateJSON = `{
  "accounts": {
    "0x00000000000000000000000000000000000000aa": {
      "balance": "0x100",
      "nonce": "7",
      "code": "0x600054600052602060" ,
      "storage": {
        "0x0000000000000000000000000000000000000000000000000000000000000000": "0x000000000000000000000000000000000000000000000000000000000000002a"
      }
    },
    "0x00000000000000000000000000000000000000bb": {
      "balance": "1000"
    }
  },
  "blockHashes": {
    "0x10": "0x00000000000000000000000000000000000000000000000000000000000000ff"
  }
}`

var (
	contractAddr = common.HexToAddress("0xaa")
	userAddr     = common.HexToAddress("0xbb")
)

func TestPrestateApply(t *testing.T) {
	pre, err := loadPrestate(writeFile(t, "pre.json", prestateJSON))
	require.NoError(t, err)

	db := state.NewMemoryDB()
	require.NoError(t, pre.apply(db, memoryHashWriter{db}))

	acct, err := db.Basic(contractAddr)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, uint64(7), acct.Nonce)
	assert.Equal(t, uint64(0x100), acct.Balance.Uint64())
	assert.Equal(t, crypto.Keccak256Hash(common.FromHex("0x600054600052602060")), acct.CodeHash)

	slot, err := db.Storage(contractAddr, common.Hash{})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x2a"), slot)

	user, err := db.Basic(userAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), user.Balance.Uint64())
	assert.Equal(t, types.EmptyCodeHash, user.CodeHash)

	hash, err := db.BlockHash(16)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xff"), hash)
}

func TestPrestateKVDatabase(t *testing.T) {
	pre, err := loadPrestate(writeFile(t, "pre.json", prestateJSON))
	require.NoError(t, err)

	kv := state.NewKVDatabase(rawdb.NewMemoryDatabase())
	require.NoError(t, pre.apply(kv, kv))

	hash, err := kv.BlockHash(16)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xff"), hash)

	code, err := kv.CodeByHash(crypto.Keccak256Hash(common.FromHex("0x600054600052602060")))
	require.NoError(t, err)
	assert.Equal(t, common.FromHex("0x600054600052602060"), code)
}

func TestPrestateOrdering(t *testing.T) {
	pre, err := loadPrestate(writeFile(t, "pre.json", prestateJSON))
	require.NoError(t, err)
	changes, err := pre.changeSet()
	require.NoError(t, err)
	require.Len(t, changes.Accounts, 2)
	assert.Equal(t, contractAddr, changes.Accounts[0].Address)
	assert.Equal(t, userAddr, changes.Accounts[1].Address)
	assert.Equal(t, 1, changes.Slots())
}

func TestPrestateInvalid(t *testing.T) {
	_, err := loadPrestate(writeFile(t, "pre.json", `{"accounts": {"0xaa": {"nonce": "x"}}}`))
	assert.Error(t, err)

	_, err = loadPrestate(writeFile(t, "pre.json",
		`{"accounts": {"0x00000000000000000000000000000000000000aa": {"balance": "0x10000000000000000000000000000000000000000000000000000000000000000"}}}`))
	assert.Error(t, err, "balance of 2^256 must be rejected")

	pre, err := loadPrestate(writeFile(t, "pre.json",
		`{"accounts": {"0x00000000000000000000000000000000000000aa": {"balance": "-1"}}}`))
	require.NoError(t, err)
	_, err = pre.changeSet()
	assert.Error(t, err, "negative balance must be rejected")
}

func vmConfigForTest() vm.Config {
	return vm.Config{CodeCache: vm.NewBytecodeCache(16)}
}

// The dump of a post state seeds an identical database.
func TestDumpPrestateRoundTrip(t *testing.T) {
	pre, err := loadPrestate(writeFile(t, "pre.json", prestateJSON))
	require.NoError(t, err)
	db := state.NewMemoryDB()
	require.NoError(t, pre.apply(db, memoryHashWriter{db}))

	// Run the contract so the dump includes an executed change set.
	msg := &core.Message{From: userAddr, To: &contractAddr, GasLimit: 100000}
	env := core.Environment{ChainConfig: params.TestChainConfig, Random: new(common.Hash)}
	_, err = core.ExecuteAndCommit(msg, env, db, vmConfigForTest())
	require.NoError(t, err)

	dumped, err := dumpPrestate(db)
	require.NoError(t, err)
	other := state.NewMemoryDB()
	require.NoError(t, dumped.apply(other, memoryHashWriter{other}))

	accountsA, storageA := db.Dump()
	accountsB, storageB := other.Dump()
	assert.Equal(t, accountsA, accountsB)
	assert.Equal(t, storageA, storageB)
}
