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
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core"
	"github.com/rezbera/revm/core/rawdb"
	"github.com/rezbera/revm/core/state"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallCodeKeepsAccount(t *testing.T) {
	db := state.NewMemoryDB()
	db.SetAccount(contractAddr, &types.Account{Nonce: 3, Balance: uint256.NewInt(9), CodeHash: types.EmptyCodeHash})

	code := common.FromHex("602a60005260206000f3")
	require.NoError(t, installCode(db, contractAddr, code))

	acct, err := db.Basic(contractAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), acct.Nonce)
	assert.Equal(t, uint64(9), acct.Balance.Uint64())
	assert.Equal(t, crypto.Keccak256Hash(code), acct.CodeHash)
}

func TestOpenBackend(t *testing.T) {
	be, err := openBackend(rawdb.KVDBConfig{DBType: rawdb.DBMemory})
	require.NoError(t, err)
	assert.NotNil(t, be.memory)
	require.NoError(t, be.close())

	for _, engine := range []string{rawdb.DBPebble, rawdb.DBLeveldb, rawdb.DBBbolt} {
		t.Run(engine, func(t *testing.T) {
			cfg := rawdb.KVDBConfig{DBType: engine, DBPath: filepath.Join(t.TempDir(), engine), Cache: 16, Handles: 16}
			be, err := openBackend(cfg)
			require.NoError(t, err)
			assert.Nil(t, be.memory)

			code := common.FromHex("602a60005260206000f3")
			require.NoError(t, installCode(be.db, contractAddr, code))
			be.hashes.WriteBlockHash(1, common.HexToHash("0x01"))

			msg := &core.Message{From: userAddr, To: &contractAddr, GasLimit: 100000}
			env := core.Environment{ChainConfig: params.TestChainConfig, Random: new(common.Hash)}
			outcome, err := core.Execute(msg, env, state.NewCachingDB(be.db, 1), vmConfigForTest())
			require.NoError(t, err)
			assert.Equal(t, common.LeftPadBytes([]byte{42}, 32), outcome.Return())
			require.NoError(t, be.close())
		})
	}
}
