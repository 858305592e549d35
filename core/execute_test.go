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

package core

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/rawdb"
	"github.com/rezbera/revm/core/state"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/core/vm"
	"github.com/rezbera/revm/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sender   = common.HexToAddress("0x71562b71999873db5b286df957af199ec94617f7")
	contract = common.HexToAddress("0x00000000000000000000000000000000c0de")

	// returns sload(0) as a word
	sloadRuntime = common.Hex2Bytes("600054600052602060" + "00f3")
	// sstore(0, 7), then deploys sloadRuntime
	sloadInitcode = common.Hex2Bytes("6007600055" + "600b6011600039" + "600b6000f3" + "600054600052602060" + "00f3")
)

func testEnv() Environment {
	return Environment{
		ChainConfig: params.TestChainConfig,
		Number:      1,
		GasLimit:    30_000_000,
		Random:      &common.Hash{},
	}
}

func call(to common.Address, gas uint64) *Message {
	return &Message{From: sender, To: &to, GasLimit: gas}
}

func TestExecuteRevert(t *testing.T) {
	db := state.NewMemoryDB()
	db.SetCode(contract, common.Hex2Bytes("60006000fd"))

	outcome, err := Execute(call(contract, 100000), testEnv(), db, vm.Config{})
	require.NoError(t, err)
	assert.Equal(t, StatusRevert, outcome.Status)
	assert.ErrorIs(t, outcome.Err, vm.ErrExecutionReverted)
	assert.Equal(t, uint64(6), outcome.GasUsed)
	assert.Empty(t, outcome.Revert())
	assert.Nil(t, outcome.Changes)
	assert.Nil(t, outcome.Logs)
}

func TestExecuteHalt(t *testing.T) {
	db := state.NewMemoryDB()
	db.SetCode(contract, []byte{byte(vm.INVALID)})

	outcome, err := Execute(call(contract, 100000), testEnv(), db, vm.Config{})
	require.NoError(t, err)
	assert.Equal(t, StatusHalt, outcome.Status)
	assert.True(t, outcome.Failed())
	assert.Equal(t, uint64(100000), outcome.GasUsed)
	assert.Nil(t, outcome.Return())
	assert.Nil(t, outcome.Changes)
}

func TestExecuteRefundCap(t *testing.T) {
	db := state.NewMemoryDB()
	db.SetCode(contract, common.Hex2Bytes("600060005500")) // sstore(0, 0)
	db.SetStorage(contract, common.Hash{}, common.BigToHash(common.Big1))

	outcome, err := Execute(call(contract, 100000), testEnv(), db, vm.Config{})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, outcome.Status)

	// two pushes, a cold slot and a reset, refund capped at a fifth
	assert.Equal(t, uint64(1001), outcome.GasRefunded)
	assert.Equal(t, uint64(5006-1001), outcome.GasUsed)

	require.Len(t, outcome.Changes.Accounts, 1)
	change := outcome.Changes.Account(contract)
	require.NotNil(t, change)
	assert.Equal(t, state.Storage{common.Hash{}: common.Hash{}}, change.Storage)
}

func TestExecuteEmptyCallLeavesNoChanges(t *testing.T) {
	outcome, err := Execute(call(common.HexToAddress("0xdead"), 21000), testEnv(), state.NewMemoryDB(), vm.Config{})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Zero(t, outcome.GasUsed)
	assert.Empty(t, outcome.Changes.Accounts)
}

func TestExecuteAndCommit(t *testing.T) {
	db := state.NewKVDatabase(rawdb.NewMemoryDatabase())
	env := testEnv()

	deploy := &Message{From: sender, GasLimit: 1_000_000, Data: sloadInitcode}
	outcome, err := ExecuteAndCommit(deploy, env, db, vm.Config{})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, outcome.Status, "err: %v", outcome.Err)
	assert.Equal(t, crypto.CreateAddress(sender, 0), outcome.ContractAddress)

	acct, err := db.Basic(sender)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, uint64(1), acct.Nonce)

	outcome, err = Execute(call(outcome.ContractAddress, 100000), env, db, vm.Config{})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, make([]byte, 31), outcome.Return()[:31])
	assert.Equal(t, byte(7), outcome.Return()[31])
}

func TestExecuteCreate2(t *testing.T) {
	salt := uint256.NewInt(1)
	msg := &Message{From: sender, GasLimit: 1_000_000, Data: sloadInitcode, Salt: salt}

	outcome, err := Execute(msg, testEnv(), state.NewMemoryDB(), vm.Config{})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, outcome.Status)

	want := crypto.CreateAddress2(sender, salt.Bytes32(), crypto.Keccak256(sloadInitcode))
	assert.Equal(t, want, outcome.ContractAddress)
	change := outcome.Changes.Account(want)
	require.NotNil(t, change)
	assert.Equal(t, sloadRuntime, change.Code)
	assert.Equal(t, common.Hash{31: 7}, change.Storage[common.Hash{}])
}

func TestBlockHashFromBackend(t *testing.T) {
	db := state.NewMemoryDB()
	hash := common.HexToHash("0x1234")
	db.SetBlockHash(0, hash)
	// mstore(0, blockhash(0)) return(0, 32)
	db.SetCode(contract, common.Hex2Bytes("600040600052602060" + "00f3"))

	outcome, err := Execute(call(contract, 100000), testEnv(), db, vm.Config{})
	require.NoError(t, err)
	assert.Equal(t, hash.Bytes(), outcome.Return())
}

type brokenDB struct {
	*state.MemoryDB
}

func (brokenDB) Basic(common.Address) (*types.Account, error) {
	return nil, errors.New("disk on fire")
}

func TestExecuteFatal(t *testing.T) {
	outcome, err := Execute(call(contract, 100000), testEnv(), brokenDB{state.NewMemoryDB()}, vm.Config{})
	assert.Nil(t, outcome)
	require.Error(t, err)
	assert.True(t, vm.IsFatal(err))
}

func TestExecuteNoChainConfig(t *testing.T) {
	_, err := Execute(call(contract, 100000), Environment{}, state.NewMemoryDB(), vm.Config{})
	assert.ErrorIs(t, err, ErrNoChainConfig)
}

func TestInspect(t *testing.T) {
	db := state.NewMemoryDB()
	db.SetCode(contract, common.Hex2Bytes("60006000fd"))

	tracer := vm.NewStructLogger(nil)
	outcome, err := Inspect(call(contract, 100000), testEnv(), db, vm.Config{}, tracer.Hooks())
	require.NoError(t, err)
	assert.Equal(t, StatusRevert, outcome.Status)

	logs := tracer.StructLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, vm.PUSH1, logs[0].Op)
	assert.Equal(t, vm.REVERT, logs[2].Op)
	assert.Equal(t, uint64(100000-6), logs[2].Gas)
}

func TestExecuteBatch(t *testing.T) {
	db := state.NewMemoryDB()
	db.SetCode(contract, sloadRuntime)
	db.SetStorage(contract, common.Hash{}, common.Hash{31: 9})
	reverter := common.HexToAddress("0xbad")
	db.SetCode(reverter, common.Hex2Bytes("60006000fd"))

	var msgs []*Message
	for i := 0; i < 20; i++ {
		if i%4 == 3 {
			msgs = append(msgs, call(reverter, 100000))
		} else {
			msgs = append(msgs, call(contract, 100000))
		}
	}
	outcomes, err := ExecuteBatch(nil, msgs, testEnv(), db, vm.Config{})
	require.NoError(t, err)
	require.Len(t, outcomes, len(msgs))
	for i, outcome := range outcomes {
		if i%4 == 3 {
			assert.Equal(t, StatusRevert, outcome.Status, "message %d", i)
			continue
		}
		assert.Equal(t, StatusSuccess, outcome.Status, "message %d", i)
		assert.Equal(t, byte(9), outcome.Return()[31], "message %d", i)
	}

	_, err = ExecuteBatch(nil, msgs[:2], testEnv(), brokenDB{db}, vm.Config{})
	assert.True(t, vm.IsFatal(err))
}
