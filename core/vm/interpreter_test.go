// Copyright 2021 The go-ethereum Authors
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

package vm

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/state"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCaller   = common.HexToAddress("0xc0ffee")
	testContract = common.HexToAddress("0xaaaa")
	testCallee   = common.HexToAddress("0xbbbb")
)

func testBlockContext() BlockContext {
	return BlockContext{
		CanTransfer: func(db StateDB, addr common.Address, amount *uint256.Int) bool {
			return db.GetBalance(addr).Cmp(amount) >= 0
		},
		Transfer: func(db StateDB, from, to common.Address, amount *uint256.Int) {
			db.SubBalance(from, amount)
			db.AddBalance(to, amount)
		},
		GetHash: func(n uint64) common.Hash {
			return crypto.Keccak256Hash(new(uint256.Int).SetUint64(n).Bytes())
		},
		Random: &common.Hash{},
	}
}

func newTestEVM(config Config) (*EVM, *state.StateDB) {
	statedb := state.New(state.NewMemoryDB())
	return NewEVM(testBlockContext(), TxContext{}, statedb, params.TestChainConfig, config), statedb
}

var loopTests = []string{
	// infinite loop using JUMP: push(2) jumpdest dup1 jump
	"60025b8056",
	// infinite loop using JUMPI: push(1) push(4) jumpdest dup2 dup2 jumpi
	"600160045b818157",
}

func TestLoopRunsOutOfGas(t *testing.T) {
	for i, tt := range loopTests {
		evm, statedb := newTestEVM(Config{})
		statedb.SetCode(testContract, common.Hex2Bytes(tt))

		_, gas, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
		if !errors.Is(err, ErrOutOfGas) {
			t.Errorf("test %d: have error %v, want %v", i, err, ErrOutOfGas)
		}
		if gas != 0 {
			t.Errorf("test %d: %d gas left after failure", i, gas)
		}
	}
}

func TestRevertKeepsGas(t *testing.T) {
	evm, statedb := newTestEVM(Config{})
	// PUSH1 0 PUSH1 0 REVERT
	statedb.SetCode(testContract, common.Hex2Bytes("60006000fd"))

	ret, gas, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
	require.ErrorIs(t, err, ErrExecutionReverted)
	assert.Empty(t, ret)
	assert.Equal(t, uint64(100000-6), gas)
}

func TestRevertedCallKeepsCallerChanges(t *testing.T) {
	evm, statedb := newTestEVM(Config{})

	// sstore(0, 0x2a) revert(0, 32)
	statedb.SetCode(testCallee, common.Hex2Bytes("602a60005560206000fd"))

	// success := call(gas, callee, 0, 0, 0, 0, 0)
	// sstore(1, success) sstore(2, returndatasize) sstore(3, 1)
	caller := append(common.Hex2Bytes("60006000600060006000"), 0x73)
	caller = append(caller, testCallee.Bytes()...)
	caller = append(caller, common.Hex2Bytes("5af16001553d600255600160035500")...)
	statedb.SetCode(testContract, caller)

	_, _, err := evm.Call(testCaller, testContract, nil, 1_000_000, new(uint256.Int))
	require.NoError(t, err)

	assert.Equal(t, common.Hash{}, statedb.GetState(testCallee, common.Hash{}), "callee write survived revert")
	assert.Equal(t, common.Hash{}, statedb.GetState(testContract, common.BigToHash(common.Big1)), "call reported success")
	assert.Equal(t, common.BigToHash(common.Big32), statedb.GetState(testContract, common.BigToHash(common.Big2)))
	assert.Equal(t, common.BigToHash(common.Big1), statedb.GetState(testContract, common.BigToHash(common.Big3)))
}

func TestStaticCallWriteProtection(t *testing.T) {
	evm, statedb := newTestEVM(Config{})
	// PUSH1 1 PUSH1 0 SSTORE
	statedb.SetCode(testContract, common.Hex2Bytes("6001600055"))

	_, gas, err := evm.StaticCall(testCaller, testContract, nil, 100000)
	require.ErrorIs(t, err, ErrWriteProtection)
	assert.Zero(t, gas)
	assert.Equal(t, common.Hash{}, statedb.GetState(testContract, common.Hash{}))
}

func TestCreate(t *testing.T) {
	evm, statedb := newTestEVM(Config{})

	// mstore8(0, 0x2a) return(0, 1)
	_, addr, gas, err := evm.Create(testCaller, common.Hex2Bytes("602a60005360016000f3"), 100000, new(uint256.Int))
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(testCaller, 0), addr)
	assert.Equal(t, []byte{0x2a}, statedb.GetCode(addr))
	assert.Equal(t, uint64(1), statedb.GetNonce(addr))
	assert.Equal(t, uint64(1), statedb.GetNonce(testCaller))
	assert.Less(t, gas, uint64(100000-params.CreateDataGas))
}

func TestCreateRejectedCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		err  error
	}{
		// return(0, 0x6001)
		{"oversize", "6160016000f3", ErrMaxCodeSizeExceeded},
		// mstore8(0, 0xef) return(0, 1)
		{"ef prefix", "60ef60005360016000f3", ErrInvalidCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evm, statedb := newTestEVM(Config{})
			_, _, gas, err := evm.Create(testCaller, common.Hex2Bytes(tt.code), 10_000_000, new(uint256.Int))
			require.ErrorIs(t, err, tt.err)
			assert.Zero(t, gas)
			addr := crypto.CreateAddress(testCaller, 0)
			assert.Zero(t, statedb.GetCodeSize(addr))
			assert.False(t, statedb.Exist(addr))
			assert.Equal(t, uint64(1), statedb.GetNonce(testCaller), "nonce bump must survive the failure")
		})
	}
}

func TestDepthLimit(t *testing.T) {
	evm, _ := newTestEVM(Config{})
	res, frame := evm.enter(&CallRequest{
		Kind:        KindCall,
		Caller:      testCaller,
		Address:     testContract,
		CodeAddress: testContract,
		Gas:         5000,
	}, int(params.CallCreateDepth)+1)
	assert.Nil(t, frame)
	assert.ErrorIs(t, res.Err, ErrDepth)
	assert.Equal(t, uint64(5000), res.GasLeft)
}

func TestRecursionStopsAtDepthLimit(t *testing.T) {
	var deepest int
	evm, statedb := newTestEVM(Config{Tracer: &Hooks{
		OnEnter: func(depth int, typ byte, from, to common.Address, input []byte, gas uint64, value *uint256.Int) {
			deepest = max(deepest, depth)
		},
	}})
	// call(gas, address, 0, 0, 0, 0, 0) stop
	statedb.SetCode(testContract, common.Hex2Bytes("60006000600060006000305af100"))

	_, _, err := evm.Call(testCaller, testContract, nil, 1_000_000_000_000, new(uint256.Int))
	require.NoError(t, err)
	assert.Equal(t, int(params.CallCreateDepth)+1, deepest)
}

func TestStackErrors(t *testing.T) {
	evm, statedb := newTestEVM(Config{})
	statedb.SetCode(testContract, []byte{byte(ADD)})
	_, _, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
	var underflow *ErrStackUnderflow
	require.ErrorAs(t, err, &underflow)

	code := make([]byte, int(params.StackLimit)+1)
	for i := range code {
		code[i] = byte(PUSH0)
	}
	statedb.SetCode(testCallee, code)
	_, _, err = evm.Call(testCaller, testCallee, nil, 100000, new(uint256.Int))
	var overflow *ErrStackOverflow
	require.ErrorAs(t, err, &overflow)
}

func TestInvalidJump(t *testing.T) {
	evm, statedb := newTestEVM(Config{})
	// PUSH1 4 JUMP PUSH1 0x5b: the jumpdest byte is push data
	statedb.SetCode(testContract, common.Hex2Bytes("600456605b"))
	_, gas, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
	require.ErrorIs(t, err, ErrInvalidJump)
	assert.Zero(t, gas)
}

func TestGasNeverIncreasesWithinFrame(t *testing.T) {
	last := make(map[int]uint64)
	evm, statedb := newTestEVM(Config{Tracer: &Hooks{
		OnEnter: func(depth int, typ byte, from, to common.Address, input []byte, gas uint64, value *uint256.Int) {
			delete(last, depth)
		},
		OnOpcode: func(pc uint64, op byte, gas, cost uint64, scope OpContext, rData []byte, depth int, err error) {
			if prev, ok := last[depth]; ok && gas > prev {
				t.Errorf("gas went up at depth %d pc %d: %d -> %d", depth, pc, prev, gas)
			}
			last[depth] = gas
		},
	}})
	statedb.SetCode(testCallee, common.Hex2Bytes("602a60005560206000f3"))
	caller := append(common.Hex2Bytes("60206000600060006000"), 0x73)
	caller = append(caller, testCallee.Bytes()...)
	caller = append(caller, common.Hex2Bytes("5af160005100")...)
	statedb.SetCode(testContract, caller)

	_, _, err := evm.Call(testCaller, testContract, nil, 1_000_000, new(uint256.Int))
	require.NoError(t, err)
	assert.Len(t, last, 2)
}

type failingStorageDB struct {
	*state.MemoryDB
}

func (failingStorageDB) Storage(common.Address, common.Hash) (common.Hash, error) {
	return common.Hash{}, errors.New("storage unavailable")
}

func TestBackendFailureIsFatal(t *testing.T) {
	backend := failingStorageDB{state.NewMemoryDB()}
	// SLOAD(0) STOP
	backend.SetCode(testContract, common.Hex2Bytes("60005400"))
	statedb := state.New(backend)
	evm := NewEVM(testBlockContext(), TxContext{}, statedb, params.TestChainConfig, Config{})

	_, _, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
	require.Error(t, err)
	assert.True(t, IsFatal(err))

	var dbErr *state.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
	assert.Error(t, statedb.Error())
}

func TestTransferFailsWithoutBalance(t *testing.T) {
	evm, statedb := newTestEVM(Config{})
	statedb.AddBalance(testCaller, uint256.NewInt(10))

	_, gas, err := evm.Call(testCaller, testContract, nil, 5000, uint256.NewInt(11))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(5000), gas)

	_, _, err = evm.Call(testCaller, testContract, nil, 5000, uint256.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), statedb.GetBalance(testContract).Uint64())
	assert.True(t, statedb.GetBalance(testCaller).IsZero())
}

// Before EIP-3541 a contract may deploy code with the EOF magic. Calling it
// runs it as legacy code, which fails at the 0xEF byte without aborting the
// caller.
func TestCallPreLondonEFCode(t *testing.T) {
	chain := *params.AllEthashProtocolChanges
	chain.LondonBlock = nil
	blockCtx := testBlockContext()
	blockCtx.Random = nil
	statedb := state.New(state.NewMemoryDB())
	evm := NewEVM(blockCtx, TxContext{}, statedb, &chain, Config{CodeCache: NewBytecodeCache(16)})

	// mstore(0, initcode) addr := create(0, 22, 10) sstore(0, addr)
	// ok := call(gas, addr, 0, 0, 0, 0, 0) sstore(1, iszero(ok))
	// where initcode is mstore8(0, 0xef) return(0, 2)
	code := common.Hex2Bytes("6960ef60005360026000f3600052" + "600a60166000f0" + "600055" +
		"60006000600060006000600054" + "5af1" + "15600155" + "00")
	statedb.SetCode(testContract, code)

	_, _, err := evm.Call(testCaller, testContract, nil, 1_000_000, new(uint256.Int))
	require.NoError(t, err)
	require.NoError(t, statedb.Error())

	created := common.BytesToAddress(statedb.GetState(testContract, common.Hash{}).Bytes())
	assert.Equal(t, crypto.CreateAddress(testContract, 0), created)
	assert.Equal(t, []byte{0xef, 0x00}, statedb.GetCode(created))
	assert.Equal(t, common.BigToHash(common.Big1), statedb.GetState(testContract, common.BigToHash(common.Big1)), "call into 0xef00 code should fail")
}

func TestBytecodeCacheLoadsMalformedContainerAsLegacy(t *testing.T) {
	cache := NewBytecodeCache(2)
	code := common.Hex2Bytes("ef00")
	b, err := cache.GetOrLoad(crypto.Keccak256Hash(code), func() ([]byte, error) { return code, nil })
	require.NoError(t, err)
	assert.Equal(t, LegacyCode, b.Kind())
	assert.Nil(t, b.Container())
}

// A call into an account holding an EIP-7702 designator runs the delegate's
// code. The CALL opcode pays for the access to the delegate on top of the
// access to the account itself.
func TestCallDelegatedAccount(t *testing.T) {
	var (
		authority = common.HexToAddress("0xa11ce")
		delegate  = common.HexToAddress("0xde1e")
		want      = common.LeftPadBytes([]byte{0x2a}, 32)
	)
	setup := func() (*EVM, *state.StateDB) {
		statedb := state.New(state.NewMemoryDB())
		evm := NewEVM(testBlockContext(), TxContext{}, statedb, params.MergedTestChainConfig, Config{})
		// mstore(0, 0x2a) return(0, 32)
		statedb.SetCode(delegate, common.Hex2Bytes("602a60005260206000f3"))
		statedb.SetCode(authority, types.AddressToDelegation(delegate))
		// call(gas, authority, 0, 0, 0, 0, 32) return(0, 32)
		statedb.SetCode(testContract, common.Hex2Bytes("60206000600060006000"+
			"73"+common.Bytes2Hex(authority.Bytes())+"5af1"+"60206000f3"))
		return evm, statedb
	}

	// Calling the account directly runs the delegate: four pushes, one mstore
	// and one word of memory.
	evm, _ := setup()
	ret, left, err := evm.Call(testCaller, authority, nil, 100_000, new(uint256.Int))
	require.NoError(t, err)
	assert.Equal(t, want, ret)
	assert.Equal(t, uint64(18), 100_000-left)

	evm, statedb := setup()
	ret, left, err = evm.Call(testCaller, testContract, nil, 1_000_000, new(uint256.Int))
	require.NoError(t, err)
	assert.Equal(t, want, ret)
	assert.True(t, statedb.AddressInAccessList(delegate), "delegate should be warm after the call")
	coldUsed := 1_000_000 - left

	evm, statedb = setup()
	statedb.AddAddressToAccessList(delegate)
	ret, left, err = evm.Call(testCaller, testContract, nil, 1_000_000, new(uint256.Int))
	require.NoError(t, err)
	assert.Equal(t, want, ret)
	warmUsed := 1_000_000 - left

	assert.Equal(t, params.ColdAccountAccessCostEIP2929-params.WarmStorageReadCostEIP2929, coldUsed-warmUsed)
	// Pushes, GAS, warm CALL base, cold account surcharge, return buffer
	// memory, the delegate's 18 and the final pushes.
	assert.Equal(t, uint64(15+3+2+100+2500+3+18+6)+params.ColdAccountAccessCostEIP2929, coldUsed)
}
