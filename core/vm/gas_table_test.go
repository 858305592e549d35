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

package vm

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGasCost(t *testing.T) {
	tests := []struct {
		size     uint64
		cost     uint64
		overflow bool
	}{
		{0x1fffffffe0, 36028809887088637, false},
		{0x1fffffffe1, 0, true},
	}
	for i, tt := range tests {
		v, err := memoryGasCost(&Memory{}, tt.size)
		if (err == ErrGasUintOverflow) != tt.overflow {
			t.Errorf("test %d: overflow mismatch: have %v, want %v", i, err == ErrGasUintOverflow, tt.overflow)
		}
		if v != tt.cost {
			t.Errorf("test %d: gas cost mismatch: have %v, want %v", i, v, tt.cost)
		}
	}
	_, err := memoryGasCost(&Memory{}, math.MaxUint64)
	assert.ErrorIs(t, err, ErrGasUintOverflow)
}

func TestMemoryGasCostIsIncremental(t *testing.T) {
	mem := new(Memory)
	first, err := memoryGasCost(mem, 32)
	require.NoError(t, err)
	assert.Equal(t, params.MemoryGas, first)
	mem.Resize(32)

	// growing to two words only pays for the second one
	second, err := memoryGasCost(mem, 64)
	require.NoError(t, err)
	assert.Equal(t, params.MemoryGas, second)
	mem.Resize(64)

	none, err := memoryGasCost(mem, 33)
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestGasMeter(t *testing.T) {
	g := NewGasMeter(100)
	assert.True(t, g.Charge(60))
	assert.Equal(t, uint64(40), g.Remaining())
	assert.False(t, g.Charge(41))
	assert.Zero(t, g.Remaining(), "a failed charge drains the meter")
	assert.Equal(t, uint64(100), g.Used())

	g.Return(30)
	g.Refund(50)
	g.RemoveRefund(10)
	g.MergeRefund(-5)
	assert.Equal(t, int64(35), g.RefundCounter())

	used, refunded := g.Finalize(params.RefundQuotientEIP3529)
	assert.Equal(t, uint64(14), refunded) // 70 used, capped at 70/5
	assert.Equal(t, uint64(56), used)

	used, refunded = g.Finalize(0)
	assert.Equal(t, uint64(35), refunded)
	assert.Equal(t, uint64(35), used)
}

func TestCallGasForwarding(t *testing.T) {
	// all but one 64th of what is left after the base cost
	gas, err := callGas(64, 6500, 100, uint256.NewInt(math.MaxUint64))
	require.NoError(t, err)
	assert.Equal(t, uint64(6300), gas)

	gas, err = callGas(64, 6500, 100, uint256.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), gas)

	// without a divisor the request is taken verbatim
	gas, err = callGas(0, 6500, 100, uint256.NewInt(9000))
	require.NoError(t, err)
	assert.Equal(t, uint64(9000), gas)

	_, err = callGas(0, 6500, 100, new(uint256.Int).Lsh(uint256.NewInt(1), 64))
	assert.ErrorIs(t, err, ErrGasUintOverflow)
}

func TestSstoreRefund(t *testing.T) {
	evm, statedb := newTestEVM(Config{})
	slot := common.Hash{}
	statedb.SetState(testContract, slot, common.BigToHash(common.Big1))
	// sstore(0, 0) on a slot set earlier in the same execution
	statedb.SetCode(testContract, common.Hex2Bytes("600060005500"))

	res := evm.Run(&CallRequest{
		Kind:        KindCall,
		Caller:      testCaller,
		Address:     testContract,
		CodeAddress: testContract,
		Gas:         100000,
	})
	require.NoError(t, res.Err)
	assert.Equal(t, common.Hash{}, statedb.GetState(testContract, slot))
	assert.Positive(t, res.Refund)
}
