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
	"errors"
	"math/bits"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJumpDestAnalysis(t *testing.T) {
	tests := []struct {
		code  []byte
		exp   byte
		which int
	}{
		{[]byte{byte(PUSH1), 0x01, 0x01, 0x01}, 0b0000_0010, 0},
		{[]byte{byte(PUSH1), byte(PUSH1), byte(PUSH1), byte(PUSH1)}, 0b0000_1010, 0},
		{[]byte{0x00, byte(PUSH1), 0x00, byte(PUSH1), 0x00, byte(PUSH1), 0x00, byte(PUSH1)}, 0b0101_0100, 0},
		{[]byte{byte(PUSH8), byte(PUSH8), byte(PUSH8), byte(PUSH8), byte(PUSH8), byte(PUSH8), byte(PUSH8), byte(PUSH8), 0x01, 0x01, 0x01}, bits.Reverse8(0x7F), 0},
		{[]byte{byte(PUSH8), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b0000_0001, 1},
		{[]byte{0x01, 0x01, 0x01, 0x01, 0x01, byte(PUSH2), byte(PUSH2), byte(PUSH2), 0x01, 0x01, 0x01}, 0b1100_0000, 0},
		{[]byte{0x01, 0x01, 0x01, 0x01, 0x01, byte(PUSH2), 0x01, 0x01, 0x01, 0x01, 0x01}, 0b0000_0000, 1},
		{[]byte{byte(PUSH3), 0x01, 0x01, 0x01, byte(PUSH1), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b0010_1110, 0},
		{[]byte{0x01, byte(PUSH8), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b1111_1100, 0},
		{[]byte{0x01, byte(PUSH8), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b0000_0011, 1},
		{[]byte{byte(PUSH16), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b1111_1111, 1},
		{[]byte{byte(PUSH16), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b0000_0001, 2},
		{[]byte{byte(PUSH32)}, 0b1111_1110, 0},
		{[]byte{byte(PUSH32)}, 0b1111_1111, 3},
		{[]byte{byte(PUSH32)}, 0b0000_0001, 4},
	}
	for i, test := range tests {
		ret := codeBitmap(test.code)
		if ret[test.which] != test.exp {
			t.Fatalf("test %d: expected %x, got %02x", i, test.exp, ret[test.which])
		}
	}
}

func TestValidJumpdest(t *testing.T) {
	// PUSH1 0x5b JUMPDEST PUSH32 ...
	code := append(common.Hex2Bytes("605b5b7f"), make([]byte, 32)...)
	code[10] = byte(JUMPDEST)
	b, err := NewBytecode(code)
	require.NoError(t, err)

	for dest, want := range map[uint64]bool{
		0:   false, // PUSH1
		1:   false, // push data
		2:   true,
		10:  false, // JUMPDEST byte inside PUSH32 data
		100: false, // past the end
	} {
		assert.Equal(t, want, b.validJumpdest(uint256.NewInt(dest)), "dest %d", dest)
	}
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 80)
	assert.False(t, b.validJumpdest(huge))
	assert.Equal(t, STOP, b.GetOp(uint64(len(code))))
}

func TestBytecodeKinds(t *testing.T) {
	legacy, err := NewBytecode(common.Hex2Bytes("6001600101"))
	require.NoError(t, err)
	assert.Equal(t, LegacyCode, legacy.Kind())
	assert.Equal(t, crypto.Keccak256Hash(legacy.Code()), legacy.Hash())

	target := common.HexToAddress("0x1234")
	delegated, err := NewBytecode(types.AddressToDelegation(target))
	require.NoError(t, err)
	addr, ok := delegated.Delegation()
	assert.True(t, ok)
	assert.Equal(t, target, addr)

	_, err = NewBytecode(common.Hex2Bytes("ef0001ff"))
	assert.True(t, errors.Is(err, ErrInvalidContainer))
}

func TestBytecodeCache(t *testing.T) {
	cache := NewBytecodeCache(2)
	code := common.Hex2Bytes("600160010100")
	hash := crypto.Keccak256Hash(code)

	var loads int
	load := func() ([]byte, error) {
		loads++
		return code, nil
	}
	first, err := cache.GetOrLoad(hash, load)
	require.NoError(t, err)
	second, err := cache.GetOrLoad(hash, load)
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Len())

	failing := func() ([]byte, error) { return nil, errors.New("gone") }
	_, err = cache.GetOrLoad(common.Hash{1}, failing)
	assert.Error(t, err)
	assert.Equal(t, 1, cache.Len())
}

const analysisCodeSize = 1200 * 1024

func BenchmarkJumpdestAnalysis_1200k(bench *testing.B) {
	code := make([]byte, analysisCodeSize)
	bench.SetBytes(analysisCodeSize)
	bench.ResetTimer()
	for i := 0; i < bench.N; i++ {
		codeBitmap(code)
	}
	bench.StopTimer()
}
