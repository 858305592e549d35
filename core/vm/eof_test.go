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

package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEOFMarshaling(t *testing.T) {
	for i, want := range []Container{
		{
			Types:    []*FunctionMetadata{{Inputs: 0, Outputs: 0x80, MaxStackHeight: 1}},
			Code:     [][]byte{common.Hex2Bytes("604200")},
			Data:     []byte{0x01, 0x02, 0x03},
			DataSize: 3,
		},
		{
			Types: []*FunctionMetadata{
				{Inputs: 0, Outputs: 0x80, MaxStackHeight: 1},
				{Inputs: 2, Outputs: 3, MaxStackHeight: 4},
				{Inputs: 1, Outputs: 1, MaxStackHeight: 1},
			},
			Code: [][]byte{
				common.Hex2Bytes("604200"),
				common.Hex2Bytes("6042604200"),
				common.Hex2Bytes("00"),
			},
			Containers: [][]byte{common.Hex2Bytes("ef000101000402000100010400000000800000fe")},
			Data:       []byte{},
		},
	} {
		var (
			b   = want.MarshalBinary()
			got Container
		)
		if err := got.UnmarshalBinary(b); err != nil {
			t.Fatalf("test %d: %v", i, err)
		}
		if !bytes.Equal(got.MarshalBinary(), b) {
			t.Fatalf("test %d: re-encoding differs", i)
		}
		assert.Equal(t, len(want.Types), len(got.Types))
		assert.Equal(t, want.DataSize, got.DataSize)
	}
}

func TestEOFInvalidContainers(t *testing.T) {
	for name, code := range map[string]string{
		"short":           "ef0001",
		"bad version":     "ef000201000402000100010400000000800000fe",
		"no code":         "ef000101000402000100000400000000800000",
		"truncated body":  "ef000101000402000100010400000000800000",
		"trailing bytes":  "ef000101000402000100010400000000800000fe00",
		"returning entry": "ef000101000402000100010400000000000000fe",
	} {
		var c Container
		err := c.UnmarshalBinary(common.Hex2Bytes(code))
		if !errors.Is(err, ErrInvalidContainer) {
			t.Errorf("%s: have %v, want %v", name, err, ErrInvalidContainer)
		}
	}
}

func TestEOFCodeIsNotExecuted(t *testing.T) {
	evm, statedb := newTestEVM(Config{})
	statedb.SetCode(testContract, common.Hex2Bytes("ef000101000402000100010400000000800000fe"))

	_, gas, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
	require.Error(t, err)
	assert.False(t, IsFatal(err))
	assert.Zero(t, gas)
}
