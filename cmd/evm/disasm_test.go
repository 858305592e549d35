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
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisassemble(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, disassemble(&out, common.FromHex("60ff5f61010200")))
	assert.Equal(t, "00000: PUSH1 0xff\n00002: PUSH0\n00003: PUSH2 0x0102\n00006: STOP\n", out.String())
}

func TestDisassembleIncompletePush(t *testing.T) {
	var out bytes.Buffer
	err := disassemble(&out, common.FromHex("6001610a"))
	assert.ErrorIs(t, err, errIncompletePush)
	assert.Equal(t, "00000: PUSH1 0x01\n00002: PUSH2 0x0a\n", out.String())
}

func TestDisassembleDelegation(t *testing.T) {
	var out bytes.Buffer
	code := append(common.FromHex("ef0100"), common.HexToAddress("0x1234").Bytes()...)
	require.NoError(t, disassemble(&out, code))
	assert.Contains(t, out.String(), "delegation to 0x0000000000000000000000000000000000001234")
}

func TestDecodeHex(t *testing.T) {
	for _, in := range []string{"6001", "0x6001", " 0x6001\n"} {
		code, err := decodeHex(in)
		require.NoError(t, err, in)
		assert.Equal(t, []byte{0x60, 0x01}, code)
	}
	_, err := decodeHex("0x600")
	assert.Error(t, err)
}
