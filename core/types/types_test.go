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

package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountEncoding(t *testing.T) {
	acc := &Account{Nonce: 7, Balance: uint256.NewInt(1_000_000), CodeHash: common.HexToHash("0xbeef")}
	blob, err := EncodeAccount(acc)
	require.NoError(t, err)

	dec, err := DecodeAccount(blob)
	require.NoError(t, err)
	assert.True(t, acc.Equal(dec))

	_, err = DecodeAccount([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestAccountEmpty(t *testing.T) {
	acc := NewEmptyAccount()
	assert.True(t, acc.Empty())

	acc.Nonce = 1
	assert.False(t, acc.Empty())

	cpy := acc.Copy()
	cpy.Balance.SetUint64(5)
	assert.True(t, acc.Balance.IsZero(), "copy must not alias the balance")
}

func TestParseDelegation(t *testing.T) {
	addr := common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	code := AddressToDelegation(addr)
	require.Len(t, code, DelegationCodeSize)

	got, ok := ParseDelegation(code)
	require.True(t, ok)
	assert.Equal(t, addr, got)

	_, ok = ParseDelegation(code[:22])
	assert.False(t, ok)
	_, ok = ParseDelegation(append([]byte{0xef, 0x01, 0x01}, addr.Bytes()...))
	assert.False(t, ok)
}
