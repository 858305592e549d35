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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

var (
	// EmptyCodeHash is the known hash of the empty EVM bytecode.
	EmptyCodeHash = crypto.Keccak256Hash(nil)
)

// Account is the consensus representation of an account as seen by the
// execution engine. Storage is addressed separately by slot.
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash common.Hash
}

// NewEmptyAccount returns an account with zero balance and no code.
func NewEmptyAccount() *Account {
	return &Account{Balance: new(uint256.Int), CodeHash: EmptyCodeHash}
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	cpy := &Account{Nonce: a.Nonce, CodeHash: a.CodeHash, Balance: new(uint256.Int)}
	if a.Balance != nil {
		cpy.Balance.Set(a.Balance)
	}
	return cpy
}

// Empty reports whether the account is empty according to EIP-161: zero
// nonce, zero balance and no code.
func (a *Account) Empty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && (a.CodeHash == EmptyCodeHash || a.CodeHash == common.Hash{})
}

// Equal reports whether two accounts hold the same fields.
func (a *Account) Equal(b *Account) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Nonce == b.Nonce && a.CodeHash == b.CodeHash && a.Balance.Eq(b.Balance)
}

// EncodeAccount returns the RLP encoding of the account.
func EncodeAccount(a *Account) ([]byte, error) {
	return rlp.EncodeToBytes(a)
}

// DecodeAccount parses an RLP encoded account.
func DecodeAccount(blob []byte) (*Account, error) {
	a := new(Account)
	if err := rlp.DecodeBytes(blob, a); err != nil {
		return nil, err
	}
	if a.Balance == nil {
		a.Balance = new(uint256.Int)
	}
	return a, nil
}
