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
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/state"
	"github.com/rezbera/revm/core/types"
)

// prestate is the JSON description of the state a message runs against.
type prestate struct {
	Accounts    map[common.Address]prestateAccount  `json:"accounts"`
	BlockHashes map[math.HexOrDecimal64]common.Hash `json:"blockHashes,omitempty"`
}

type prestateAccount struct {
	Balance *math.HexOrDecimal256       `json:"balance,omitempty"`
	Nonce   math.HexOrDecimal64         `json:"nonce,omitempty"`
	Code    hexutil.Bytes               `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
}

// blockHashWriter is implemented by the backends able to record canonical
// block hashes.
type blockHashWriter interface {
	WriteBlockHash(number uint64, hash common.Hash)
}

// memoryHashWriter adapts MemoryDB to blockHashWriter.
type memoryHashWriter struct{ db *state.MemoryDB }

func (w memoryHashWriter) WriteBlockHash(number uint64, hash common.Hash) {
	w.db.SetBlockHash(number, hash)
}

func loadPrestate(file string) (*prestate, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	pre := new(prestate)
	if err := json.Unmarshal(data, pre); err != nil {
		return nil, fmt.Errorf("invalid prestate %s: %w", file, err)
	}
	return pre, nil
}

// changeSet converts the accounts into a change set ordered by address.
func (p *prestate) changeSet() (*state.ChangeSet, error) {
	changes := new(state.ChangeSet)
	for addr, acct := range p.Accounts {
		balance := new(uint256.Int)
		if acct.Balance != nil {
			b := (*big.Int)(acct.Balance)
			if b.Sign() < 0 {
				return nil, fmt.Errorf("negative balance of %x", addr)
			}
			if overflow := balance.SetFromBig(b); overflow {
				return nil, fmt.Errorf("balance of %x exceeds 256 bits", addr)
			}
		}
		account := &types.Account{
			Nonce:    uint64(acct.Nonce),
			Balance:  balance,
			CodeHash: types.EmptyCodeHash,
		}
		change := &state.AccountChange{
			Address:        addr,
			Account:        account,
			StorageCleared: true,
		}
		if len(acct.Code) > 0 {
			account.CodeHash = crypto.Keccak256Hash(acct.Code)
			change.Code = common.CopyBytes(acct.Code)
		}
		if len(acct.Storage) > 0 {
			change.Storage = make(state.Storage, len(acct.Storage))
			for slot, value := range acct.Storage {
				change.Storage[slot] = value
			}
		}
		changes.Accounts = append(changes.Accounts, change)
	}
	slices.SortFunc(changes.Accounts, func(a, b *state.AccountChange) int {
		return bytes.Compare(a.Address[:], b.Address[:])
	})
	return changes, nil
}

// apply writes the prestate into db.
func (p *prestate) apply(db state.DatabaseCommit, hashes blockHashWriter) error {
	changes, err := p.changeSet()
	if err != nil {
		return err
	}
	if err := db.Commit(changes); err != nil {
		return err
	}
	for number, hash := range p.BlockHashes {
		hashes.WriteBlockHash(uint64(number), hash)
	}
	return nil
}

// dumpPrestate renders the content of an in-memory database in the prestate
// format, so the output of one run can seed the next.
func dumpPrestate(db *state.MemoryDB) (*prestate, error) {
	accounts, storage := db.Dump()
	out := &prestate{Accounts: make(map[common.Address]prestateAccount, len(accounts))}
	for addr, acct := range accounts {
		entry := prestateAccount{
			Balance: (*math.HexOrDecimal256)(acct.Balance.ToBig()),
			Nonce:   math.HexOrDecimal64(acct.Nonce),
		}
		if acct.CodeHash != types.EmptyCodeHash {
			code, err := db.CodeByHash(acct.CodeHash)
			if err != nil {
				return nil, err
			}
			entry.Code = code
		}
		if slots := storage[addr]; len(slots) > 0 {
			entry.Storage = map[common.Hash]common.Hash(slots)
		}
		out.Accounts[addr] = entry
	}
	return out, nil
}
