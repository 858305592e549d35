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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/types"
)

// CodeKind tags the format of a contract's code.
type CodeKind uint8

const (
	LegacyCode     CodeKind = iota // raw bytecode
	EOFCode                        // EIP-3540 container
	DelegationCode                 // EIP-7702 delegation designator
)

func (k CodeKind) String() string {
	switch k {
	case LegacyCode:
		return "legacy"
	case EOFCode:
		return "eof"
	case DelegationCode:
		return "delegation"
	}
	return "unknown"
}

// Bytecode is the analysed, immutable form of contract code. The jump
// destination bitmap is computed once when the unit is built.
type Bytecode struct {
	code      []byte
	hash      common.Hash
	kind      CodeKind
	analysis  bitvec
	container *Container
	delegate  common.Address
}

// NewBytecode analyses code and hashes it.
func NewBytecode(code []byte) (*Bytecode, error) {
	return NewBytecodeWithHash(code, crypto.Keccak256Hash(code))
}

// NewBytecodeWithHash analyses code whose hash is already known. Code
// carrying the EOF magic must be a well formed container, otherwise an error
// wrapping ErrInvalidContainer is returned.
func NewBytecodeWithHash(code []byte, hash common.Hash) (*Bytecode, error) {
	b := newLegacyBytecode(code, hash)
	switch {
	case hasEOFMagic(code):
		c := new(Container)
		if err := c.UnmarshalBinary(code); err != nil {
			return nil, err
		}
		b.kind, b.container = EOFCode, c
	default:
		if addr, ok := types.ParseDelegation(code); ok {
			b.kind, b.delegate = DelegationCode, addr
		}
	}
	return b, nil
}

// newLegacyBytecode treats code as raw bytecode without looking at its
// prefix. Init code always takes this path.
func newLegacyBytecode(code []byte, hash common.Hash) *Bytecode {
	return &Bytecode{
		code:     code,
		hash:     hash,
		kind:     LegacyCode,
		analysis: codeBitmap(code),
	}
}

// Code returns the raw code bytes. The slice must not be modified.
func (b *Bytecode) Code() []byte { return b.code }

// Hash returns the keccak256 hash of the code.
func (b *Bytecode) Hash() common.Hash { return b.hash }

// Kind returns the code format.
func (b *Bytecode) Kind() CodeKind { return b.kind }

// Len returns the code length in bytes.
func (b *Bytecode) Len() int { return len(b.code) }

// Container returns the parsed EOF container, or nil for other kinds.
func (b *Bytecode) Container() *Container { return b.container }

// Delegation returns the delegation target for EIP-7702 designators.
func (b *Bytecode) Delegation() (common.Address, bool) {
	return b.delegate, b.kind == DelegationCode
}

// GetOp returns the n'th element in the code, STOP past the end.
func (b *Bytecode) GetOp(n uint64) OpCode {
	if b != nil && n < uint64(len(b.code)) {
		return OpCode(b.code[n])
	}
	return STOP
}

// validJumpdest reports whether dest is a JUMPDEST opcode outside push data.
func (b *Bytecode) validJumpdest(dest *uint256.Int) bool {
	udest, overflow := dest.Uint64WithOverflow()
	// PC cannot go beyond len(code) and certainly can't be bigger than 63bits.
	// Don't bother checking for JUMPDEST in that case.
	if overflow || udest >= uint64(len(b.code)) {
		return false
	}
	// Only JUMPDESTs allowed for destinations
	if OpCode(b.code[udest]) != JUMPDEST {
		return false
	}
	return b.analysis.codeSegment(udest)
}

// BytecodeCache shares analysed code between executions keyed by code hash.
// It is safe for concurrent use.
type BytecodeCache struct {
	cache *lru.Cache
}

// NewBytecodeCache creates a cache holding up to size analysed units.
func NewBytecodeCache(size int) *BytecodeCache {
	cache, err := lru.New(size)
	if err != nil {
		panic(err) // only fails on non-positive size
	}
	return &BytecodeCache{cache: cache}
}

// Get returns the cached unit for hash.
func (c *BytecodeCache) Get(hash common.Hash) (*Bytecode, bool) {
	if v, ok := c.cache.Get(hash); ok {
		bytecodeCacheHitMeter.Mark(1)
		return v.(*Bytecode), true
	}
	bytecodeCacheMissMeter.Mark(1)
	return nil, false
}

// GetOrLoad returns the cached unit for hash. On a miss the code is fetched
// with load, analysed and cached. Only load can fail: stored code with the
// EOF magic that is not a valid container was deployed before EIP-3541 and
// is analysed as legacy code.
func (c *BytecodeCache) GetOrLoad(hash common.Hash, load func() ([]byte, error)) (*Bytecode, error) {
	if b, ok := c.Get(hash); ok {
		return b, nil
	}
	code, err := load()
	if err != nil {
		return nil, err
	}
	b, err := NewBytecodeWithHash(code, hash)
	if err != nil {
		b = newLegacyBytecode(code, hash)
	}
	c.cache.Add(hash, b)
	return b, nil
}

// Len returns the number of cached units.
func (c *BytecodeCache) Len() int { return c.cache.Len() }

var defaultBytecodeCache = NewBytecodeCache(4096)
