// Copyright 2018 The go-ethereum Authors
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

package rawdb

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// The fields below define the low level database schema prefixing.
var (
	AccountPrefix   = []byte("a") // AccountPrefix + address -> rlp(account)
	StoragePrefix   = []byte("o") // StoragePrefix + address + slot -> slot value
	CodePrefix      = []byte("c") // CodePrefix + code hash -> contract code
	BlockHashPrefix = []byte("h") // BlockHashPrefix + num (uint64 big endian) -> block hash
)

// encodeBlockNumber encodes a block number as big endian uint64
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// accountKey = AccountPrefix + address
func accountKey(addr common.Address) []byte {
	return append(append([]byte{}, AccountPrefix...), addr.Bytes()...)
}

// storageKey = StoragePrefix + address + slot
func storageKey(addr common.Address, slot common.Hash) []byte {
	buf := make([]byte, len(StoragePrefix)+common.AddressLength+common.HashLength)
	n := copy(buf, StoragePrefix)
	n += copy(buf[n:], addr.Bytes())
	copy(buf[n:], slot.Bytes())
	return buf
}

// storagePrefix = StoragePrefix + address
func storagePrefix(addr common.Address) []byte {
	return append(append([]byte{}, StoragePrefix...), addr.Bytes()...)
}

// codeKey = CodePrefix + hash
func codeKey(hash common.Hash) []byte {
	return append(append([]byte{}, CodePrefix...), hash.Bytes()...)
}

// blockHashKey = BlockHashPrefix + num (uint64 big endian)
func blockHashKey(number uint64) []byte {
	return append(append([]byte{}, BlockHashPrefix...), encodeBlockNumber(number)...)
}
