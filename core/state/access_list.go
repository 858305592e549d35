// Copyright 2020 The go-ethereum Authors
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

package state

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// accessList is the EIP-2929 set of warm addresses and storage slots.
type accessList struct {
	addresses mapset.Set[common.Address]
	slots     map[common.Address]mapset.Set[common.Hash]
}

// newAccessList creates a new accessList.
func newAccessList() *accessList {
	return &accessList{
		addresses: mapset.NewThreadUnsafeSet[common.Address](),
		slots:     make(map[common.Address]mapset.Set[common.Hash]),
	}
}

// ContainsAddress returns true if the address is in the access list.
func (al *accessList) ContainsAddress(address common.Address) bool {
	return al.addresses.Contains(address)
}

// Contains checks if a slot within an account is present in the access list,
// returning separate flags for the presence of the account and the slot
// respectively.
func (al *accessList) Contains(address common.Address, slot common.Hash) (addressPresent bool, slotPresent bool) {
	if !al.addresses.Contains(address) {
		return false, false
	}
	slots, ok := al.slots[address]
	if !ok {
		return true, false
	}
	return true, slots.Contains(slot)
}

// Copy creates an independent copy of an accessList.
func (al *accessList) Copy() *accessList {
	cpy := &accessList{
		addresses: al.addresses.Clone(),
		slots:     make(map[common.Address]mapset.Set[common.Hash], len(al.slots)),
	}
	for addr, slots := range al.slots {
		cpy.slots[addr] = slots.Clone()
	}
	return cpy
}

// AddAddress adds an address to the access list, and returns 'true' if the
// operation caused a change (addr was not previously in the list).
func (al *accessList) AddAddress(address common.Address) bool {
	if al.addresses.Contains(address) {
		return false
	}
	al.addresses.Add(address)
	return true
}

// AddSlot adds the specified (addr, slot) combo to the access list.
// Return values are:
// - address added
// - slot added
// For any 'true' value returned, a corresponding journal entry must be made.
func (al *accessList) AddSlot(address common.Address, slot common.Hash) (addrChange bool, slotChange bool) {
	addrChange = al.AddAddress(address)
	slots, ok := al.slots[address]
	if !ok {
		slots = mapset.NewThreadUnsafeSet[common.Hash]()
		al.slots[address] = slots
	}
	if slots.Contains(slot) {
		return addrChange, false
	}
	slots.Add(slot)
	return addrChange, true
}

// DeleteSlot removes an (address, slot)-tuple from the access list. It is
// only used when reverting a journal entry.
func (al *accessList) DeleteSlot(address common.Address, slot common.Hash) {
	slots, ok := al.slots[address]
	if !ok {
		return
	}
	slots.Remove(slot)
	if slots.Cardinality() == 0 {
		delete(al.slots, address)
	}
}

// DeleteAddress removes an address from the access list. Slots recorded for
// the address are expected to be reverted first.
func (al *accessList) DeleteAddress(address common.Address) {
	al.addresses.Remove(address)
	delete(al.slots, address)
}
