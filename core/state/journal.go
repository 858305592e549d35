// Copyright 2016 The go-ethereum Authors
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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// journalKind tags the state item an entry restores.
type journalKind uint8

const (
	createObjectKind journalKind = iota
	resetObjectKind
	createContractKind
	selfDestructKind
	touchKind
	balanceKind
	nonceKind
	codeKind
	storageKind
	transientStorageKind
	accessListAddressKind
	accessListSlotKind
)

// journalKey identifies a single restorable state item. A scope records at
// most one entry per key: the first one, which holds the value the item had
// when the scope was opened.
type journalKey struct {
	kind journalKind
	addr common.Address
	slot common.Hash
}

// journalEntry is a modification entry in the state change journal that can be
// reverted on demand.
type journalEntry interface {
	// revert undoes the changes introduced by this journal entry.
	revert(*StateDB)

	// key returns the state item restored by the entry. Entries without a key
	// are recorded every time.
	key() (journalKey, bool)
}

// scope is one open checkpoint of the journal.
type scope struct {
	id      int
	entries []journalEntry
	keys    map[journalKey]struct{}
}

func newScope(id int) *scope {
	return &scope{id: id, keys: make(map[journalKey]struct{})}
}

// add appends entry unless the scope already restores the same item.
func (s *scope) add(entry journalEntry) bool {
	if k, ok := entry.key(); ok {
		if _, seen := s.keys[k]; seen {
			return false
		}
		s.keys[k] = struct{}{}
	}
	s.entries = append(s.entries, entry)
	return true
}

// journal contains the list of state modifications applied since the
// outermost open checkpoint, partitioned into nested scopes. Changes made
// while no checkpoint is open are final and not recorded.
type journal struct {
	scopes []*scope
	nextID int
}

// newJournal creates a new initialized journal.
func newJournal() *journal {
	return &journal{nextID: 1}
}

// append records entry in the innermost open scope.
func (j *journal) append(entry journalEntry) {
	if len(j.scopes) == 0 {
		return
	}
	j.scopes[len(j.scopes)-1].add(entry)
}

// recorded reports whether the innermost scope already restores k, so callers
// can skip building an entry that would be dropped anyway.
func (j *journal) recorded(k journalKey) bool {
	if len(j.scopes) == 0 {
		return true
	}
	_, ok := j.scopes[len(j.scopes)-1].keys[k]
	return ok
}

// open starts a new nested scope and returns its id.
func (j *journal) open() int {
	id := j.nextID
	j.nextID++
	j.scopes = append(j.scopes, newScope(id))
	return id
}

// find returns the position of the open scope id, or -1 if it is closed.
func (j *journal) find(id int) int {
	for i := len(j.scopes) - 1; i >= 0; i-- {
		if j.scopes[i].id == id {
			return i
		}
	}
	return -1
}

// commit closes scope id and every scope opened after it, folding their
// entries into the enclosing scope. Entries for items the enclosing scope
// already restores are dropped, its older value wins. Closing the outermost
// scope discards the entries.
func (j *journal) commit(id int) {
	idx := j.find(id)
	if idx < 0 {
		return
	}
	for i := len(j.scopes) - 1; i >= idx; i-- {
		if i == 0 {
			break
		}
		parent := j.scopes[i-1]
		for _, entry := range j.scopes[i].entries {
			parent.add(entry)
		}
	}
	j.scopes = j.scopes[:idx]
}

// revert undoes every entry of scope id and of the scopes opened after it,
// newest first, and closes them all.
func (j *journal) revert(statedb *StateDB, id int) {
	idx := j.find(id)
	if idx < 0 {
		return
	}
	for i := len(j.scopes) - 1; i >= idx; i-- {
		entries := j.scopes[i].entries
		for k := len(entries) - 1; k >= 0; k-- {
			entries[k].revert(statedb)
		}
	}
	j.scopes = j.scopes[:idx]
}

// depth returns the number of open scopes.
func (j *journal) depth() int {
	return len(j.scopes)
}

// length returns the number of entries held by all open scopes.
func (j *journal) length() int {
	var n int
	for _, s := range j.scopes {
		n += len(s.entries)
	}
	return n
}

type (
	// Changes to the account set.
	createObjectChange struct {
		account common.Address
	}
	resetObjectChange struct {
		prev *stateObject
	}
	createContractChange struct {
		account common.Address
	}
	selfDestructChange struct {
		account common.Address
		prev    bool // whether account had already self-destructed
	}
	touchChange struct {
		account common.Address
	}

	// Changes to individual accounts.
	balanceChange struct {
		account common.Address
		prev    *uint256.Int
	}
	nonceChange struct {
		account common.Address
		prev    uint64
	}
	storageChange struct {
		account  common.Address
		slot     common.Hash
		prevalue common.Hash
	}
	codeChange struct {
		account  common.Address
		prevcode []byte
		prevhash common.Hash
	}

	// Changes to other state values.
	addLogChange struct{}

	transientStorageChange struct {
		account  common.Address
		slot     common.Hash
		prevalue common.Hash
	}

	// Changes to the access list
	accessListAddAccountChange struct {
		address common.Address
	}
	accessListAddSlotChange struct {
		address common.Address
		slot    common.Hash
	}
)

func (ch createObjectChange) revert(s *StateDB) {
	s.stateObjects[ch.account] = nil
}

func (ch createObjectChange) key() (journalKey, bool) {
	return journalKey{kind: createObjectKind, addr: ch.account}, true
}

func (ch resetObjectChange) revert(s *StateDB) {
	s.stateObjects[ch.prev.address] = ch.prev
}

func (ch resetObjectChange) key() (journalKey, bool) {
	return journalKey{kind: resetObjectKind, addr: ch.prev.address}, true
}

func (ch createContractChange) revert(s *StateDB) {
	s.stateObjects[ch.account].newContract = false
}

func (ch createContractChange) key() (journalKey, bool) {
	return journalKey{kind: createContractKind, addr: ch.account}, true
}

func (ch selfDestructChange) revert(s *StateDB) {
	s.stateObjects[ch.account].selfDestructed = ch.prev
}

func (ch selfDestructChange) key() (journalKey, bool) {
	return journalKey{kind: selfDestructKind, addr: ch.account}, true
}

func (ch touchChange) revert(s *StateDB) {
	s.stateObjects[ch.account].touched = false
}

func (ch touchChange) key() (journalKey, bool) {
	return journalKey{kind: touchKind, addr: ch.account}, true
}

func (ch balanceChange) revert(s *StateDB) {
	s.stateObjects[ch.account].setBalance(ch.prev)
}

func (ch balanceChange) key() (journalKey, bool) {
	return journalKey{kind: balanceKind, addr: ch.account}, true
}

func (ch nonceChange) revert(s *StateDB) {
	s.stateObjects[ch.account].setNonce(ch.prev)
}

func (ch nonceChange) key() (journalKey, bool) {
	return journalKey{kind: nonceKind, addr: ch.account}, true
}

func (ch codeChange) revert(s *StateDB) {
	s.stateObjects[ch.account].setCode(ch.prevhash, ch.prevcode)
}

func (ch codeChange) key() (journalKey, bool) {
	return journalKey{kind: codeKind, addr: ch.account}, true
}

func (ch storageChange) revert(s *StateDB) {
	s.stateObjects[ch.account].setState(ch.slot, ch.prevalue)
}

func (ch storageChange) key() (journalKey, bool) {
	return journalKey{kind: storageKind, addr: ch.account, slot: ch.slot}, true
}

func (ch transientStorageChange) revert(s *StateDB) {
	s.setTransientState(ch.account, ch.slot, ch.prevalue)
}

func (ch transientStorageChange) key() (journalKey, bool) {
	return journalKey{kind: transientStorageKind, addr: ch.account, slot: ch.slot}, true
}

func (ch addLogChange) revert(s *StateDB) {
	s.logs = s.logs[:len(s.logs)-1]
}

func (ch addLogChange) key() (journalKey, bool) {
	return journalKey{}, false
}

func (ch accessListAddAccountChange) revert(s *StateDB) {
	s.accessList.DeleteAddress(ch.address)
}

func (ch accessListAddAccountChange) key() (journalKey, bool) {
	return journalKey{kind: accessListAddressKind, addr: ch.address}, true
}

func (ch accessListAddSlotChange) revert(s *StateDB) {
	s.accessList.DeleteSlot(ch.address, ch.slot)
}

func (ch accessListAddSlotChange) key() (journalKey, bool) {
	return journalKey{kind: accessListSlotKind, addr: ch.address, slot: ch.slot}, true
}
