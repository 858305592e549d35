// Copyright 2014 The go-ethereum Authors
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

// Package state provides the journaled world state the interpreter executes
// against.
package state

import (
	"bytes"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/log"
	"github.com/rezbera/revm/params"
)

// StateDB is an overlay of accounts and storage over a Database. Every
// mutation is recorded in a journal of nested scopes so it can be undone back
// to any open checkpoint.
//
// Loads from the database never fail from the caller's point of view: the
// first backend failure is remembered and returned by Error, and the
// interpreter stops as soon as it sees it.
type StateDB struct {
	db Database

	// This map holds 'live' objects, which will get modified while
	// processing a state transition. Nil values mark accounts known not to
	// exist.
	stateObjects map[common.Address]*stateObject

	// The first database failure encountered.
	dbErr error

	logs        []*types.Log
	blockHashes map[uint64]common.Hash

	// Per-transaction access list
	accessList *accessList

	// Transient storage
	transientStorage transientStorage

	// Journal of state modifications. This is the backbone of
	// Checkpoint and RevertToCheckpoint.
	journal *journal
}

// New creates a new state on top of db.
func New(db Database) *StateDB {
	return &StateDB{
		db:               db,
		stateObjects:     make(map[common.Address]*stateObject),
		blockHashes:      make(map[uint64]common.Hash),
		accessList:       newAccessList(),
		transientStorage: newTransientStorage(),
		journal:          newJournal(),
	}
}

// Database returns the backend of the state.
func (s *StateDB) Database() Database {
	return s.db
}

// setError remembers the first error it is called with.
func (s *StateDB) setError(op string, err error) {
	databaseErrorMeter.Mark(1)
	if s.dbErr == nil {
		log.Error("State database failure", "op", op, "err", err)
		s.dbErr = &DatabaseError{Op: op, Err: err}
	}
}

// Error returns the memorized database failure occurred earlier.
func (s *StateDB) Error() error {
	return s.dbErr
}

// AddLog appends a log to the execution's log list.
func (s *StateDB) AddLog(log *types.Log) {
	s.journal.append(addLogChange{})
	log.Index = uint(len(s.logs))
	s.logs = append(s.logs, log)
}

// Logs returns the logs emitted so far.
func (s *StateDB) Logs() []*types.Log {
	return s.logs
}

// BlockHash returns the hash of block number, loading it from the database
// once.
func (s *StateDB) BlockHash(number uint64) common.Hash {
	if hash, ok := s.blockHashes[number]; ok {
		return hash
	}
	hash, err := s.db.BlockHash(number)
	if err != nil {
		s.setError("block hash", err)
		return common.Hash{}
	}
	s.blockHashes[number] = hash
	return hash
}

// Exist reports whether the given account address exists in the state.
// Notably this also returns true for self-destructed accounts.
func (s *StateDB) Exist(addr common.Address) bool {
	return s.getStateObject(addr) != nil
}

// Empty returns whether the state object is either non-existent
// or empty according to the EIP161 specification (balance = nonce = code = 0)
func (s *StateDB) Empty(addr common.Address) bool {
	so := s.getStateObject(addr)
	return so == nil || so.empty()
}

// GetBalance retrieves the balance from the given address or 0 if object not found.
// The returned value is a copy.
func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return new(uint256.Int).Set(stateObject.Balance())
	}
	return new(uint256.Int)
}

// GetNonce retrieves the nonce from the given address or 0 if object not found
func (s *StateDB) GetNonce(addr common.Address) uint64 {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.Nonce()
	}
	return 0
}

func (s *StateDB) GetCode(addr common.Address) []byte {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.Code()
	}
	return nil
}

func (s *StateDB) GetCodeSize(addr common.Address) int {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.CodeSize()
	}
	return 0
}

// GetCodeHash returns the code hash of addr, or the zero hash if the account
// does not exist.
func (s *StateDB) GetCodeHash(addr common.Address) common.Hash {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.CodeHash()
	}
	return common.Hash{}
}

// GetState retrieves the value associated with the specific key.
func (s *StateDB) GetState(addr common.Address, hash common.Hash) common.Hash {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.GetState(hash)
	}
	return common.Hash{}
}

// GetCommittedState retrieves the value associated with the specific key
// as it was before the execution started.
func (s *StateDB) GetCommittedState(addr common.Address, hash common.Hash) common.Hash {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.GetCommittedState(hash)
	}
	return common.Hash{}
}

func (s *StateDB) HasSelfDestructed(addr common.Address) bool {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.selfDestructed
	}
	return false
}

/*
 * SETTERS
 */

// AddBalance adds amount to the account associated with addr.
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.AddBalance(amount)
	}
}

// SubBalance subtracts amount from the account associated with addr.
func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.SubBalance(amount)
	}
}

func (s *StateDB) SetBalance(addr common.Address, amount *uint256.Int) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.SetBalance(amount)
	}
}

// Transfer moves amount from sender to recipient. Both accounts are touched.
func (s *StateDB) Transfer(sender, recipient common.Address, amount *uint256.Int) {
	s.SubBalance(sender, amount)
	s.AddBalance(recipient, amount)
}

// Touch marks the account as touched for EIP-158 empty account removal,
// creating it if needed.
func (s *StateDB) Touch(addr common.Address) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.touch()
	}
}

func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.SetNonce(nonce)
	}
}

func (s *StateDB) SetCode(addr common.Address, code []byte) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.SetCode(crypto.Keccak256Hash(code), code)
	}
}

func (s *StateDB) SetState(addr common.Address, key, value common.Hash) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.SetState(key, value)
	}
}

// SelfDestruct marks the given account as selfdestructed.
// This clears the account balance.
//
// The account's state object is still available until the state is finalized,
// getStateObject will return a non-nil account after SelfDestruct.
func (s *StateDB) SelfDestruct(addr common.Address) {
	stateObject := s.getStateObject(addr)
	if stateObject == nil {
		return
	}
	stateObject.markSelfdestructed()
	stateObject.SetBalance(new(uint256.Int))
}

// Selfdestruct6780 destructs the account only if it was created by the
// current execution.
func (s *StateDB) Selfdestruct6780(addr common.Address) {
	stateObject := s.getStateObject(addr)
	if stateObject == nil {
		return
	}
	if stateObject.newContract {
		s.SelfDestruct(addr)
	}
}

// SetTransientState sets transient storage for a given account. It
// adds the change to the journal so that it can be rolled back
// to its previous value if there is a revert.
func (s *StateDB) SetTransientState(addr common.Address, key, value common.Hash) {
	prev := s.GetTransientState(addr, key)
	if prev == value {
		return
	}
	s.journal.append(transientStorageChange{
		account:  addr,
		slot:     key,
		prevalue: prev,
	})
	s.setTransientState(addr, key, value)
}

// setTransientState is a lower level setter for transient storage. It
// is called during a revert to prevent modifications to the journal.
func (s *StateDB) setTransientState(addr common.Address, key, value common.Hash) {
	s.transientStorage.Set(addr, key, value)
}

// GetTransientState gets transient storage for a given account.
func (s *StateDB) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	return s.transientStorage.Get(addr, key)
}

//
// Setting, updating & deleting state object methods.
//

// getStateObject retrieves a state object given by the address, returning nil if
// the object is not found or was deleted in this execution.
func (s *StateDB) getStateObject(addr common.Address) *stateObject {
	if obj, ok := s.stateObjects[addr]; ok {
		return obj
	}
	acct, err := s.db.Basic(addr)
	if err != nil {
		s.setError("account", err)
		return nil
	}
	accountLoadedMeter.Mark(1)
	if acct == nil {
		s.stateObjects[addr] = nil
		return nil
	}
	obj := newObject(s, addr, acct)
	s.stateObjects[addr] = obj
	return obj
}

// getOrNewStateObject retrieves a state object or create a new state object if nil.
func (s *StateDB) getOrNewStateObject(addr common.Address) *stateObject {
	stateObject := s.getStateObject(addr)
	if stateObject == nil {
		if s.dbErr != nil {
			return nil
		}
		stateObject, _ = s.createObject(addr)
	}
	return stateObject
}

// createObject creates a new state object. If there is an existing account with
// the given address, it is overwritten and returned as the second return value.
func (s *StateDB) createObject(addr common.Address) (newobj, prev *stateObject) {
	prev = s.getStateObject(addr)

	newobj = newObject(s, addr, nil)
	newobj.created = true
	if prev == nil {
		s.journal.append(createObjectChange{account: addr})
	} else {
		newobj.origin = prev.origin
		s.journal.append(resetObjectChange{prev: prev})
	}
	s.stateObjects[addr] = newobj
	return newobj, prev
}

// CreateAccount explicitly creates a new state object, assuming that the
// account did not previously exist in the state. If the account already
// exists, this function will silently overwrite it and drop its storage,
// carrying over the balance.
func (s *StateDB) CreateAccount(addr common.Address) {
	newObj, prev := s.createObject(addr)
	if prev != nil {
		newObj.setBalance(prev.data.Balance)
	}
}

// CreateContract is used whenever a contract is created. This may be preceded
// by CreateAccount, but that is not required if it already existed in the
// state due to funds sent beforehand.
// This operation sets the 'newContract'-flag, which is required in order to
// correctly handle EIP-6780 'delete-in-same-transaction' logic.
func (s *StateDB) CreateContract(addr common.Address) {
	obj := s.getStateObject(addr)
	if obj != nil && !obj.newContract {
		obj.newContract = true
		s.journal.append(createContractChange{account: addr})
	}
}

// Checkpoint opens a nested undo scope and returns its id.
func (s *StateDB) Checkpoint() int {
	return s.journal.open()
}

// RevertToCheckpoint undoes every change made since the checkpoint was
// opened. Reverting an already closed checkpoint is a no-op.
func (s *StateDB) RevertToCheckpoint(id int) {
	s.journal.revert(s, id)
}

// CommitCheckpoint closes the checkpoint keeping its changes.
func (s *StateDB) CommitCheckpoint(id int) {
	s.journal.commit(id)
}

// Prepare handles the preparatory steps for executing a state transition.
// This method must be invoked before state transition.
//
// Berlin fork:
// - Add sender to access list (2929)
// - Add destination to access list (2929)
// - Add precompiles to access list (2929)
// - Add the contents of the optional tx access list (2930)
//
// Potential EIPs:
// - Reset access list (Berlin)
// - Add coinbase to access list (EIP-3651)
// - Reset transient storage (EIP-1153)
func (s *StateDB) Prepare(rules params.Rules, sender, coinbase common.Address, dst *common.Address, precompiles []common.Address, list types.AccessList) {
	if rules.IsBerlin {
		// Clear out any leftover from previous executions
		al := newAccessList()
		s.accessList = al

		al.AddAddress(sender)
		if dst != nil {
			al.AddAddress(*dst)
			// If it's a create-tx, the destination will be added inside evm.create
		}
		for _, addr := range precompiles {
			al.AddAddress(addr)
		}
		for _, el := range list {
			al.AddAddress(el.Address)
			for _, key := range el.StorageKeys {
				al.AddSlot(el.Address, key)
			}
		}
		if rules.IsShanghai { // EIP-3651: warm coinbase
			al.AddAddress(coinbase)
		}
	}
	// Reset transient storage at the beginning of transaction execution
	s.transientStorage = newTransientStorage()
}

// AddAddressToAccessList adds the given address to the access list
func (s *StateDB) AddAddressToAccessList(addr common.Address) {
	if s.accessList.AddAddress(addr) {
		s.journal.append(accessListAddAccountChange{address: addr})
	}
}

// AddSlotToAccessList adds the given (address, slot)-tuple to the access list
func (s *StateDB) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	addrMod, slotMod := s.accessList.AddSlot(addr, slot)
	if addrMod {
		// In practice, this should not happen, since there is no way to enter the
		// scope of 'address' without having the 'address' become already added
		// to the access list (via call-variant, create, etc).
		// Better safe than sorry, though
		s.journal.append(accessListAddAccountChange{address: addr})
	}
	if slotMod {
		s.journal.append(accessListAddSlotChange{
			address: addr,
			slot:    slot,
		})
	}
}

// AddressInAccessList returns true if the given address is in the access list.
func (s *StateDB) AddressInAccessList(addr common.Address) bool {
	return s.accessList.ContainsAddress(addr)
}

// SlotInAccessList returns true if the given (address, slot)-tuple is in the access list.
func (s *StateDB) SlotInAccessList(addr common.Address, slot common.Hash) (addressPresent bool, slotPresent bool) {
	return s.accessList.Contains(addr, slot)
}

// Finalize collects every account that differs from the database into a
// change set. Self-destructed accounts are deleted, and so are touched empty
// accounts when deleteEmptyObjects is set (EIP-158). The state must not be
// used for further execution afterwards.
func (s *StateDB) Finalize(deleteEmptyObjects bool) *ChangeSet {
	addrs := make([]common.Address, 0, len(s.stateObjects))
	for addr, obj := range s.stateObjects {
		if obj != nil {
			addrs = append(addrs, addr)
		}
	}
	slices.SortFunc(addrs, func(a, b common.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	changes := &ChangeSet{Logs: s.logs}
	for _, addr := range addrs {
		obj := s.stateObjects[addr]
		if obj.selfDestructed || (deleteEmptyObjects && obj.touched && obj.empty()) {
			if obj.origin != nil {
				changes.Accounts = append(changes.Accounts, &AccountChange{Address: addr, Deleted: true})
			}
			continue
		}
		storage := obj.storageChanges()
		codeChanged := obj.codeChanged()
		if !obj.created && !codeChanged && len(storage) == 0 && obj.data.Equal(obj.origin) {
			continue
		}
		change := &AccountChange{
			Address:        addr,
			Account:        obj.data.Copy(),
			Storage:        storage,
			StorageCleared: obj.created && obj.origin != nil,
		}
		if codeChanged {
			change.Code = common.CopyBytes(obj.Code())
		}
		changes.Accounts = append(changes.Accounts, change)
	}
	return changes
}
