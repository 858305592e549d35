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

// Package core is the entry point of the engine: it runs one message against
// a state backend and reports the outcome together with the state changes.
package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/state"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/core/vm"
	"github.com/rezbera/revm/log"
	"github.com/rezbera/revm/params"
)

var _ vm.StateDB = (*state.StateDB)(nil)

// ErrNoChainConfig is returned when an environment carries no chain config.
var ErrNoChainConfig = errors.New("missing chain config")

// Message is the call or contract creation to execute. Validation of the
// sender (signature, nonce, balance for fees) is left to the caller.
type Message struct {
	From       common.Address
	To         *common.Address // nil means contract creation
	Value      *uint256.Int
	GasLimit   uint64
	GasPrice   *uint256.Int
	Data       []byte
	AccessList types.AccessList

	BlobHashes    []common.Hash
	BlobGasFeeCap *uint256.Int

	// Salt switches a creation to CREATE2 address derivation.
	Salt *uint256.Int
}

// Environment is the block the message executes in.
type Environment struct {
	ChainConfig *params.ChainConfig

	Coinbase    common.Address
	Number      uint64
	Time        uint64
	GasLimit    uint64
	Difficulty  *uint256.Int
	Random      *common.Hash // set once the chain has passed the merge
	BaseFee     *uint256.Int
	BlobBaseFee *uint256.Int

	// GetHash overrides the BLOCKHASH source. By default hashes are read
	// from the state backend.
	GetHash vm.GetHashFunc
}

// Status is the coarse result of an execution.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusRevert
	StatusHalt
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRevert:
		return "revert"
	case StatusHalt:
		return "halt"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ExecutionOutcome is the result of a message that ran to completion.
// Changes and Logs are only set when the outer call succeeded.
type ExecutionOutcome struct {
	Status          Status
	Err             error // the reason of a revert or halt
	ReturnData      []byte
	GasUsed         uint64 // net of the refund
	GasRefunded     uint64
	ContractAddress common.Address // creations only
	Changes         *state.ChangeSet
	Logs            []*types.Log
}

// Failed reports whether the execution was reverted or halted.
func (o *ExecutionOutcome) Failed() bool { return o.Status != StatusSuccess }

// Return is the output of a successful execution.
func (o *ExecutionOutcome) Return() []byte {
	if o.Failed() {
		return nil
	}
	return common.CopyBytes(o.ReturnData)
}

// Revert is the revert reason of a reverted execution.
func (o *ExecutionOutcome) Revert() []byte {
	if o.Status != StatusRevert {
		return nil
	}
	return common.CopyBytes(o.ReturnData)
}

// NewEVMBlockContext creates the block context of env. BLOCKHASH falls back
// to the state backend when env carries no hash source.
func NewEVMBlockContext(env Environment, statedb *state.StateDB) vm.BlockContext {
	getHash := env.GetHash
	if getHash == nil {
		getHash = statedb.BlockHash
	}
	return vm.BlockContext{
		CanTransfer: CanTransfer,
		Transfer:    Transfer,
		GetHash:     getHash,
		Coinbase:    env.Coinbase,
		GasLimit:    env.GasLimit,
		BlockNumber: env.Number,
		Time:        env.Time,
		Difficulty:  env.Difficulty,
		Random:      env.Random,
		BaseFee:     env.BaseFee,
		BlobBaseFee: env.BlobBaseFee,
	}
}

// NewEVMTxContext creates a new transaction context for a single message.
func NewEVMTxContext(msg *Message) vm.TxContext {
	return vm.TxContext{
		Origin:     msg.From,
		GasPrice:   msg.GasPrice,
		BlobHashes: msg.BlobHashes,
		BlobFeeCap: msg.BlobGasFeeCap,
		AccessList: msg.AccessList,
	}
}

// CanTransfer checks whether there are enough funds in the address' account to make a transfer.
// This does not take the necessary gas in to account to make the transfer valid.
func CanTransfer(db vm.StateDB, addr common.Address, amount *uint256.Int) bool {
	return db.GetBalance(addr).Cmp(amount) >= 0
}

// Transfer subtracts amount from sender and adds amount to recipient using the given Db
func Transfer(db vm.StateDB, sender, recipient common.Address, amount *uint256.Int) {
	db.SubBalance(sender, amount)
	db.AddBalance(recipient, amount)
}

// Execute runs msg in env on top of db. The returned error is reserved for
// failures that abort the engine, such as an unreadable backend; reverts and
// halts are reported through the outcome.
func Execute(msg *Message, env Environment, db state.Database, cfg vm.Config) (*ExecutionOutcome, error) {
	return ExecuteState(msg, env, state.New(db), cfg)
}

// ExecuteState is Execute over a caller supplied state. The state is
// finalized and cannot be used for another message afterwards.
func ExecuteState(msg *Message, env Environment, statedb *state.StateDB, cfg vm.Config) (*ExecutionOutcome, error) {
	defer executeTimer.UpdateSince(time.Now())

	if env.ChainConfig == nil {
		return nil, ErrNoChainConfig
	}
	var (
		evm   = vm.NewEVM(NewEVMBlockContext(env, statedb), NewEVMTxContext(msg), statedb, env.ChainConfig, cfg)
		rules = evm.Rules()
		req   = newCallRequest(msg)
	)
	statedb.Prepare(rules, msg.From, env.Coinbase, msg.To, vm.ActivePrecompiles(rules), msg.AccessList)

	res := evm.Run(req)
	if vm.IsFatal(res.Err) {
		executeFatalMeter.Mark(1)
		return nil, res.Err
	}
	outcome := &ExecutionOutcome{
		Err:        res.Err,
		ReturnData: res.Ret,
	}
	meter := vm.NewGasMeter(msg.GasLimit)
	meter.Charge(msg.GasLimit - res.GasLeft)
	if msg.To == nil {
		outcome.ContractAddress = req.Address
	}
	switch {
	case res.Err == nil:
		meter.MergeRefund(res.Refund)
		outcome.Status = StatusSuccess
		outcome.Changes = statedb.Finalize(rules.IsEIP158)
		outcome.Logs = outcome.Changes.Logs
	case errors.Is(res.Err, vm.ErrExecutionReverted):
		outcome.Status = StatusRevert
	default:
		outcome.Status = StatusHalt
		outcome.ReturnData = nil
	}
	if err := statedb.Error(); err != nil {
		executeFatalMeter.Mark(1)
		return nil, err
	}
	outcome.GasUsed, outcome.GasRefunded = meter.Finalize(rules.RefundQuotient)

	executeStatusMeter(outcome.Status).Mark(1)
	log.Debug("Executed message", "from", msg.From, "to", msg.To, "status", outcome.Status,
		"gas", outcome.GasUsed, "refund", outcome.GasRefunded, "err", outcome.Err)
	return outcome, nil
}

// Inspect is Execute with tracing hooks installed.
func Inspect(msg *Message, env Environment, db state.Database, cfg vm.Config, hooks *vm.Hooks) (*ExecutionOutcome, error) {
	cfg.Tracer = hooks
	return Execute(msg, env, db, cfg)
}

// CommitDatabase is a state backend that also accepts change sets.
type CommitDatabase interface {
	state.Database
	state.DatabaseCommit
}

// ExecuteAndCommit executes msg and writes the changes of a successful
// execution into db.
func ExecuteAndCommit(msg *Message, env Environment, db CommitDatabase, cfg vm.Config) (*ExecutionOutcome, error) {
	outcome, err := Execute(msg, env, db, cfg)
	if err != nil {
		return nil, err
	}
	if outcome.Changes != nil {
		if err := db.Commit(outcome.Changes); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
	}
	return outcome, nil
}

func newCallRequest(msg *Message) *vm.CallRequest {
	req := &vm.CallRequest{
		Kind:   vm.KindCall,
		Caller: msg.From,
		Value:  msg.Value,
		Input:  msg.Data,
		Gas:    msg.GasLimit,
	}
	switch {
	case msg.To != nil:
		req.Address, req.CodeAddress = *msg.To, *msg.To
	case msg.Salt != nil:
		req.Kind, req.Salt = vm.KindCreate2, msg.Salt
	default:
		req.Kind = vm.KindCreate
	}
	return req
}
