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

package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/params"
)

// EVM is the Ethereum Virtual Machine base object and provides
// the necessary tools to run a contract on the given state with
// the provided context. It should be noted that any error
// generated through any of the calls should be considered a
// revert-state-and-consume-all-gas operation, no checks on
// specific errors should ever be performed. The interpreter makes
// sure that any errors generated are to be considered faulty code.
//
// Nested calls do not recurse on the Go stack: every CALL or CREATE
// suspends the running frame and pushes a new one onto the EVM's frame
// stack. The EVM should never be reused and is not thread safe.
type EVM struct {
	// Context provides auxiliary blockchain related information
	Context BlockContext
	TxContext
	// StateDB gives access to the underlying state
	StateDB StateDB

	// chainConfig contains information about the current chain
	chainConfig *params.ChainConfig
	// chain rules contains the chain rules for the current epoch
	chainRules params.Rules
	// virtual machine configuration options used to initialise the
	// evm.
	Config Config
	// global (to this context) ethereum virtual machine
	// used throughout the execution of the tx.
	interpreter *EVMInterpreter
	precompiles PrecompiledContracts
	codeCache   *BytecodeCache
	// callGasTemp holds the gas available for the current call. This is needed because the
	// available gas is calculated in gasCall* according to the 63/64 rule and later
	// applied in opCall*.
	callGasTemp uint64
	// frames is the explicit call stack, the running frame last.
	frames []*Frame
}

// NewEVM returns a new EVM. The returned EVM is not thread safe and should
// only ever be used *once*.
func NewEVM(blockCtx BlockContext, txCtx TxContext, statedb StateDB, chainConfig *params.ChainConfig, config Config) *EVM {
	if blockCtx.Difficulty == nil {
		blockCtx.Difficulty = new(uint256.Int)
	}
	if blockCtx.BaseFee == nil {
		blockCtx.BaseFee = new(uint256.Int)
	}
	if blockCtx.BlobBaseFee == nil {
		blockCtx.BlobBaseFee = new(uint256.Int)
	}
	if txCtx.GasPrice == nil {
		txCtx.GasPrice = new(uint256.Int)
	}
	// If basefee tracking is disabled (eth_call, eth_estimateGas, etc), and no
	// gas prices were specified, lower the basefee to 0 to avoid breaking EVM
	// invariants (basefee < feecap)
	if config.NoBaseFee {
		if txCtx.GasPrice.IsZero() {
			blockCtx.BaseFee = new(uint256.Int)
		}
		if txCtx.BlobFeeCap != nil && txCtx.BlobFeeCap.IsZero() {
			blockCtx.BlobBaseFee = new(uint256.Int)
		}
	}
	evm := &EVM{
		Context:     blockCtx,
		TxContext:   txCtx,
		StateDB:     statedb,
		Config:      config,
		chainConfig: chainConfig,
		chainRules:  chainConfig.Rules(new(big.Int).SetUint64(blockCtx.BlockNumber), blockCtx.Random != nil, blockCtx.Time),
		codeCache:   config.CodeCache,
	}
	if evm.codeCache == nil {
		evm.codeCache = defaultBytecodeCache
	}
	evm.precompiles = activePrecompiledContracts(evm.chainRules)
	evm.interpreter = NewEVMInterpreter(evm)
	return evm
}

// SetPrecompiles sets the precompiled contracts for the EVM.
// This method is only used through RPC calls.
// It is not thread-safe.
func (evm *EVM) SetPrecompiles(precompiles PrecompiledContracts) {
	evm.precompiles = precompiles
}

// ChainConfig returns the environment's chain configuration
func (evm *EVM) ChainConfig() *params.ChainConfig { return evm.chainConfig }

// Rules returns the rules of the block being executed.
func (evm *EVM) Rules() params.Rules { return evm.chainRules }

// Interpreter returns the current interpreter
func (evm *EVM) Interpreter() *EVMInterpreter { return evm.interpreter }

func (evm *EVM) precompile(addr common.Address) (PrecompiledContract, bool) {
	p, ok := evm.precompiles[addr]
	return p, ok
}

// Call executes the contract associated with the addr with the given input as
// parameters. It also handles any necessary value transfer required and takes
// the necessary steps to create accounts and reverses the state in case of an
// execution error or failed value transfer.
func (evm *EVM) Call(caller common.Address, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	res := evm.Run(&CallRequest{
		Kind:        KindCall,
		Caller:      caller,
		Address:     addr,
		CodeAddress: addr,
		Value:       value,
		Input:       input,
		Gas:         gas,
	})
	return res.Ret, res.GasLeft, res.Err
}

// CallCode executes the contract associated with the addr with the given input
// as parameters. It also handles any necessary value transfer required and takes
// the necessary steps to create accounts and reverses the state in case of an
// execution error or failed value transfer.
//
// CallCode differs from Call in the sense that it executes the given address'
// code with the caller as context.
func (evm *EVM) CallCode(caller common.Address, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	res := evm.Run(&CallRequest{
		Kind:        KindCallCode,
		Caller:      caller,
		Address:     caller,
		CodeAddress: addr,
		Value:       value,
		Input:       input,
		Gas:         gas,
	})
	return res.Ret, res.GasLeft, res.Err
}

// DelegateCall executes the contract associated with the addr with the given input
// as parameters. It reverses the state in case of an execution error.
//
// DelegateCall differs from CallCode in the sense that it executes the given address'
// code with the caller as context and the caller is set to the caller of the caller.
func (evm *EVM) DelegateCall(originCaller common.Address, caller common.Address, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	res := evm.Run(&CallRequest{
		Kind:        KindDelegateCall,
		Caller:      originCaller,
		Address:     caller,
		CodeAddress: addr,
		Value:       value,
		Input:       input,
		Gas:         gas,
	})
	return res.Ret, res.GasLeft, res.Err
}

// StaticCall executes the contract associated with the addr with the given input
// as parameters while disallowing any modifications to the state during the call.
// Opcodes that attempt to perform such modifications will result in exceptions
// instead of performing the modifications.
func (evm *EVM) StaticCall(caller common.Address, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	res := evm.Run(&CallRequest{
		Kind:        KindStaticCall,
		Caller:      caller,
		Address:     addr,
		CodeAddress: addr,
		Input:       input,
		Gas:         gas,
		ReadOnly:    true,
	})
	return res.Ret, res.GasLeft, res.Err
}

// Create creates a new contract using code as deployment code.
func (evm *EVM) Create(caller common.Address, code []byte, gas uint64, value *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	res := evm.Run(&CallRequest{
		Kind:   KindCreate,
		Caller: caller,
		Value:  value,
		Input:  code,
		Gas:    gas,
	})
	return res.Ret, res.Address, res.GasLeft, res.Err
}

// Create2 creates a new contract using code as deployment code.
//
// The different between Create2 with Create is Create2 uses keccak256(0xff ++ msg.sender ++ salt ++ keccak256(init_code))[12:]
// instead of the usual sender-and-nonce-hash as the address where the contract is initialized at.
func (evm *EVM) Create2(caller common.Address, code []byte, gas uint64, endowment *uint256.Int, salt *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	res := evm.Run(&CallRequest{
		Kind:   KindCreate2,
		Caller: caller,
		Value:  endowment,
		Input:  code,
		Gas:    gas,
		Salt:   salt,
	})
	return res.Ret, res.Address, res.GasLeft, res.Err
}

// Run executes req as the outermost frame, at depth zero, and drives the
// frame stack until it is empty. Sub-calls queued by the interpreter are
// opened, run and delivered back to their parent here.
//
// A fatal error reverts every open checkpoint and is returned as the
// result's error with no gas left.
func (evm *EVM) Run(req *CallRequest) Result {
	var (
		isHomestead = evm.chainRules.IsHomestead
		res, frame  = evm.enter(req, 0)
	)
	if frame == nil {
		if err := evm.fatal(res.Err); err != nil {
			return Result{Err: err}
		}
		return res
	}
	evm.frames = append(evm.frames[:0], frame)
	for len(evm.frames) > 0 {
		top := evm.frames[len(evm.frames)-1]
		ret, err := evm.interpreter.Run(top)
		if err == errSuspendToken {
			child, childFrame := evm.enter(top.pending, top.depth+1)
			if err := evm.fatal(child.Err); err != nil {
				releaseFrame(childFrame)
				return evm.unwind(err)
			}
			if childFrame != nil {
				evm.frames = append(evm.frames, childFrame)
				continue
			}
			top.resume(top.pending, &child, isHomestead)
			continue
		}
		if IsFatal(err) {
			return evm.unwind(err)
		}
		res = evm.exit(top, ret, err)
		if err := evm.fatal(res.Err); err != nil {
			return evm.unwind(err)
		}
		evm.frames = evm.frames[:len(evm.frames)-1]
		releaseFrame(top)

		if len(evm.frames) == 0 {
			break
		}
		parent := evm.frames[len(evm.frames)-1]
		parent.resume(parent.pending, &res, isHomestead)
	}
	return res
}

// fatal returns the error that aborts the execution, if any: either err
// itself or a failure recorded by the state backend.
func (evm *EVM) fatal(err error) error {
	if IsFatal(err) {
		return err
	}
	if dbErr := evm.StateDB.Error(); dbErr != nil {
		return &fatalError{err: dbErr}
	}
	return nil
}

// unwind abandons every open frame after a fatal error.
func (evm *EVM) unwind(err error) Result {
	if len(evm.frames) > 0 {
		evm.StateDB.RevertToCheckpoint(evm.frames[0].checkpoint)
	}
	for _, f := range evm.frames {
		releaseFrame(f)
	}
	evm.frames = evm.frames[:0]
	return Result{Err: err}
}

// enter opens the frame requested by req. Requests that finish without
// running any code (failed checks, precompiles, accounts without code)
// return their result directly and a nil frame.
func (evm *EVM) enter(req *CallRequest, depth int) (Result, *Frame) {
	if req.Value == nil {
		req.Value = new(uint256.Int)
	}
	if req.Kind.IsCreate() {
		return evm.enterCreate(req, depth)
	}
	evm.captureBegin(depth, req.Kind.OpCode(), req.Caller, req.Address, req.Input, req.Gas, req.Value)

	// Fail if we're trying to execute above the call depth limit
	if depth > int(params.CallCreateDepth) {
		return evm.finish(depth, req, Result{GasLeft: req.Gas, Err: ErrDepth}), nil
	}
	// Fail if we're trying to transfer more than the available balance
	if (req.Kind == KindCall || req.Kind == KindCallCode) && !req.Value.IsZero() && !evm.Context.CanTransfer(evm.StateDB, req.Caller, req.Value) {
		return evm.finish(depth, req, Result{GasLeft: req.Gas, Err: ErrInsufficientBalance}), nil
	}
	frameEnterCounter.Inc(1)

	snapshot := evm.StateDB.Checkpoint()
	p, isPrecompile := evm.precompile(req.CodeAddress)

	switch req.Kind {
	case KindCall:
		if !evm.StateDB.Exist(req.Address) {
			if !isPrecompile && evm.chainRules.IsEIP158 && req.Value.IsZero() {
				// Calling a non-existing account, don't do anything.
				evm.StateDB.CommitCheckpoint(snapshot)
				return evm.finish(depth, req, Result{GasLeft: req.Gas}), nil
			}
			evm.StateDB.CreateAccount(req.Address)
		}
		evm.Context.Transfer(evm.StateDB, req.Caller, req.Address, req.Value)
	case KindStaticCall:
		// We do an AddBalance of zero here, just in order to trigger a touch.
		// This doesn't matter on Mainnet, where all empties are gone at the time of Byzantium,
		// but is the correct thing to do and matters on other networks, in tests, and potential
		// future scenarios
		evm.StateDB.AddBalance(req.Address, new(uint256.Int))
	}
	if isPrecompile {
		precompileCounter.Inc(1)
		ret, gasLeft, err := RunPrecompiledContract(p, req.Input, req.Gas)
		return evm.settle(depth, req, snapshot, Result{Ret: ret, GasLeft: gasLeft, Err: err}), nil
	}
	// Initialise a new frame and set the code that is to be used by the EVM.
	code, err := evm.loadCode(req.CodeAddress)
	if err != nil {
		evm.StateDB.RevertToCheckpoint(snapshot)
		return Result{Err: err}, nil
	}
	if code == nil || code.Len() == 0 {
		evm.StateDB.CommitCheckpoint(snapshot)
		return evm.finish(depth, req, Result{GasLeft: req.Gas}), nil
	}
	return Result{}, newFrame(req, code, depth, snapshot)
}

// enterCreate opens a contract creation frame running req.Input as init code.
func (evm *EVM) enterCreate(req *CallRequest, depth int) (Result, *Frame) {
	nonce := evm.StateDB.GetNonce(req.Caller)
	switch req.Kind {
	case KindCreate:
		req.Address = crypto.CreateAddress(req.Caller, nonce)
	case KindCreate2:
		if req.Salt == nil {
			req.Salt = new(uint256.Int)
		}
		inithash := crypto.Keccak256Hash(req.Input)
		req.Address = crypto.CreateAddress2(req.Caller, req.Salt.Bytes32(), inithash[:])
	}
	req.CodeAddress = req.Address
	evm.captureBegin(depth, req.Kind.OpCode(), req.Caller, req.Address, req.Input, req.Gas, req.Value)

	// Depth check execution. Fail if we're trying to execute above the
	// limit.
	if depth > int(params.CallCreateDepth) {
		return evm.finish(depth, req, Result{GasLeft: req.Gas, Err: ErrDepth}), nil
	}
	if !evm.Context.CanTransfer(evm.StateDB, req.Caller, req.Value) {
		return evm.finish(depth, req, Result{GasLeft: req.Gas, Err: ErrInsufficientBalance}), nil
	}
	if nonce+1 < nonce {
		return evm.finish(depth, req, Result{GasLeft: req.Gas, Err: ErrNonceUintOverflow}), nil
	}
	frameEnterCounter.Inc(1)
	evm.StateDB.SetNonce(req.Caller, nonce+1)

	// We add this to the access list _before_ taking a snapshot. Even if the
	// creation fails, the access-list change should not be rolled back.
	if evm.chainRules.IsEIP2929 {
		evm.StateDB.AddAddressToAccessList(req.Address)
	}
	// Ensure there's no existing contract already at the designated address.
	contractHash := evm.StateDB.GetCodeHash(req.Address)
	if evm.StateDB.GetNonce(req.Address) != 0 || (contractHash != (common.Hash{}) && contractHash != types.EmptyCodeHash) {
		return evm.finish(depth, req, Result{Err: ErrContractAddressCollision}), nil
	}
	// Create a new account on the state only if the object was not present.
	// It might be possible the contract code is deployed to a pre-existent
	// account with non-zero balance.
	snapshot := evm.StateDB.Checkpoint()
	if !evm.StateDB.Exist(req.Address) {
		evm.StateDB.CreateAccount(req.Address)
	}
	// CreateContract means that regardless of whether the account previously existed
	// in the state trie or not, it _now_ becomes created as a _contract_ account.
	// This is performed _prior_ to executing the initcode, since the initcode
	// acts inside that account.
	evm.StateDB.CreateContract(req.Address)

	if evm.chainRules.IsEIP158 {
		evm.StateDB.SetNonce(req.Address, 1)
	}
	evm.Context.Transfer(evm.StateDB, req.Caller, req.Address, req.Value)

	if len(req.Input) == 0 {
		res := Result{Address: req.Address, GasLeft: req.Gas}
		evm.StateDB.CommitCheckpoint(snapshot)
		return evm.finish(depth, req, res), nil
	}
	// Init code is analysed on its own and never cached.
	return Result{}, newFrame(req, newLegacyBytecode(req.Input, common.Hash{}), depth, snapshot)
}

// exit closes a frame whose interpreter loop finished, deploying the
// returned code for creates, and settles its checkpoint.
func (evm *EVM) exit(frame *Frame, ret []byte, err error) Result {
	res := Result{Ret: ret, Err: err}
	if frame.kind.IsCreate() {
		res.Address = frame.address
		if err == nil {
			res.Err = evm.deployCode(frame, ret)
		}
	}
	if res.Err != nil && (evm.chainRules.IsHomestead || res.Err != ErrCodeStoreOutOfGas) {
		evm.StateDB.RevertToCheckpoint(frame.checkpoint)
		if res.Err != ErrExecutionReverted {
			frame.Gas.ConsumeAll()
			frameFailCounter.Inc(1)
		} else {
			frameRevertCounter.Inc(1)
		}
	} else {
		evm.StateDB.CommitCheckpoint(frame.checkpoint)
	}
	res.GasLeft = frame.Gas.Remaining()
	res.Refund = frame.Gas.RefundCounter()
	evm.captureEnd(frame.depth, frame.Gas.Limit(), res.GasLeft, res.Ret, res.Err)
	return res
}

// deployCode validates the code returned by init code and stores it,
// charging the per byte deposit.
func (evm *EVM) deployCode(frame *Frame, ret []byte) error {
	// Check whether the max code size has been exceeded, assign err if the case.
	if evm.chainRules.IsEIP158 && len(ret) > params.MaxCodeSize {
		return ErrMaxCodeSizeExceeded
	}
	// Reject code starting with 0xEF if EIP-3541 is enabled.
	if len(ret) >= 1 && ret[0] == 0xEF && evm.chainRules.IsLondon {
		return ErrInvalidCode
	}
	createDataGas := uint64(len(ret)) * params.CreateDataGas
	if frame.Gas.Remaining() < createDataGas {
		return ErrCodeStoreOutOfGas
	}
	frame.Gas.Charge(createDataGas)
	evm.StateDB.SetCode(frame.address, ret)
	return nil
}

// settle closes the checkpoint of a request that ran without a frame.
func (evm *EVM) settle(depth int, req *CallRequest, snapshot int, res Result) Result {
	if res.Err != nil {
		evm.StateDB.RevertToCheckpoint(snapshot)
		if res.Err != ErrExecutionReverted {
			res.GasLeft = 0
		}
	} else {
		evm.StateDB.CommitCheckpoint(snapshot)
	}
	return evm.finish(depth, req, res)
}

// finish reports a request that completed without running a frame.
func (evm *EVM) finish(depth int, req *CallRequest, res Result) Result {
	evm.captureEnd(depth, req.Gas, res.GasLeft, res.Ret, res.Err)
	return res
}

// loadCode returns the analysed code run when addr is called, following an
// EIP-7702 delegation designator one level.
func (evm *EVM) loadCode(addr common.Address) (*Bytecode, error) {
	code, err := evm.bytecode(addr)
	if err != nil || code == nil {
		return code, err
	}
	if target, ok := code.Delegation(); ok && evm.chainRules.IsPrague {
		return evm.bytecode(target)
	}
	return code, nil
}

func (evm *EVM) bytecode(addr common.Address) (*Bytecode, error) {
	hash := evm.StateDB.GetCodeHash(addr)
	if hash == (common.Hash{}) || hash == types.EmptyCodeHash {
		return nil, nil
	}
	code, err := evm.codeCache.GetOrLoad(hash, func() ([]byte, error) {
		return evm.StateDB.GetCode(addr), evm.StateDB.Error()
	})
	if err != nil {
		return nil, &fatalError{err: err}
	}
	return code, nil
}

func (evm *EVM) captureBegin(depth int, op OpCode, from common.Address, to common.Address, input []byte, startGas uint64, value *uint256.Int) {
	if tracer := evm.Config.Tracer; tracer != nil && tracer.OnEnter != nil {
		tracer.OnEnter(depth, byte(op), from, to, input, startGas, value)
	}
}

func (evm *EVM) captureEnd(depth int, startGas uint64, leftOverGas uint64, ret []byte, err error) {
	tracer := evm.Config.Tracer
	if tracer == nil || tracer.OnExit == nil {
		return
	}
	var reverted bool
	if err != nil {
		reverted = true
	}
	if !evm.chainRules.IsHomestead && err == ErrCodeStoreOutOfGas {
		reverted = false
	}
	tracer.OnExit(depth, ret, startGas-leftOverGas, VMErrorFromErr(err), reverted)
}

// traceSelfdestruct reports the balance moved by SELFDESTRUCT as a
// zero-gas sub-call.
func (evm *EVM) traceSelfdestruct(frame *Frame, beneficiary common.Address, balance *uint256.Int) {
	tracer := evm.Config.Tracer
	if tracer == nil {
		return
	}
	if tracer.OnEnter != nil {
		tracer.OnEnter(frame.depth+1, byte(SELFDESTRUCT), frame.address, beneficiary, []byte{}, 0, balance)
	}
	if tracer.OnExit != nil {
		tracer.OnExit(frame.depth+1, []byte{}, 0, nil, false)
	}
}
