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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rezbera/revm/log"
)

// Config are the configuration options for the Interpreter
type Config struct {
	Tracer    *Hooks
	NoBaseFee bool  // Forces the EIP-1559 baseFee to 0 (needed for 0 price calls)
	ExtraEips []int // Additional EIPS that are to be enabled

	// JumpTable overrides the instruction set selected from the chain rules.
	JumpTable *JumpTable
	// CodeCache holds analysed bytecode. A process wide cache is used when nil.
	CodeCache *BytecodeCache
}

// EVMInterpreter represents an EVM interpreter
type EVMInterpreter struct {
	evm   *EVM
	table *JumpTable

	hasher    crypto.KeccakState // Keccak256 hasher instance shared across opcodes
	hasherBuf common.Hash        // Keccak256 hasher result array shared across opcodes
}

// NewEVMInterpreter returns a new instance of the Interpreter.
func NewEVMInterpreter(evm *EVM) *EVMInterpreter {
	table := evm.Config.JumpTable
	if table == nil {
		table = instructionSetForRules(evm.chainRules)
	}
	if len(evm.Config.ExtraEips) > 0 {
		// Deep-copy jumptable to prevent modification of opcodes in other tables
		table = copyJumpTable(table)
		var extraEips []int
		for _, eip := range evm.Config.ExtraEips {
			if err := EnableEIP(eip, table); err != nil {
				// Disable it, so caller can check if it's activated or not
				log.Error("EIP activation failed", "eip", eip, "error", err)
			} else {
				extraEips = append(extraEips, eip)
			}
		}
		evm.Config.ExtraEips = extraEips
	}
	return &EVMInterpreter{evm: evm, table: table, hasher: crypto.NewKeccakState()}
}

// Run loops and evaluates the code of the frame, starting at the frame's
// program counter.
//
// It returns errSuspendToken when a CALL or CREATE instruction queued a
// sub-call; the frame can be run again once the sub-call's result has been
// delivered with resume. Any other error except ErrExecutionReverted means
// the frame failed and consumed all of its gas. A fatal error means the
// backing state can no longer be trusted.
func (in *EVMInterpreter) Run(frame *Frame) (ret []byte, err error) {
	// Don't bother with the execution if there's no code.
	if frame.code == nil || frame.code.Len() == 0 {
		return nil, nil
	}
	var (
		op    OpCode // current opcode
		mem   = frame.Memory
		stack = frame.Stack
		// For optimisation reason we're using uint64 as the program counter.
		// It's theoretically possible to go above 2^64. The YP defines the PC
		// to be uint256. Practically much less so feasible.
		pc   = frame.pc
		cost uint64
		// copies used by tracer
		pcCopy  uint64 // needed for the deferred EVMLogger
		gasCopy uint64 // for EVMLogger to log gas remaining before execution
		logged  bool   // deferred EVMLogger should ignore already logged steps
		res     []byte // result of the opcode execution function
		debug   = in.evm.Config.Tracer != nil
	)
	if debug {
		defer func() { // this deferred method handles exit-with-error
			if err == nil || err == errSuspendToken {
				return
			}
			if !logged && in.evm.Config.Tracer.OnOpcode != nil {
				in.evm.Config.Tracer.OnOpcode(pcCopy, byte(op), gasCopy, cost, frame, frame.returnData, frame.depth, VMErrorFromErr(err))
			}
			if logged && in.evm.Config.Tracer.OnFault != nil {
				in.evm.Config.Tracer.OnFault(pcCopy, byte(op), gasCopy, cost, frame, frame.depth, VMErrorFromErr(err))
			}
		}()
	}
	// The Interpreter main run loop (contextual). This loop runs until either an
	// explicit STOP, RETURN or SELFDESTRUCT is executed, an error occurred during
	// the execution of one of the operations, or a sub-call is queued.
	for {
		if debug {
			// Capture pre-execution values for tracing.
			logged, pcCopy, gasCopy = false, pc, frame.Gas.Remaining()
		}
		// Get the operation from the jump table and validate the stack to ensure there are
		// enough stack items available to perform the operation.
		op = frame.code.GetOp(pc)
		operation := in.table[op]
		cost = operation.constantGas // For tracing
		// Validate stack
		if sLen := stack.len(); sLen < operation.minStack {
			return nil, &ErrStackUnderflow{stackLen: sLen, required: operation.minStack}
		} else if sLen > operation.maxStack {
			return nil, &ErrStackOverflow{stackLen: sLen, limit: operation.maxStack}
		}
		if !frame.Gas.Charge(cost) {
			return nil, ErrOutOfGas
		}
		if operation.dynamicGas != nil {
			// All ops with a dynamic memory usage also has a dynamic gas cost.
			var memorySize uint64
			// calculate the new memory size and expand the memory to fit
			// the operation
			// Memory check needs to be done prior to evaluating the dynamic gas portion,
			// to detect calculation overflows
			if operation.memorySize != nil {
				memSize, overflow := operation.memorySize(stack)
				if overflow {
					return nil, ErrGasUintOverflow
				}
				// memory is expanded in words of 32 bytes. Gas
				// is also calculated in words.
				if memorySize, overflow = math.SafeMul(toWordSize(memSize), 32); overflow {
					return nil, ErrGasUintOverflow
				}
			}
			// Consume the gas and return an error if not enough gas is available.
			// cost is explicitly set so that the capture state defer method can get the proper cost
			var dynamicCost uint64
			dynamicCost, err = operation.dynamicGas(in.evm, frame, stack, mem, memorySize)
			cost += dynamicCost // for tracing
			if err != nil {
				if err == ErrWriteProtection {
					return nil, err
				}
				return nil, fmt.Errorf("%w: %v", ErrOutOfGas, err)
			}
			if !frame.Gas.Charge(dynamicCost) {
				return nil, ErrOutOfGas
			}
			// Do tracing before memory expansion
			if debug {
				if in.evm.Config.Tracer.OnOpcode != nil {
					in.evm.Config.Tracer.OnOpcode(pc, byte(op), gasCopy, cost, frame, frame.returnData, frame.depth, VMErrorFromErr(err))
					logged = true
				}
			}
			if memorySize > 0 {
				mem.Resize(memorySize)
			}
		} else if debug {
			if in.evm.Config.Tracer.OnOpcode != nil {
				in.evm.Config.Tracer.OnOpcode(pc, byte(op), gasCopy, cost, frame, frame.returnData, frame.depth, VMErrorFromErr(err))
				logged = true
			}
		}
		opcodeCounter.Inc(1)

		// execute the operation
		res, err = operation.execute(&pc, in, frame)
		if dbErr := in.evm.StateDB.Error(); dbErr != nil {
			return nil, &fatalError{err: dbErr}
		}
		if err != nil {
			break
		}
		pc++
	}
	switch err {
	case errStopToken:
		err = nil // clear stop token error
	case errSuspendToken:
		frame.pc = pc + 1
	}
	return res, err
}
