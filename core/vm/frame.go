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
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CallKind enumerates the ways a frame can be entered.
type CallKind uint8

const (
	KindCall CallKind = iota
	KindCallCode
	KindDelegateCall
	KindStaticCall
	KindCreate
	KindCreate2
)

func (k CallKind) String() string {
	return k.OpCode().String()
}

// OpCode returns the instruction that opens a frame of this kind.
func (k CallKind) OpCode() OpCode {
	switch k {
	case KindCallCode:
		return CALLCODE
	case KindDelegateCall:
		return DELEGATECALL
	case KindStaticCall:
		return STATICCALL
	case KindCreate:
		return CREATE
	case KindCreate2:
		return CREATE2
	}
	return CALL
}

// IsCreate reports whether the kind deploys a contract.
func (k CallKind) IsCreate() bool { return k == KindCreate || k == KindCreate2 }

// CallRequest describes a frame to be opened by the dispatcher. Top level
// calls and the CALL/CREATE family of instructions all produce one.
type CallRequest struct {
	Kind        CallKind
	Caller      common.Address // msg.sender seen by the callee
	Address     common.Address // account whose balance and storage the callee uses, unset for creates
	CodeAddress common.Address // account whose code is executed
	Value       *uint256.Int
	Input       []byte // call data, or the init code of a create
	Gas         uint64
	Salt        *uint256.Int // CREATE2 only
	ReadOnly    bool
}

// Result is the outcome of a finished frame as seen by whoever opened it.
type Result struct {
	Ret     []byte
	GasLeft uint64
	Refund  int64 // refund counter, only meaningful when Err is nil
	Err     error
	Address common.Address // deployed contract, creates only
}

// Frame is the state of one activation of the interpreter: operand stack,
// memory, gas, program counter and the code being run. Frames live on the
// dispatcher's explicit stack and are suspended while a sub-call runs.
type Frame struct {
	kind        CallKind
	caller      common.Address
	address     common.Address
	codeAddress common.Address
	value       *uint256.Int
	input       []byte
	code        *Bytecode

	Gas    GasMeter
	Stack  *Stack
	Memory *Memory

	readOnly   bool
	depth      int
	pc         uint64
	returnData []byte // output of the last finished sub-call
	checkpoint int

	// sub-call queued by a CALL or CREATE instruction
	pending            *CallRequest
	retOffset, retSize uint64
}

var framePool = sync.Pool{
	New: func() any {
		return &Frame{}
	},
}

// newFrame returns a frame from the pool set up to run code for req.
func newFrame(req *CallRequest, code *Bytecode, depth, checkpoint int) *Frame {
	f := framePool.Get().(*Frame)
	*f = Frame{
		kind:        req.Kind,
		caller:      req.Caller,
		address:     req.Address,
		codeAddress: req.CodeAddress,
		value:       req.Value,
		input:       req.Input,
		code:        code,
		Gas:         NewGasMeter(req.Gas),
		Stack:       newstack(),
		Memory:      NewMemory(),
		readOnly:    req.ReadOnly,
		depth:       depth,
		checkpoint:  checkpoint,
	}
	if req.Kind.IsCreate() {
		f.input = nil
	}
	return f
}

// releaseFrame hands the frame and its stack and memory back to the pools.
func releaseFrame(f *Frame) {
	if f == nil {
		return
	}
	returnStack(f.Stack)
	f.Memory.Free()
	*f = Frame{}
	framePool.Put(f)
}

// suspend queues a sub-call. The caller's output window is remembered so
// the result can be copied back when the frame resumes.
func (f *Frame) suspend(req *CallRequest, retOffset, retSize uint64) error {
	f.pending = req
	f.retOffset, f.retSize = retOffset, retSize
	return errSuspendToken
}

// resume delivers the result of the queued sub-call: the success flag or
// created address goes on the stack, unused gas is handed back and the
// return data buffer is replaced.
func (f *Frame) resume(req *CallRequest, res *Result, isHomestead bool) {
	var flag uint256.Int
	if req.Kind.IsCreate() {
		// Only a genuine code store failure before Homestead leaves the
		// address in place.
		if res.Err == nil || (!isHomestead && res.Err == ErrCodeStoreOutOfGas) {
			flag.SetBytes(res.Address.Bytes())
		}
		if res.Err == ErrExecutionReverted {
			f.returnData = res.Ret
		} else {
			f.returnData = nil
		}
	} else {
		if res.Err == nil {
			flag.SetOne()
		}
		if res.Err == nil || res.Err == ErrExecutionReverted {
			f.Memory.Set(f.retOffset, f.retSize, res.Ret)
		}
		f.returnData = res.Ret
	}
	f.Stack.push(&flag)
	f.Gas.Return(res.GasLeft)
	if res.Err == nil || (req.Kind.IsCreate() && !isHomestead && res.Err == ErrCodeStoreOutOfGas) {
		f.Gas.MergeRefund(res.Refund)
	}
	f.pending = nil
}

// Kind returns how the frame was entered.
func (f *Frame) Kind() CallKind { return f.kind }

// Caller returns the msg.sender of the frame.
func (f *Frame) Caller() common.Address { return f.caller }

// Address returns the account the frame executes on behalf of.
func (f *Frame) Address() common.Address { return f.address }

// CodeAddress returns the account the running code was loaded from.
func (f *Frame) CodeAddress() common.Address { return f.codeAddress }

// CallValue returns the value supplied with this call.
func (f *Frame) CallValue() *uint256.Int { return f.value }

// CallInput returns the call data. Callers must not modify it.
func (f *Frame) CallInput() []byte { return f.input }

// ContractCode returns the code being executed.
func (f *Frame) ContractCode() []byte { return f.code.Code() }

// Depth returns the call depth, zero for the top level frame.
func (f *Frame) Depth() int { return f.depth }

// PC returns the program counter.
func (f *Frame) PC() uint64 { return f.pc }

// ReadOnly reports whether state modifications are forbidden.
func (f *Frame) ReadOnly() bool { return f.readOnly }

// MemoryData returns the underlying memory slice. Callers must not modify the contents
// of the returned data.
func (f *Frame) MemoryData() []byte {
	if f.Memory == nil {
		return nil
	}
	return f.Memory.Data()
}

// StackData returns the stack data. Callers must not modify the contents
// of the returned data.
func (f *Frame) StackData() []uint256.Int {
	if f.Stack == nil {
		return nil
	}
	return f.Stack.Data()
}

// RefundCounter returns the frame's accumulated gas refund.
func (f *Frame) RefundCounter() int64 { return f.Gas.RefundCounter() }
