// Copyright 2015 The go-ethereum Authors
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
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/params"
)

func opAdd(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	y.Add(&x, y)
	return nil, nil
}

func opSub(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	y.Sub(&x, y)
	return nil, nil
}

func opMul(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	y.Mul(&x, y)
	return nil, nil
}

func opDiv(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	y.Div(&x, y)
	return nil, nil
}

func opSdiv(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	y.SDiv(&x, y)
	return nil, nil
}

func opMod(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	y.Mod(&x, y)
	return nil, nil
}

func opSmod(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	y.SMod(&x, y)
	return nil, nil
}

func opExp(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	base, exponent := frame.Stack.pop(), frame.Stack.peek()
	exponent.Exp(&base, exponent)
	return nil, nil
}

func opSignExtend(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	back, num := frame.Stack.pop(), frame.Stack.peek()
	num.ExtendSign(num, &back)
	return nil, nil
}

func opNot(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x := frame.Stack.peek()
	x.Not(x)
	return nil, nil
}

func opLt(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opGt(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSlt(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSgt(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opEq(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opIszero(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x := frame.Stack.peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil, nil
}

func opAnd(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	y.And(&x, y)
	return nil, nil
}

func opOr(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	y.Or(&x, y)
	return nil, nil
}

func opXor(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.peek()
	y.Xor(&x, y)
	return nil, nil
}

func opByte(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	th, val := frame.Stack.pop(), frame.Stack.peek()
	val.Byte(&th)
	return nil, nil
}

func opAddmod(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.pop()
	z := frame.Stack.peek()
	z.AddMod(&x, &y, z)
	return nil, nil
}

func opMulmod(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x, y := frame.Stack.pop(), frame.Stack.pop()
	z := frame.Stack.peek()
	z.MulMod(&x, &y, z)
	return nil, nil
}

// opSHL implements Shift Left
// The SHL instruction (shift left) pops 2 values from the stack, first arg1 and then arg2,
// and pushes on the stack arg2 shifted to the left by arg1 number of bits.
func opSHL(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	// Note, second operand is left in the stack; accumulate result into it, and no need to push it afterwards
	shift, value := frame.Stack.pop(), frame.Stack.peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

// opSHR implements Logical Shift Right
// The SHR instruction (logical shift right) pops 2 values from the stack, first arg1 and then arg2,
// and pushes on the stack arg2 shifted to the right by arg1 number of bits with zero fill.
func opSHR(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	shift, value := frame.Stack.pop(), frame.Stack.peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

// opSAR implements Arithmetic Shift Right
// The SAR instruction (arithmetic shift right) pops 2 values from the stack, first arg1 and then arg2,
// and pushes on the stack arg2 shifted to the right by arg1 number of bits with sign extension.
func opSAR(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	shift, value := frame.Stack.pop(), frame.Stack.peek()
	if shift.GtUint64(256) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			// Max negative shift: all bits set
			value.SetAllOne()
		}
		return nil, nil
	}
	n := uint(shift.Uint64())
	value.SRsh(value, n)
	return nil, nil
}

func opKeccak256(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	offset, size := frame.Stack.pop(), frame.Stack.peek()
	data := frame.Memory.GetPtr(offset.Uint64(), size.Uint64())

	interpreter.hasher.Reset()
	interpreter.hasher.Write(data)
	interpreter.hasher.Read(interpreter.hasherBuf[:])

	size.SetBytes(interpreter.hasherBuf[:])
	return nil, nil
}

func opAddress(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetBytes(frame.address.Bytes()))
	return nil, nil
}

func opBalance(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	slot := frame.Stack.peek()
	address := common.Address(slot.Bytes20())
	slot.Set(interpreter.evm.StateDB.GetBalance(address))
	return nil, nil
}

func opOrigin(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetBytes(interpreter.evm.Origin.Bytes()))
	return nil, nil
}

func opCaller(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetBytes(frame.caller.Bytes()))
	return nil, nil
}

func opCallValue(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(frame.value)
	return nil, nil
}

func opCallDataLoad(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	x := frame.Stack.peek()
	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		data := getData(frame.input, offset, 32)
		x.SetBytes(data)
	} else {
		x.Clear()
	}
	return nil, nil
}

func opCallDataSize(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetUint64(uint64(len(frame.input))))
	return nil, nil
}

func opCallDataCopy(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	var (
		memOffset  = frame.Stack.pop()
		dataOffset = frame.Stack.pop()
		length     = frame.Stack.pop()
	)
	dataOffset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOffset64 = math.MaxUint64
	}
	// These values are checked for overflow during gas cost calculation
	memOffset64 := memOffset.Uint64()
	length64 := length.Uint64()
	frame.Memory.Set(memOffset64, length64, getData(frame.input, dataOffset64, length64))
	return nil, nil
}

func opReturnDataSize(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetUint64(uint64(len(frame.returnData))))
	return nil, nil
}

func opReturnDataCopy(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	var (
		memOffset  = frame.Stack.pop()
		dataOffset = frame.Stack.pop()
		length     = frame.Stack.pop()
	)
	offset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return nil, ErrReturnDataOutOfBounds
	}
	// we can reuse dataOffset now (aliasing it for clarity)
	var end = dataOffset
	end.Add(&dataOffset, &length)
	end64, overflow := end.Uint64WithOverflow()
	if overflow || uint64(len(frame.returnData)) < end64 {
		return nil, ErrReturnDataOutOfBounds
	}
	frame.Memory.Set(memOffset.Uint64(), length.Uint64(), frame.returnData[offset64:end64])
	return nil, nil
}

func opExtCodeSize(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	slot := frame.Stack.peek()
	slot.SetUint64(uint64(interpreter.evm.StateDB.GetCodeSize(slot.Bytes20())))
	return nil, nil
}

func opCodeSize(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetUint64(uint64(frame.code.Len())))
	return nil, nil
}

func opCodeCopy(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	var (
		memOffset  = frame.Stack.pop()
		codeOffset = frame.Stack.pop()
		length     = frame.Stack.pop()
	)
	uint64CodeOffset, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		uint64CodeOffset = math.MaxUint64
	}
	codeCopy := getData(frame.code.Code(), uint64CodeOffset, length.Uint64())
	frame.Memory.Set(memOffset.Uint64(), length.Uint64(), codeCopy)
	return nil, nil
}

func opExtCodeCopy(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	var (
		stack      = frame.Stack
		a          = stack.pop()
		memOffset  = stack.pop()
		codeOffset = stack.pop()
		length     = stack.pop()
	)
	uint64CodeOffset, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		uint64CodeOffset = math.MaxUint64
	}
	addr := common.Address(a.Bytes20())
	codeCopy := getData(interpreter.evm.StateDB.GetCode(addr), uint64CodeOffset, length.Uint64())
	frame.Memory.Set(memOffset.Uint64(), length.Uint64(), codeCopy)
	return nil, nil
}

// opExtCodeHash returns the code hash of a specified account.
// There are several cases when the function is called, while we can relay everything
// to `state.GetCodeHash` function to ensure the correctness.
//
//  1. Caller tries to get the code hash of a normal contract account, state
//     should return the relative code hash and set it as the result.
//
//  2. Caller tries to get the code hash of a non-existent account, state should
//     return common.Hash{} and zero will be set as the result.
//
//  3. Caller tries to get the code hash for an account without contract code, state
//     should return emptyCodeHash(0xc5d246...) as the result.
//
//  4. Caller tries to get the code hash of a precompiled account, the result should be
//     zero or emptyCodeHash.
//
// It is worth noting that in order to avoid unnecessary create and clean, all precompile
// accounts on mainnet have been transferred 1 wei, so the return here should be
// emptyCodeHash. If the precompile account is not transferred any amount on a private or
// customized chain, the return value will be zero.
//
//  5. Caller tries to get the code hash for an account which is marked as self-destructed
//     in the current transaction, the code hash of this account should be returned.
//
//  6. Caller tries to get the code hash for an account which is marked as deleted, this
//     account should be regarded as a non-existent account and zero should be returned.
func opExtCodeHash(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	slot := frame.Stack.peek()
	address := common.Address(slot.Bytes20())
	if interpreter.evm.StateDB.Empty(address) {
		slot.Clear()
	} else {
		slot.SetBytes(interpreter.evm.StateDB.GetCodeHash(address).Bytes())
	}
	return nil, nil
}

func opGasprice(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(interpreter.evm.GasPrice)
	return nil, nil
}

func opBlockhash(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	num := frame.Stack.peek()
	num64, overflow := num.Uint64WithOverflow()
	if overflow {
		num.Clear()
		return nil, nil
	}
	var upper, lower uint64
	upper = interpreter.evm.Context.BlockNumber
	if upper < 257 {
		lower = 0
	} else {
		lower = upper - 256
	}
	if num64 >= lower && num64 < upper {
		num.SetBytes(interpreter.evm.Context.GetHash(num64).Bytes())
	} else {
		num.Clear()
	}
	return nil, nil
}

func opCoinbase(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetBytes(interpreter.evm.Context.Coinbase.Bytes()))
	return nil, nil
}

func opTimestamp(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetUint64(interpreter.evm.Context.Time))
	return nil, nil
}

func opNumber(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetUint64(interpreter.evm.Context.BlockNumber))
	return nil, nil
}

func opDifficulty(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(interpreter.evm.Context.Difficulty)
	return nil, nil
}

func opRandom(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	v := new(uint256.Int)
	if random := interpreter.evm.Context.Random; random != nil {
		v.SetBytes(random.Bytes())
	}
	frame.Stack.push(v)
	return nil, nil
}

func opGasLimit(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetUint64(interpreter.evm.Context.GasLimit))
	return nil, nil
}

func opPop(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.pop()
	return nil, nil
}

func opMload(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	v := frame.Stack.peek()
	offset := v.Uint64()
	v.SetBytes(frame.Memory.GetPtr(offset, 32))
	return nil, nil
}

func opMstore(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	mStart, val := frame.Stack.pop(), frame.Stack.pop()
	frame.Memory.Set32(mStart.Uint64(), &val)
	return nil, nil
}

func opMstore8(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	off, val := frame.Stack.pop(), frame.Stack.pop()
	frame.Memory.store[off.Uint64()] = byte(val.Uint64())
	return nil, nil
}

func opSload(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	loc := frame.Stack.peek()
	hash := common.Hash(loc.Bytes32())
	val := interpreter.evm.StateDB.GetState(frame.address, hash)
	loc.SetBytes(val.Bytes())
	return nil, nil
}

func opSstore(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	if frame.readOnly {
		return nil, ErrWriteProtection
	}
	loc, val := frame.Stack.pop(), frame.Stack.pop()
	interpreter.evm.StateDB.SetState(frame.address, loc.Bytes32(), val.Bytes32())
	return nil, nil
}

func opJump(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	pos := frame.Stack.pop()
	if !frame.code.validJumpdest(&pos) {
		return nil, ErrInvalidJump
	}
	*pc = pos.Uint64() - 1 // pc will be increased by the interpreter loop
	return nil, nil
}

func opJumpi(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	pos, cond := frame.Stack.pop(), frame.Stack.pop()
	if !cond.IsZero() {
		if !frame.code.validJumpdest(&pos) {
			return nil, ErrInvalidJump
		}
		*pc = pos.Uint64() - 1 // pc will be increased by the interpreter loop
	}
	return nil, nil
}

func opJumpdest(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	return nil, nil
}

func opPc(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetUint64(*pc))
	return nil, nil
}

func opMsize(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetUint64(uint64(frame.Memory.Len())))
	return nil, nil
}

func opGas(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	frame.Stack.push(new(uint256.Int).SetUint64(frame.Gas.Remaining()))
	return nil, nil
}

// forwardedCreateGas withholds the retained share of the remaining gas and
// charges the rest to the frame.
func forwardedCreateGas(interpreter *EVMInterpreter, frame *Frame) uint64 {
	gas := frame.Gas.Remaining()
	if d := interpreter.evm.chainRules.CallGasRetainDivisor; d != 0 {
		gas -= gas / d
	}
	frame.Gas.Charge(gas)
	return gas
}

func opCreate(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	if frame.readOnly {
		return nil, ErrWriteProtection
	}
	var (
		value  = frame.Stack.pop()
		offset = frame.Stack.pop()
		size   = frame.Stack.pop()
		input  = frame.Memory.GetCopy(offset.Uint64(), size.Uint64())
		gas    = forwardedCreateGas(interpreter, frame)
	)
	return nil, frame.suspend(&CallRequest{
		Kind:   KindCreate,
		Caller: frame.address,
		Value:  &value,
		Input:  input,
		Gas:    gas,
	}, 0, 0)
}

func opCreate2(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	if frame.readOnly {
		return nil, ErrWriteProtection
	}
	var (
		endowment = frame.Stack.pop()
		offset    = frame.Stack.pop()
		size      = frame.Stack.pop()
		salt      = frame.Stack.pop()
		input     = frame.Memory.GetCopy(offset.Uint64(), size.Uint64())
		gas       = forwardedCreateGas(interpreter, frame)
	)
	return nil, frame.suspend(&CallRequest{
		Kind:   KindCreate2,
		Caller: frame.address,
		Value:  &endowment,
		Input:  input,
		Gas:    gas,
		Salt:   &salt,
	}, 0, 0)
}

func opCall(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	stack := frame.Stack
	// Pop gas. The actual gas in interpreter.evm.callGasTemp.
	stack.pop()
	gas := interpreter.evm.callGasTemp
	// Pop other call parameters.
	addr, value, inOffset, inSize, retOffset, retSize := stack.pop(), stack.pop(), stack.pop(), stack.pop(), stack.pop(), stack.pop()
	toAddr := common.Address(addr.Bytes20())

	if frame.readOnly && !value.IsZero() {
		return nil, ErrWriteProtection
	}
	if !value.IsZero() {
		gas += params.CallStipend
	}
	return nil, frame.suspend(&CallRequest{
		Kind:        KindCall,
		Caller:      frame.address,
		Address:     toAddr,
		CodeAddress: toAddr,
		Value:       &value,
		Input:       frame.Memory.GetPtr(inOffset.Uint64(), inSize.Uint64()),
		Gas:         gas,
		ReadOnly:    frame.readOnly,
	}, retOffset.Uint64(), retSize.Uint64())
}

func opCallCode(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	stack := frame.Stack
	// The actual gas was computed by the dynamic gas function.
	stack.pop()
	gas := interpreter.evm.callGasTemp
	addr, value, inOffset, inSize, retOffset, retSize := stack.pop(), stack.pop(), stack.pop(), stack.pop(), stack.pop(), stack.pop()
	toAddr := common.Address(addr.Bytes20())

	if !value.IsZero() {
		gas += params.CallStipend
	}
	return nil, frame.suspend(&CallRequest{
		Kind:        KindCallCode,
		Caller:      frame.address,
		Address:     frame.address,
		CodeAddress: toAddr,
		Value:       &value,
		Input:       frame.Memory.GetPtr(inOffset.Uint64(), inSize.Uint64()),
		Gas:         gas,
		ReadOnly:    frame.readOnly,
	}, retOffset.Uint64(), retSize.Uint64())
}

func opDelegateCall(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	stack := frame.Stack
	stack.pop()
	gas := interpreter.evm.callGasTemp
	addr, inOffset, inSize, retOffset, retSize := stack.pop(), stack.pop(), stack.pop(), stack.pop(), stack.pop()
	toAddr := common.Address(addr.Bytes20())

	// The callee keeps the caller and value of the current frame.
	return nil, frame.suspend(&CallRequest{
		Kind:        KindDelegateCall,
		Caller:      frame.caller,
		Address:     frame.address,
		CodeAddress: toAddr,
		Value:       frame.value,
		Input:       frame.Memory.GetPtr(inOffset.Uint64(), inSize.Uint64()),
		Gas:         gas,
		ReadOnly:    frame.readOnly,
	}, retOffset.Uint64(), retSize.Uint64())
}

func opStaticCall(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	stack := frame.Stack
	stack.pop()
	gas := interpreter.evm.callGasTemp
	addr, inOffset, inSize, retOffset, retSize := stack.pop(), stack.pop(), stack.pop(), stack.pop(), stack.pop()
	toAddr := common.Address(addr.Bytes20())

	return nil, frame.suspend(&CallRequest{
		Kind:        KindStaticCall,
		Caller:      frame.address,
		Address:     toAddr,
		CodeAddress: toAddr,
		Value:       new(uint256.Int),
		Input:       frame.Memory.GetPtr(inOffset.Uint64(), inSize.Uint64()),
		Gas:         gas,
		ReadOnly:    true,
	}, retOffset.Uint64(), retSize.Uint64())
}

func opReturn(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	offset, size := frame.Stack.pop(), frame.Stack.pop()
	ret := frame.Memory.GetCopy(offset.Uint64(), size.Uint64())
	return ret, errStopToken
}

func opRevert(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	offset, size := frame.Stack.pop(), frame.Stack.pop()
	ret := frame.Memory.GetCopy(offset.Uint64(), size.Uint64())
	return ret, ErrExecutionReverted
}

func opUndefined(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	return nil, &ErrInvalidOpCode{opcode: frame.code.GetOp(*pc)}
}

func opStop(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	return nil, errStopToken
}

func opSelfdestruct(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	if frame.readOnly {
		return nil, ErrWriteProtection
	}
	beneficiary := frame.Stack.pop()
	balance := interpreter.evm.StateDB.GetBalance(frame.address)
	interpreter.evm.StateDB.AddBalance(beneficiary.Bytes20(), balance)
	interpreter.evm.StateDB.SelfDestruct(frame.address)
	interpreter.evm.traceSelfdestruct(frame, beneficiary.Bytes20(), balance)
	return nil, errStopToken
}

func opSelfdestruct6780(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	if frame.readOnly {
		return nil, ErrWriteProtection
	}
	beneficiary := frame.Stack.pop()
	balance := interpreter.evm.StateDB.GetBalance(frame.address)
	interpreter.evm.StateDB.SubBalance(frame.address, balance)
	interpreter.evm.StateDB.AddBalance(beneficiary.Bytes20(), balance)
	interpreter.evm.StateDB.Selfdestruct6780(frame.address)
	interpreter.evm.traceSelfdestruct(frame, beneficiary.Bytes20(), balance)
	return nil, errStopToken
}

// following functions are used by the instruction jump table

// make log instruction function
func makeLog(size int) executionFunc {
	return func(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
		if frame.readOnly {
			return nil, ErrWriteProtection
		}
		topics := make([]common.Hash, size)
		stack := frame.Stack
		mStart, mSize := stack.pop(), stack.pop()
		for i := 0; i < size; i++ {
			addr := stack.pop()
			topics[i] = addr.Bytes32()
		}

		d := frame.Memory.GetCopy(mStart.Uint64(), mSize.Uint64())
		interpreter.evm.StateDB.AddLog(&types.Log{
			Address: frame.address,
			Topics:  topics,
			Data:    d,
			// This is a non-consensus field, but assigned here because
			// core/state doesn't know the current block number.
			BlockNumber: interpreter.evm.Context.BlockNumber,
		})
		return nil, nil
	}
}

// opPush1 is a specialized version of pushN
func opPush1(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
	var (
		codeLen = uint64(frame.code.Len())
		integer = new(uint256.Int)
	)
	*pc += 1
	if *pc < codeLen {
		frame.Stack.push(integer.SetUint64(uint64(frame.code.code[*pc])))
	} else {
		frame.Stack.push(integer.Clear())
	}
	return nil, nil
}

// make push instruction function
func makePush(size uint64, pushByteSize int) executionFunc {
	return func(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
		var (
			codeLen = len(frame.code.code)
			start   = min(codeLen, int(*pc+1))
			end     = min(codeLen, start+pushByteSize)
		)
		a := new(uint256.Int).SetBytes(frame.code.code[start:end])

		// Missing bytes: pushByteSize - len(pushData)
		if missing := pushByteSize - (end - start); missing > 0 {
			a.Lsh(a, uint(8*missing))
		}
		frame.Stack.push(a)
		*pc += size
		return nil, nil
	}
}

// make dup instruction function
func makeDup(size int64) executionFunc {
	return func(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
		frame.Stack.dup(int(size))
		return nil, nil
	}
}

// make swap instruction function
func makeSwap(size int64) executionFunc {
	return func(pc *uint64, interpreter *EVMInterpreter, frame *Frame) ([]byte, error) {
		frame.Stack.swap(int(size))
		return nil, nil
	}
}
