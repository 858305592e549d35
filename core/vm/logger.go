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
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/core/types"
)

// OpContext provides the context at which the opcode is being executed in,
// including the memory, stack and various contract-level information.
type OpContext interface {
	MemoryData() []byte
	StackData() []uint256.Int
	Caller() common.Address
	Address() common.Address
	CallValue() *uint256.Int
	CallInput() []byte
	ContractCode() []byte
	RefundCounter() int64
}

type (
	// EnterHook is invoked when the processing of a message starts.
	EnterHook = func(depth int, typ byte, from common.Address, to common.Address, input []byte, gas uint64, value *uint256.Int)

	// ExitHook is invoked when the processing of a message ends.
	// `revert` is true when there was an error during the execution.
	// Exceptionally, before the homestead hardfork a contract creation that
	// ran out of gas when attempting to persist the code to database did not
	// count as a call failure and did not cause a revert of the call.
	ExitHook = func(depth int, output []byte, gasUsed uint64, err error, reverted bool)

	// OpcodeHook is invoked just prior to the execution of an opcode.
	OpcodeHook = func(pc uint64, op byte, gas, cost uint64, scope OpContext, rData []byte, depth int, err error)

	// FaultHook is invoked when an error occurs during the execution of an opcode.
	FaultHook = func(pc uint64, op byte, gas, cost uint64, scope OpContext, depth int, err error)
)

// Hooks is the set of tracing callbacks the EVM invokes. Any of them may be nil.
type Hooks struct {
	OnEnter  EnterHook
	OnExit   ExitHook
	OnOpcode OpcodeHook
	OnFault  FaultHook
}

// LogConfig are the configuration options for structured logger the EVM
type LogConfig struct {
	EnableMemory     bool // enable memory capture
	DisableStack     bool // disable stack capture
	EnableReturnData bool // enable return data capture
	Limit            int  // maximum length of output, but zero means unlimited
}

// StructLog is emitted to the EVM each cycle and lists information about the current internal state
// prior to the execution of the statement.
type StructLog struct {
	Pc            uint64        `json:"pc"`
	Op            OpCode        `json:"op"`
	Gas           uint64        `json:"gas"`
	GasCost       uint64        `json:"gasCost"`
	Memory        []byte        `json:"memory,omitempty"`
	MemorySize    int           `json:"memSize"`
	Stack         []uint256.Int `json:"stack"`
	ReturnData    []byte        `json:"returnData,omitempty"`
	Depth         int           `json:"depth"`
	RefundCounter int64         `json:"refund"`
	Err           error         `json:"-"`
}

// OpName formats the operand name in a human-readable format.
func (s *StructLog) OpName() string {
	return s.Op.String()
}

// ErrorString formats the log's error as a string.
func (s *StructLog) ErrorString() string {
	if s.Err != nil {
		return s.Err.Error()
	}
	return ""
}

// StructLogger records every executed opcode. It is not safe for concurrent
// use and must be attached to a single execution.
type StructLogger struct {
	cfg LogConfig

	logs    []StructLog
	output  []byte
	err     error
	usedGas uint64
}

// NewStructLogger returns a new logger
func NewStructLogger(cfg *LogConfig) *StructLogger {
	logger := new(StructLogger)
	if cfg != nil {
		logger.cfg = *cfg
	}
	return logger
}

// Hooks returns the tracing hooks feeding the logger.
func (l *StructLogger) Hooks() *Hooks {
	return &Hooks{
		OnExit:   l.OnExit,
		OnOpcode: l.OnOpcode,
	}
}

// OnOpcode logs a new structured log message and pushes it out to the environment
func (l *StructLogger) OnOpcode(pc uint64, opcode byte, gas, cost uint64, scope OpContext, rData []byte, depth int, err error) {
	// check if already accumulated the specified number of logs
	if l.cfg.Limit != 0 && l.cfg.Limit <= len(l.logs) {
		return
	}
	var (
		memory    = scope.MemoryData()
		stackData = scope.StackData()
	)
	entry := StructLog{
		Pc:            pc,
		Op:            OpCode(opcode),
		Gas:           gas,
		GasCost:       cost,
		MemorySize:    len(memory),
		Depth:         depth,
		RefundCounter: scope.RefundCounter(),
		Err:           err,
	}
	if l.cfg.EnableMemory {
		entry.Memory = common.CopyBytes(memory)
	}
	if !l.cfg.DisableStack {
		entry.Stack = make([]uint256.Int, len(stackData))
		copy(entry.Stack, stackData)
	}
	if l.cfg.EnableReturnData {
		entry.ReturnData = common.CopyBytes(rData)
	}
	l.logs = append(l.logs, entry)
}

// OnExit is called a call frame finishes processing.
func (l *StructLogger) OnExit(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
	if depth != 0 {
		return
	}
	l.output = output
	l.err = err
	l.usedGas = gasUsed
}

// StructLogs returns the captured log entries.
func (l *StructLogger) StructLogs() []StructLog { return l.logs }

// Error returns the VM error captured by the trace.
func (l *StructLogger) Error() error { return l.err }

// Output returns the VM return value captured by the trace.
func (l *StructLogger) Output() []byte { return l.output }

// UsedGas returns the gas consumed by the outermost frame.
func (l *StructLogger) UsedGas() uint64 { return l.usedGas }

// WriteTrace writes a formatted trace to the given writer
func WriteTrace(writer io.Writer, logs []StructLog) {
	for _, log := range logs {
		fmt.Fprintf(writer, "%-16spc=%08d gas=%v cost=%v", log.Op, log.Pc, log.Gas, log.GasCost)
		if log.Err != nil {
			fmt.Fprintf(writer, " ERROR: %v", log.Err)
		}
		fmt.Fprintln(writer)

		if len(log.Stack) > 0 {
			fmt.Fprintln(writer, "Stack:")
			for i := len(log.Stack) - 1; i >= 0; i-- {
				fmt.Fprintf(writer, "%08d  %s\n", len(log.Stack)-i-1, log.Stack[i].Hex())
			}
		}
		if len(log.Memory) > 0 {
			fmt.Fprintln(writer, "Memory:")
			fmt.Fprint(writer, hex.Dump(log.Memory))
		}
		if len(log.ReturnData) > 0 {
			fmt.Fprintln(writer, "ReturnData:")
			fmt.Fprint(writer, hex.Dump(log.ReturnData))
		}
		fmt.Fprintln(writer)
	}
}

// WriteLogs writes vm logs in a readable format to the given writer
func WriteLogs(writer io.Writer, logs []*types.Log) {
	for _, log := range logs {
		fmt.Fprintf(writer, "LOG%d: %x bn=%d idx=%d\n", len(log.Topics), log.Address, log.BlockNumber, log.Index)

		for i, topic := range log.Topics {
			fmt.Fprintf(writer, "%08d  %x\n", i, topic)
		}

		fmt.Fprint(writer, hex.Dump(log.Data))
		fmt.Fprintln(writer)
	}
}
