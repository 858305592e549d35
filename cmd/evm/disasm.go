// Copyright 2024 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rezbera/revm/core/vm"
	"github.com/urfave/cli/v2"
)

var disasmCommand = &cli.Command{
	Action:    disasmCmd,
	Name:      "disasm",
	Usage:     "Disassembles evm binary",
	ArgsUsage: "<file>",
}

// errIncompletePush is returned when a push runs past the end of the code.
var errIncompletePush = errors.New("incomplete push instruction")

// disassemble writes one line per instruction. Legacy code is decoded from
// position zero, delegation designators and EOF containers are reported by
// kind only.
func disassemble(w io.Writer, code []byte) error {
	unit, err := vm.NewBytecode(code)
	if err != nil {
		return err
	}
	switch unit.Kind() {
	case vm.DelegationCode:
		target, _ := unit.Delegation()
		fmt.Fprintf(w, "delegation to %s\n", target.Hex())
		return nil
	case vm.EOFCode:
		c := unit.Container()
		fmt.Fprintf(w, "EOF container: %d code sections, %d subcontainers, %d data bytes\n", len(c.Code), len(c.Containers), len(c.Data))
		return nil
	}
	for pc := 0; pc < len(code); pc++ {
		op := vm.OpCode(code[pc])
		if !op.IsPush() || op == vm.PUSH0 {
			fmt.Fprintf(w, "%05x: %v\n", pc, op)
			continue
		}
		n := int(op-vm.PUSH1) + 1
		if pc+n >= len(code) {
			fmt.Fprintf(w, "%05x: %v %#x\n", pc, op, code[pc+1:])
			return errIncompletePush
		}
		fmt.Fprintf(w, "%05x: %v %#x\n", pc, op, code[pc+1:pc+1+n])
		pc += n
	}
	return nil
}

func disasmCmd(ctx *cli.Context) error {
	var in string
	switch {
	case len(ctx.Args().First()) > 0:
		in = ctx.Args().First()
	case ctx.IsSet(InputFlag.Name):
		in = ctx.String(InputFlag.Name)
	default:
		return errors.New("missing filename or --input value")
	}
	data, err := os.ReadFile(in)
	if err != nil {
		// Allow the code to be given directly.
		data = []byte(in)
	}
	code, err := decodeHex(string(data))
	if err != nil {
		return err
	}
	return disassemble(os.Stdout, code)
}
