// Copyright 2025 The go-ethereum Authors
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

import "github.com/rezbera/revm/params"

func minSwapStack(n int) int {
	return minStack(n, n)
}
func maxSwapStack(n int) int {
	return maxStack(n, n)
}

func minDupStack(n int) int {
	return minStack(n, n+1)
}
func maxDupStack(n int) int {
	return maxStack(n, n+1)
}

func maxStack(pop, push int) int {
	return int(params.StackLimit) + pop - push
}
func minStack(pops, push int) int {
	return pops
}

// OpStackCounts returns the number of values popped from and pushed to the
// stack by op in the given table. Undefined instructions report zero.
func OpStackCounts(jt *JumpTable, op OpCode) (pops int, pushes int) {
	entry := jt[op]
	if entry == nil || entry.undefined {
		return 0, 0
	}
	// minStack stores the required pops. maxStack = StackLimit + pops - pushes.
	pops = entry.minStack
	pushes = pops + int(params.StackLimit) - entry.maxStack
	if pushes < 0 {
		pushes = 0
	}
	return
}

// NextStackSize computes the stack height after executing op, given the
// height before execution.
func NextStackSize(jt *JumpTable, op OpCode, before int) int {
	pops, pushes := OpStackCounts(jt, op)
	return before - pops + pushes
}
