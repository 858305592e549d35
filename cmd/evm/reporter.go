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
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/rezbera/revm/core"
	"github.com/rezbera/revm/core/state"
)

var (
	statusOK   = color.New(color.FgGreen, color.Bold).SprintFunc()
	statusFail = color.New(color.FgRed, color.Bold).SprintFunc()
	statusWarn = color.New(color.FgYellow, color.Bold).SprintFunc()
)

func statusString(s core.Status) string {
	switch s {
	case core.StatusSuccess:
		return statusOK(s.String())
	case core.StatusRevert:
		return statusWarn(s.String())
	default:
		return statusFail(s.String())
	}
}

// reportOutcome prints the result of a single execution.
func reportOutcome(w io.Writer, outcome *core.ExecutionOutcome, elapsed time.Duration) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Append([]string{"status", statusString(outcome.Status)})
	if outcome.Err != nil {
		table.Append([]string{"error", outcome.Err.Error()})
	}
	table.Append([]string{"gas used", fmt.Sprint(outcome.GasUsed)})
	table.Append([]string{"gas refunded", fmt.Sprint(outcome.GasRefunded)})
	if outcome.ContractAddress != (common.Address{}) {
		table.Append([]string{"contract", outcome.ContractAddress.Hex()})
	}
	table.Append([]string{"output", fmt.Sprintf("%#x", outcome.ReturnData)})
	table.Append([]string{"logs", fmt.Sprint(len(outcome.Logs))})
	table.Append([]string{"execution time", elapsed.String()})
	table.Render()
}

// reportChanges prints the account and storage writes of a change set.
func reportChanges(w io.Writer, changes *state.ChangeSet) {
	if changes == nil || len(changes.Accounts) == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Address", "Nonce", "Balance", "Code", "Slot", "Value"})
	table.SetAutoMergeCells(true)
	table.SetRowLine(true)
	for _, change := range changes.Accounts {
		addr := change.Address.Hex()
		if change.Deleted {
			table.Append([]string{addr, "-", "-", "deleted", "", ""})
			continue
		}
		code := "-"
		if change.Code != nil {
			code = fmt.Sprintf("%d bytes", len(change.Code))
		}
		row := []string{addr, fmt.Sprint(change.Account.Nonce), change.Account.Balance.Dec(), code}
		if len(change.Storage) == 0 {
			table.Append(append(row, "", ""))
			continue
		}
		slots := make([]common.Hash, 0, len(change.Storage))
		for slot := range change.Storage {
			slots = append(slots, slot)
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i].Big().Cmp(slots[j].Big()) < 0 })
		for _, slot := range slots {
			value := change.Storage[slot]
			table.Append(append(row, slot.Hex(), value.Hex()))
		}
	}
	table.Render()
}

// reportBatch summarises repeated executions of the same message.
func reportBatch(w io.Writer, outcomes []*core.ExecutionOutcome, elapsed time.Duration) {
	counts := make(map[core.Status]int)
	var gas uint64
	for _, outcome := range outcomes {
		counts[outcome.Status]++
		gas += outcome.GasUsed
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Status", "Count"})
	for _, status := range []core.Status{core.StatusSuccess, core.StatusRevert, core.StatusHalt} {
		if n := counts[status]; n > 0 {
			table.Append([]string{statusString(status), fmt.Sprint(n)})
		}
	}
	per := elapsed
	if len(outcomes) > 0 {
		per = elapsed / time.Duration(len(outcomes))
	}
	table.SetFooter([]string{"total", fmt.Sprintf("%d runs, %d gas, %v (%v/run)", len(outcomes), gas, elapsed, per)})
	table.Render()
}
