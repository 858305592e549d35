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

// evm executes EVM code snippets against a prestate.
package main

import (
	"os"

	"github.com/rezbera/revm/cmd/utils"
	"github.com/rezbera/revm/log"
	"github.com/urfave/cli/v2"
)

const traceCategory = "TRACING"

var (
	TraceFlag = &cli.BoolFlag{
		Name:     "trace",
		Usage:    "Enable tracing and output trace log.",
		Category: traceCategory,
	}
	TraceEnableMemoryFlag = &cli.BoolFlag{
		Name:     "trace.memory",
		Usage:    "Enable full memory dump in traces",
		Category: traceCategory,
	}
	TraceDisableStackFlag = &cli.BoolFlag{
		Name:     "trace.nostack",
		Usage:    "Disable stack output in traces",
		Category: traceCategory,
	}
	TraceEnableReturnDataFlag = &cli.BoolFlag{
		Name:     "trace.returndata",
		Usage:    "Enable return data output in traces",
		Category: traceCategory,
	}
	CodeFileFlag = &cli.StringFlag{
		Name:  "codefile",
		Usage: "File containing EVM code. If '-' is specified, code is read from stdin ",
	}
	InputFlag = &cli.StringFlag{
		Name:  "input",
		Usage: "Input for the EVM",
	}
	GasFlag = &cli.Uint64Flag{
		Name:  "gas",
		Usage: "Gas limit for the evm",
		Value: 10000000000,
	}
	ValueFlag = &cli.StringFlag{
		Name:  "value",
		Usage: "Value set for the evm",
		Value: "0",
	}
	SenderFlag = &cli.StringFlag{
		Name:  "sender",
		Usage: "The transaction origin",
		Value: "0x73656e646572",
	}
	ReceiverFlag = &cli.StringFlag{
		Name:  "receiver",
		Usage: "The transaction receiver (execution context)",
		Value: "0x7265636569766572",
	}
	CreateFlag = &cli.BoolFlag{
		Name:  "create",
		Usage: "Indicates the action should be create rather than call",
	}
	SaltFlag = &cli.StringFlag{
		Name:  "salt",
		Usage: "Hex salt switching --create to CREATE2 address derivation",
	}
	PrestateFlag = &cli.StringFlag{
		Name:  "prestate",
		Usage: "JSON file with prestate (accounts and block hashes)",
	}
	BlockNumberFlag = &cli.Uint64Flag{
		Name:  "block.number",
		Usage: "Number of the block the message executes in",
	}
	BlockTimeFlag = &cli.Uint64Flag{
		Name:  "block.time",
		Usage: "Timestamp of the block the message executes in",
	}
	CommitFlag = &cli.BoolFlag{
		Name:  "commit",
		Usage: "Write the state changes of a successful run to the database",
	}
	DumpFlag = &cli.BoolFlag{
		Name:  "dump",
		Usage: "Dumps the state after the run",
	}
	RepeatFlag = &cli.IntFlag{
		Name:  "repeat",
		Usage: "Execute the message this many times concurrently and report throughput",
	}
	chainFlag = &cli.StringFlag{
		Name:  "chain",
		Usage: "Chain rules preset ('mainnet', 'london', 'cancun' or 'merged')",
	}
)

var app = &cli.App{
	Name:      "evm",
	Usage:     "the evm command line interface",
	Copyright: "Copyright 2013-2024 The go-ethereum Authors",
	Flags: append([]cli.Flag{
		utils.ConfigFileFlag,
		chainFlag,
	}, append(utils.DatabaseFlags, utils.LoggingFlags...)...),
	Commands: []*cli.Command{
		runCommand,
		disasmCommand,
		dumpConfigCommand,
	},
	Before: setupLogging,
}

var closeLog = func() {}

func setupLogging(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	closeFn, err := log.Setup(cfg.Log)
	if err != nil {
		return err
	}
	closeLog = closeFn
	chain, _ := cfg.chainConfig()
	log.Debug("Loaded chain rules", "preset", cfg.Chain, "description", chain.Description())
	return nil
}

func main() {
	err := app.Run(os.Args)
	closeLog()
	if err != nil {
		utils.Fatalf("%v", err)
	}
}
