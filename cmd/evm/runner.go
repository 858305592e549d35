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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rezbera/revm/common/gopool"
	"github.com/rezbera/revm/core"
	"github.com/rezbera/revm/core/rawdb"
	"github.com/rezbera/revm/core/state"
	"github.com/rezbera/revm/core/types"
	"github.com/rezbera/revm/core/vm"
	"github.com/rezbera/revm/log"
	"github.com/urfave/cli/v2"
)

var runCommand = &cli.Command{
	Action:      runCmd,
	Name:        "run",
	Usage:       "Run arbitrary evm binary",
	ArgsUsage:   "<code>",
	Description: `The run command runs arbitrary EVM code.`,
	Flags: []cli.Flag{
		CodeFileFlag,
		InputFlag,
		GasFlag,
		ValueFlag,
		SenderFlag,
		ReceiverFlag,
		CreateFlag,
		SaltFlag,
		PrestateFlag,
		BlockNumberFlag,
		BlockTimeFlag,
		CommitFlag,
		DumpFlag,
		RepeatFlag,
		TraceFlag,
		TraceEnableMemoryFlag,
		TraceDisableStackFlag,
		TraceEnableReturnDataFlag,
	},
}

// readCode returns the bytecode given as argument or read from --codefile.
func readCode(ctx *cli.Context) ([]byte, error) {
	var hexcode []byte
	switch {
	case ctx.Args().Present():
		hexcode = []byte(ctx.Args().First())
	case ctx.String(CodeFileFlag.Name) == "-":
		var err error
		if hexcode, err = io.ReadAll(os.Stdin); err != nil {
			return nil, fmt.Errorf("could not load code from stdin: %v", err)
		}
	case ctx.String(CodeFileFlag.Name) != "":
		var err error
		if hexcode, err = os.ReadFile(ctx.String(CodeFileFlag.Name)); err != nil {
			return nil, fmt.Errorf("could not load code from file: %v", err)
		}
	default:
		return nil, nil
	}
	return decodeHex(string(hexcode))
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

// backend is the opened state database of a run.
type backend struct {
	db     core.CommitDatabase
	hashes blockHashWriter
	memory *state.MemoryDB // set for the in-memory engine
	close  func() error
}

func openBackend(cfg rawdb.KVDBConfig) (*backend, error) {
	if cfg.DBType == "" || cfg.DBType == rawdb.DBMemory {
		mem := state.NewMemoryDB()
		return &backend{db: mem, hashes: memoryHashWriter{mem}, memory: mem, close: func() error { return nil }}, nil
	}
	disk, err := rawdb.Open(cfg)
	if err != nil {
		return nil, err
	}
	kv := state.NewKVDatabase(disk)
	return &backend{db: kv, hashes: kv, close: disk.Close}, nil
}

func runCmd(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	chain, err := cfg.chainConfig()
	if err != nil {
		return err
	}
	if ctx.Bool(CommitFlag.Name) && cfg.Database.ReadOnly {
		return errors.New("--commit needs a writable database")
	}
	code, err := readCode(ctx)
	if err != nil {
		return err
	}
	input, err := decodeHex(ctx.String(InputFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid input: %v", err)
	}
	value, err := uint256.FromDecimal(ctx.String(ValueFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid value: %v", err)
	}
	var (
		sender   = common.HexToAddress(ctx.String(SenderFlag.Name))
		receiver = common.HexToAddress(ctx.String(ReceiverFlag.Name))
		create   = ctx.Bool(CreateFlag.Name)
	)
	be, err := openBackend(cfg.Database)
	if err != nil {
		return err
	}
	defer be.close()

	if file := ctx.String(PrestateFlag.Name); file != "" {
		pre, err := loadPrestate(file)
		if err != nil {
			return err
		}
		if err := pre.apply(be.db, be.hashes); err != nil {
			return err
		}
	}
	msg := &core.Message{
		From:     sender,
		Value:    value,
		GasLimit: cfg.Execution.GasLimit,
		Data:     input,
	}
	if ctx.IsSet(GasFlag.Name) {
		msg.GasLimit = ctx.Uint64(GasFlag.Name)
	}
	switch {
	case create:
		msg.Data = append(code, input...)
		if ctx.IsSet(SaltFlag.Name) {
			salt, err := uint256.FromHex(ctx.String(SaltFlag.Name))
			if err != nil {
				return fmt.Errorf("invalid salt: %v", err)
			}
			msg.Salt = salt
		}
	case code != nil:
		if err := installCode(be.db, receiver, code); err != nil {
			return err
		}
		msg.To = &receiver
	default:
		msg.To = &receiver
	}
	env := core.Environment{
		ChainConfig: chain,
		Number:      ctx.Uint64(BlockNumberFlag.Name),
		Time:        ctx.Uint64(BlockTimeFlag.Name),
		GasLimit:    msg.GasLimit,
	}
	if chain.ShanghaiTime != nil && env.Time >= *chain.ShanghaiTime {
		env.Random = new(common.Hash)
	}
	db := state.NewCachingDB(be.db, cfg.Database.Cache)
	vmConfig := vm.Config{CodeCache: vm.NewBytecodeCache(cfg.Execution.CodeCacheSize)}

	if n := ctx.Int(RepeatFlag.Name); n > 1 {
		return runRepeated(n, cfg.Execution.Workers, msg, env, db, vmConfig)
	}
	var (
		outcome *core.ExecutionOutcome
		logger  *vm.StructLogger
		start   = time.Now()
	)
	switch {
	case ctx.Bool(TraceFlag.Name):
		logger = vm.NewStructLogger(&vm.LogConfig{
			EnableMemory:     ctx.Bool(TraceEnableMemoryFlag.Name),
			DisableStack:     ctx.Bool(TraceDisableStackFlag.Name),
			EnableReturnData: ctx.Bool(TraceEnableReturnDataFlag.Name),
		})
		outcome, err = core.Inspect(msg, env, db, vmConfig, logger.Hooks())
	case ctx.Bool(CommitFlag.Name):
		outcome, err = core.ExecuteAndCommit(msg, env, db, vmConfig)
	default:
		outcome, err = core.Execute(msg, env, db, vmConfig)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if logger != nil {
		vm.WriteTrace(os.Stderr, logger.StructLogs())
	}
	if len(outcome.Logs) > 0 {
		vm.WriteLogs(os.Stderr, outcome.Logs)
	}
	reportOutcome(os.Stdout, outcome, elapsed)
	reportChanges(os.Stdout, outcome.Changes)
	accounts, storage := db.UpdateStats()
	log.Debug("State cache", "account.hits", accounts.GetCalls-accounts.Misses, "account.misses", accounts.Misses,
		"storage.hits", storage.GetCalls-storage.Misses, "storage.misses", storage.Misses, "code", vmConfig.CodeCache.Len())

	if ctx.Bool(DumpFlag.Name) {
		if be.memory == nil {
			return errors.New("--dump is only available for the memory engine")
		}
		if outcome.Changes != nil && !ctx.Bool(CommitFlag.Name) {
			if err := be.memory.Commit(outcome.Changes); err != nil {
				return err
			}
		}
		post, err := dumpPrestate(be.memory)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(post, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return nil
}

// installCode deploys code at addr, keeping the balance and nonce the
// prestate gave the account.
func installCode(db core.CommitDatabase, addr common.Address, code []byte) error {
	acct, err := db.Basic(addr)
	if err != nil {
		return err
	}
	if acct == nil {
		acct = types.NewEmptyAccount()
	} else {
		acct = acct.Copy()
	}
	acct.CodeHash = crypto.Keccak256Hash(code)
	return db.Commit(&state.ChangeSet{Accounts: []*state.AccountChange{{
		Address: addr,
		Account: acct,
		Code:    code,
	}}})
}

// runRepeated executes n copies of msg concurrently against the same state
// and reports the throughput.
func runRepeated(n, workers int, msg *core.Message, env core.Environment, db state.Database, vmConfig vm.Config) error {
	var pool *gopool.Pool
	if workers > 0 {
		var err error
		if pool, err = gopool.NewPool(workers); err != nil {
			return err
		}
		defer pool.Release()
	}
	msgs := make([]*core.Message, n)
	for i := range msgs {
		msgs[i] = msg
	}
	start := time.Now()
	outcomes, err := core.ExecuteBatch(pool, msgs, env, db, vmConfig)
	if err != nil {
		return err
	}
	reportBatch(os.Stdout, outcomes, time.Since(start))
	return nil
}
