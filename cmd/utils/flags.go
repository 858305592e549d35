// Copyright 2015 The go-ethereum Authors
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

// Package utils contains helper functions shared by the engine commands.
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/rezbera/revm/core/rawdb"
	"github.com/rezbera/revm/log"
	"github.com/urfave/cli/v2"
)

const (
	LoggingCategory  = "LOGGING AND DEBUGGING"
	DatabaseCategory = "DATABASE"
)

var (
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	DataDirFlag = &cli.PathFlag{
		Name:     "datadir",
		Usage:    "Directory for the on-disk state database",
		Category: DatabaseCategory,
	}
	DBEngineFlag = &cli.StringFlag{
		Name:     "db.engine",
		Usage:    "Backing database implementation to use ('memory', 'pebble', 'leveldb' or 'bbolt')",
		Value:    rawdb.DBMemory,
		Category: DatabaseCategory,
	}
	CacheFlag = &cli.IntFlag{
		Name:     "cache",
		Usage:    "Megabytes of memory allocated to the state read cache",
		Value:    64,
		Category: DatabaseCategory,
	}
	FDLimitFlag = &cli.IntFlag{
		Name:     "fdlimit",
		Usage:    "Raise the open file descriptor resource limit (default = system fd limit)",
		Category: DatabaseCategory,
	}

	VerbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: LoggingCategory,
	}
	LogJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs with JSON",
		Category: LoggingCategory,
	}
	LogFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to a file",
		Category: LoggingCategory,
	}
	LogRotateHoursFlag = &cli.UintFlag{
		Name:     "log.rotate",
		Usage:    "Rotate the log file every given number of hours, 0 disables rotation",
		Category: LoggingCategory,
	}
)

// DatabaseFlags are the flags selecting the state backend.
var DatabaseFlags = []cli.Flag{
	DataDirFlag,
	DBEngineFlag,
	CacheFlag,
	FDLimitFlag,
}

// LoggingFlags are the flags configuring the root logger.
var LoggingFlags = []cli.Flag{
	VerbosityFlag,
	LogJSONFlag,
	LogFileFlag,
	LogRotateHoursFlag,
}

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// SetLogConfig applies the logging flags set on the command line to cfg.
func SetLogConfig(ctx *cli.Context, cfg *log.Config) {
	if ctx.IsSet(VerbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(VerbosityFlag.Name)
	}
	if ctx.IsSet(LogJSONFlag.Name) {
		cfg.JSON = ctx.Bool(LogJSONFlag.Name)
	}
	if ctx.IsSet(LogFileFlag.Name) {
		cfg.File = ctx.String(LogFileFlag.Name)
	}
	if ctx.IsSet(LogRotateHoursFlag.Name) {
		cfg.RotateHours = ctx.Uint(LogRotateHoursFlag.Name)
	}
}

// SetDatabaseConfig applies the database flags set on the command line to cfg.
func SetDatabaseConfig(ctx *cli.Context, cfg *rawdb.KVDBConfig) {
	if ctx.IsSet(DBEngineFlag.Name) {
		cfg.DBType = ctx.String(DBEngineFlag.Name)
	}
	if ctx.IsSet(DataDirFlag.Name) {
		cfg.DBPath = filepath.Join(ctx.Path(DataDirFlag.Name), "state")
	}
	if ctx.IsSet(CacheFlag.Name) {
		cfg.Cache = ctx.Int(CacheFlag.Name)
	}
	if cfg.DBType != "" && cfg.DBType != rawdb.DBMemory {
		cfg.Handles = MakeDatabaseHandles(ctx.Int(FDLimitFlag.Name))
	}
}

// MakeDatabaseHandles raises out the number of allowed file handles per process
// for the database and returns the allowance.
func MakeDatabaseHandles(max int) int {
	limit, err := fdlimit.Maximum()
	if err != nil {
		Fatalf("Failed to retrieve file descriptor allowance: %v", err)
	}
	switch {
	case max == 0:
		// User didn't specify a meaningful value, use system limits
	case max < 128:
		// User specified something unhealthy, just use system defaults
		log.Error("File descriptor limit invalid (<128)", "had", max, "updated", limit)
	case max > limit:
		// User requested more than the OS allows, notify that we can't allocate it
		log.Warn("Requested file descriptors denied by OS", "req", max, "limit", limit)
	default:
		// User limit is meaningful and within allowed range, use that
		limit = max
	}
	raised, err := fdlimit.Raise(uint64(limit))
	if err != nil {
		Fatalf("Failed to raise file descriptor allowance: %v", err)
	}
	return int(raised / 2)
}
