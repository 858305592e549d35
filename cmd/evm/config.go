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
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"unicode"

	"github.com/naoina/toml"
	"github.com/rezbera/revm/cmd/utils"
	"github.com/rezbera/revm/core/rawdb"
	"github.com/rezbera/revm/log"
	"github.com/rezbera/revm/params"
	"github.com/urfave/cli/v2"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		id := fmt.Sprintf("%s.%s", rt.String(), field)
		if deprecated(id) {
			log.Warn("Config field is deprecated and won't have an effect", "name", id)
			return nil
		}
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

var dumpConfigCommand = &cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Export configuration values in a TOML format",
	ArgsUsage:   "<dumpfile (optional)>",
	Flags:       append([]cli.Flag{chainFlag}, append(utils.DatabaseFlags, utils.LoggingFlags...)...),
	Description: `Export configuration values in TOML format (to stdout by default).`,
}

// ExecutionConfig tunes the engine independently of the chain rules.
type ExecutionConfig struct {
	GasLimit      uint64 // gas of messages that don't set one
	CodeCacheSize int    // analysed contracts kept in memory
	Workers       int    // goroutines used by batch execution, 0 uses the shared pool
}

type evmConfig struct {
	Chain     string            // preset name, see chainPresets
	GasPolicy *params.GasPolicy `toml:",omitempty"`
	Database  rawdb.KVDBConfig
	Log       log.Config
	Execution ExecutionConfig
}

var defaultConfig = evmConfig{
	Chain:    "merged",
	Database: rawdb.KVDBConfig{DBType: rawdb.DBMemory, Cache: 64},
	Log:      log.Config{Verbosity: 3, BufferSize: 4096},
	Execution: ExecutionConfig{
		GasLimit:      10_000_000_000,
		CodeCacheSize: 4096,
	},
}

var chainPresets = map[string]*params.ChainConfig{
	"mainnet": params.MainnetChainConfig,
	"london":  params.AllEthashProtocolChanges,
	"cancun":  params.TestChainConfig,
	"merged":  params.MergedTestChainConfig,
}

func deprecated(field string) bool {
	switch field {
	case "main.evmConfig.Metrics":
		return true
	default:
		return false
	}
}

func loadConfig(file string, cfg *evmConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies the command
// line flags on top of it.
func makeConfig(ctx *cli.Context) (evmConfig, error) {
	cfg := defaultConfig
	if file := ctx.String(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(chainFlag.Name) {
		cfg.Chain = ctx.String(chainFlag.Name)
	}
	utils.SetDatabaseConfig(ctx, &cfg.Database)
	utils.SetLogConfig(ctx, &cfg.Log)
	if err := cfg.Database.SanityCheck(); err != nil {
		return cfg, err
	}
	if _, err := cfg.chainConfig(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// chainConfig resolves the chain preset and applies the gas policy override.
func (c *evmConfig) chainConfig() (*params.ChainConfig, error) {
	preset, ok := chainPresets[strings.ToLower(c.Chain)]
	if !ok {
		return nil, fmt.Errorf("unknown chain preset %q", c.Chain)
	}
	if c.GasPolicy == nil {
		return preset, nil
	}
	chain := *preset
	policy := *c.GasPolicy
	chain.GasPolicy = &policy
	if err := chain.CheckConfigForkOrder(); err != nil {
		return nil, err
	}
	return &chain, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.WriteString("# Note: this config doesn't contain the prestate, which is passed with --prestate.\n\n")
	dump.Write(out)
	return nil
}
