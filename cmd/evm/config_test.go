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
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/rezbera/revm/core/rawdb"
	"github.com/rezbera/revm/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.toml", `
Chain = "cancun"

[GasPolicy]
RefundQuotient = 4

[Database]
DBType = "pebble"
DBPath = "/tmp/state"

[Execution]
GasLimit = 100
Workers = 8
`)
	cfg := defaultConfig
	require.NoError(t, loadConfig(path, &cfg))

	assert.Equal(t, "cancun", cfg.Chain)
	assert.Equal(t, rawdb.DBPebble, cfg.Database.DBType)
	assert.Equal(t, uint64(100), cfg.Execution.GasLimit)
	assert.Equal(t, 8, cfg.Execution.Workers)
	assert.Equal(t, defaultConfig.Execution.CodeCacheSize, cfg.Execution.CodeCacheSize)
	assert.Equal(t, defaultConfig.Log.Verbosity, cfg.Log.Verbosity)

	chain, err := cfg.chainConfig()
	require.NoError(t, err)
	require.NotNil(t, chain.GasPolicy)
	require.NotNil(t, chain.GasPolicy.RefundQuotient)
	assert.Equal(t, uint64(4), *chain.GasPolicy.RefundQuotient)
	assert.Nil(t, chain.GasPolicy.CallGasRetainDivisor)
	assert.Nil(t, params.TestChainConfig.GasPolicy, "presets must not be modified")
}

func TestLoadConfigUnknownField(t *testing.T) {
	path := writeFile(t, "config.toml", "[Execution]\nThreads = 4\n")
	cfg := defaultConfig
	err := loadConfig(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Threads")
	assert.Contains(t, err.Error(), path)
}

func TestChainPresets(t *testing.T) {
	for name, want := range chainPresets {
		cfg := evmConfig{Chain: name}
		chain, err := cfg.chainConfig()
		require.NoError(t, err, name)
		assert.Same(t, want, chain)
	}
	_, err := (&evmConfig{Chain: "ropsten"}).chainConfig()
	assert.Error(t, err)

	_, err = (&evmConfig{Chain: "merged", GasPolicy: &params.GasPolicy{CallGasRetainDivisor: newUint64(1)}}).chainConfig()
	assert.Error(t, err)
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := defaultConfig
	cfg.GasPolicy = &params.GasPolicy{RefundQuotient: newUint64(3)}
	out, err := tomlSettings.Marshal(&cfg)
	require.NoError(t, err)

	var loaded evmConfig
	require.NoError(t, loadConfig(writeFile(t, "dump.toml", string(out)), &loaded))
	assert.Equal(t, cfg, loaded)
}

func newUint64(v uint64) *uint64 { return &v }

func TestGasPolicyExplicitZero(t *testing.T) {
	path := writeFile(t, "config.toml", "Chain = \"merged\"\n\n[GasPolicy]\nCallGasRetainDivisor = 0\n")
	cfg := defaultConfig
	require.NoError(t, loadConfig(path, &cfg))

	chain, err := cfg.chainConfig()
	require.NoError(t, err)
	require.NotNil(t, chain.GasPolicy.CallGasRetainDivisor)
	assert.Zero(t, *chain.GasPolicy.CallGasRetainDivisor)

	rules := chain.Rules(new(big.Int), true, 0)
	assert.Zero(t, rules.CallGasRetainDivisor)
	assert.Equal(t, params.RefundQuotientEIP3529, rules.RefundQuotient)
}
