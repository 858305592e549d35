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

package utils

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/rezbera/revm/core/rawdb"
	"github.com/rezbera/revm/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newContext(t *testing.T, flags []cli.Flag, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestSetLogConfig(t *testing.T) {
	cfg := log.Config{Verbosity: 3, File: "from-config.log"}
	ctx := newContext(t, LoggingFlags, "--verbosity", "5", "--log.json")
	SetLogConfig(ctx, &cfg)

	assert.Equal(t, 5, cfg.Verbosity)
	assert.True(t, cfg.JSON)
	assert.Equal(t, "from-config.log", cfg.File, "unset flags keep the configured value")
}

func TestSetDatabaseConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := rawdb.KVDBConfig{DBType: rawdb.DBLeveldb, Cache: 16}
	ctx := newContext(t, DatabaseFlags, "--datadir", dir, "--db.engine", rawdb.DBPebble)
	SetDatabaseConfig(ctx, &cfg)

	assert.Equal(t, rawdb.DBPebble, cfg.DBType)
	assert.Equal(t, filepath.Join(dir, "state"), cfg.DBPath)
	assert.Equal(t, 16, cfg.Cache)
	assert.Positive(t, cfg.Handles)
}
