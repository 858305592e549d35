// Copyright 2024 The go-ethereum Authors
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

package state

import "github.com/ethereum/go-ethereum/metrics"

var (
	accountLoadedMeter = metrics.NewRegisteredMeter("state/load/account", nil)
	storageLoadedMeter = metrics.NewRegisteredMeter("state/load/storage", nil)
	databaseErrorMeter = metrics.NewRegisteredMeter("state/load/error", nil)

	accountCacheHitMeter  = metrics.NewRegisteredMeter("state/cache/account/hit", nil)
	accountCacheMissMeter = metrics.NewRegisteredMeter("state/cache/account/miss", nil)
	storageCacheHitMeter  = metrics.NewRegisteredMeter("state/cache/storage/hit", nil)
	storageCacheMissMeter = metrics.NewRegisteredMeter("state/cache/storage/miss", nil)
	codeCacheHitMeter     = metrics.NewRegisteredMeter("state/cache/code/hit", nil)
	codeCacheMissMeter    = metrics.NewRegisteredMeter("state/cache/code/miss", nil)

	commitTimer          = metrics.NewRegisteredTimer("state/commit/time", nil)
	commitAccountsMeter  = metrics.NewRegisteredMeter("state/commit/accounts", nil)
	commitDeletionsMeter = metrics.NewRegisteredMeter("state/commit/deletions", nil)
	commitSlotsMeter     = metrics.NewRegisteredMeter("state/commit/slots", nil)
)
