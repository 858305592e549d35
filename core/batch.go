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

package core

import (
	"fmt"

	"github.com/rezbera/revm/common/gopool"
	"github.com/rezbera/revm/core/state"
	"github.com/rezbera/revm/core/vm"
)

// ExecuteBatch runs independent messages in parallel on pool, each against
// its own state over the shared backend. No message sees the changes of
// another. db must be safe for concurrent reads and cfg.Tracer, if set, must
// be safe for concurrent use. A nil pool uses the default one.
//
// The outcomes are returned in message order. If any message hits a fatal
// error, the error of the lowest such index is returned.
func ExecuteBatch(pool *gopool.Pool, msgs []*Message, env Environment, db state.Database, cfg vm.Config) ([]*ExecutionOutcome, error) {
	if pool == nil {
		pool = gopool.Default()
	}
	batchSizeHistogram.Update(int64(len(msgs)))

	var (
		outcomes = make([]*ExecutionOutcome, len(msgs))
		errs     = make([]error, len(msgs))
	)
	err := pool.ForEach(len(msgs), func(i int) {
		outcomes[i], errs[i] = Execute(msgs[i], env, db, cfg)
	})
	if err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return outcomes, nil
}
