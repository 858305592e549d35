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

import "github.com/ethereum/go-ethereum/metrics"

var (
	executeTimer      = metrics.NewRegisteredTimer("core/execute", nil)
	executeFatalMeter = metrics.NewRegisteredMeter("core/execute/fatal", nil)

	executeSuccessMeter = metrics.NewRegisteredMeter("core/execute/success", nil)
	executeRevertMeter  = metrics.NewRegisteredMeter("core/execute/revert", nil)
	executeHaltMeter    = metrics.NewRegisteredMeter("core/execute/halt", nil)

	batchSizeHistogram = metrics.NewRegisteredHistogram("core/batch/size", nil, metrics.NewExpDecaySample(1028, 0.015))
)

func executeStatusMeter(status Status) metrics.Meter {
	switch status {
	case StatusSuccess:
		return executeSuccessMeter
	case StatusRevert:
		return executeRevertMeter
	default:
		return executeHaltMeter
	}
}
