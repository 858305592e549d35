// Copyright 2015 The go-ethereum Authors
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

package vm

import (
	"github.com/holiman/uint256"
)

// Gas costs
const (
	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastishStep uint64 = 4
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasSlowStep    uint64 = 10
	GasExtStep     uint64 = 20
)

// GasMeter tracks the gas of a single frame. The limit is fixed when the
// frame starts; remaining only decreases, except for gas handed back by a
// finished sub-call. The refund counter is signed because a frame may undo
// refunds granted by an earlier sibling; it is clamped at finalization.
type GasMeter struct {
	limit     uint64
	remaining uint64
	refund    int64
}

// NewGasMeter returns a meter with the full limit available.
func NewGasMeter(limit uint64) GasMeter {
	return GasMeter{limit: limit, remaining: limit}
}

// Charge consumes amount. If not enough gas is left the meter drops to zero
// and false is returned.
func (g *GasMeter) Charge(amount uint64) bool {
	if g.remaining < amount {
		g.remaining = 0
		return false
	}
	g.remaining -= amount
	return true
}

// ConsumeAll burns everything that is left.
func (g *GasMeter) ConsumeAll() { g.remaining = 0 }

// Return hands back gas that a sub-call did not use.
func (g *GasMeter) Return(amount uint64) { g.remaining += amount }

// Refund adds to the refund counter.
func (g *GasMeter) Refund(amount uint64) { g.refund += int64(amount) }

// RemoveRefund subtracts from the refund counter.
func (g *GasMeter) RemoveRefund(amount uint64) { g.refund -= int64(amount) }

// MergeRefund folds the refund counter of a successful sub-call into this one.
func (g *GasMeter) MergeRefund(refund int64) { g.refund += refund }

// Limit returns the gas the frame started with.
func (g *GasMeter) Limit() uint64 { return g.limit }

// Remaining returns the gas still available.
func (g *GasMeter) Remaining() uint64 { return g.remaining }

// Used returns the gas consumed so far.
func (g *GasMeter) Used() uint64 { return g.limit - g.remaining }

// RefundCounter returns the raw, possibly negative, refund counter.
func (g *GasMeter) RefundCounter() int64 { return g.refund }

// Finalize applies the refund cap. The refund is limited to
// used/refundQuotient and the returned used is net of it.
func (g *GasMeter) Finalize(refundQuotient uint64) (used, refunded uint64) {
	used = g.Used()
	if g.refund > 0 {
		refunded = uint64(g.refund)
	}
	if refundQuotient != 0 {
		if max := used / refundQuotient; refunded > max {
			refunded = max
		}
	}
	return used - refunded, refunded
}

// callGas returns the actual gas cost of the call.
//
// When retainDivisor is non-zero the caller keeps 1/retainDivisor of what is
// available after paying base, and the requested gas is capped to the rest
// (EIP-150 uses 64). With a zero divisor the request is forwarded verbatim.
func callGas(retainDivisor uint64, availableGas, base uint64, callCost *uint256.Int) (uint64, error) {
	if retainDivisor != 0 {
		availableGas = availableGas - base
		gas := availableGas - availableGas/retainDivisor
		// If the bit length exceeds 64 bit we know that the newly calculated "gas" for EIP150
		// is smaller than the requested amount. Therefore we return the new gas instead
		// of returning an error.
		if !callCost.IsUint64() || gas < callCost.Uint64() {
			return gas, nil
		}
	}
	if !callCost.IsUint64() {
		return 0, ErrGasUintOverflow
	}

	return callCost.Uint64(), nil
}
