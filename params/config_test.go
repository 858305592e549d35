// Copyright 2017 The go-ethereum Authors
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

package params

import (
	"math/big"
	"testing"
)

func TestCheckConfigForkOrder(t *testing.T) {
	for i, c := range []*ChainConfig{
		MainnetChainConfig, AllEthashProtocolChanges, MergedTestChainConfig, TestChainConfig,
	} {
		if err := c.CheckConfigForkOrder(); err != nil {
			t.Errorf("config %d: unexpected error: %v", i, err)
		}
	}
	bad := []*ChainConfig{
		{HomesteadBlock: big.NewInt(0), ByzantiumBlock: big.NewInt(0)},
		{HomesteadBlock: big.NewInt(5), EIP150Block: big.NewInt(2)},
		{
			HomesteadBlock: big.NewInt(0), EIP150Block: big.NewInt(0), EIP155Block: big.NewInt(0),
			EIP158Block: big.NewInt(0), ByzantiumBlock: big.NewInt(0), ConstantinopleBlock: big.NewInt(0),
			PetersburgBlock: big.NewInt(0), IstanbulBlock: big.NewInt(0), BerlinBlock: big.NewInt(0),
			LondonBlock: big.NewInt(0), ShanghaiTime: newUint64(10), CancunTime: newUint64(5),
		},
		{GasPolicy: &GasPolicy{CallGasRetainDivisor: newUint64(1)}},
	}
	for i, c := range bad {
		if err := c.CheckConfigForkOrder(); err == nil {
			t.Errorf("config %d: expected fork ordering error", i)
		}
	}
}

func TestRulesForkActivation(t *testing.T) {
	c := MainnetChainConfig
	r := c.Rules(big.NewInt(4_370_000), false, 0)
	if !r.IsByzantium || r.IsConstantinople || r.IsBerlin {
		t.Fatalf("wrong byzantium rules: %+v", r)
	}
	r = c.Rules(big.NewInt(17_000_000), true, 1681338455)
	if !r.IsMerge || !r.IsShanghai || r.IsCancun {
		t.Fatalf("wrong shanghai rules: %+v", r)
	}
	// Timestamp forks do not activate without the merge.
	r = c.Rules(big.NewInt(17_000_000), false, 1710338135)
	if r.IsShanghai || r.IsCancun {
		t.Fatalf("timestamp forks active before merge: %+v", r)
	}
}

func TestRulesGasPolicy(t *testing.T) {
	tests := []struct {
		config          *ChainConfig
		number          int64
		quotient, retain uint64
	}{
		{MainnetChainConfig, 0, RefundQuotient, 0},
		{MainnetChainConfig, 2_463_000, RefundQuotient, CallGasRetainDivisor},
		{MainnetChainConfig, 12_965_000, RefundQuotientEIP3529, CallGasRetainDivisor},
		{
			&ChainConfig{
				HomesteadBlock: big.NewInt(0), EIP150Block: big.NewInt(0), LondonBlock: big.NewInt(0),
				GasPolicy: &GasPolicy{RefundQuotient: newUint64(2), CallGasRetainDivisor: newUint64(32)},
			},
			0, 2, 32,
		},
		// Explicit zeroes disable the refund cap and the retained gas.
		{
			&ChainConfig{
				HomesteadBlock: big.NewInt(0), EIP150Block: big.NewInt(0), LondonBlock: big.NewInt(0),
				GasPolicy: &GasPolicy{RefundQuotient: newUint64(0), CallGasRetainDivisor: newUint64(0)},
			},
			0, 0, 0,
		},
		// Unset fields keep the fork defaults.
		{
			&ChainConfig{
				HomesteadBlock: big.NewInt(0), EIP150Block: big.NewInt(0), LondonBlock: big.NewInt(0),
				GasPolicy: &GasPolicy{CallGasRetainDivisor: newUint64(16)},
			},
			0, RefundQuotientEIP3529, 16,
		},
	}
	for i, tt := range tests {
		r := tt.config.Rules(big.NewInt(tt.number), false, 0)
		if r.RefundQuotient != tt.quotient {
			t.Errorf("test %d: refund quotient mismatch: have %d, want %d", i, r.RefundQuotient, tt.quotient)
		}
		if r.CallGasRetainDivisor != tt.retain {
			t.Errorf("test %d: retain divisor mismatch: have %d, want %d", i, r.CallGasRetainDivisor, tt.retain)
		}
	}
}
