package vm

import "github.com/ethereum/go-ethereum/metrics"

var (
	opcodeCounter = metrics.NewRegisteredCounter("evm/opcodes", nil)

	frameEnterCounter  = metrics.NewRegisteredCounter("evm/frames/enter", nil)
	frameRevertCounter = metrics.NewRegisteredCounter("evm/frames/revert", nil)
	frameFailCounter   = metrics.NewRegisteredCounter("evm/frames/fail", nil)
	precompileCounter  = metrics.NewRegisteredCounter("evm/precompiles", nil)

	bytecodeCacheHitMeter  = metrics.NewRegisteredMeter("evm/bytecode/cache/hit", nil)
	bytecodeCacheMissMeter = metrics.NewRegisteredMeter("evm/bytecode/cache/miss", nil)
)
