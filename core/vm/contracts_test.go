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

package vm

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rezbera/revm/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// precompiledTest defines the input/output pairs for precompiled contract tests.
type precompiledTest struct {
	Input, Expected string
	Gas             uint64
	Name            string
	NoBenchmark     bool // Benchmark primarily the worst-cases
}

// precompiledFailureTest defines the input/error pairs for precompiled
// contract failure tests.
type precompiledFailureTest struct {
	Input         string
	ExpectedError string
	Name          string
}

// allPrecompiles does not map to the actual set of precompiles, as it also contains
// repriced versions of precompiles at certain slots
var allPrecompiles = map[common.Address]PrecompiledContract{
	common.BytesToAddress([]byte{1}):    &ecrecover{},
	common.BytesToAddress([]byte{2}):    &sha256hash{},
	common.BytesToAddress([]byte{3}):    &ripemd160hash{},
	common.BytesToAddress([]byte{4}):    &dataCopy{},
	common.BytesToAddress([]byte{5}):    &bigModExp{eip2565: false},
	common.BytesToAddress([]byte{0xf5}): &bigModExp{eip2565: true},
	common.BytesToAddress([]byte{6}):    &bn256AddIstanbul{},
	common.BytesToAddress([]byte{7}):    &bn256ScalarMulIstanbul{},
	common.BytesToAddress([]byte{8}):    &bn256PairingIstanbul{},
	common.BytesToAddress([]byte{0xf6}): &bn256AddByzantium{},
	common.BytesToAddress([]byte{0xf7}): &bn256ScalarMulByzantium{},
	common.BytesToAddress([]byte{0xf8}): &bn256PairingByzantium{},
	common.BytesToAddress([]byte{9}):    &blake2F{},
	common.BytesToAddress([]byte{0x0a}): &kzgPointEvaluation{},

	common.BytesToAddress([]byte{0x01, 0x00}): &p256Verify{},
}

const sample128 = "38d18acb67d25c8bb9942764b62f18e17054f66a817bd4295423adf9ed98873e000000000000000000000000000000000000000000000000000000000000001b38d18acb67d25c8bb9942764b62f18e17054f66a817bd4295423adf9ed98873e789d1dd423d25f0772d2748d60f7e4b81bb14d086eba8e8e8efb6dcff8a4ae02"

var (
	ecrecoverTests = []precompiledTest{{
		Input:    sample128,
		Expected: "000000000000000000000000ceaccac640adf55b2028469bd36ba501f28b699d",
		Gas:      3000,
		Name:     "ValidKey",
	}, {
		// v is neither 27 nor 28
		Input:    "38d18acb67d25c8bb9942764b62f18e17054f66a817bd4295423adf9ed98873e000000000000000000000000000000000000000000000000000000000000001d38d18acb67d25c8bb9942764b62f18e17054f66a817bd4295423adf9ed98873e789d1dd423d25f0772d2748d60f7e4b81bb14d086eba8e8e8efb6dcff8a4ae02",
		Expected: "",
		Gas:      3000,
		Name:     "InvalidV",
	}}

	sha256Tests = []precompiledTest{{
		Input:    sample128,
		Expected: "811c7003375852fabd0d362e40e68607a12bdabae61a7d068fe5fdd1dbbf2a5d",
		Gas:      108,
		Name:     "128",
	}}

	ripemdTests = []precompiledTest{{
		Input:    sample128,
		Expected: "0000000000000000000000009215b8d9882ff46f0dfde6684d78e831467f65e6",
		Gas:      1080,
		Name:     "128",
	}}

	identityTests = []precompiledTest{{
		Input:    sample128,
		Expected: sample128,
		Gas:      27,
		Name:     "128",
	}, {
		Input:    "",
		Expected: "",
		Gas:      15,
		Name:     "empty",
	}}

	// EIP-198 example 1: 3^(p-2) mod p
	modexpInput = "0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"03" +
		"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2e" +
		"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f"

	modexpTests = []precompiledTest{{
		Input:    modexpInput,
		Expected: "0000000000000000000000000000000000000000000000000000000000000001",
		Gas:      13056,
		Name:     "eip_example1",
	}}

	modexpEip2565Tests = []precompiledTest{{
		Input:    modexpInput,
		Expected: "0000000000000000000000000000000000000000000000000000000000000001",
		Gas:      1360,
		Name:     "eip_example1",
	}}

	bn256Zero = "00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000"

	bn256AddTests     = []precompiledTest{{Input: "", Expected: bn256Zero, Gas: params.Bn256AddGasIstanbul, Name: "empty"}}
	bn256MulTests     = []precompiledTest{{Input: "", Expected: bn256Zero, Gas: params.Bn256ScalarMulGasIstanbul, Name: "empty"}}
	bn256PairingTests = []precompiledTest{{
		Input:    "",
		Expected: "0000000000000000000000000000000000000000000000000000000000000001",
		Gas:      params.Bn256PairingBaseGasIstanbul,
		Name:     "empty",
	}}

	// EIP-152 vectors
	blake2FTests = []precompiledTest{{
		Input:    "0000000c48c9bdf267e6096a3ba7ca8485ae67bb2bf894fe72f36e3cf1361d5f3af54fa5d182e6ad7f520e511f6c3e2b8c68059b6bbd41fbabd9831f79217e1319cde05b61626300000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000300000000000000000000000000000001",
		Expected: "ba80a53f981c4d0d6a2797b69f12f6e94c212f14685ac4b74b12bb6fdbffa2d17d87c5392aab792dc252d5de4533cc9518d38aa8dbf1925ab92386edd4009923",
		Gas:      12,
		Name:     "vector 5",
	}}

	p256VerifyInput = "4cee90eb86eaa050036147a12d49004b6b9c72bd725d39d4785011fe190f0b4da73bd4903f0ce3b639bbbf6e8e80d16931ff4bcf5993d58468e8fb19086e8cac36dbcd03009df8c59286b162af3bd7fcc0450c9aa81be5d10d312af6c66b1d604aebd3099c618202fcfe16ae7770b0c49ab5eadf74b754204a3bb6060e44eff37618b065f9832de4ca6ca971a7a1adc826d0f7c00181a5fb2ddf79ae00b4e10e"

	p256VerifyTests = []precompiledTest{{
		Input:    p256VerifyInput,
		Expected: "0000000000000000000000000000000000000000000000000000000000000001",
		Gas:      params.P256VerifyGas,
		Name:     "valid",
	}, {
		// last byte of the public key flipped, no longer on the curve
		Input:    p256VerifyInput[:len(p256VerifyInput)-2] + "0f",
		Expected: "",
		Gas:      params.P256VerifyGas,
		Name:     "off curve",
	}, {
		Input:    p256VerifyInput[:len(p256VerifyInput)-2],
		Expected: "",
		Gas:      params.P256VerifyGas,
		Name:     "short input",
	}}
)

// EIP-152 test vectors
var blake2FMalformedInputTests = []precompiledFailureTest{
	{
		Input:         "",
		ExpectedError: errBlake2FInvalidInputLength.Error(),
		Name:          "vector 0: empty input",
	},
	{
		Input:         "00000c48c9bdf267e6096a3ba7ca8485ae67bb2bf894fe72f36e3cf1361d5f3af54fa5d182e6ad7f520e511f6c3e2b8c68059b6bbd41fbabd9831f79217e1319cde05b61626300000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000300000000000000000000000000000001",
		ExpectedError: errBlake2FInvalidInputLength.Error(),
		Name:          "vector 1: less than 213 bytes input",
	},
	{
		Input:         "000000000c48c9bdf267e6096a3ba7ca8485ae67bb2bf894fe72f36e3cf1361d5f3af54fa5d182e6ad7f520e511f6c3e2b8c68059b6bbd41fbabd9831f79217e1319cde05b61626300000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000300000000000000000000000000000001",
		ExpectedError: errBlake2FInvalidInputLength.Error(),
		Name:          "vector 2: more than 213 bytes input",
	},
	{
		Input:         "0000000c48c9bdf267e6096a3ba7ca8485ae67bb2bf894fe72f36e3cf1361d5f3af54fa5d182e6ad7f520e511f6c3e2b8c68059b6bbd41fbabd9831f79217e1319cde05b61626300000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000300000000000000000000000000000002",
		ExpectedError: errBlake2FInvalidFinalFlag.Error(),
		Name:          "vector 3: malformed final block indicator flag",
	},
}

func testPrecompiled(addr string, test precompiledTest, t *testing.T) {
	p := allPrecompiles[common.HexToAddress(addr)]
	in := common.Hex2Bytes(test.Input)
	gas := p.RequiredGas(in)
	t.Run(fmt.Sprintf("%s-Gas=%d", test.Name, gas), func(t *testing.T) {
		if res, _, err := RunPrecompiledContract(p, in, gas); err != nil {
			t.Error(err)
		} else if common.Bytes2Hex(res) != test.Expected {
			t.Errorf("Expected %v, got %v", test.Expected, common.Bytes2Hex(res))
		}
		if expGas := test.Gas; expGas != gas {
			t.Errorf("%v: gas wrong, expected %d, got %d", test.Name, expGas, gas)
		}
		// Verify that the precompile did not touch the input buffer
		exp := common.Hex2Bytes(test.Input)
		if !bytes.Equal(in, exp) {
			t.Errorf("Precompiled %v modified input data", addr)
		}
	})
}

func testPrecompiledOOG(addr string, test precompiledTest, t *testing.T) {
	p := allPrecompiles[common.HexToAddress(addr)]
	in := common.Hex2Bytes(test.Input)
	gas := p.RequiredGas(in) - 1

	t.Run(fmt.Sprintf("%s-Gas=%d", test.Name, gas), func(t *testing.T) {
		_, _, err := RunPrecompiledContract(p, in, gas)
		if err.Error() != "out of gas" {
			t.Errorf("Expected error [out of gas], got [%v]", err)
		}
		// Verify that the precompile did not touch the input buffer
		exp := common.Hex2Bytes(test.Input)
		if !bytes.Equal(in, exp) {
			t.Errorf("Precompiled %v modified input data", addr)
		}
	})
}

func testPrecompiledFailure(addr string, test precompiledFailureTest, t *testing.T) {
	p := allPrecompiles[common.HexToAddress(addr)]
	in := common.Hex2Bytes(test.Input)
	gas := p.RequiredGas(in)
	t.Run(test.Name, func(t *testing.T) {
		_, _, err := RunPrecompiledContract(p, in, gas)
		if err.Error() != test.ExpectedError {
			t.Errorf("Expected error [%v], got [%v]", test.ExpectedError, err)
		}
		// Verify that the precompile did not touch the input buffer
		exp := common.Hex2Bytes(test.Input)
		if !bytes.Equal(in, exp) {
			t.Errorf("Precompiled %v modified input data", addr)
		}
	})
}

func benchmarkPrecompiled(addr string, test precompiledTest, bench *testing.B) {
	if test.NoBenchmark {
		return
	}
	p := allPrecompiles[common.HexToAddress(addr)]
	in := common.Hex2Bytes(test.Input)
	reqGas := p.RequiredGas(in)

	var (
		res  []byte
		err  error
		data = make([]byte, len(in))
	)

	bench.Run(fmt.Sprintf("%s-Gas=%d", test.Name, reqGas), func(bench *testing.B) {
		bench.ReportAllocs()
		start := time.Now()
		bench.ResetTimer()
		for i := 0; i < bench.N; i++ {
			copy(data, in)
			res, _, err = RunPrecompiledContract(p, data, reqGas)
		}
		bench.StopTimer()
		elapsed := max(uint64(time.Since(start)), 1)
		gasUsed := reqGas * uint64(bench.N)
		bench.ReportMetric(float64(reqGas), "gas/op")
		// Keep it as uint64, multiply 100 to get two digit float later
		mgasps := (100 * 1000 * gasUsed) / elapsed
		bench.ReportMetric(float64(mgasps)/100, "mgas/s")
		// Check if it is correct
		if err != nil {
			bench.Error(err)
			return
		}
		if common.Bytes2Hex(res) != test.Expected {
			bench.Errorf("Expected %v, got %v", test.Expected, common.Bytes2Hex(res))
			return
		}
	})
}

func testPrecompiledTable(addr string, tests []precompiledTest, t *testing.T) {
	for _, test := range tests {
		testPrecompiled(addr, test, t)
	}
}

func benchPrecompiledTable(addr string, tests []precompiledTest, b *testing.B) {
	for _, test := range tests {
		benchmarkPrecompiled(addr, test, b)
	}
}

func TestPrecompiledEcrecover(t *testing.T)       { testPrecompiledTable("01", ecrecoverTests, t) }
func BenchmarkPrecompiledEcrecover(b *testing.B)  { benchPrecompiledTable("01", ecrecoverTests, b) }
func TestPrecompiledSha256(t *testing.T)          { testPrecompiledTable("02", sha256Tests, t) }
func BenchmarkPrecompiledSha256(b *testing.B)     { benchPrecompiledTable("02", sha256Tests, b) }
func TestPrecompiledRipeMD(t *testing.T)          { testPrecompiledTable("03", ripemdTests, t) }
func BenchmarkPrecompiledRipeMD(b *testing.B)     { benchPrecompiledTable("03", ripemdTests, b) }
func TestPrecompiledIdentity(t *testing.T)        { testPrecompiledTable("04", identityTests, t) }
func BenchmarkPrecompiledIdentity(b *testing.B)   { benchPrecompiledTable("04", identityTests, b) }
func TestPrecompiledModExp(t *testing.T)          { testPrecompiledTable("05", modexpTests, t) }
func BenchmarkPrecompiledModExp(b *testing.B)     { benchPrecompiledTable("05", modexpTests, b) }
func TestPrecompiledModExpEip2565(t *testing.T)   { testPrecompiledTable("f5", modexpEip2565Tests, t) }
func TestPrecompiledBn256Add(t *testing.T)        { testPrecompiledTable("06", bn256AddTests, t) }
func TestPrecompiledBn256ScalarMul(t *testing.T)  { testPrecompiledTable("07", bn256MulTests, t) }
func TestPrecompiledBn256Pairing(t *testing.T)    { testPrecompiledTable("08", bn256PairingTests, t) }
func TestPrecompiledBlake2F(t *testing.T)         { testPrecompiledTable("09", blake2FTests, t) }
func BenchmarkPrecompiledBlake2F(b *testing.B)    { benchPrecompiledTable("09", blake2FTests, b) }
func TestPrecompiledP256Verify(t *testing.T)      { testPrecompiledTable("100", p256VerifyTests, t) }
func BenchmarkPrecompiledP256Verify(b *testing.B) { benchPrecompiledTable("100", p256VerifyTests[:1], b) }

func TestPrecompileBlake2FMalformedInput(t *testing.T) {
	for _, test := range blake2FMalformedInputTests {
		testPrecompiledFailure("09", test, t)
	}
}

// Tests OOG
func TestPrecompiledOOG(t *testing.T) {
	testPrecompiledOOG("01", ecrecoverTests[0], t)
	testPrecompiledOOG("05", modexpTests[0], t)
	testPrecompiledOOG("f5", modexpEip2565Tests[0], t)
	testPrecompiledOOG("08", bn256PairingTests[0], t)
	testPrecompiledOOG("100", p256VerifyTests[0], t)
}

func TestPrecompiledByzantiumPricing(t *testing.T) {
	for addr, want := range map[string]uint64{
		"f6": params.Bn256AddGasByzantium,
		"f7": params.Bn256ScalarMulGasByzantium,
		"f8": params.Bn256PairingBaseGasByzantium,
	} {
		p := allPrecompiles[common.HexToAddress(addr)]
		assert.Equal(t, want, p.RequiredGas(nil), "precompile %s", addr)
	}
}

func TestPrecompiledPointEvaluationMalformed(t *testing.T) {
	p := allPrecompiles[common.HexToAddress("0a")]
	assert.Equal(t, uint64(params.BlobTxPointEvaluationPrecompileGas), p.RequiredGas(nil))

	_, _, err := RunPrecompiledContract(p, make([]byte, 191), 100000)
	assert.ErrorIs(t, err, errBlobVerifyInvalidInputLength)

	// A zero commitment does not hash to a zero versioned hash.
	_, _, err = RunPrecompiledContract(p, make([]byte, 192), 100000)
	assert.ErrorIs(t, err, errBlobVerifyMismatchedVersion)
}

func TestActivePrecompiles(t *testing.T) {
	p256 := common.BytesToAddress([]byte{0x01, 0x00})
	kzg := common.BytesToAddress([]byte{0x0a})

	tests := []struct {
		rules      params.Rules
		count      int
		kzg, p256  bool
		pairingGas uint64
	}{
		{params.Rules{IsHomestead: true}, 4, false, false, 0},
		{params.Rules{IsByzantium: true}, 8, false, false, params.Bn256PairingBaseGasByzantium},
		{params.Rules{IsIstanbul: true}, 9, false, false, params.Bn256PairingBaseGasIstanbul},
		{params.Rules{IsBerlin: true}, 9, false, false, params.Bn256PairingBaseGasIstanbul},
		{params.Rules{IsCancun: true}, 10, true, false, params.Bn256PairingBaseGasIstanbul},
		{params.Rules{IsOsaka: true}, 11, true, true, params.Bn256PairingBaseGasIstanbul},
	}
	for i, tt := range tests {
		active := activePrecompiledContracts(tt.rules)
		require.Len(t, ActivePrecompiles(tt.rules), tt.count, "test %d", i)
		require.Len(t, active, tt.count, "test %d", i)
		_, ok := active[kzg]
		assert.Equal(t, tt.kzg, ok, "test %d: kzg", i)
		_, ok = active[p256]
		assert.Equal(t, tt.p256, ok, "test %d: p256", i)
		if pairing, ok := active[common.BytesToAddress([]byte{8})]; ok {
			assert.Equal(t, tt.pairingGas, pairing.RequiredGas(nil), "test %d: pairing", i)
		}
	}
}

func TestPrecompiledInputUntouched(t *testing.T) {
	in := common.Hex2Bytes(sample128)
	out, _, err := RunPrecompiledContract(&dataCopy{}, in, 100)
	require.NoError(t, err)
	if !bytes.Equal(out, in) {
		t.Fatalf("identity output mismatch")
	}
	out[0] ^= 0xff
	assert.NotEqual(t, out[0], in[0], "identity must return a copy")
}
