package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestMemoryCopy(t *testing.T) {
	// Test cases from https://eips.ethereum.org/EIPS/eip-5656#test-cases
	for i, tc := range []struct {
		dst, src, len uint64
		pre           string
		want          string
	}{
		{ // MCOPY 0 32 32 - copy 32 bytes from offset 32 to offset 0.
			0, 32, 32,
			"0000000000000000000000000000000000000000000000000000000000000000 000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f 000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		},
		{ // MCOPY 0 1 8 - copy 8 bytes from offset 1 to offset 0 (overlapping).
			0, 1, 8,
			"000102030405060708 000000000000000000000000000000000000000000000000",
			"010203040506070808 000000000000000000000000000000000000000000000000",
		},
		{ // MCOPY 1 0 8 - copy 8 bytes from offset 0 to offset 1 (overlapping).
			1, 0, 8,
			"000102030405060708 000000000000000000000000000000000000000000000000",
			"000001020304050607 000000000000000000000000000000000000000000000000",
		},
		{ // zero length copy from out of bounds
			0, 0xFFFFFFFFFFFF, 0,
			"11",
			"11",
		},
	} {
		m := NewMemory()
		data := common.FromHex(strings.ReplaceAll(tc.pre, " ", ""))
		m.Resize(uint64(len(data)))
		m.Set(0, uint64(len(data)), data)
		m.Copy(tc.dst, tc.src, tc.len)
		want := common.FromHex(strings.ReplaceAll(tc.want, " ", ""))
		if have := m.store; !bytes.Equal(want, have) {
			t.Errorf("case %d: want: %#x\nhave: %#x\n", i, want, have)
		}
		m.Free()
	}
}

func TestMemorySetAndGet(t *testing.T) {
	m := NewMemory()
	defer m.Free()

	m.Resize(64)
	m.Set32(32, uint256.NewInt(0xabcd))
	assert.Equal(t, 64, m.Len())

	word := m.GetCopy(32, 32)
	assert.Equal(t, []byte{0xab, 0xcd}, word[30:])
	assert.Nil(t, m.GetCopy(0, 0))

	// copies are detached from the store, pointers are not
	word[31] = 0
	assert.Equal(t, byte(0xcd), m.GetPtr(32, 32)[31])
	m.GetPtr(32, 32)[31] = 0
	assert.Equal(t, byte(0), m.Data()[63])

	// resizing never shrinks
	m.Resize(32)
	assert.Equal(t, 64, m.Len())
}

func TestMemorySetPanicsWithoutResize(t *testing.T) {
	m := NewMemory()
	defer m.Free()
	assert.Panics(t, func() { m.Set(0, 1, []byte{1}) })
	assert.Panics(t, func() { m.Set32(0, uint256.NewInt(1)) })
}

func BenchmarkResize(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m := NewMemory()
		m.Resize(1024)
		m.Free()
	}
}
