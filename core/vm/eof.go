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

package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	offsetVersion   = 2
	offsetTypesKind = 3
	offsetCodeKind  = 6

	kindTypes     = 1
	kindCode      = 2
	kindContainer = 3
	kindData      = 4

	eofFormatByte = 0xef
	eof1Version   = 1

	maxCodeSections      = 1024
	maxContainerSections = 256
	maxStackHeight       = 1023
)

var eofMagic = []byte{0xef, 0x00}

// hasEOFByte returns true if code starts with 0xEF byte
func hasEOFByte(code []byte) bool {
	return len(code) != 0 && code[0] == eofFormatByte
}

// hasEOFMagic returns true if code starts with magic defined by EIP-3540
func hasEOFMagic(code []byte) bool {
	return len(eofMagic) <= len(code) && bytes.Equal(eofMagic, code[0:len(eofMagic)])
}

// Container is an EOF container object.
type Container struct {
	Types      []*FunctionMetadata
	Code       [][]byte
	Containers [][]byte
	Data       []byte
	DataSize   int // might be more than len(Data)
}

// FunctionMetadata is an EOF function signature.
type FunctionMetadata struct {
	Inputs         uint8
	Outputs        uint8
	MaxStackHeight uint16
}

// MarshalBinary encodes an EOF container into binary format.
func (c *Container) MarshalBinary() []byte {
	b := make([]byte, 2)
	copy(b, eofMagic)
	b = append(b, eof1Version)
	b = append(b, kindTypes)
	b = binary.BigEndian.AppendUint16(b, uint16(len(c.Types)*4))
	b = append(b, kindCode)
	b = binary.BigEndian.AppendUint16(b, uint16(len(c.Code)))
	for _, code := range c.Code {
		b = binary.BigEndian.AppendUint16(b, uint16(len(code)))
	}
	if len(c.Containers) > 0 {
		b = append(b, kindContainer)
		b = binary.BigEndian.AppendUint16(b, uint16(len(c.Containers)))
		for _, section := range c.Containers {
			b = binary.BigEndian.AppendUint16(b, uint16(len(section)))
		}
	}
	b = append(b, kindData)
	b = binary.BigEndian.AppendUint16(b, uint16(c.DataSize))
	b = append(b, 0) // terminator

	for _, ty := range c.Types {
		b = append(b, []byte{ty.Inputs, ty.Outputs, byte(ty.MaxStackHeight >> 8), byte(ty.MaxStackHeight & 0x00ff)}...)
	}
	for _, code := range c.Code {
		b = append(b, code...)
	}
	for _, section := range c.Containers {
		b = append(b, section...)
	}
	b = append(b, c.Data...)
	return b
}

// UnmarshalBinary decodes an EOF container. Every failure wraps
// ErrInvalidContainer.
func (c *Container) UnmarshalBinary(b []byte) error {
	if err := c.unmarshal(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}
	return nil
}

func (c *Container) unmarshal(b []byte) error {
	if !hasEOFMagic(b) {
		return fmt.Errorf("invalid magic")
	}
	if len(b) < 14 {
		return io.ErrUnexpectedEOF
	}
	if b[offsetVersion] != eof1Version {
		return fmt.Errorf("invalid version %d", b[offsetVersion])
	}
	var (
		typesSize, dataSize int
		codeSizes           []int
		containerSizes      []int
		kind                int
		err                 error
	)
	// Parse type section header.
	if kind, typesSize, err = parseSection(b, offsetTypesKind); err != nil {
		return err
	}
	if kind != kindTypes {
		return fmt.Errorf("expected kind types, have %d", kind)
	}
	if typesSize < 4 || typesSize%4 != 0 {
		return fmt.Errorf("type section size invalid: %d", typesSize)
	}
	if typesSize/4 > maxCodeSections {
		return fmt.Errorf("number of code sections must not exceed %d (got %d)", maxCodeSections, typesSize/4)
	}

	// Parse code section header.
	if kind, codeSizes, err = parseSectionList(b, offsetCodeKind); err != nil {
		return err
	}
	if kind != kindCode {
		return fmt.Errorf("expected kind code, have %d", kind)
	}
	if len(codeSizes) != typesSize/4 {
		return fmt.Errorf("mismatch of code sections count and type signatures (types %d, code %d)", typesSize/4, len(codeSizes))
	}
	for i, size := range codeSizes {
		if size == 0 {
			return fmt.Errorf("code section %d size must not be 0", i)
		}
	}

	// Parse the optional container section header.
	offset := offsetCodeKind + 3 + 2*len(codeSizes)
	if offset < len(b) && b[offset] == kindContainer {
		if _, containerSizes, err = parseSectionList(b, offset); err != nil {
			return err
		}
		if len(containerSizes) == 0 || len(containerSizes) > maxContainerSections {
			return fmt.Errorf("invalid container section count %d", len(containerSizes))
		}
		for i, size := range containerSizes {
			if size == 0 {
				return fmt.Errorf("container section %d size must not be 0", i)
			}
		}
		offset += 3 + 2*len(containerSizes)
	}

	// Parse data section header and the terminator.
	if kind, dataSize, err = parseSection(b, offset); err != nil {
		return err
	}
	if kind != kindData {
		return fmt.Errorf("expected kind data, have %d", kind)
	}
	offset += 3
	if offset >= len(b) {
		return io.ErrUnexpectedEOF
	}
	if b[offset] != 0 {
		return fmt.Errorf("expected terminator, have %#x", b[offset])
	}
	offset++

	// The declared data size may exceed the actual data only for containers
	// still under construction, which are never stored as contract code.
	expected := offset + typesSize + sum(codeSizes) + sum(containerSizes) + dataSize
	if len(b) != expected {
		return fmt.Errorf("invalid container size (want %d, got %d)", expected, len(b))
	}

	// Parse type section body.
	types := make([]*FunctionMetadata, 0, typesSize/4)
	for i := 0; i < typesSize/4; i++ {
		sig := &FunctionMetadata{
			Inputs:         b[offset+i*4],
			Outputs:        b[offset+i*4+1],
			MaxStackHeight: binary.BigEndian.Uint16(b[offset+i*4+2:]),
		}
		if sig.Inputs > 127 || (sig.Outputs > 127 && sig.Outputs != 0x80) {
			return fmt.Errorf("type annotation %d inputs and outputs must not exceed 127", i)
		}
		if sig.MaxStackHeight > maxStackHeight {
			return fmt.Errorf("type annotation %d max stack height must not exceed %d", i, maxStackHeight)
		}
		types = append(types, sig)
	}
	if types[0].Inputs != 0 || types[0].Outputs != 0x80 {
		return fmt.Errorf("first code section must have 0 inputs and be non-returning")
	}
	offset += typesSize

	code := make([][]byte, len(codeSizes))
	for i, size := range codeSizes {
		code[i] = b[offset : offset+size]
		offset += size
	}
	containers := make([][]byte, len(containerSizes))
	for i, size := range containerSizes {
		containers[i] = b[offset : offset+size]
		offset += size
	}
	c.Types = types
	c.Code = code
	c.Containers = containers
	c.Data = b[offset:]
	c.DataSize = dataSize
	return nil
}

// parseSection decodes a (kind, size) pair from an EOF header.
func parseSection(b []byte, idx int) (kind, size int, err error) {
	if idx+3 > len(b) {
		return 0, 0, io.ErrUnexpectedEOF
	}
	kind = int(b[idx])
	size = int(binary.BigEndian.Uint16(b[idx+1:]))
	return kind, size, nil
}

// parseSectionList decodes a (kind, len, []codeSize) section list from an EOF
// header.
func parseSectionList(b []byte, idx int) (kind int, list []int, err error) {
	if idx >= len(b) {
		return 0, nil, io.ErrUnexpectedEOF
	}
	kind = int(b[idx])
	list, err = parseList(b, idx+1)
	if err != nil {
		return 0, nil, err
	}
	return kind, list, nil
}

// parseList decodes a list of uint16..
func parseList(b []byte, idx int) ([]int, error) {
	if len(b) < idx+2 {
		return nil, io.ErrUnexpectedEOF
	}
	count := binary.BigEndian.Uint16(b[idx:])
	if len(b) < idx+2+int(count)*2 {
		return nil, io.ErrUnexpectedEOF
	}
	list := make([]int, count)
	for i := 0; i < int(count); i++ {
		list[i] = int(binary.BigEndian.Uint16(b[idx+2+2*i:]))
	}
	return list, nil
}

func sum(list []int) (s int) {
	for _, n := range list {
		s += n
	}
	return
}
