// Copyright 2026 The Turbopb Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turbopb/turbopb/internal/arena"
	"github.com/turbopb/turbopb/internal/codec"
	"github.com/turbopb/turbopb/internal/fixture"
	"github.com/turbopb/turbopb/internal/tdp"
	"github.com/turbopb/turbopb/internal/wire"
)

// s1Bytes returns spec.md §8 scenario S1's literal encoding: x=42(uint32)
// field 1, y=0xDEADBEEF(fixed64) field 2.
func s1Bytes() []byte {
	return []byte{
		0x08, 0x2A,
		0x11, 0xEF, 0xBE, 0xAD, 0xDE, 0x00, 0x00, 0x00, 0x00,
	}
}

func TestDecodeFlatScenarioS1S2(t *testing.T) {
	t.Parallel()

	md := fixture.Root()
	table := compileFixture(t, md)
	a := arena.New()
	obj := tdp.NewObject(a, table)

	fault := codec.DecodeFlat(a, obj, table, s1Bytes())
	require.Equal(t, codec.FaultNone, fault)

	xEntry := fieldEntry(t, table, md, "x")
	yEntry := fieldEntry(t, table, md, "y")
	assert.True(t, obj.HasBit(xEntry.HasBit))
	assert.True(t, obj.HasBit(yEntry.HasBit))
	assert.Equal(t, uint32(42), obj.GetScalar32(xEntry.ScalarOffset))
	assert.Equal(t, uint64(0xDEADBEEF), obj.GetScalar64(yEntry.ScalarOffset))
}

func TestDecodeFlatNestedMessageS3(t *testing.T) {
	t.Parallel()

	md := fixture.Root()
	table := compileFixture(t, md)

	childBytes := []byte{0x08, 123, 0x10, 0xC8, 0x03} // x=123 (tag 0x08), y=456 (tag 0x10, varint 456)
	buf := make([]byte, 2+len(childBytes))
	buf[0] = 0x22 // field 4, wire type 2 (length-delimited)
	buf[1] = byte(len(childBytes))
	copy(buf[2:], childBytes)

	a := arena.New()
	obj := tdp.NewObject(a, table)
	fault := codec.DecodeFlat(a, obj, table, buf)
	require.Equal(t, codec.FaultNone, fault)

	child1 := fieldEntry(t, table, md, "child1")
	require.True(t, obj.HasChild(child1.PtrIndex))
	childObj := obj.ChildOrNil(child1.PtrIndex)
	childTable := table.Aux[child1.AuxIndex].Child
	xEntry := childTable.DecodeEntryAt(1)
	yEntry := childTable.DecodeEntryAt(2)
	assert.Equal(t, uint32(123), childObj.GetScalar32(xEntry.ScalarOffset))
	assert.Equal(t, uint32(456), childObj.GetScalar32(yEntry.ScalarOffset))
}

func TestDecodeChunkedMatchesFlatS4(t *testing.T) {
	t.Parallel()

	md := fixture.Root()
	table := compileFixture(t, md)

	b := newRootBuilder(t, arena.New(), table, md)
	b.setU32("x", 42).setFixed64("y", 0xDEADBEEF).setBytes("name", []byte("hello world"))
	b.addChild("child1", 123, 456)
	source := b.build()

	encBuf := make([]byte, 256)
	encoded, fault := codec.EncodeFlat(source, table, encBuf)
	require.Equal(t, codec.FaultNone, fault)

	flatA := arena.New()
	flatObj := tdp.NewObject(flatA, table)
	require.Equal(t, codec.FaultNone, codec.DecodeFlat(flatA, flatObj, table, encoded))

	for chunkSize := 1; chunkSize <= len(encoded); chunkSize++ {
		a := arena.New()
		obj := tdp.NewObject(a, table)
		dec := codec.NewDecoder(a, obj, table)
		for i := 0; i < len(encoded); i += chunkSize {
			end := min(i+chunkSize, len(encoded))
			require.Equalf(t, codec.FaultNone, dec.Resume(encoded[i:end]), "chunk size %d", chunkSize)
		}
		require.Equalf(t, codec.FaultNone, dec.Finish(), "chunk size %d", chunkSize)

		xEntry := fieldEntry(t, table, md, "x")
		yEntry := fieldEntry(t, table, md, "y")
		assert.Equalf(t, flatObj.GetScalar32(xEntry.ScalarOffset), obj.GetScalar32(xEntry.ScalarOffset), "chunk size %d", chunkSize)
		assert.Equalf(t, flatObj.GetScalar64(yEntry.ScalarOffset), obj.GetScalar64(yEntry.ScalarOffset), "chunk size %d", chunkSize)

		nameEntry := fieldEntry(t, table, md, "name")
		assert.Equalf(t, flatObj.Bytes(nameEntry.PtrIndex).Slice(), obj.Bytes(nameEntry.PtrIndex).Slice(), "chunk size %d", chunkSize)

		child1 := fieldEntry(t, table, md, "child1")
		childTable := table.Aux[child1.AuxIndex].Child
		wantChild := flatObj.ChildOrNil(child1.PtrIndex)
		gotChild := obj.ChildOrNil(child1.PtrIndex)
		require.NotNil(t, gotChild)
		xE := childTable.DecodeEntryAt(1)
		assert.Equalf(t, wantChild.GetScalar32(xE.ScalarOffset), gotChild.GetScalar32(xE.ScalarOffset), "chunk size %d", chunkSize)
	}
}

func TestDecodeRepeatedMessageS5(t *testing.T) {
	t.Parallel()

	md := fixture.Root()
	table := compileFixture(t, md)

	b := newRootBuilder(t, arena.New(), table, md)
	for i := 0; i < 100; i++ {
		b.addChild("children", int32(i), int32(i*2))
	}
	source := b.build()

	buf := make([]byte, 8192)
	encoded, fault := codec.EncodeFlat(source, table, buf)
	require.Equal(t, codec.FaultNone, fault)

	a := arena.New()
	obj := tdp.NewObject(a, table)
	require.Equal(t, codec.FaultNone, codec.DecodeFlat(a, obj, table, encoded))

	children := fieldEntry(t, table, md, "children")
	childTable := table.Aux[children.AuxIndex].Child
	xE := childTable.DecodeEntryAt(1)
	yE := childTable.DecodeEntryAt(2)
	r := obj.RepeatedMessages(children.PtrIndex)
	require.Equal(t, 100, r.Len())
	for i := 0; i < 100; i++ {
		assert.Equal(t, uint32(i), r.At(i).GetScalar32(xE.ScalarOffset))
		assert.Equal(t, uint32(i*2), r.At(i).GetScalar32(yE.ScalarOffset))
	}
}

func TestDecodeUnknownFieldsSkippedAndRecorded(t *testing.T) {
	t.Parallel()

	md := fixture.Root()
	table := compileFixture(t, md)

	// Field 99 (unknown to Root) as a varint, then the known x field.
	buf := make([]byte, 16)
	w := wire.Writer{Buf: buf, Pos: len(buf)}
	w.WriteVarint(42)
	w.WriteTag(0x08) // x, field 1
	w.WriteVarint(7)
	w.WriteTag(99<<3 | 0)
	body := buf[w.Pos:]

	a := arena.New()
	obj := tdp.NewObject(a, table)
	require.Equal(t, codec.FaultNone, codec.DecodeFlat(a, obj, table, body))

	xEntry := fieldEntry(t, table, md, "x")
	assert.Equal(t, uint32(42), obj.GetScalar32(xEntry.ScalarOffset))
	require.NotNil(t, obj.ColdOrNil())
	assert.NotEmpty(t, obj.ColdOrNil().Unknown)
}

func TestDecodeDiscardUnknown(t *testing.T) {
	t.Parallel()

	md := fixture.Root()
	table := compileFixture(t, md)

	buf := make([]byte, 8)
	w := wire.Writer{Buf: buf, Pos: len(buf)}
	w.WriteVarint(7)
	w.WriteTag(99 << 3)
	body := buf[w.Pos:]

	a := arena.New()
	obj := tdp.NewObject(a, table)
	require.Equal(t, codec.FaultNone, codec.DecodeFlat(a, obj, table, body, codec.WithDiscardUnknown()))
	assert.Nil(t, obj.ColdOrNil())
}

func TestDecodeUnknownGroupSkippedRecursively(t *testing.T) {
	t.Parallel()

	md := fixture.Root()
	table := compileFixture(t, md)

	// An unknown group (field 50), containing a nested unknown group
	// (field 51), then END_GROUP 50. spec.md §4.3 point 5 requires
	// recursive group skipping for unknown fields.
	var buf []byte
	buf = protowire.AppendTag(buf, 50, protowire.StartGroupType)
	buf = protowire.AppendTag(buf, 51, protowire.StartGroupType)
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 1)
	buf = protowire.AppendTag(buf, 51, protowire.EndGroupType)
	buf = protowire.AppendTag(buf, 50, protowire.EndGroupType)

	a := arena.New()
	obj := tdp.NewObject(a, table)
	assert.Equal(t, codec.FaultNone, codec.DecodeFlat(a, obj, table, buf))
}

func TestDecodeMismatchedEndGroupFails(t *testing.T) {
	t.Parallel()

	table := compileFixture(t, fixture.Root())
	var buf []byte
	buf = protowire.AppendTag(buf, 50, protowire.StartGroupType)
	buf = protowire.AppendTag(buf, 51, protowire.EndGroupType) // wrong number

	a := arena.New()
	obj := tdp.NewObject(a, table)
	assert.Equal(t, codec.FaultMalformed, codec.DecodeFlat(a, obj, table, buf))
}

func TestDecodeGarbageBytesFailsWithoutPanicS6(t *testing.T) {
	t.Parallel()

	table := compileFixture(t, fixture.Root())
	buf := []byte{0xFF}

	require.NotPanics(t, func() {
		a := arena.New()
		obj := tdp.NewObject(a, table)
		fault := codec.DecodeFlat(a, obj, table, buf)
		assert.NotEqual(t, codec.FaultNone, fault)
	})
}

func TestDecodeFuzzSafety(t *testing.T) {
	t.Parallel()

	table := compileFixture(t, fixture.Root())
	// A deterministic pseudo-random byte stream stands in for arbitrary
	// fuzzer input (spec.md §8 property 7): decoding must never panic or
	// read past the buffer, whatever the bytes say.
	var state uint64 = 0x2545F4914F6CDD1D
	next := func() byte {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		return byte(state)
	}

	for trial := 0; trial < 500; trial++ {
		n := trial % 40
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = next()
		}
		require.NotPanicsf(t, func() {
			a := arena.New()
			obj := tdp.NewObject(a, table)
			codec.DecodeFlat(a, obj, table, buf)
		}, "trial %d, buf=% x", trial, buf)
	}
}

func TestDecodeStackOverflow(t *testing.T) {
	t.Parallel()

	md := fixture.Recursive()
	table := compileFixture(t, md)

	const depth = 5
	buildNested := func(n int) []byte {
		var build func(int) []byte
		build = func(remaining int) []byte {
			if remaining == 0 {
				return nil
			}
			inner := build(remaining - 1)
			buf := make([]byte, len(inner)+8)
			w := wire.Writer{Buf: buf, Pos: len(buf)}
			w.WriteSlice(inner)
			w.WriteVarint(uint64(len(inner)))
			w.WriteTag(2<<3 | 2) // field "child" = 2, length-delimited
			return buf[w.Pos:]
		}
		return build(n)
	}

	within := buildNested(depth)
	a := arena.New()
	obj := tdp.NewObject(a, table)
	require.Equal(t, codec.FaultNone, codec.DecodeFlat(a, obj, table, within, codec.WithMaxDepth(depth+1)))

	tooDeep := buildNested(depth + 2)
	a2 := arena.New()
	obj2 := tdp.NewObject(a2, table)
	assert.Equal(t, codec.FaultStackOverflow, codec.DecodeFlat(a2, obj2, table, tooDeep, codec.WithMaxDepth(depth+1)))
}
