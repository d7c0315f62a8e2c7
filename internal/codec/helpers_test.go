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

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/turbopb/turbopb/internal/arena"
	"github.com/turbopb/turbopb/internal/tdp"
	"github.com/turbopb/turbopb/internal/tdp/compiler"
)

func compileFixture(t *testing.T, md protoreflect.MessageDescriptor) *tdp.Table {
	t.Helper()
	table, err := compiler.Compile(md, compiler.Options{})
	require.NoError(t, err)
	return table
}

func fieldEntry(t *testing.T, table *tdp.Table, md protoreflect.MessageDescriptor, name string) tdp.DecodeEntry {
	t.Helper()
	fd := md.Fields().ByName(protoreflect.Name(name))
	require.NotNilf(t, fd, "no field named %s", name)
	return table.DecodeEntryAt(uint32(fd.Number()))
}

// rootBuilder writes fields of a fixture.Root object by name, resolving
// offsets through the compiled table, so tests read like plain field
// assignment rather than raw offset arithmetic.
type rootBuilder struct {
	t     *testing.T
	a     *arena.Arena
	table *tdp.Table
	md    protoreflect.MessageDescriptor
	obj   *tdp.Object
}

func newRootBuilder(t *testing.T, a *arena.Arena, table *tdp.Table, md protoreflect.MessageDescriptor) *rootBuilder {
	return &rootBuilder{t: t, a: a, table: table, md: md, obj: tdp.NewObject(a, table)}
}

func (b *rootBuilder) setU32(name string, v uint32) *rootBuilder {
	e := fieldEntry(b.t, b.table, b.md, name)
	b.obj.SetScalar32(e.ScalarOffset, v)
	b.obj.SetHasBit(e.HasBit)
	return b
}

func (b *rootBuilder) setFixed64(name string, v uint64) *rootBuilder {
	e := fieldEntry(b.t, b.table, b.md, name)
	b.obj.SetScalar64(e.ScalarOffset, v)
	b.obj.SetHasBit(e.HasBit)
	return b
}

func (b *rootBuilder) setBytes(name string, v []byte) *rootBuilder {
	e := fieldEntry(b.t, b.table, b.md, name)
	b.obj.Bytes(e.PtrIndex).Append(v)
	b.obj.SetHasBit(e.HasBit)
	return b
}

func (b *rootBuilder) addChild(name string, x, y int32) *tdp.Object {
	e := fieldEntry(b.t, b.table, b.md, name)
	aux := b.table.Aux[e.AuxIndex]
	var child *tdp.Object
	if e.Kind.Repeated() {
		child = b.obj.AddChild(b.a, e.PtrIndex, aux.Child)
	} else {
		child = b.obj.Child(b.a, e.PtrIndex, aux.Child)
		b.obj.SetHasBit(e.HasBit)
	}
	childEntryX := aux.Child.DecodeEntryAt(1)
	childEntryY := aux.Child.DecodeEntryAt(2)
	child.SetScalar32(childEntryX.ScalarOffset, uint32(x))
	child.SetHasBit(childEntryX.HasBit)
	child.SetScalar32(childEntryY.ScalarOffset, uint32(y))
	child.SetHasBit(childEntryY.HasBit)
	return child
}

func (b *rootBuilder) build() *tdp.Object { return b.obj }
