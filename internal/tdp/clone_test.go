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

package tdp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbopb/turbopb/internal/arena"
	"github.com/turbopb/turbopb/internal/tdp"
)

func TestCloneNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, tdp.Clone(arena.New(), nil))
}

func TestCloneIndependentScalarsAndBytes(t *testing.T) {
	t.Parallel()

	table := &tdp.Table{Size: tdp.ObjectSize{BitWords: 1, RawBytes: 8, PtrSlots: 1}}
	src := tdp.NewObject(arena.New(), table)
	src.SetScalar32(4, 42)
	src.SetHasBit(0)
	src.Bytes(0).Append([]byte("hello"))

	clone := tdp.Clone(arena.New(), src)
	require.NotSame(t, src, clone)
	assert.Equal(t, uint32(42), clone.GetScalar32(4))
	assert.True(t, clone.HasBit(0))
	assert.Equal(t, []byte("hello"), clone.Bytes(0).Slice())

	// Mutating the clone must not affect the source.
	clone.Bytes(0).Clear()
	clone.Bytes(0).Append([]byte("world"))
	assert.Equal(t, []byte("hello"), src.Bytes(0).Slice())
}

func TestCloneNestedMessages(t *testing.T) {
	t.Parallel()

	childTable := &tdp.Table{Size: tdp.ObjectSize{RawBytes: 4}}
	parentTable := &tdp.Table{Size: tdp.ObjectSize{PtrSlots: 1}}

	a := arena.New()
	src := tdp.NewObject(a, parentTable)
	child := src.Child(a, 0, childTable)
	child.SetScalar32(0, 7)

	clone := tdp.Clone(arena.New(), src)
	clonedChild := clone.ChildOrNil(0)
	require.NotNil(t, clonedChild)
	require.NotSame(t, child, clonedChild)
	assert.Equal(t, uint32(7), clonedChild.GetScalar32(0))

	clonedChild.SetScalar32(0, 99)
	assert.Equal(t, uint32(7), child.GetScalar32(0))
}

func TestCloneRepeatedMessages(t *testing.T) {
	t.Parallel()

	childTable := &tdp.Table{Size: tdp.ObjectSize{RawBytes: 4}}
	parentTable := &tdp.Table{Size: tdp.ObjectSize{PtrSlots: 1}}

	a := arena.New()
	src := tdp.NewObject(a, parentTable)
	for i := 0; i < 5; i++ {
		c := src.AddChild(a, 0, childTable)
		c.SetScalar32(0, uint32(i))
	}

	clone := tdp.Clone(arena.New(), src)
	r := clone.RepeatedMessages(0)
	require.Equal(t, 5, r.Len())
	for i := 0; i < 5; i++ {
		assert.Equal(t, uint32(i), r.At(i).GetScalar32(0))
	}
}

func TestCloneUnknownFields(t *testing.T) {
	t.Parallel()

	table := &tdp.Table{}
	src := tdp.NewObject(arena.New(), table)
	src.MutableCold().Unknown = []byte{1, 2, 3, 4}

	clone := tdp.Clone(arena.New(), src)
	require.NotNil(t, clone.ColdOrNil())
	assert.Equal(t, []byte{1, 2, 3, 4}, clone.ColdOrNil().Unknown)
}
