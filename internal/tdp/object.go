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

package tdp

import "github.com/turbopb/turbopb/internal/arena"

// Object is one message instance's storage (spec.md §3.1).
//
// raw holds the has-bit words followed by scalar field slots, contiguous,
// bump-allocated from an Arena: zero-initializing it yields a valid default
// message, exactly as spec.md requires. ptrs holds everything that cannot
// live in pointer-free memory: string/bytes bodies, submessage pointers, and
// repeated containers of any kind. See DESIGN.md for why these two regions
// are split instead of being one contiguous record.
type Object struct {
	Table *Table
	raw   []byte
	ptrs  []any
	cold  *Cold
}

// Cold holds rarely-touched per-object state kept off the hot path (the
// teacher's Object similarly splits "hot" and "cold" fields): accumulated
// unknown fields (SPEC_FULL.md §C.2).
type Cold struct {
	Unknown []byte
}

// NewObject allocates a zeroed Object of the given Table's shape from a.
func NewObject(a *arena.Arena, t *Table) *Object {
	sz := t.Size
	raw := a.Alloc(sz.RawBytes)
	var ptrs []any
	if sz.PtrSlots > 0 {
		ptrs = make([]any, sz.PtrSlots)
	}
	return &Object{Table: t, raw: raw, ptrs: ptrs}
}

// HasBit reports whether the presence bit at index idx is set. A negative
// idx (used for kinds that don't consume a has-bit) always reports present.
func (o *Object) HasBit(idx int32) bool {
	if idx < 0 {
		return true
	}
	word := int(idx) / 32
	bit := uint(idx) % 32
	return (loadU32(o.raw, word*4)>>bit)&1 != 0
}

// SetHasBit sets the presence bit at index idx. A negative idx is a no-op.
func (o *Object) SetHasBit(idx int32) {
	if idx < 0 {
		return
	}
	word := int(idx) / 32
	bit := uint(idx) % 32
	v := loadU32(o.raw, word*4)
	storeU32(o.raw, word*4, v|(1<<bit))
}

func loadU32(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

func storeU32(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

// GetScalar32 reads a 4-byte scalar slot.
func (o *Object) GetScalar32(offset uint32) uint32 { return loadU32(o.raw, int(offset)) }

// SetScalar32 writes a 4-byte scalar slot.
func (o *Object) SetScalar32(offset uint32, v uint32) { storeU32(o.raw, int(offset), v) }

// GetScalar64 reads an 8-byte scalar slot.
func (o *Object) GetScalar64(offset uint32) uint64 {
	lo := uint64(loadU32(o.raw, int(offset)))
	hi := uint64(loadU32(o.raw, int(offset)+4))
	return lo | hi<<32
}

// SetScalar64 writes an 8-byte scalar slot.
func (o *Object) SetScalar64(offset uint32, v uint64) {
	storeU32(o.raw, int(offset), uint32(v))
	storeU32(o.raw, int(offset)+4, uint32(v>>32))
}

// GetBool reads a 1-byte scalar slot.
func (o *Object) GetBool(offset uint32) bool { return o.raw[offset] != 0 }

// SetBool writes a 1-byte scalar slot.
func (o *Object) SetBool(offset uint32, v bool) {
	if v {
		o.raw[offset] = 1
	} else {
		o.raw[offset] = 0
	}
}

// Bytes returns the *Repeated[byte] at a pointer slot, allocating it (empty)
// on first use so callers always get a non-nil handle to append to.
func (o *Object) Bytes(idx uint32) *Repeated[byte] { return repeatedScalar[byte](o, idx) }

// Child returns the *Object at a Message-kind pointer slot, allocating it
// from a if absent.
func (o *Object) Child(a *arena.Arena, idx uint32, childTable *Table) *Object {
	if o.ptrs[idx] == nil {
		o.ptrs[idx] = NewObject(a, childTable)
	}
	return o.ptrs[idx].(*Object)
}

// HasChild reports whether a Message-kind pointer slot is populated.
func (o *Object) HasChild(idx uint32) bool { return o.ptrs[idx] != nil }

// ChildOrNil returns the *Object at a Message-kind pointer slot, or nil.
func (o *Object) ChildOrNil(idx uint32) *Object {
	if o.ptrs[idx] == nil {
		return nil
	}
	return o.ptrs[idx].(*Object)
}

// AddChild appends a freshly allocated *Object to a RepeatedMessage/Group
// pointer slot and returns it.
func (o *Object) AddChild(a *arena.Arena, idx uint32, childTable *Table) *Object {
	r := o.repeatedObjects(idx)
	child := NewObject(a, childTable)
	r.Push(child)
	return child
}

// RepeatedMessages returns the *Repeated[*Object] at a pointer slot.
func (o *Object) RepeatedMessages(idx uint32) *Repeated[*Object] { return o.repeatedObjects(idx) }

func (o *Object) repeatedObjects(idx uint32) *Repeated[*Object] {
	return repeatedScalar[*Object](o, idx)
}

// RepeatedBytes returns the *Repeated[*Repeated[byte]] at a pointer slot,
// one element per repeated string/bytes value.
func (o *Object) RepeatedBytes(idx uint32) *Repeated[*Repeated[byte]] {
	return repeatedScalar[*Repeated[byte]](o, idx)
}

// repeatedScalar lazily allocates and type-asserts the container at ptrs[idx].
// Every repeated or bytes/string field kind routes through this: the Table
// guarantees that idx is only ever accessed with a single, consistent T for
// a given object shape, so the type assertion never fails in practice.
func repeatedScalar[T any](o *Object, idx uint32) *Repeated[T] {
	if o.ptrs[idx] == nil {
		o.ptrs[idx] = &Repeated[T]{}
	}
	return o.ptrs[idx].(*Repeated[T])
}

func (o *Object) RepeatedU32(idx uint32) *Repeated[uint32] { return repeatedScalar[uint32](o, idx) }
func (o *Object) RepeatedU64(idx uint32) *Repeated[uint64] { return repeatedScalar[uint64](o, idx) }
func (o *Object) RepeatedI32(idx uint32) *Repeated[int32]  { return repeatedScalar[int32](o, idx) }
func (o *Object) RepeatedI64(idx uint32) *Repeated[int64]  { return repeatedScalar[int64](o, idx) }
func (o *Object) RepeatedBool(idx uint32) *Repeated[bool]  { return repeatedScalar[bool](o, idx) }

// PtrOrNil returns the *Repeated[T] at a pointer slot without allocating one
// if the field was never populated, unlike the repeatedScalar family (whose
// lazy-allocate-on-read behavior suits the decoder, which is always about to
// write into what it reads, but is wrong for the encoder, which must never
// mutate the object it is only walking read-only).
func PtrOrNil[T any](o *Object, idx uint32) *Repeated[T] {
	if o.ptrs[idx] == nil {
		return nil
	}
	return o.ptrs[idx].(*Repeated[T])
}

// MutableCold returns this object's cold-storage block, allocating it if
// this is the first unknown field seen for the object.
func (o *Object) MutableCold() *Cold {
	if o.cold == nil {
		o.cold = &Cold{}
	}
	return o.cold
}

// ColdOrNil returns the cold-storage block if one was ever allocated.
func (o *Object) ColdOrNil() *Cold { return o.cold }
