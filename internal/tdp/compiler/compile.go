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

// Package compiler turns a protoreflect.MessageDescriptor into a tdp.Table
// (spec.md §4.6, the "code generator" boundary). Unlike a real codegen
// pass, Compile runs at process runtime against an arbitrary descriptor,
// the same way the teacher's compiler does, so message graphs discovered
// only at runtime (loaded FileDescriptorSets, reflection) can still be
// turbocharged.
package compiler

import (
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/turbopb/turbopb/internal/debug"
	"github.com/turbopb/turbopb/internal/tdp"
)

// Options configures Compile.
type Options struct {
	// DiscardUnknown, when true, makes the compiled Table drop unknown
	// fields during decode instead of accumulating them (spec.md §6.2).
	DiscardUnknown bool
}

// Compile compiles md and every message type reachable from it (through
// submessage/group fields) into a *tdp.Table graph, returning the Table for
// md itself.
//
// Compile returns an error instead of panicking on conditions a descriptor
// pool can't prevent: a field number beyond tdp.MaxFieldNumber.
func Compile(md protoreflect.MessageDescriptor, opts Options) (*tdp.Table, error) {
	c := &compiler{
		opts:   opts,
		tables: make(map[protoreflect.FullName]*tdp.Table),
	}
	t, err := c.tableFor(md)
	if err != nil {
		return nil, err
	}
	if debug.Enabled {
		debug.Log("compiled %s: %d types", md.FullName(), len(c.tables))
	}
	return t, nil
}

// compiler walks a message descriptor graph exactly once per distinct
// message type, memoizing by full name so that recursive/cyclic message
// graphs terminate.
//
// Unlike the teacher's compiler.compile, which must first build a
// dependency DAG (internal/scc) and emit a single relocatable byte buffer
// that it then links in a second pass, this compiler needs neither: each
// message type gets its own *tdp.Table allocated up front (a "stub", holding
// only its Descriptor) and stored in c.tables *before* its fields are
// walked, so a field that refers back to an ancestor message simply
// receives the same, already-allocated pointer. Filling in that Table's
// Decode/Encode/Aux slices afterwards mutates the very object every other
// Table in the cycle already points to — Go's garbage collector keeps the
// whole mutually-referential graph alive for as long as any one Table is
// reachable, which is exactly what a generational/relocating linker is for
// in a language without a tracing GC.
type compiler struct {
	opts   Options
	tables map[protoreflect.FullName]*tdp.Table
}

func (c *compiler) tableFor(md protoreflect.MessageDescriptor) (*tdp.Table, error) {
	if t, ok := c.tables[md.FullName()]; ok {
		return t, nil
	}

	var id [16]byte
	copy(id[:], uuid.New()[:])
	t := &tdp.Table{
		ID:             id,
		Descriptor:     md,
		DiscardUnknown: c.opts.DiscardUnknown,
	}
	c.tables[md.FullName()] = t

	if err := c.build(t, md); err != nil {
		return nil, err
	}
	return t, nil
}

// layout accumulates an Object's shape while fields are assigned slots.
type layout struct {
	bits int // has-bits allocated so far
	raw  int // bytes allocated so far in the scalar region
	ptrs int // pointer slots allocated so far
}

func (c *compiler) build(t *tdp.Table, md protoreflect.MessageDescriptor) error {
	fields := md.Fields()

	maxNumber := 0
	for i := 0; i < fields.Len(); i++ {
		n := int(fields.Get(i).Number())
		if n > tdp.MaxFieldNumber {
			return fmt.Errorf("turbopb: %s field %s: field number %d exceeds max %d",
				md.FullName(), fields.Get(i).Name(), n, tdp.MaxFieldNumber)
		}
		if n > maxNumber {
			maxNumber = n
		}
	}

	decode := make([]tdp.DecodeEntry, maxNumber+1)
	encode := make([]tdp.EncodeEntry, 0, fields.Len())
	var aux []tdp.AuxEntry
	l := &layout{}

	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.IsMap() {
			return fmt.Errorf("turbopb: %s field %s: map fields are not supported", md.FullName(), fd.Name())
		}
		kind, err := fieldKind(fd)
		if err != nil {
			return fmt.Errorf("turbopb: %s field %s: %w", md.FullName(), fd.Name(), err)
		}

		entry := tdp.DecodeEntry{Kind: kind, HasBit: -1}

		if !kind.Repeated() {
			entry.HasBit = int32(l.bits)
			l.bits++
		}

		if kind.IsPointerSlot() {
			entry.PtrIndex = uint32(l.ptrs)
			l.ptrs++
		} else {
			size := kind.ScalarSize()
			entry.ScalarOffset = uint32(l.raw) // relative; rebased below
			l.raw += size
		}

		if childKind(kind) {
			childMD := fd.Message()
			child, err := c.tableFor(childMD)
			if err != nil {
				return err
			}
			entry.AuxIndex = uint32(len(aux))
			aux = append(aux, tdp.AuxEntry{Child: child})
		}

		decode[fd.Number()] = entry
		encode = append(encode, tdp.EncodeEntry{
			DecodeEntry: entry,
			Tag:         uint64(fd.Number())<<3 | uint64(kind.WireType()),
		})
	}

	bitWords := (l.bits + 31) / 32
	base := bitWords * 4
	for i := range decode {
		if decode[i].Kind != tdp.Unknown && !decode[i].Kind.IsPointerSlot() {
			decode[i].ScalarOffset += uint32(base)
		}
	}
	for i := range encode {
		if !encode[i].Kind.IsPointerSlot() {
			encode[i].ScalarOffset += uint32(base)
		}
	}

	t.Size = tdp.ObjectSize{
		BitWords: bitWords,
		RawBytes: base + l.raw,
		PtrSlots: l.ptrs,
	}
	t.Decode = decode
	t.Encode = encode
	t.Aux = aux
	return nil
}

// childKind reports whether kind carries an Aux-table reference to a child
// message type.
func childKind(k tdp.Kind) bool {
	switch k {
	case tdp.Message, tdp.Group, tdp.RepeatedMessage, tdp.RepeatedGroup:
		return true
	default:
		return false
	}
}

// fieldKind maps a protoreflect field descriptor to the closed tdp.Kind set
// (spec.md §4.3): every proto scalar type funnels into one of ten
// non-repeated kinds (enums share Varint32; strings share Bytes with
// bytes), doubled for repeated cardinality.
func fieldKind(fd protoreflect.FieldDescriptor) (tdp.Kind, error) {
	repeated := fd.IsList()

	switch fd.Kind() {
	case protoreflect.Int32Kind, protoreflect.Uint32Kind, protoreflect.EnumKind:
		if repeated {
			return tdp.RepeatedVarint32, nil
		}
		return tdp.Varint32, nil
	case protoreflect.Sint32Kind:
		if repeated {
			return tdp.RepeatedVarint32Zigzag, nil
		}
		return tdp.Varint32Zigzag, nil
	case protoreflect.Int64Kind, protoreflect.Uint64Kind:
		if repeated {
			return tdp.RepeatedVarint64, nil
		}
		return tdp.Varint64, nil
	case protoreflect.Sint64Kind:
		if repeated {
			return tdp.RepeatedVarint64Zigzag, nil
		}
		return tdp.Varint64Zigzag, nil
	case protoreflect.BoolKind:
		if repeated {
			return tdp.RepeatedBool, nil
		}
		return tdp.Bool, nil
	case protoreflect.Fixed32Kind, protoreflect.Sfixed32Kind, protoreflect.FloatKind:
		if repeated {
			return tdp.RepeatedFixed32, nil
		}
		return tdp.Fixed32, nil
	case protoreflect.Fixed64Kind, protoreflect.Sfixed64Kind, protoreflect.DoubleKind:
		if repeated {
			return tdp.RepeatedFixed64, nil
		}
		return tdp.Fixed64, nil
	case protoreflect.StringKind, protoreflect.BytesKind:
		if repeated {
			return tdp.RepeatedBytes, nil
		}
		return tdp.Bytes, nil
	case protoreflect.MessageKind:
		if repeated {
			return tdp.RepeatedMessage, nil
		}
		return tdp.Message, nil
	case protoreflect.GroupKind:
		if repeated {
			return tdp.RepeatedGroup, nil
		}
		return tdp.Group, nil
	default:
		return tdp.Unknown, fmt.Errorf("unsupported field kind %v", fd.Kind())
	}
}
