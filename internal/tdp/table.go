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

// Package tdp ("table-driven protobuf") holds the per-message-type static
// metadata (spec.md §3.2) and the Object layout (§3.1) the codec dispatches
// through. Everything here is produced by internal/tdp/compiler and
// consumed read-only by internal/codec.
package tdp

import "google.golang.org/protobuf/reflect/protoreflect"

// MaxFieldNumber is the largest field number a Table may address
// (spec.md §3.2 invariant: "max field number ≤ 2047").
const MaxFieldNumber = 2047

// DecodeEntry is one slot of a Table's decode-entry array, indexed by field
// number. Holes (field numbers the message type does not declare) hold the
// zero value, whose Kind is Unknown.
type DecodeEntry struct {
	Kind Kind
	// HasBit is the bit index, into the has-bit words at the start of
	// Object.raw, this field's presence is recorded at. Every non-repeated
	// field, submessages and groups included, has one; repeated fields have
	// none and hold -1, conveying presence through non-empty storage instead
	// (spec.md §3.1).
	HasBit int32
	// ScalarOffset is the byte offset into Object.raw for scalar kinds.
	ScalarOffset uint32
	// PtrIndex is the slot index into Object.ptrs for pointer-region kinds
	// (Bytes, Message, Group, and all Repeated kinds).
	PtrIndex uint32
	// AuxIndex indexes into Table.Aux for Message/Group/RepeatedMessage/
	// RepeatedGroup kinds, resolving to the child type's Table.
	AuxIndex uint32
}

// EncodeEntry is one element of a Table's encode-entry array, one per
// declared field, in declaration order (spec.md §3.2). The encoder walks
// this array from last to first, since it emits bytes backwards.
type EncodeEntry struct {
	DecodeEntry
	// Tag is the pre-computed (field_number<<3)|wire_type tag for this
	// field, so the encoder never recomputes it.
	Tag uint64
}

// AuxEntry steers access to a submessage/group field's child object
// (spec.md §3.2/glossary "Aux entry").
type AuxEntry struct {
	Child *Table
}

// Table is the static, process-lifetime metadata for one message type
// (spec.md §3.2). Tables referencing each other (for recursive message
// graphs) simply hold ordinary Go pointers; unlike the original Rust
// implementation and the teacher's byte-offset-linked tables, there is no
// separate relocation/linking pass, since Go's garbage collector already
// keeps mutually-referential Tables alive together.
type Table struct {
	// ID is a process-unique identifier stamped at compile time and exposed
	// as MessageType.ID (SPEC_FULL.md §B). Unlike the Table's own address,
	// it is not reused if the Table is garbage collected and another one
	// happens to land at the same address.
	ID [16]byte

	// Descriptor is retained only for reflection and debugging by the core
	// (spec.md §3.2); the codec never branches on it.
	Descriptor protoreflect.MessageDescriptor

	// Size is the layout of one Object of this type: has-bit word count,
	// scalar region length in bytes, and pointer-slot count.
	Size ObjectSize

	// Decode is indexed by field number (0..len(Decode)-1); see DecodeEntry.
	Decode []DecodeEntry
	// Encode is one entry per declared field, in declaration order.
	Encode []EncodeEntry
	// Aux is indexed by DecodeEntry/EncodeEntry.AuxIndex.
	Aux []AuxEntry

	// DiscardUnknown, if true, drops unknown fields instead of accumulating
	// them on Object.cold (spec.md §6.2, SPEC_FULL.md §C.2).
	DiscardUnknown bool
}

// ObjectSize is the fixed per-type layout an Object of this Table's type
// requires (spec.md §3.1 "Total object size is fixed per type").
type ObjectSize struct {
	// BitWords is the number of 32-bit has-bit words, stored at offset 0 of
	// Object.raw (spec.md §3.1).
	BitWords int
	// RawBytes is the length of Object.raw: the has-bit words followed by
	// every scalar field's slot, contiguous, exactly as spec.md §3.1
	// describes. ScalarOffset values in DecodeEntry/EncodeEntry are byte
	// offsets into this region (so they start at BitWords*4, not 0).
	RawBytes int
	// PtrSlots is the number of entries in the ptrs region: string/bytes
	// fields, submessage pointers, and repeated containers of any kind.
	PtrSlots int
}

// DecodeEntryAt returns the decode entry for fieldNumber, or the Unknown
// zero value if fieldNumber is out of range or undeclared.
func (t *Table) DecodeEntryAt(fieldNumber uint32) DecodeEntry {
	if fieldNumber == 0 || int(fieldNumber) >= len(t.Decode) {
		return DecodeEntry{}
	}
	return t.Decode[fieldNumber]
}
