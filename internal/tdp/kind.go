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

import "google.golang.org/protobuf/encoding/protowire"

// Kind is the closed set of field kinds the engine dispatches on
// (spec.md §4.3). Enums are represented as Varint32; strings share the
// Bytes kind (UTF-8 validation is not performed by the core).
type Kind uint8

const (
	Unknown Kind = iota

	Varint32
	Varint64
	Varint32Zigzag
	Varint64Zigzag
	Bool
	Fixed32
	Fixed64
	Bytes
	Message
	Group

	RepeatedVarint32
	RepeatedVarint64
	RepeatedVarint32Zigzag
	RepeatedVarint64Zigzag
	RepeatedBool
	RepeatedFixed32
	RepeatedFixed64
	RepeatedBytes
	RepeatedMessage
	RepeatedGroup
)

// Repeated reports whether k is the repeated variant of a scalar/message/
// group kind.
func (k Kind) Repeated() bool { return k >= RepeatedVarint32 }

// WireType returns the wire type a tag for this field kind must carry, and
// whether the kind even validates a single fixed wire type (Unknown does
// not apply here; callers skip the check for it).
func (k Kind) WireType() protowire.Type {
	switch k {
	case Varint32, Varint64, Varint32Zigzag, Varint64Zigzag, Bool,
		RepeatedVarint32, RepeatedVarint64, RepeatedVarint32Zigzag, RepeatedVarint64Zigzag, RepeatedBool:
		return protowire.VarintType
	case Fixed64, RepeatedFixed64:
		return protowire.Fixed64Type
	case Fixed32, RepeatedFixed32:
		return protowire.Fixed32Type
	case Bytes, Message, RepeatedBytes, RepeatedMessage:
		return protowire.BytesType
	case Group, RepeatedGroup:
		return protowire.StartGroupType
	default:
		return protowire.VarintType
	}
}

// String implements fmt.Stringer for debug logging.
func (k Kind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	case Varint32:
		return "varint32"
	case Varint64:
		return "varint64"
	case Varint32Zigzag:
		return "varint32zigzag"
	case Varint64Zigzag:
		return "varint64zigzag"
	case Bool:
		return "bool"
	case Fixed32:
		return "fixed32"
	case Fixed64:
		return "fixed64"
	case Bytes:
		return "bytes"
	case Message:
		return "message"
	case Group:
		return "group"
	case RepeatedVarint32:
		return "repeated varint32"
	case RepeatedVarint64:
		return "repeated varint64"
	case RepeatedVarint32Zigzag:
		return "repeated varint32zigzag"
	case RepeatedVarint64Zigzag:
		return "repeated varint64zigzag"
	case RepeatedBool:
		return "repeated bool"
	case RepeatedFixed32:
		return "repeated fixed32"
	case RepeatedFixed64:
		return "repeated fixed64"
	case RepeatedBytes:
		return "repeated bytes"
	case RepeatedMessage:
		return "repeated message"
	case RepeatedGroup:
		return "repeated group"
	default:
		return "invalid"
	}
}

// ScalarSize returns the number of bytes a single value of this kind
// occupies in an Object's scalar region. Kinds that live in the pointer
// region (Bytes, Message, Group, and all Repeated kinds) return 0.
func (k Kind) ScalarSize() int {
	switch k {
	case Varint32, Varint32Zigzag, Fixed32:
		return 4
	case Varint64, Varint64Zigzag, Fixed64:
		return 8
	case Bool:
		return 1
	default:
		return 0
	}
}

// IsPointerSlot reports whether this kind's storage lives in an Object's
// ptrs region instead of its scalars region.
func (k Kind) IsPointerSlot() bool {
	return k.ScalarSize() == 0
}
