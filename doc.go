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

// Package turbopb is a table-driven codec engine for Protobuf messages,
// built around an arena-allocated object graph and a descriptor-compiled
// dispatch table, with first-class support for resumable streaming decode
// and encode driven by successive byte chunks of arbitrary size.
//
// To use this package, compile a [MessageType] from a
// [protoreflect.MessageDescriptor] with [Compile]. Allocate messages of
// that type with [MessageType.New], then populate them with [DecodeFlat]
// or a [Decoder] and serialize them with [EncodeFlat] or an [Encoder].
//
// # Support status
//
// This package is the codec core only. It does not implement:
//
//   - Code generation: [Compile] builds dispatch tables at process runtime
//     from a descriptor, the same way a generated accessor type would, but
//     there is no static codegen step or generated Go source.
//   - The [protoreflect.Message] reflection interface, JSON/text
//     marshaling, or any other serde adapter.
//   - Map fields, or oneofs beyond whatever a [MessageType]'s tables
//     express field-by-field.
//
// Groups are supported end to end (decode, encode, and skip-by-wire-type
// for unrecognized fields), unlike some dynamic Protobuf libraries that
// treat them as unknown data.
package turbopb
