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

package turbopb

import (
	"github.com/turbopb/turbopb/internal/arena"
	"github.com/turbopb/turbopb/internal/tdp"
)

// Message is a message value of some compiled [MessageType] (spec.md §3.1).
//
// A *Message and every submessage reachable from it are allocated out of the
// same Arena: holding onto any one of them keeps the whole object graph's
// Arena blocks alive, just as the teacher's arena-backed *message does, since
// this package carries that same allocation discipline forward rather than
// replacing it with one Object per heap allocation.
//
// Message deliberately does not implement [protoreflect.Message] or
// [proto.Message]: this package is a codec core, not a reflection API (see
// the package doc comment's Support status).
type Message struct {
	obj   *tdp.Object
	typ   *MessageType
	arena *arena.Arena
}

// New allocates a new, zero-valued Message of type ty, backed by a. This is
// the same operation as ty.New(a); it exists so that the common case reads
// turbopb.New(a, ty) the way proto.Message constructors typically do.
func New(a *arena.Arena, ty *MessageType) *Message {
	return ty.New(a)
}

// Type returns the compiled type this message was allocated from.
func (m *Message) Type() *MessageType { return m.typ }

// Arena returns the arena this message's storage, and every submessage
// reachable from it, is allocated from.
func (m *Message) Arena() *arena.Arena { return m.arena }

// Object exposes the low-level, table-indexed storage this message wraps,
// for callers that walk fields directly by compiled index (e.g. a dump
// tool) rather than through generated typed accessors, which this package
// does not provide (see the package doc comment's Support status).
func (m *Message) Object() *tdp.Object { return m.obj }

// Clone returns a deep copy of m, allocated from a fresh [arena.Arena] that
// shares nothing with m's own (see the go-deepcopy entry in SPEC_FULL.md
// §B). The clone's arena is
// returned alongside it since the caller, not this package, owns its
// lifetime.
func (m *Message) Clone() (*Message, *arena.Arena) {
	a := arena.New()
	return &Message{
		obj:   tdp.Clone(a, m.obj),
		typ:   m.typ,
		arena: a,
	}, a
}
