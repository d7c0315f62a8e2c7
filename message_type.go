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
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/turbopb/turbopb/internal/arena"
	"github.com/turbopb/turbopb/internal/tdp"
)

// MessageType is a compiled, process-lifetime dispatch table for one message
// type (spec.md §3.2), the handle every decode/encode/New call in this
// package is rooted at. Obtain one with [Compile] or [CompileCached].
type MessageType struct {
	table *tdp.Table
}

// Descriptor returns the descriptor this type was compiled from.
func (t *MessageType) Descriptor() protoreflect.MessageDescriptor {
	return t.table.Descriptor
}

// ID returns a process-unique identifier for this compiled type, stable for
// the type's lifetime, suitable as a map/cache key (SPEC_FULL.md §B); unlike
// the *MessageType pointer itself, it survives being logged or compared
// after the type has been garbage collected.
func (t *MessageType) ID() [16]byte { return t.table.ID }

// New allocates a new, zero-valued [Message] of this type, backed by a. a
// must outlive the returned Message and anything reachable from it.
func (t *MessageType) New(a *arena.Arena) *Message {
	return &Message{
		obj:   tdp.NewObject(a, t.table),
		typ:   t,
		arena: a,
	}
}

// Format implements [fmt.Formatter], printing the type's full name.
func (t *MessageType) Format(f fmt.State, verb rune) {
	if f.Flag('#') {
		fmt.Fprintf(f, fmt.FormatString(f, verb), t.Descriptor())
		return
	}
	fmt.Fprint(f, t.Descriptor().FullName())
}
