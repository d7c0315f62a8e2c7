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

import "github.com/turbopb/turbopb/internal/arena"

// Arena is a bump allocator that backs the has-bit and scalar storage of
// every [Message] allocated from it, and of every submessage reachable from
// that Message, with a list of memory blocks (spec.md §4.1). Pointer slots
// (submessage pointers, repeated containers) are ordinary Go values, not
// arena memory. An Arena is not safe for concurrent use while allocations
// are in flight.
type Arena = arena.Arena

// NewArena returns a new, empty Arena.
func NewArena() *Arena { return arena.New() }
