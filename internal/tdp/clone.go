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

import (
	"github.com/tiendc/go-deepcopy"

	"github.com/turbopb/turbopb/internal/arena"
)

// Clone returns a structurally independent copy of o, reallocated under a
// (see the go-deepcopy entry in SPEC_FULL.md §B). Submessage and RepeatedMessage pointers
// are followed and rebuilt recursively so that the clone shares no Object
// with o; every other ptrs-region value (repeated scalar/bytes containers)
// carries no arena-pointer invariants of its own, so it is simply handed to
// deepcopy.Copy.
func Clone(a *arena.Arena, o *Object) *Object {
	if o == nil {
		return nil
	}
	dst := NewObject(a, o.Table)
	copy(dst.raw, o.raw)
	for i, v := range o.ptrs {
		if v == nil {
			continue
		}
		dst.ptrs[i] = clonePtr(a, v)
	}
	if o.cold != nil {
		clone := &Cold{}
		if err := deepcopy.Copy(&clone.Unknown, &o.cold.Unknown); err != nil {
			clone.Unknown = append([]byte(nil), o.cold.Unknown...)
		}
		dst.cold = clone
	}
	return dst
}

func clonePtr(a *arena.Arena, v any) any {
	switch x := v.(type) {
	case *Object:
		return Clone(a, x)
	case *Repeated[*Object]:
		out := &Repeated[*Object]{}
		for i := 0; i < x.Len(); i++ {
			out.Push(Clone(a, x.At(i)))
		}
		return out
	case *Repeated[*Repeated[byte]]:
		out := &Repeated[*Repeated[byte]]{}
		for i := 0; i < x.Len(); i++ {
			out.Push(cloneBytes(x.At(i)))
		}
		return out
	case *Repeated[byte]:
		return cloneBytes(x)
	case *Repeated[uint32]:
		return cloneScalars(x)
	case *Repeated[uint64]:
		return cloneScalars(x)
	case *Repeated[int32]:
		return cloneScalars(x)
	case *Repeated[int64]:
		return cloneScalars(x)
	case *Repeated[bool]:
		return cloneScalars(x)
	default:
		return v
	}
}

func cloneBytes(x *Repeated[byte]) *Repeated[byte] {
	out := &Repeated[byte]{}
	if err := deepcopy.Copy(&out.vals, &x.vals); err != nil {
		out.vals = append([]byte(nil), x.vals...)
	}
	return out
}

func cloneScalars[T any](x *Repeated[T]) *Repeated[T] {
	out := &Repeated[T]{}
	if err := deepcopy.Copy(&out.vals, &x.vals); err != nil {
		out.vals = append([]T(nil), x.vals...)
	}
	return out
}
