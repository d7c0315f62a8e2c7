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

// Repeated is the backing container for every repeated field and for
// string/bytes field bodies (spec.md §4.5). It is a thin wrapper over a
// native Go slice: unlike the teacher's internal/arena.Slice, which models a
// three-word {ptr,cap,len} header manually so it can live inside an
// arena-allocated struct, Repeated lives in Object.ptrs (ordinary
// Go-GC-managed memory), so it can simply hold a slice and let append do the
// doubling-growth work.
type Repeated[T any] struct {
	vals []T
}

// Len returns the number of elements.
func (r *Repeated[T]) Len() int { return len(r.vals) }

// At returns the element at index i.
func (r *Repeated[T]) At(i int) T { return r.vals[i] }

// Set overwrites the element at index i.
func (r *Repeated[T]) Set(i int, v T) { r.vals[i] = v }

// Slice returns the live backing slice. Callers must not retain it past the
// next mutation of r.
func (r *Repeated[T]) Slice() []T { return r.vals }

// Push appends v, growing the backing slice by Go's native doubling
// amortized-growth strategy.
func (r *Repeated[T]) Push(v T) { r.vals = append(r.vals, v) }

// Append appends every element of vs (spec.md §4.5 "append"), used by the
// decoder to absorb a length-delimited payload (or a chunk of one) in a
// single call instead of one Push per byte.
func (r *Repeated[T]) Append(vs []T) { r.vals = append(r.vals, vs...) }

// Clear empties the container without releasing its backing array, so a
// reused Object can repopulate a repeated field without a fresh allocation.
func (r *Repeated[T]) Clear() { r.vals = r.vals[:0] }

// FromStatic replaces the container's contents with a pre-built slice,
// typically one produced once at compile time for a field's static default
// (spec.md §4.5 "FromStatic").
func (r *Repeated[T]) FromStatic(vals []T) { r.vals = vals }
