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

// Package arena provides a monotonic bump allocator for the pointer-free
// byte storage backing decoded messages (has-bit words and scalar field
// bytes).
//
// # Design
//
// An Arena owns a singly-linked list of blocks of two kinds:
//
//   - bump blocks, which are carved into by small allocations via a
//     cursor/end pair;
//   - dedicated blocks, one allocation each, spliced in below the current
//     bump block when an incoming request does not fit the bump block's
//     remaining space but that remaining space is still large enough to be
//     worth preserving for future small allocations.
//
// The first bump block is 8 KiB; each subsequent block doubles in size up
// to a 1 MiB cap. All memory returned by Alloc is valid for the lifetime of
// the Arena and is never individually freed: Reset drops every block at
// once, after which all previously-returned memory must not be touched.
//
// Arena does not allocate the pointer-bearing slots of a message (submessage
// pointers, repeated-field backing slices): those remain ordinary
// Go-GC-managed values reachable from the object graph rooted at whatever
// the caller holds. See DESIGN.md for why.
package arena

const (
	// defaultBlockSize is the size of the first bump block.
	defaultBlockSize = 8 * 1024
	// maxBlockSize caps the doubling growth of later bump blocks.
	maxBlockSize = 1024 * 1024
	// significantSpace is the "worth preserving" threshold from spec.md §4.1:
	// if the current bump block has at least this many bytes free, an
	// over-sized request gets a dedicated block instead of discarding the
	// remainder.
	significantSpace = 512
)

// block is one link in the arena's block list.
type block struct {
	buf        []byte
	next       int // bump cursor into buf; unused (len(buf)==cap(buf)) for dedicated blocks
	dedicated  bool
	prevInList *block
}

// Arena is a bump allocator. The zero value is an empty, ready-to-use arena.
//
// An Arena is not safe for concurrent use, and must not be shared between
// goroutines while allocations are in flight (spec.md §5): messages
// allocated from it inherit its goroutine affinity.
type Arena struct {
	current *block
	total   int
}

// New returns an empty Arena.
func New() *Arena {
	return &Arena{}
}

// Alloc returns size bytes of zeroed memory valid for the lifetime of the
// Arena. Allocations from a bump block are packed back to back with no
// padding, so the returned slice has no alignment beyond one byte.
func (a *Arena) Alloc(size int) []byte {
	if size == 0 {
		return nil
	}
	if a.current != nil && !a.current.dedicated {
		avail := len(a.current.buf) - a.current.next
		if avail >= size {
			start := a.current.next
			a.current.next += size
			return a.current.buf[start : start+size : start+size]
		}
		return a.allocSlow(size, avail)
	}
	return a.allocSlow(size, 0)
}

// allocSlow handles the cases where the current bump block (if any) cannot
// satisfy the request.
func (a *Arena) allocSlow(size, avail int) []byte {
	if a.current != nil && avail >= significantSpace {
		// Significant free space remains in the current bump block: don't
		// discard it. Splice a dedicated block in below the current head so
		// the bump block stays head-of-list and keeps absorbing small
		// allocations.
		dedicated := &block{
			buf:        make([]byte, size),
			dedicated:  true,
			prevInList: a.current.prevInList,
		}
		a.current.prevInList = dedicated
		a.total += size
		return dedicated.buf
	}

	// Little space left (or no block yet): allocate a new bump block sized
	// by the doubling rule, and promote it to head.
	newSize := defaultBlockSize
	if a.current != nil {
		cur := len(a.current.buf)
		if a.current.dedicated {
			cur = defaultBlockSize
		}
		newSize = min(cur*2, maxBlockSize)
	}
	if newSize < size {
		newSize = size
	}

	b := &block{
		buf:        make([]byte, newSize),
		prevInList: a.current,
	}
	b.next = size
	a.current = b
	a.total += newSize
	return b.buf[:size:size]
}

// BytesAllocated returns the total number of bytes allocated across every
// block this Arena currently owns (original_source/src/arena.rs
// `bytes_allocated`, kept as a diagnostic).
func (a *Arena) BytesAllocated() int {
	return a.total
}

// Reset releases every block this Arena owns. Memory previously returned by
// Alloc must not be used after calling Reset.
func (a *Arena) Reset() {
	a.current = nil
	a.total = 0
}
