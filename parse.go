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
	"github.com/timandy/routine"

	"github.com/turbopb/turbopb/internal/codec"
)

// decoderPool holds one reusable *codec.Decoder per goroutine (see the
// routine entry in SPEC_FULL.md §B): a server decoding a steady stream of short
// messages on the same goroutine (one per connection, say) reuses the
// previous Decoder's stack and patch-buffer capacity instead of allocating
// fresh ones for every message. Unlike a sync.Pool, a thread-local slot is
// never swept under memory pressure and never handed to a different
// goroutine concurrently, so a Decoder taken out of the slot can be reset
// and used without any synchronization.
var decoderPool = routine.NewThreadLocalWithInitial[*codec.Decoder](func() *codec.Decoder { return nil })

// DecodeFlat decodes the entirety of buf into a new Message of type ty,
// allocated from a, in a single call (spec.md §6.1).
func DecodeFlat(a *Arena, ty *MessageType, buf []byte, opts ...DecodeOption) (*Message, error) {
	m := ty.New(a)
	if err := DecodeFlatInto(m, buf, opts...); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeFlatInto decodes the entirety of buf into the already-allocated
// message m, overwriting its fields (spec.md §6.1).
func DecodeFlatInto(m *Message, buf []byte, opts ...DecodeOption) error {
	fault := codec.DecodeFlat(m.arena, m.obj, m.typ.table, buf, decodeOptions(opts)...)
	return wrapFault("decode", fault)
}

// Decoder is a resumable decode state machine over a [Message] (spec.md
// §4.3 "Resumable streaming"): feed it the encoded stream in arbitrarily
// sized chunks via Resume, in order, then call Finish.
type Decoder struct {
	inner *codec.Decoder
}

// NewDecoder creates a Decoder that populates m as chunks are fed to it,
// borrowing a pooled *codec.Decoder from the calling goroutine's slot if one
// is available.
func NewDecoder(m *Message, opts ...DecodeOption) *Decoder {
	if inner := decoderPool.Get(); inner != nil {
		decoderPool.Set(nil)
		inner.Reset(m.arena, m.obj, m.typ.table, decodeOptions(opts)...)
		return &Decoder{inner: inner}
	}
	return &Decoder{inner: codec.NewDecoder(m.arena, m.obj, m.typ.table, decodeOptions(opts)...)}
}

// Resume feeds the next chunk of the encoded stream to the decoder. Chunks
// may be of any size and need not align with any logical boundary in the
// encoding.
func (d *Decoder) Resume(chunk []byte) error {
	return wrapFault("decode", d.inner.Resume(chunk))
}

// Finish signals end of stream, reports whether the decode completed in a
// well-formed state, and returns the underlying *codec.Decoder to the
// calling goroutine's pool slot for the next NewDecoder call to reuse. After
// Finish, Resume must not be called again; a second Finish does nothing and
// returns nil.
func (d *Decoder) Finish() error {
	if d.inner == nil {
		return nil
	}
	fault := d.inner.Finish()
	decoderPool.Set(d.inner)
	d.inner = nil
	return wrapFault("decode", fault)
}
