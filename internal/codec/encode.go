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

package codec

import (
	"github.com/turbopb/turbopb/internal/debug"
	"github.com/turbopb/turbopb/internal/tdp"
	"github.com/turbopb/turbopb/internal/wire"
)

// encObjKind identifies what a suspended Encoder is in the middle of, the
// Go equivalent of original_source/src/encoding.rs's EncodeObject enum.
type encObjKind uint8

const (
	encDone encObjKind = iota
	encObject
	encBytes
)

// encodeStackEntry is one suspended encode frame (spec.md §4.4). byteCount
// is the running total-bytes-written count captured when this field's
// submessage/bytes body was entered; it doubles as a sentinel: a negative
// value marks a group, for which no length prefix is ever written (the
// START_GROUP/END_GROUP tags bound it instead). chain marks a frame whose obj
// is the preceding element of the same repeated message/group field, which
// becomes the current object once this frame is popped.
type encodeStackEntry struct {
	obj       *tdp.Object
	table     *tdp.Table
	index     int
	byteCount int
	tag       uint64
	chain     bool
}

// Encoder is a resumable encode state machine (spec.md §4.4): the write
// direction of the same resumable design as Decoder. Bytes are emitted
// backwards into each caller-supplied buffer (spec.md §4.2), so the first
// call returns the end of the stream and each later call returns the bytes
// that precede the previous call's: a caller driving Resume must assemble
// the stream by concatenating the returned chunks in reverse call order.
// Within one chunk the bytes are already in correct forward order.
type Encoder struct {
	maxDepth int
	stack    []encodeStackEntry

	obj   *tdp.Object
	table *tdp.Table
	index int

	kind    encObjKind
	pending []byte // remaining, not-yet-written prefix of an in-flight Bytes field

	// overrun is w.Pos-begin as the last pass left it. While the encode is
	// unfinished it is in [-SlopSize, 0]: how far the previous chunk's
	// cursor ran past (before) its own buffer's start, writing bytes that
	// logically belong to the very start of the next chunk. Once the encode
	// is done it can be positive: the offset of the first output byte.
	overrun int
	// byteCount is the cumulative number of bytes handed to Resume/
	// EncodeFlat across every call so far (spec.md §4.4 "byte_count").
	byteCount int

	patch []byte
}

// NewEncoder creates an Encoder that will serialize obj according to table.
func NewEncoder(obj *tdp.Object, table *tdp.Table, opts ...EncodeOption) *Encoder {
	cfg := encodeConfig{maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(&cfg)
	}
	return &Encoder{
		maxDepth: cfg.maxDepth,
		obj:      obj,
		table:    table,
		kind:     encObject,
		patch:    make([]byte, 2*wire.SlopSize),
	}
}

// Reset reconfigures e to serialize obj using table, reusing its
// already-allocated stack and patch-buffer capacity (the encode-side
// counterpart to Decoder.Reset).
func (e *Encoder) Reset(obj *tdp.Object, table *tdp.Table, opts ...EncodeOption) {
	cfg := encodeConfig{maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(&cfg)
	}
	e.maxDepth = cfg.maxDepth
	e.obj = obj
	e.table = table
	e.index = 0
	e.stack = e.stack[:0]
	e.kind = encObject
	e.pending = nil
	e.overrun = 0
	e.byteCount = 0
	for i := range e.patch {
		e.patch[i] = 0
	}
}

// EncodeOption configures an Encoder.
type EncodeOption func(*encodeConfig)

type encodeConfig struct {
	maxDepth int
}

// WithEncodeMaxDepth overrides DefaultMaxDepth as the depth bound stored on
// an Encoder. encodeLoop does not compare its stack depth against this
// bound, so an encode never fails with FaultStackOverflow.
func WithEncodeMaxDepth(n int) EncodeOption {
	return func(c *encodeConfig) { c.maxDepth = n }
}

// EncodeFlat serializes obj into buf in one call (spec.md §6.1
// "encode_flat"), returning the suffix of buf actually written (encoding
// grows backwards from the end of buf, per spec.md §4.2) or
// FaultBufferTooSmall if buf was not large enough to hold the whole message.
func EncodeFlat(obj *tdp.Object, table *tdp.Table, buf []byte, opts ...EncodeOption) ([]byte, Fault) {
	e := NewEncoder(obj, table, opts...)
	e.byteCount = len(buf)
	w := wire.Writer{Buf: buf, Pos: len(buf)}
	kind, fault := e.encodeLoop(&w, 0)
	if fault != FaultNone {
		return nil, fault
	}
	if kind != encDone {
		return nil, FaultBufferTooSmall
	}
	return buf[w.Pos:], FaultNone
}

// Resume emits the next chunk of the encoded stream into buf, returning the
// portion of buf holding valid output from this call, whether the whole
// message is now fully serialized, and a Fault.
//
// When done is false, the *entire* buf (all of it, not just a suffix) holds
// meaningful bytes the caller must forward before calling Resume again with
// a fresh buffer; when done is true, only the returned suffix is valid (the
// rest of buf was never reached).
//
// As with Decoder.Resume, every internal write pass is handed the full,
// untruncated backing array that holds the chunk plus SlopSize bytes of
// real memory immediately before it, so a write that overruns the chunk's
// logical start by up to SlopSize bytes lands in real, addressable
// positions instead of panicking on a negative slice index.
func (e *Encoder) Resume(buf []byte) (out []byte, done bool, fault Fault) {
	n := len(buf)
	if n > wire.SlopSize {
		copy(buf[n-wire.SlopSize:], e.patch[:wire.SlopSize])
		if f := e.goEncode(buf, wire.SlopSize, n); f != FaultNone {
			return nil, false, f
		}
		if e.kind == encDone {
			return buf[wire.SlopSize+e.overrun:], true, FaultNone
		}
		copy(e.patch[wire.SlopSize:], buf[:wire.SlopSize])
		if f := e.goEncode(e.patch, wire.SlopSize, 2*wire.SlopSize); f != FaultNone {
			return nil, false, f
		}
		copy(buf[:wire.SlopSize], e.patch[wire.SlopSize:])
		if e.kind == encDone && e.overrun >= 0 {
			return buf[e.overrun:], true, FaultNone
		}
		return buf, false, FaultNone
	}
	return e.resumeSmall(buf, n)
}

// resumeSmall implements Resume's len(buf) <= SlopSize branch: the patch
// buffer's live 16-byte window slides right by n to make room for n fresh
// bytes, which are encoded in place and copied back out to buf.
func (e *Encoder) resumeSmall(buf []byte, n int) (out []byte, done bool, fault Fault) {
	copy(e.patch[n:n+wire.SlopSize], e.patch[:wire.SlopSize])
	if f := e.goEncode(e.patch, wire.SlopSize, wire.SlopSize+n); f != FaultNone {
		return nil, false, f
	}
	copy(buf, e.patch[wire.SlopSize:wire.SlopSize+n])
	if e.kind == encDone && e.overrun >= 0 {
		return buf[e.overrun:], true, FaultNone
	}
	return buf, false, FaultNone
}

// goEncode is the Go analogue of original_source/src/encoding.rs's
// ResumableState::go_encode: it advances byteCount by the logical chunk
// length, applies the carried-over overrun, and dispatches into
// encodeLoop/encodeBytesContinuation. data is the full backing array;
// begin is the index within data the logical chunk starts at; end is the
// index one past where the logical chunk ends (chunkLen = end-begin).
func (e *Encoder) goEncode(data []byte, begin, end int) Fault {
	chunkLen := end - begin
	e.byteCount += chunkLen
	if e.overrun+chunkLen <= 0 {
		e.overrun += chunkLen
		return FaultNone
	}
	w := wire.Writer{Buf: data, Pos: end + e.overrun}
	var kind encObjKind
	var fault Fault
	if e.kind == encBytes {
		kind, fault = e.encodeBytesContinuation(&w, begin)
	} else {
		kind, fault = e.encodeLoop(&w, begin)
	}
	if fault != FaultNone {
		return fault
	}
	e.kind = kind
	e.overrun = w.Pos - begin
	if debug.Enabled {
		debug.Log("encode: chunk done pos=%d begin=%d overrun=%d", w.Pos, begin, e.overrun)
	}
	return FaultNone
}

// fieldByteCount returns the cumulative number of bytes emitted so far
// (original_source/src/encoding.rs's `count`), in the same units as the
// byteCount snapshot stashed on the stack when a submessage/bytes field
// was entered, so their difference yields that field's encoded length.
func (e *Encoder) fieldByteCount(w *wire.Writer, begin int) int {
	return e.byteCount - (w.Pos - begin)
}

// encodeLoop walks e.table.Encode from the last entry to the first,
// resuming after the e.index entries already visited, writing every
// present field's wire representation into w (moving backwards) and
// descending into submessages/groups via e.stack exactly as parseLoop
// descends via d.stack on the decode side. It returns encDone once every
// field at every stack level (down to the original root) has been emitted,
// or encObject if w ran out of room before begin, suspended to resume on
// the next chunk.
func (e *Encoder) encodeLoop(w *wire.Writer, begin int) (encObjKind, Fault) {
	for {
		for e.index >= len(e.table.Encode) {
			if w.Pos <= begin {
				return encObject, FaultNone
			}
			if len(e.stack) == 0 {
				return encDone, FaultNone
			}
			top := e.stack[len(e.stack)-1]
			e.stack = e.stack[:len(e.stack)-1]
			if top.byteCount >= 0 {
				fieldLen := e.fieldByteCount(w, begin) - top.byteCount
				w.WriteVarint(uint64(fieldLen))
			}
			w.WriteTag(top.tag)
			e.obj, e.table, e.index = top.obj, top.table, top.index
			if top.chain {
				// The element just closed is done; open the one before it.
				if top.byteCount < 0 {
					w.WriteTag(top.tag&^7 | 4)
				} else {
					e.stack[len(e.stack)-1].byteCount = e.fieldByteCount(w, begin)
				}
			}
		}

		// e.index counts entries already visited; entries are visited from
		// the last declared field to the first.
		entry := e.table.Encode[len(e.table.Encode)-1-e.index]
		e.index++

		switch entry.Kind {
		case tdp.Varint64:
			if e.obj.HasBit(entry.HasBit) {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				w.WriteVarint(e.obj.GetScalar64(entry.ScalarOffset))
				w.WriteTag(entry.Tag)
			}
		case tdp.Varint32:
			if e.obj.HasBit(entry.HasBit) {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				w.WriteVarint(uint64(e.obj.GetScalar32(entry.ScalarOffset)))
				w.WriteTag(entry.Tag)
			}
		case tdp.Varint64Zigzag:
			if e.obj.HasBit(entry.HasBit) {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				w.WriteVarint(wire.ZigZagEncode(int64(e.obj.GetScalar64(entry.ScalarOffset))))
				w.WriteTag(entry.Tag)
			}
		case tdp.Varint32Zigzag:
			if e.obj.HasBit(entry.HasBit) {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				w.WriteVarint(wire.ZigZagEncode(int64(int32(e.obj.GetScalar32(entry.ScalarOffset)))))
				w.WriteTag(entry.Tag)
			}
		case tdp.Bool:
			if e.obj.HasBit(entry.HasBit) {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				v := uint64(0)
				if e.obj.GetBool(entry.ScalarOffset) {
					v = 1
				}
				w.WriteVarint(v)
				w.WriteTag(entry.Tag)
			}
		case tdp.Fixed64:
			if e.obj.HasBit(entry.HasBit) {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				w.WriteFixed64(e.obj.GetScalar64(entry.ScalarOffset))
				w.WriteTag(entry.Tag)
			}
		case tdp.Fixed32:
			if e.obj.HasBit(entry.HasBit) {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				w.WriteFixed32(e.obj.GetScalar32(entry.ScalarOffset))
				w.WriteTag(entry.Tag)
			}

		case tdp.Bytes:
			if e.obj.HasBit(entry.HasBit) {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				body := e.obj.Bytes(entry.PtrIndex).Slice()
				avail := w.Pos - begin
				if avail < len(body) {
					e.stack = append(e.stack, encodeStackEntry{
						obj: e.obj, table: e.table, index: e.index,
						byteCount: e.fieldByteCount(w, begin), tag: entry.Tag,
					})
					w.WriteSlice(body[len(body)-avail:])
					e.pending = body[:len(body)-avail]
					return encBytes, FaultNone
				}
				w.WriteSlice(body)
				w.WriteVarint(uint64(len(body)))
				w.WriteTag(entry.Tag)
			}

		case tdp.Message:
			if child := e.obj.ChildOrNil(entry.PtrIndex); child != nil {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				aux := e.table.Aux[entry.AuxIndex]
				e.stack = append(e.stack, encodeStackEntry{
					obj: e.obj, table: e.table, index: e.index,
					byteCount: e.fieldByteCount(w, begin), tag: entry.Tag,
				})
				e.obj, e.table, e.index = child, aux.Child, 0
			}

		case tdp.Group:
			if child := e.obj.ChildOrNil(entry.PtrIndex); child != nil {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				aux := e.table.Aux[entry.AuxIndex]
				w.WriteTag(entry.Tag&^7 | 4) // END_GROUP wire type
				e.stack = append(e.stack, encodeStackEntry{
					obj: e.obj, table: e.table, index: e.index,
					byteCount: -1, tag: entry.Tag,
				})
				e.obj, e.table, e.index = child, aux.Child, 0
			}

		case tdp.RepeatedVarint64:
			if r := tdp.PtrOrNil[uint64](e.obj, entry.PtrIndex); r != nil {
				for i := 0; i < r.Len(); i++ {
					if w.Pos <= begin {
						break
					}
					w.WriteVarint(r.At(r.Len() - 1 - i))
					w.WriteTag(entry.Tag)
				}
			}
		case tdp.RepeatedVarint32:
			if r := tdp.PtrOrNil[uint32](e.obj, entry.PtrIndex); r != nil {
				for i := 0; i < r.Len(); i++ {
					if w.Pos <= begin {
						break
					}
					w.WriteVarint(uint64(r.At(r.Len() - 1 - i)))
					w.WriteTag(entry.Tag)
				}
			}
		case tdp.RepeatedVarint64Zigzag:
			if r := tdp.PtrOrNil[int64](e.obj, entry.PtrIndex); r != nil {
				for i := 0; i < r.Len(); i++ {
					if w.Pos <= begin {
						break
					}
					w.WriteVarint(wire.ZigZagEncode(r.At(r.Len() - 1 - i)))
					w.WriteTag(entry.Tag)
				}
			}
		case tdp.RepeatedVarint32Zigzag:
			if r := tdp.PtrOrNil[int32](e.obj, entry.PtrIndex); r != nil {
				for i := 0; i < r.Len(); i++ {
					if w.Pos <= begin {
						break
					}
					w.WriteVarint(wire.ZigZagEncode(int64(r.At(r.Len() - 1 - i))))
					w.WriteTag(entry.Tag)
				}
			}
		case tdp.RepeatedBool:
			if r := tdp.PtrOrNil[bool](e.obj, entry.PtrIndex); r != nil {
				for i := 0; i < r.Len(); i++ {
					if w.Pos <= begin {
						break
					}
					v := uint64(0)
					if r.At(r.Len() - 1 - i) {
						v = 1
					}
					w.WriteVarint(v)
					w.WriteTag(entry.Tag)
				}
			}
		case tdp.RepeatedFixed64:
			if r := tdp.PtrOrNil[uint64](e.obj, entry.PtrIndex); r != nil {
				for i := 0; i < r.Len(); i++ {
					if w.Pos <= begin {
						break
					}
					w.WriteFixed64(r.At(r.Len() - 1 - i))
					w.WriteTag(entry.Tag)
				}
			}
		case tdp.RepeatedFixed32:
			if r := tdp.PtrOrNil[uint32](e.obj, entry.PtrIndex); r != nil {
				for i := 0; i < r.Len(); i++ {
					if w.Pos <= begin {
						break
					}
					w.WriteFixed32(r.At(r.Len() - 1 - i))
					w.WriteTag(entry.Tag)
				}
			}

		case tdp.RepeatedBytes:
			// Mirrors original_source/src/encoding.rs's RepeatedBytes arm,
			// which explicitly does not support an element crossing a
			// chunk boundary ("We don't use slop as we need to write
			// length prefix and tag too", followed by unimplemented!()).
			// Rather than panic, FaultBufferTooSmall is returned: callers
			// hitting this need a larger immediate buffer for that field.
			if r := tdp.PtrOrNil[*tdp.Repeated[byte]](e.obj, entry.PtrIndex); r != nil {
				for i := 0; i < r.Len(); i++ {
					if w.Pos <= begin {
						break
					}
					body := r.At(r.Len() - 1 - i).Slice()
					if len(body) > w.Pos-begin {
						return encObject, FaultBufferTooSmall
					}
					w.WriteSlice(body)
					w.WriteVarint(uint64(len(body)))
					w.WriteTag(entry.Tag)
				}
			}

		case tdp.RepeatedMessage:
			// No per-element bounds check here, matching the original: no
			// bytes are written by this loop itself, only stack pushes and
			// context switches — each element's fields are emitted later,
			// through the normal per-field dispatch, once the loop above
			// makes that element the current object. Each push chains off
			// whatever e.obj/e.table/e.index *currently* is (the previous
			// element, after its context switch), so the last element is
			// written first and the elements appear in list order in the
			// finished stream. Popping a chain frame resets the byteCount
			// snapshot of the frame below it, so each element's length
			// prefix covers that element only.
			if r := tdp.PtrOrNil[*tdp.Object](e.obj, entry.PtrIndex); r != nil {
				aux := e.table.Aux[entry.AuxIndex]
				for i := 0; i < r.Len(); i++ {
					e.stack = append(e.stack, encodeStackEntry{
						obj: e.obj, table: e.table, index: e.index,
						byteCount: e.fieldByteCount(w, begin), tag: entry.Tag, chain: i > 0,
					})
					e.obj, e.table, e.index = r.At(i), aux.Child, 0
				}
			}

		case tdp.RepeatedGroup:
			if r := tdp.PtrOrNil[*tdp.Object](e.obj, entry.PtrIndex); r != nil && r.Len() > 0 {
				if w.Pos <= begin {
					e.index--
					return encObject, FaultNone
				}
				aux := e.table.Aux[entry.AuxIndex]
				// END_GROUP of the last element; the earlier elements' are
				// written as their chain frames are popped.
				w.WriteTag(entry.Tag&^7 | 4)
				for i := 0; i < r.Len(); i++ {
					e.stack = append(e.stack, encodeStackEntry{
						obj: e.obj, table: e.table, index: e.index,
						byteCount: -1, tag: entry.Tag, chain: i > 0,
					})
					e.obj, e.table, e.index = r.At(i), aux.Child, 0
				}
			}
		}
	}
}

// encodeBytesContinuation resumes writing a Bytes field body that a
// previous chunk left mid-flight (e.pending holds the not-yet-written
// prefix), the Go analogue of original_source/src/encoding.rs's
// encode_bytes.
func (e *Encoder) encodeBytesContinuation(w *wire.Writer, begin int) (encObjKind, Fault) {
	body := e.pending
	avail := w.Pos - begin
	if avail < len(body) {
		w.WriteSlice(body[len(body)-avail:])
		e.pending = body[:len(body)-avail]
		return encBytes, FaultNone
	}
	w.WriteSlice(body)
	e.pending = nil
	if len(e.stack) == 0 {
		return encDone, FaultMalformed
	}
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	fieldLen := e.fieldByteCount(w, begin) - top.byteCount
	w.WriteVarint(uint64(fieldLen))
	w.WriteTag(top.tag)
	e.obj, e.table, e.index = top.obj, top.table, top.index
	return e.encodeLoop(w, begin)
}
