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

// Package wire implements the read/write cursor primitives the codec hot
// loops are built on: varint, tag, length, and fixed-width access over a
// byte slice, plus zigzag conversion.
//
// Unlike original_source/src/wire.rs, which addresses the buffer with raw
// NonNull<u8> pointers, Reader/Writer address it with a slice and an int
// index. Go's bounds-checked slices make the unchecked-pointer-arithmetic
// tricks of the Rust original unnecessary; the 16-byte slop invariant
// (spec.md §4.3) is instead enforced by internal/codec never reading past a
// buffer it knows is at least SlopSize longer than the logical data it is
// decoding (see the patch buffer in internal/codec's Decoder.Resume and
// Encoder.Resume).
package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// SlopSize is the tuning parameter from spec.md §9: the maximum overrun a
// single decode_loop/encode_loop invocation may read or write past the
// logical end of its current chunk. Must be at least
// max(varint length, fixed64 size) = 10.
const SlopSize = 16

// Reader reads primitives out of buf starting at Pos.
type Reader struct {
	Buf []byte
	Pos int
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.Buf) - r.Pos }

// ReadByte reads a single byte without bounds checking beyond the slice
// itself; callers are responsible for the slop invariant.
func (r *Reader) ReadByte() byte {
	b := r.Buf[r.Pos]
	r.Pos++
	return b
}

// ReadVarint reads a base-128 varint of up to 10 bytes, the 10th of which
// must be exactly 1 (the only way a 64-bit value needs a 10th byte).
func (r *Reader) ReadVarint() (uint64, bool) {
	var result uint64
	for i := 0; i < 10; i++ {
		if r.Pos+i >= len(r.Buf) {
			return 0, false
		}
		b := r.Buf[r.Pos+i]
		if i == 9 && b != 1 {
			return 0, false
		}
		result |= uint64(b&0x7f) << (7 * uint(i))
		if b < 0x80 {
			r.Pos += i + 1
			return result, true
		}
	}
	return 0, false
}

// ReadTag reads a field tag: a varint of at most 5 bytes (32 bits), the 5th
// of which must be nonzero and at most 15 (field numbers are unsigned and
// tags overflowing uint32 are rejected).
func (r *Reader) ReadTag() (uint32, bool) {
	var result uint32
	for i := 0; i < 5; i++ {
		if r.Pos+i >= len(r.Buf) {
			return 0, false
		}
		b := r.Buf[r.Pos+i]
		if i == 4 && (b == 0 || b > 15) {
			return 0, false
		}
		result |= uint32(b&0x7f) << (7 * uint(i))
		if b < 0x80 {
			r.Pos += i + 1
			return result, true
		}
	}
	return 0, false
}

// ReadSize reads a length varint capped at math.MaxInt32, as used for
// length-delimited field prefixes.
func (r *Reader) ReadSize() (int, bool) {
	v, ok := r.ReadVarint()
	if !ok || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

// ReadFixed32 reads a little-endian 32-bit word.
func (r *Reader) ReadFixed32() uint32 {
	b := r.Buf[r.Pos : r.Pos+4]
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	r.Pos += 4
	return v
}

// ReadFixed64 reads a little-endian 64-bit word.
func (r *Reader) ReadFixed64() uint64 {
	b := r.Buf[r.Pos : r.Pos+8]
	v := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
	r.Pos += 8
	return v
}

// ReadSlice returns the next n bytes without copying and advances Pos.
func (r *Reader) ReadSlice(n int) []byte {
	s := r.Buf[r.Pos : r.Pos+n]
	r.Pos += n
	return s
}

// Writer writes primitives into Buf ending at Pos, moving *backwards*
// (spec.md §4.2/§4.4): Pos starts at len(Buf) and is decremented before each
// write, so that length-prefixed submessages can be emitted without a
// size-counting pre-pass.
type Writer struct {
	Buf []byte
	Pos int
}

// NewWriter creates a Writer positioned at the end of buf.
func NewWriter(buf []byte) Writer {
	return Writer{Buf: buf, Pos: len(buf)}
}

// Avail returns how many bytes remain before the writer runs off the front
// of the buffer.
func (w *Writer) Avail() int { return w.Pos }

// WriteVarint writes n as a base-128 varint, least-significant byte last
// (since the cursor moves backwards, the bytes must be written in reverse
// order relative to a forward encoder).
func (w *Writer) WriteVarint(n uint64) {
	// Compute the forward encoding length first so we can place bytes
	// directly at their final backwards-growing offsets.
	size := protowire.SizeVarint(n)
	w.Pos -= size
	p := w.Buf[w.Pos : w.Pos+size]
	for i := 0; i < size-1; i++ {
		p[i] = byte(n) | 0x80
		n >>= 7
	}
	p[size-1] = byte(n)
}

// WriteTag writes an encoded (field_number<<3)|wire_type tag.
func (w *Writer) WriteTag(tag uint64) {
	w.WriteVarint(tag)
}

// WriteFixed32 writes a little-endian 32-bit word.
func (w *Writer) WriteFixed32(v uint32) {
	w.Pos -= 4
	p := w.Buf[w.Pos : w.Pos+4]
	p[0], p[1], p[2], p[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}

// WriteFixed64 writes a little-endian 64-bit word.
func (w *Writer) WriteFixed64(v uint64) {
	w.Pos -= 8
	p := w.Buf[w.Pos : w.Pos+8]
	p[0], p[1], p[2], p[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	p[4], p[5], p[6], p[7] = byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56)
}

// WriteSlice copies b into the buffer immediately before Pos.
func (w *Writer) WriteSlice(b []byte) {
	w.Pos -= len(b)
	copy(w.Buf[w.Pos:], b)
}

// ZigZagEncode maps a signed integer to an unsigned one so that small
// magnitudes (positive or negative) have small varint encodings.
func ZigZagEncode(n int64) uint64 { return protowire.EncodeZigZag(n) }

// ZigZagDecode is the inverse of ZigZagEncode.
func ZigZagDecode(n uint64) int64 { return protowire.DecodeZigZag(n) }
