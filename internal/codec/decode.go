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

// Package codec implements the resumable decode and encode state machines
// (spec.md §4.3/§4.4): the hot loops that walk a Table's decode/encode
// entries, dispatching per field kind, descending into submessages and
// groups via an explicit, fixed-capacity stack instead of the Go call
// stack, and bridging chunk boundaries with a 16-byte "slop" patch buffer.
package codec

import (
	"math"

	"github.com/turbopb/turbopb/internal/arena"
	"github.com/turbopb/turbopb/internal/debug"
	"github.com/turbopb/turbopb/internal/tdp"
	"github.com/turbopb/turbopb/internal/wire"
)

// DefaultMaxDepth is the default STACK_DEPTH bound (spec.md §6.1): the
// maximum number of nested submessage/group/length-prefix contexts a
// Decoder will hold on its explicit stack before failing with
// FaultStackOverflow. Encoders store the same default but do not check it.
const DefaultMaxDepth = 64

// Fault is the engine's sentinel failure value (spec.md §7); the zero
// value, FaultNone, means success. The hot loops return a Fault instead of
// an error so that no allocation occurs on the success path.
type Fault uint8

const (
	FaultNone Fault = iota
	FaultMalformed
	FaultStackOverflow
	FaultBufferTooSmall
	FaultAllocationFailed
)

// objKind identifies what a suspended Decoder is in the middle of, the Go
// equivalent of original_source/src/decoding.rs's ParseObject enum.
type objKind uint8

const (
	objNone objKind = iota
	objMessage
	objBytes
)

// stackEntry is one suspended parse frame (spec.md §4.3 "Stack frame").
// deltaLimitOrGroupTag packs two meanings into one signed field: when
// non-negative, it is the delta to add back to limit on pop (a nested
// length-delimited context); when negative, its absolute value is the
// group field number END_GROUP must match.
type stackEntry struct {
	obj                  *tdp.Object
	table                *tdp.Table
	deltaLimitOrGroupTag int
}

// Decoder is a resumable decode state machine (spec.md §4.3, "Resumable
// streaming"). The zero value is not usable; construct with NewDecoder.
type Decoder struct {
	arena    *arena.Arena
	maxDepth int
	stack    []stackEntry

	obj   *tdp.Object
	table *tdp.Table
	limit int

	kind        objKind
	bytesTarget *tdp.Repeated[byte]

	overrun int
	patch   []byte

	// pos is where parseLoop/parseBytesContinuation last left the read
	// cursor, relative to the buffer passed to that call; goParse reads it
	// back to compute the new overrun.
	pos int
}

// NewDecoder creates a Decoder that will populate target, whose fields are
// dispatched through table. a is used to allocate submessages and
// bytes/repeated-field storage encountered during decode.
func NewDecoder(a *arena.Arena, target *tdp.Object, table *tdp.Table, opts ...DecodeOption) *Decoder {
	cfg := decodeConfig{maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.discardUnknown {
		target.Table.DiscardUnknown = true
	}
	return &Decoder{
		arena:    a,
		maxDepth: cfg.maxDepth,
		obj:      target,
		table:    table,
		// A Decoder constructed for true streaming use does not know the
		// total encoded length up front (original_source/src/lib.rs's
		// parse_from_bufread constructs its ResumeableParse the same way,
		// with limit = isize::MAX): the top-level "reached the limit"
		// branch in parseLoop never fires, and completion is instead
		// decided by Finish checking overrun==0 and an empty stack.
		// DecodeFlat, which knows the total length, overrides this.
		limit:   math.MaxInt32,
		kind:    objMessage,
		overrun: wire.SlopSize,
		patch:   make([]byte, 2*wire.SlopSize),
	}
}

// Reset reconfigures d to decode into target using table, reusing its
// already-allocated stack and patch-buffer capacity instead of allocating
// fresh ones (see the routine entry in SPEC_FULL.md §B): a goroutine decoding many
// short-lived messages in sequence can keep one Decoder around and Reset it
// per message rather than pay NewDecoder's allocations every time.
func (d *Decoder) Reset(a *arena.Arena, target *tdp.Object, table *tdp.Table, opts ...DecodeOption) {
	cfg := decodeConfig{maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.discardUnknown {
		target.Table.DiscardUnknown = true
	}
	d.arena = a
	d.maxDepth = cfg.maxDepth
	d.obj = target
	d.table = table
	d.stack = d.stack[:0]
	d.limit = math.MaxInt32
	d.kind = objMessage
	d.bytesTarget = nil
	d.overrun = wire.SlopSize
	for i := range d.patch {
		d.patch[i] = 0
	}
	d.pos = 0
}

// DecodeOption configures a Decoder (SPEC_FULL.md §A "Configuration").
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	maxDepth       int
	discardUnknown bool
}

// WithMaxDepth overrides DefaultMaxDepth (the STACK_DEPTH bound).
func WithMaxDepth(n int) DecodeOption {
	return func(c *decodeConfig) { c.maxDepth = n }
}

// WithDiscardUnknown makes the decoder drop unknown fields instead of
// accumulating them on the target's cold storage (spec.md §6.2).
func WithDiscardUnknown() DecodeOption {
	return func(c *decodeConfig) { c.discardUnknown = true }
}

// DecodeFlat decodes the entirety of buf into target in one call (spec.md
// §6.1 "decode_flat"), with no chunk-boundary bookkeeping.
func DecodeFlat(a *arena.Arena, target *tdp.Object, table *tdp.Table, buf []byte, opts ...DecodeOption) Fault {
	d := NewDecoder(a, target, table, opts...)
	// A flat decode has no further chunks, so it supplies its own
	// SlopSize bytes of zero padding after buf: the slop invariant only
	// requires that padding be addressable, never that it be meaningful,
	// since the inner loop reads into it only when a value that starts
	// before the logical end runs past it (a truncated fixed-width value,
	// for instance).
	padded := make([]byte, len(buf)+wire.SlopSize)
	copy(padded, buf)
	d.limit = len(buf)
	if fault := d.parseLoop(padded, 0, len(buf)); fault != FaultNone {
		return fault
	}
	if len(d.stack) != 0 {
		return FaultMalformed
	}
	if d.kind == objNone {
		return FaultNone
	}
	if d.kind == objMessage && d.pos == len(buf) {
		return FaultNone
	}
	return FaultMalformed
}

// Resume feeds buf, the next chunk of the encoded stream, to the decoder.
// Chunks may be of any size and do not need to align with any logical
// boundary in the encoding.
//
// Every call passes goParse the *full*, untruncated backing array that
// holds the next chunkLen logical bytes, plus at least SlopSize further
// real bytes immediately after them: parseLoop/parseBytesContinuation are
// allowed to read up to SlopSize bytes past chunkLen, and wire.Reader's
// bounds checks are scoped to len(data), so handing it a slice truncated
// to exactly chunkLen (as Rust's raw-pointer reads can get away with, but
// a Go slice cannot) would either panic or spuriously reject a valid
// slop read. d.patch is always handed over whole (2*SlopSize bytes); buf
// is always handed over whole as well, with the final SlopSize bytes of
// buf itself serving as the next call's lookahead room.
func (d *Decoder) Resume(buf []byte) Fault {
	size := len(buf)
	if size > wire.SlopSize {
		copy(d.patch[wire.SlopSize:], buf[:wire.SlopSize])
		if f := d.goParse(d.patch, wire.SlopSize); f != FaultNone {
			return f
		}
		if f := d.goParse(buf, size-wire.SlopSize); f != FaultNone {
			return f
		}
		copy(d.patch[:wire.SlopSize], buf[size-wire.SlopSize:])
		return FaultNone
	}
	copy(d.patch[wire.SlopSize:wire.SlopSize+size], buf)
	if f := d.goParse(d.patch, size); f != FaultNone {
		return f
	}
	copy(d.patch, d.patch[size:size+wire.SlopSize])
	return FaultNone
}

// Finish runs one last pass over the residual patch buffer and reports
// whether the overall decode is complete and well-formed: no outstanding
// overrun, the decoder landed back in a plain message context, and the
// frame stack is empty (spec.md §4.3 "Termination").
func (d *Decoder) Finish() Fault {
	if f := d.goParse(d.patch, wire.SlopSize); f != FaultNone {
		return f
	}
	if d.overrun != 0 || d.kind != objMessage || len(d.stack) != 0 {
		return FaultMalformed
	}
	return FaultNone
}

// goParse is the Go analogue of original_source/src/decoding.rs's
// ResumeableState::go_parse: it advances limit by chunkLen, accounts for
// any outstanding overrun from the previous chunk, and dispatches into
// whichever of parseLoop/parseBytesContinuation matches the decoder's
// current suspended state. data is the full backing array the next
// chunkLen logical bytes live in; data must have at least SlopSize real
// bytes beyond chunkLen for the slop invariant to hold (see Resume).
func (d *Decoder) goParse(data []byte, chunkLen int) Fault {
	d.limit -= chunkLen
	if d.overrun >= chunkLen {
		d.overrun -= chunkLen
		return FaultNone
	}
	logicalEnd := chunkLen
	pos := d.overrun
	var fault Fault
	switch d.kind {
	case objMessage:
		fault = d.parseLoop(data, pos, logicalEnd)
	case objBytes:
		fault = d.parseBytesContinuation(data, pos, logicalEnd)
	default:
		fault = FaultMalformed
	}
	if fault != FaultNone {
		return fault
	}
	d.overrun = d.pos - logicalEnd
	return FaultNone
}

func (d *Decoder) limitedEnd(logicalEnd int) int {
	if d.limit < 0 {
		return logicalEnd + d.limit
	}
	return logicalEnd
}

func (d *Decoder) pushLimit(length, pos, logicalEnd int) (int, Fault) {
	newLimit := (pos - logicalEnd) + length
	delta := d.limit - newLimit
	if delta < 0 {
		return 0, FaultMalformed
	}
	if len(d.stack) >= d.maxDepth {
		return 0, FaultStackOverflow
	}
	d.stack = append(d.stack, stackEntry{obj: d.obj, table: d.table, deltaLimitOrGroupTag: delta})
	d.limit = newLimit
	return d.limitedEnd(logicalEnd), FaultNone
}

func (d *Decoder) popLimit(logicalEnd int) (int, Fault) {
	if len(d.stack) == 0 {
		return 0, FaultMalformed
	}
	top := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	if top.deltaLimitOrGroupTag < 0 {
		return 0, FaultMalformed
	}
	d.limit += top.deltaLimitOrGroupTag
	d.obj, d.table = top.obj, top.table
	return d.limitedEnd(logicalEnd), FaultNone
}

func (d *Decoder) pushGroup(fieldNumber uint32) Fault {
	if len(d.stack) >= d.maxDepth {
		return FaultStackOverflow
	}
	d.stack = append(d.stack, stackEntry{obj: d.obj, table: d.table, deltaLimitOrGroupTag: -int(fieldNumber)})
	return FaultNone
}

func (d *Decoder) popGroup(fieldNumber uint32) Fault {
	if len(d.stack) == 0 {
		return FaultMalformed
	}
	top := d.stack[len(d.stack)-1]
	if -top.deltaLimitOrGroupTag != int(fieldNumber) {
		return FaultMalformed
	}
	d.stack = d.stack[:len(d.stack)-1]
	d.obj, d.table = top.obj, top.table
	return FaultNone
}

// childObject returns the submessage/group object entry dispatches to,
// creating (singular) or appending (repeated) as needed.
func (d *Decoder) childObject(entry tdp.DecodeEntry, aux tdp.AuxEntry) *tdp.Object {
	if entry.Kind.Repeated() {
		return d.obj.AddChild(d.arena, entry.PtrIndex, aux.Child)
	}
	return d.obj.Child(d.arena, entry.PtrIndex, aux.Child)
}

// bytesTargetFor returns the container a Bytes/RepeatedBytes field's first
// chunk should be written into: the singular slot (cleared, for
// replace-not-append semantics) or a freshly appended element.
func (d *Decoder) bytesTargetFor(entry tdp.DecodeEntry) *tdp.Repeated[byte] {
	if entry.Kind.Repeated() {
		parent := d.obj.RepeatedBytes(entry.PtrIndex)
		child := &tdp.Repeated[byte]{}
		parent.Push(child)
		return child
	}
	rep := d.obj.Bytes(entry.PtrIndex)
	rep.Clear()
	d.obj.SetHasBit(entry.HasBit)
	return rep
}

// recordUnknown appends the raw tag+payload bytes of an unrecognized field
// to the current object's cold storage, unless the table says to discard
// unknown fields (SPEC_FULL.md §C.2).
func (d *Decoder) recordUnknown(raw []byte) {
	if d.table.DiscardUnknown {
		return
	}
	cold := d.obj.MutableCold()
	cold.Unknown = append(cold.Unknown, raw...)
}

func (d *Decoder) parseLoop(buf []byte, pos, logicalEnd int) Fault {
	r := wire.Reader{Buf: buf, Pos: pos}
	limitedEnd := d.limitedEnd(logicalEnd)

outer:
	for {
		for r.Pos < limitedEnd {
			startPos := r.Pos
			tag, ok := r.ReadTag()
			if !ok {
				d.pos = r.Pos
				return FaultMalformed
			}
			fieldNumber := tag >> 3
			entry := d.table.DecodeEntryAt(fieldNumber)
			matched := true

			switch entry.Kind {
			case tdp.Unknown:
				if tag == 0 {
					if len(d.stack) == 0 {
						d.kind = objNone
						d.pos = r.Pos
						return FaultNone
					}
					d.pos = r.Pos
					return FaultMalformed
				}
				matched = false

			case tdp.Varint64:
				if tag&7 != 0 {
					matched = false
					break
				}
				v, ok := r.ReadVarint()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.obj.SetScalar64(entry.ScalarOffset, v)
				d.obj.SetHasBit(entry.HasBit)
			case tdp.Varint32:
				if tag&7 != 0 {
					matched = false
					break
				}
				v, ok := r.ReadVarint()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.obj.SetScalar32(entry.ScalarOffset, uint32(v))
				d.obj.SetHasBit(entry.HasBit)
			case tdp.Varint64Zigzag:
				if tag&7 != 0 {
					matched = false
					break
				}
				v, ok := r.ReadVarint()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.obj.SetScalar64(entry.ScalarOffset, uint64(wire.ZigZagDecode(v)))
				d.obj.SetHasBit(entry.HasBit)
			case tdp.Varint32Zigzag:
				if tag&7 != 0 {
					matched = false
					break
				}
				v, ok := r.ReadVarint()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.obj.SetScalar32(entry.ScalarOffset, uint32(int32(wire.ZigZagDecode(v))))
				d.obj.SetHasBit(entry.HasBit)
			case tdp.Bool:
				if tag&7 != 0 {
					matched = false
					break
				}
				v, ok := r.ReadVarint()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.obj.SetBool(entry.ScalarOffset, v != 0)
				d.obj.SetHasBit(entry.HasBit)
			case tdp.Fixed64:
				if tag&7 != 1 {
					matched = false
					break
				}
				d.obj.SetScalar64(entry.ScalarOffset, r.ReadFixed64())
				d.obj.SetHasBit(entry.HasBit)
			case tdp.Fixed32:
				if tag&7 != 5 {
					matched = false
					break
				}
				d.obj.SetScalar32(entry.ScalarOffset, r.ReadFixed32())
				d.obj.SetHasBit(entry.HasBit)

			case tdp.RepeatedVarint64:
				if tag&7 != 0 {
					matched = false
					break
				}
				v, ok := r.ReadVarint()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.obj.RepeatedU64(entry.PtrIndex).Push(v)
			case tdp.RepeatedVarint32:
				if tag&7 != 0 {
					matched = false
					break
				}
				v, ok := r.ReadVarint()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.obj.RepeatedU32(entry.PtrIndex).Push(uint32(v))
			case tdp.RepeatedVarint64Zigzag:
				if tag&7 != 0 {
					matched = false
					break
				}
				v, ok := r.ReadVarint()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.obj.RepeatedI64(entry.PtrIndex).Push(wire.ZigZagDecode(v))
			case tdp.RepeatedVarint32Zigzag:
				if tag&7 != 0 {
					matched = false
					break
				}
				v, ok := r.ReadVarint()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.obj.RepeatedI32(entry.PtrIndex).Push(int32(wire.ZigZagDecode(v)))
			case tdp.RepeatedBool:
				if tag&7 != 0 {
					matched = false
					break
				}
				v, ok := r.ReadVarint()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.obj.RepeatedBool(entry.PtrIndex).Push(v != 0)
			case tdp.RepeatedFixed64:
				if tag&7 != 1 {
					matched = false
					break
				}
				d.obj.RepeatedU64(entry.PtrIndex).Push(r.ReadFixed64())
			case tdp.RepeatedFixed32:
				if tag&7 != 5 {
					matched = false
					break
				}
				d.obj.RepeatedU32(entry.PtrIndex).Push(r.ReadFixed32())

			case tdp.Bytes, tdp.RepeatedBytes:
				if tag&7 != 2 {
					matched = false
					break
				}
				ln, ok := r.ReadSize()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				if r.Pos-limitedEnd+ln <= wire.SlopSize {
					target := d.bytesTargetFor(entry)
					target.Append(r.ReadSlice(ln))
				} else {
					newLimitedEnd, fault := d.pushLimit(ln, r.Pos, logicalEnd)
					if fault != FaultNone {
						d.pos = r.Pos
						return fault
					}
					limitedEnd = newLimitedEnd
					target := d.bytesTargetFor(entry)
					avail := wire.SlopSize - (r.Pos - logicalEnd)
					target.Append(r.ReadSlice(avail))
					d.kind = objBytes
					d.bytesTarget = target
					d.pos = r.Pos
					return FaultNone
				}

			case tdp.Message, tdp.RepeatedMessage:
				if tag&7 != 2 {
					matched = false
					break
				}
				ln, ok := r.ReadSize()
				if !ok {
					d.pos = r.Pos
					return FaultMalformed
				}
				aux := d.table.Aux[entry.AuxIndex]
				newLimitedEnd, fault := d.pushLimit(ln, r.Pos, logicalEnd)
				if fault != FaultNone {
					d.pos = r.Pos
					return fault
				}
				limitedEnd = newLimitedEnd
				child := d.childObject(entry, aux)
				d.obj, d.table = child, aux.Child

			case tdp.Group, tdp.RepeatedGroup:
				if tag&7 != 3 {
					matched = false
					break
				}
				aux := d.table.Aux[entry.AuxIndex]
				if fault := d.pushGroup(fieldNumber); fault != FaultNone {
					d.pos = r.Pos
					return fault
				}
				child := d.childObject(entry, aux)
				d.obj, d.table = child, aux.Child

			default:
				matched = false
			}

			if !matched {
				if tag&7 == 4 {
					if fault := d.popGroup(fieldNumber); fault != FaultNone {
						d.pos = r.Pos
						return fault
					}
					continue
				}
				if !skipField(&r, tag) {
					d.pos = r.Pos
					return FaultMalformed
				}
				d.recordUnknown(buf[startPos:r.Pos])
			}
		}

		if r.Pos-logicalEnd == d.limit {
			if len(d.stack) == 0 {
				d.kind = objNone
				d.pos = r.Pos
				return FaultNone
			}
			newLimitedEnd, fault := d.popLimit(logicalEnd)
			if fault != FaultNone {
				d.pos = r.Pos
				return fault
			}
			limitedEnd = newLimitedEnd
			continue outer
		}
		if r.Pos >= logicalEnd {
			break outer
		}
		if r.Pos != limitedEnd {
			d.pos = r.Pos
			return FaultMalformed
		}
	}

	d.kind = objMessage
	d.pos = r.Pos
	if debug.Enabled {
		debug.Log("decode: suspended at pos=%d limit=%d stack=%d", r.Pos, d.limit, len(d.stack))
	}
	return FaultNone
}

// parseBytesContinuation resumes appending to a Bytes/RepeatedBytes
// container that was left mid-flight by a previous chunk (spec.md §4.3
// "in-progress object"), the Go analogue of original_source/
// src/decoding.rs's parse_string.
func (d *Decoder) parseBytesContinuation(buf []byte, pos, logicalEnd int) Fault {
	if d.limit > wire.SlopSize {
		avail := wire.SlopSize - (pos - logicalEnd)
		d.bytesTarget.Append(buf[pos : pos+avail])
		d.pos = pos + avail
		d.kind = objBytes
		return FaultNone
	}
	avail := d.limit - (pos - logicalEnd)
	d.bytesTarget.Append(buf[pos : pos+avail])
	if _, fault := d.popLimit(logicalEnd); fault != FaultNone {
		d.pos = pos + avail
		return fault
	}
	return d.parseLoop(buf, pos+avail, logicalEnd)
}

// skipField consumes and discards one field's payload by wire type,
// recursively skipping an entire group if necessary (spec.md §4.3 point 5).
// This is a deliberate divergence from original_source/src/decoding.rs,
// whose parse_loop fails outright on any field number or wire type it does
// not recognize (aside from END_GROUP): spec.md explicitly requires
// skip-by-wire-type for unknown fields, so that behavior is implemented
// here directly against the standard wire format rather than ported from
// the original.
func skipField(r *wire.Reader, tag uint32) bool {
	switch tag & 7 {
	case 0: // varint
		_, ok := r.ReadVarint()
		return ok
	case 1: // fixed64
		if r.Len() < 8 {
			return false
		}
		r.ReadFixed64()
		return true
	case 2: // length-delimited
		n, ok := r.ReadSize()
		if !ok || n > r.Len() {
			return false
		}
		r.ReadSlice(n)
		return true
	case 3: // start group
		return skipGroup(r, tag>>3)
	case 5: // fixed32
		if r.Len() < 4 {
			return false
		}
		r.ReadFixed32()
		return true
	default:
		return false
	}
}

// skipGroup consumes fields until the END_GROUP tag matching fieldNumber,
// recursively skipping any nested groups encountered along the way.
func skipGroup(r *wire.Reader, fieldNumber uint32) bool {
	for {
		tag, ok := r.ReadTag()
		if !ok {
			return false
		}
		if tag&7 == 4 {
			return tag>>3 == fieldNumber
		}
		if !skipField(r, tag) {
			return false
		}
	}
}
