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

// encoderPool is the encode-side counterpart of decoderPool.
var encoderPool = routine.NewThreadLocalWithInitial[*codec.Encoder](func() *codec.Encoder { return nil })

// EncodeFlat serializes m into buf in one call (spec.md §6.1), returning the
// suffix of buf actually written: the encoding grows backwards from the end
// of buf (spec.md §4.2), so callers must take the returned slice, not
// assume the written bytes start at buf[0].
func EncodeFlat(m *Message, buf []byte, opts ...EncodeOption) ([]byte, error) {
	out, fault := codec.EncodeFlat(m.obj, m.typ.table, buf, encodeOptions(opts)...)
	if fault != codec.FaultNone {
		return nil, wrapFault("encode", fault)
	}
	return out, nil
}

// Encoder is a resumable encode state machine over a [Message] (spec.md
// §4.4): repeatedly call Resume with a fresh buffer until it reports done.
type Encoder struct {
	inner *codec.Encoder
}

// NewEncoder creates an Encoder that serializes m, borrowing a pooled
// *codec.Encoder from the calling goroutine's slot if one is available.
func NewEncoder(m *Message, opts ...EncodeOption) *Encoder {
	if inner := encoderPool.Get(); inner != nil {
		encoderPool.Set(nil)
		inner.Reset(m.obj, m.typ.table, encodeOptions(opts)...)
		return &Encoder{inner: inner}
	}
	return &Encoder{inner: codec.NewEncoder(m.obj, m.typ.table, encodeOptions(opts)...)}
}

// Resume emits the next chunk of the encoded stream into buf, returning the
// portion of buf holding valid output from this call and whether the whole
// message is now fully serialized (spec.md §4.4). When done is false, every
// byte of buf holds meaningful output the caller must keep before calling
// Resume again with a fresh buffer. The encoding is produced back to front:
// each call's output precedes the previous call's in the stream, so the
// stream is the returned chunks concatenated in reverse call order.
//
// Once done is true, the Encoder has returned its underlying *codec.Encoder
// to the calling goroutine's pool slot for the next NewEncoder call to
// reuse, and must not be used again.
func (e *Encoder) Resume(buf []byte) (out []byte, done bool, err error) {
	out, done, fault := e.inner.Resume(buf)
	if fault != codec.FaultNone {
		return nil, false, wrapFault("encode", fault)
	}
	if done {
		encoderPool.Set(e.inner)
		e.inner = nil
	}
	return out, done, nil
}
