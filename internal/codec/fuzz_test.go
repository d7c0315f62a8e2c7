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

package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turbopb/turbopb/internal/arena"
	"github.com/turbopb/turbopb/internal/codec"
	"github.com/turbopb/turbopb/internal/fixture"
	"github.com/turbopb/turbopb/internal/tdp"
	"github.com/turbopb/turbopb/internal/tdp/compiler"
)

// nestedMessageBytes is scenario S3's encoding: a Root with child1={x:123,
// y:456}, shared with TestDecodeFlatNestedMessageS3.
func nestedMessageBytes() []byte {
	childBytes := []byte{0x08, 123, 0x10, 0xC8, 0x03}
	buf := make([]byte, 2+len(childBytes))
	buf[0] = 0x22
	buf[1] = byte(len(childBytes))
	copy(buf[2:], childBytes)
	return buf
}

// FuzzDecode is the Go-native counterpart of original_source/fuzz/
// fuzz_targets/decode_raw.rs: feed arbitrary bytes to DecodeFlat against a
// fixed message type and require that it never panics or reads outside the
// target message's own storage (spec.md §8 property 7), whatever the bytes
// say. Unlike libFuzzer's decode_raw, which targets FileDescriptorProto,
// this seeds and targets fixture.Root, the shape every other test in this
// package already exercises.
func FuzzDecode(f *testing.F) {
	table, err := compiler.Compile(fixture.Root(), compiler.Options{})
	require.NoError(f, err)

	f.Add(s1Bytes())
	f.Add(nestedMessageBytes())
	f.Add([]byte{0xFF})
	f.Add([]byte{})
	f.Add([]byte{0x08})       // truncated varint tag
	f.Add([]byte{0x0B, 0x0C}) // START_GROUP/END_GROUP on field 1, which Root declares as a varint

	f.Fuzz(func(t *testing.T, data []byte) {
		a := arena.New()
		obj := tdp.NewObject(a, table)
		require.NotPanics(t, func() {
			codec.DecodeFlat(a, obj, table, data)
		})
	})
}

// FuzzDecodeChunked is the Go-native counterpart of original_source/fuzz/
// fuzz_targets/decode_chunked.rs: the same arbitrary bytes, but fed to a
// resumable Decoder through an arbitrary sequence of chunk sizes (one byte
// of sizes per chunk, falling back to 16 once sizes run out, exactly as
// decode_chunked.rs's ChunkedInput does), so a chunk boundary landing
// mid-varint, mid-tag, or mid-length-prefix must never panic or desync the
// engine (spec.md §8 properties 3 and 7).
func FuzzDecodeChunked(f *testing.F) {
	table, err := compiler.Compile(fixture.Root(), compiler.Options{})
	require.NoError(f, err)

	f.Add(s1Bytes(), []byte{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	f.Add(nestedMessageBytes(), []byte{1})
	f.Add([]byte{0xFF}, []byte{})
	f.Add([]byte{}, []byte{})

	f.Fuzz(func(t *testing.T, data []byte, chunkSizes []byte) {
		a := arena.New()
		obj := tdp.NewObject(a, table)
		dec := codec.NewDecoder(a, obj, table)

		require.NotPanics(t, func() {
			pos, chunkIdx := 0, 0
			for pos < len(data) {
				size := 16
				if chunkIdx < len(chunkSizes) {
					size = int(chunkSizes[chunkIdx])
				}
				if size < 1 {
					size = 1
				}
				end := pos + size
				if end > len(data) {
					end = len(data)
				}
				if dec.Resume(data[pos:end]) != codec.FaultNone {
					return // a decode error is fine, per original decode_chunked.rs
				}
				pos = end
				chunkIdx++
			}
			dec.Finish()
		})
	})
}
