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
	"github.com/turbopb/turbopb/internal/codec"
	"github.com/turbopb/turbopb/internal/tdp/compiler"
)

// CompileOption, DecodeOption, and EncodeOption wrap their target option
// functions in a named struct rather than being plain func types, following
// the teacher's CompileOption/UnmarshalOption (see golang/go#74356: a plain
// func type can't be used as a map key or compared, and the With* functions
// this package exposes sit close enough to the hot path that the extra
// indirection of an interface isn't worth it either).

// CompileOption configures [Compile].
type CompileOption struct{ apply func(*compiler.Options) }

// WithDiscardUnknownOnCompile makes every [MessageType] compiled with this
// option drop unknown fields by default during decode, instead of
// accumulating them (spec.md §6.2). [WithDiscardUnknown] overrides this
// per call.
func WithDiscardUnknownOnCompile() CompileOption {
	return CompileOption{func(c *compiler.Options) { c.DiscardUnknown = true }}
}

// DecodeOption configures a decode operation ([DecodeFlat], [Decoder]).
type DecodeOption struct{ apply func(*codecOptions) }

type codecOptions struct {
	decode []codec.DecodeOption
	encode []codec.EncodeOption
}

// WithMaxDepth overrides the maximum nesting depth ([DefaultMaxDepth]) a
// decode operation will follow before failing with [ErrStackOverflow].
func WithMaxDepth(depth int) DecodeOption {
	return DecodeOption{func(o *codecOptions) {
		o.decode = append(o.decode, codec.WithMaxDepth(depth))
	}}
}

// WithDiscardUnknown makes this decode operation drop unknown fields
// instead of accumulating them, overriding whatever the [MessageType] was
// compiled with.
func WithDiscardUnknown() DecodeOption {
	return DecodeOption{func(o *codecOptions) {
		o.decode = append(o.decode, codec.WithDiscardUnknown())
	}}
}

// EncodeOption configures an encode operation ([EncodeFlat], [Encoder]).
type EncodeOption struct{ apply func(*codecOptions) }

// WithEncodeMaxDepth overrides the nesting-depth bound stored on an
// encode operation. The encoder does not check its stack depth against
// this bound, so an encode never fails with [ErrStackOverflow].
func WithEncodeMaxDepth(depth int) EncodeOption {
	return EncodeOption{func(o *codecOptions) {
		o.encode = append(o.encode, codec.WithEncodeMaxDepth(depth))
	}}
}

func compileOptions(opts []CompileOption) compiler.Options {
	var c compiler.Options
	for _, o := range opts {
		o.apply(&c)
	}
	return c
}

func decodeOptions(opts []DecodeOption) []codec.DecodeOption {
	var o codecOptions
	for _, opt := range opts {
		opt.apply(&o)
	}
	return o.decode
}

func encodeOptions(opts []EncodeOption) []codec.EncodeOption {
	var o codecOptions
	for _, opt := range opts {
		opt.apply(&o)
	}
	return o.encode
}

// DefaultMaxDepth is the default nesting-depth bound new Decoders and
// Encoders are constructed with; see [WithMaxDepth]/[WithEncodeMaxDepth].
const DefaultMaxDepth = codec.DefaultMaxDepth
