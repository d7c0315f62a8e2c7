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
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/turbopb/turbopb/internal/tdp/compiler"
)

// Compile compiles md (and every message type reachable from it) into a
// [MessageType] (spec.md §4.6). Each call produces an independent Table
// graph; use [CompileCached] to deduplicate repeated compiles of the same
// descriptor.
func Compile(md protoreflect.MessageDescriptor, opts ...CompileOption) (*MessageType, error) {
	table, err := compiler.Compile(md, compileOptions(opts))
	if err != nil {
		return nil, err
	}
	return &MessageType{table: table}, nil
}

// CompileFor is a helper for calling [Compile] using the descriptor of an
// existing generated message type.
func CompileFor[T proto.Message](opts ...CompileOption) (*MessageType, error) {
	var m T
	return Compile(m.ProtoReflect().Descriptor(), opts...)
}

// CompileFromBytes unmarshals a google.protobuf.FileDescriptorSet from
// schema, looks up a message by name, and compiles a [MessageType] for it.
func CompileFromBytes(schema []byte, messageName protoreflect.FullName, opts ...CompileOption) (*MessageType, error) {
	fds := new(descriptorpb.FileDescriptorSet)
	if err := proto.Unmarshal(schema, fds); err != nil {
		return nil, err
	}
	files, err := protodesc.NewFiles(fds)
	if err != nil {
		return nil, err
	}
	desc, err := files.FindDescriptorByName(messageName)
	if err != nil {
		return nil, err
	}
	md, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, protoregistry.NotFound
	}
	return Compile(md, opts...)
}

// typeCache memoizes Compile by a hash of the descriptor's identity, so that
// concurrent callers racing to compile the same message type (e.g. several
// goroutines handling the first requests of a cold server) share one
// compilation instead of each paying for their own (see the singleflight
// and blake2b entries in SPEC_FULL.md §B). singleflight collapses concurrent callers for a
// key that is not yet cached; the blake2b hash keeps that key a small, fixed
// size regardless of how large md's transitive file set is.
var typeCache struct {
	group singleflight.Group
	cache sync.Map // [blake2b.Size256]byte -> *MessageType
}

// CompileCached behaves like [Compile], except repeated calls for the same
// descriptor and options return a shared [MessageType] instead of compiling
// a fresh one each time. The cache key folds in the descriptor's full name
// and containing file path, not the options: once a descriptor's result is
// cached, every later call for it returns that result whatever options it
// passes, and concurrent first calls with different options share whichever
// option set compiled first. Callers that vary options per call should use
// [Compile] directly.
func CompileCached(md protoreflect.MessageDescriptor, opts ...CompileOption) (*MessageType, error) {
	key := cacheKey(md)
	if v, ok := typeCache.cache.Load(key); ok {
		return v.(*MessageType), nil
	}
	v, err, _ := typeCache.group.Do(string(key[:]), func() (any, error) {
		if v, ok := typeCache.cache.Load(key); ok {
			return v, nil
		}
		t, err := Compile(md, opts...)
		if err != nil {
			return nil, err
		}
		typeCache.cache.Store(key, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*MessageType), nil
}

func cacheKey(md protoreflect.MessageDescriptor) [blake2b.Size256]byte {
	h, _ := blake2b.New256(nil) // nil key: cannot fail
	h.Write([]byte(md.ParentFile().Path()))
	h.Write([]byte{0})
	h.Write([]byte(md.FullName()))
	var out [blake2b.Size256]byte
	copy(out[:], h.Sum(nil))
	return out
}
