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

// Package fixture builds protoreflect.MessageDescriptors entirely in memory
// (no .proto file, no protoc) for use by tests throughout this module: the
// compiler, codec, and root-package test suites all compile against the
// message shapes defined here instead of each hand-rolling its own
// descriptorpb.FileDescriptorProto.
package fixture

import (
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

var (
	once  sync.Once
	files protoreflect.FileDescriptor
	err   error
)

func label(l descriptorpb.FieldDescriptorProto_Label) *descriptorpb.FieldDescriptorProto_Label { return &l }
func typ(t descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto_Type       { return &t }

func field(name string, number int32, l descriptorpb.FieldDescriptorProto_Label, t descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	fd := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  label(l),
		Type:   typ(t),
	}
	if typeName != "" {
		fd.TypeName = proto.String(typeName)
	}
	return fd
}

const (
	opt = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	rep = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
)

// fileProto assembles a single self-contained FileDescriptorProto holding
// every message shape the test suites need: a Child message nested inside
// Root for submessage/repeated-message coverage, a Recursive message for
// stack-depth tests, and a GroupHost message exercising proto2 groups.
func fileProto() *descriptorpb.FileDescriptorProto {
	child := &descriptorpb.DescriptorProto{
		Name: proto.String("Child"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("x", 1, opt, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
			field("y", 2, opt, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
		},
	}

	root := &descriptorpb.DescriptorProto{
		Name: proto.String("Root"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("x", 1, opt, descriptorpb.FieldDescriptorProto_TYPE_UINT32, ""),
			field("y", 2, opt, descriptorpb.FieldDescriptorProto_TYPE_FIXED64, ""),
			field("child1", 4, opt, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".turbopb.fixture.Child"),
			field("children", 5, rep, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".turbopb.fixture.Child"),
			field("name", 6, opt, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
			field("tags", 7, rep, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
			field("flags", 8, rep, descriptorpb.FieldDescriptorProto_TYPE_BOOL, ""),
			field("ratio", 9, opt, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE, ""),
			field("note", 10, opt, descriptorpb.FieldDescriptorProto_TYPE_BYTES, ""),
			field("count", 11, opt, descriptorpb.FieldDescriptorProto_TYPE_SINT64, ""),
			field("ids", 12, rep, descriptorpb.FieldDescriptorProto_TYPE_UINT32, ""),
			field("big", 13, opt, descriptorpb.FieldDescriptorProto_TYPE_UINT64, ""),
		},
	}

	recursive := &descriptorpb.DescriptorProto{
		Name: proto.String("Recursive"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("v", 1, opt, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
			field("child", 2, opt, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".turbopb.fixture.Recursive"),
		},
	}

	groupHost := &descriptorpb.DescriptorProto{
		Name: proto.String("GroupHost"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("item", 3, opt, descriptorpb.FieldDescriptorProto_TYPE_GROUP, ".turbopb.fixture.GroupHost.Item"),
			field("elems", 4, rep, descriptorpb.FieldDescriptorProto_TYPE_GROUP, ".turbopb.fixture.GroupHost.Elem"),
		},
		NestedType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Item"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("a", 1, opt, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
				},
			},
			{
				Name: proto.String("Elem"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("v", 1, opt, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
				},
			},
		},
	}

	return &descriptorpb.FileDescriptorProto{
		Name:        proto.String("turbopb/fixture/fixture.proto"),
		Package:     proto.String("turbopb.fixture"),
		Syntax:      proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{child, root, recursive, groupHost},
	}
}

func load() (protoreflect.FileDescriptor, error) {
	once.Do(func() {
		files, err = protodesc.NewFile(fileProto(), protoregistry.GlobalFiles)
	})
	return files, err
}

// mustMessage looks up name within the fixture file, panicking on failure:
// every fixture name referenced by a test is a programming-time constant
// defined right above in fileProto, so a lookup failure here means the
// fixture itself is broken, not bad test input.
func mustMessage(name protoreflect.Name) protoreflect.MessageDescriptor {
	f, err := load()
	if err != nil {
		panic(err)
	}
	md := f.Messages().ByName(name)
	if md == nil {
		panic("turbopb/fixture: no message named " + string(name))
	}
	return md
}

// Root returns the descriptor for the primary test message: a mix of
// scalar, fixed-width, string/bytes, submessage, and repeated fields
// (spec.md §8 scenarios S1, S2, S3, S5).
func Root() protoreflect.MessageDescriptor { return mustMessage("Root") }

// Child returns the descriptor for Root's submessage/repeated-message field
// type.
func Child() protoreflect.MessageDescriptor { return mustMessage("Child") }

// Recursive returns the descriptor for a self-referential message type,
// used to exercise STACK_DEPTH bounds (spec.md §8 property 6).
func Recursive() protoreflect.MessageDescriptor { return mustMessage("Recursive") }

// GroupHost returns the descriptor for a proto2 message with one singular
// and one repeated group field.
func GroupHost() protoreflect.MessageDescriptor { return mustMessage("GroupHost") }
