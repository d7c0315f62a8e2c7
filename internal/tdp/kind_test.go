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

package tdp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turbopb/turbopb/internal/tdp"
)

func TestKindRepeatedBoundary(t *testing.T) {
	t.Parallel()

	assert.False(t, tdp.Group.Repeated())
	assert.True(t, tdp.RepeatedVarint32.Repeated())
	assert.True(t, tdp.RepeatedGroup.Repeated())
	assert.False(t, tdp.Unknown.Repeated())
}

func TestKindWireType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		k    tdp.Kind
		want protowire.Type
	}{
		{tdp.Varint32, protowire.VarintType},
		{tdp.Bool, protowire.VarintType},
		{tdp.RepeatedVarint64Zigzag, protowire.VarintType},
		{tdp.Fixed32, protowire.Fixed32Type},
		{tdp.RepeatedFixed32, protowire.Fixed32Type},
		{tdp.Fixed64, protowire.Fixed64Type},
		{tdp.Bytes, protowire.BytesType},
		{tdp.Message, protowire.BytesType},
		{tdp.RepeatedMessage, protowire.BytesType},
		{tdp.Group, protowire.StartGroupType},
		{tdp.RepeatedGroup, protowire.StartGroupType},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, c.k.WireType(), "kind %v", c.k)
	}
}

func TestKindScalarSizeAndPointerSlot(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, tdp.Varint32.ScalarSize())
	assert.Equal(t, 8, tdp.Fixed64.ScalarSize())
	assert.Equal(t, 1, tdp.Bool.ScalarSize())
	assert.Equal(t, 0, tdp.Bytes.ScalarSize())

	assert.False(t, tdp.Varint32.IsPointerSlot())
	assert.True(t, tdp.Bytes.IsPointerSlot())
	assert.True(t, tdp.Message.IsPointerSlot())
	assert.True(t, tdp.RepeatedVarint32.IsPointerSlot())
}

func TestKindStringNeverEmpty(t *testing.T) {
	t.Parallel()

	for k := tdp.Unknown; k <= tdp.RepeatedGroup; k++ {
		assert.NotEmpty(t, k.String())
	}
}
