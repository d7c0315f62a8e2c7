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
	"github.com/stretchr/testify/require"

	"github.com/turbopb/turbopb/internal/tdp"
)

func TestRepeatedPushAndAppend(t *testing.T) {
	t.Parallel()

	var r tdp.Repeated[int32]
	r.Push(1)
	r.Push(2)
	r.Append([]int32{3, 4, 5})

	require.Equal(t, 5, r.Len())
	assert.Equal(t, []int32{1, 2, 3, 4, 5}, r.Slice())
}

func TestRepeatedClearKeepsCapacity(t *testing.T) {
	t.Parallel()

	var r tdp.Repeated[byte]
	r.Append(make([]byte, 64))
	before := cap(r.Slice())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, before, cap(r.Slice()))
}

func TestRepeatedFromStatic(t *testing.T) {
	t.Parallel()

	static := []int32{7, 8, 9}
	var r tdp.Repeated[int32]
	r.FromStatic(static)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, int32(8), r.At(1))
}

func TestRepeatedSet(t *testing.T) {
	t.Parallel()

	var r tdp.Repeated[int32]
	r.Append([]int32{1, 2, 3})
	r.Set(1, 99)
	assert.Equal(t, int32(99), r.At(1))
}
