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

package turbopb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbopb/turbopb"
	"github.com/turbopb/turbopb/internal/fixture"
)

func TestMessageNewIsZeroValued(t *testing.T) {
	t.Parallel()

	ty, err := turbopb.Compile(fixture.Root())
	require.NoError(t, err)
	a := turbopb.NewArena()

	m := turbopb.New(a, ty)
	require.NotNil(t, m)
	assert.Same(t, ty, m.Type())
	assert.Same(t, a, m.Arena())
	assert.NotNil(t, m.Object())
}

func TestMessageCloneIsIndependent(t *testing.T) {
	t.Parallel()

	ty, err := turbopb.Compile(fixture.Root())
	require.NoError(t, err)
	a := turbopb.NewArena()

	m, err := turbopb.DecodeFlat(a, ty, s1Bytes())
	require.NoError(t, err)

	clone, cloneArena := m.Clone()
	require.NotNil(t, clone)
	assert.NotSame(t, a, cloneArena)
	assert.Same(t, ty, clone.Type())

	buf := make([]byte, 64)
	out, err := turbopb.EncodeFlat(clone, buf)
	require.NoError(t, err)
	assert.Equal(t, s1Bytes(), out)
}
