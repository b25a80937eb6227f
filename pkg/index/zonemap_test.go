// Copyright 2025 EmberDB Authors
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

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/types"
)

func TestZoneMapUpdate(t *testing.T) {
	zm := NewZoneMap(types.T_int64_type)
	assert.False(t, zm.Inited())
	assert.False(t, zm.CheckFilter(OpEQ, int64(1)))

	zm.Update(int64(10))
	zm.Update(int64(3))
	zm.Update(int64(7))
	zm.Update(nil)
	require.True(t, zm.Inited())
	assert.Equal(t, int64(3), zm.GetMin())
	assert.Equal(t, int64(10), zm.GetMax())
	assert.True(t, zm.HasNull())
}

func TestZoneMapBatchUpdate(t *testing.T) {
	zm := NewZoneMap(types.T_int32_type)
	require.NoError(t, zm.BatchUpdate(containers.MockVector(types.T_int32_type, 100, 50)))
	assert.Equal(t, int32(50), zm.GetMin())
	assert.Equal(t, int32(149), zm.GetMax())

	err := zm.BatchUpdate(containers.MockVector(types.T_int64_type, 1, 0))
	assert.Error(t, err)
}

// No false negatives: every predicate with at least one satisfying row
// in [3,10] must pass the filter check.
func TestZoneMapFilterSoundness(t *testing.T) {
	zm := NewZoneMap(types.T_int64_type)
	zm.Update(int64(3))
	zm.Update(int64(10))

	assert.True(t, zm.CheckFilter(OpEQ, int64(3)))
	assert.True(t, zm.CheckFilter(OpEQ, int64(10)))
	assert.False(t, zm.CheckFilter(OpEQ, int64(11)))
	assert.True(t, zm.CheckFilter(OpLT, int64(4)))
	assert.False(t, zm.CheckFilter(OpLT, int64(3)))
	assert.True(t, zm.CheckFilter(OpLE, int64(3)))
	assert.True(t, zm.CheckFilter(OpGT, int64(9)))
	assert.False(t, zm.CheckFilter(OpGT, int64(10)))
	assert.True(t, zm.CheckFilter(OpGE, int64(10)))
	assert.False(t, zm.CheckFilter(OpGE, int64(11)))

	// False positive is fine: 5 is inside the range but may be absent.
	assert.True(t, zm.CheckFilter(OpEQ, int64(5)))
}

func TestZoneMapMergeIsPointwise(t *testing.T) {
	a := NewZoneMap(types.T_float64_type)
	a.Update(1.5)
	a.Update(4.5)

	b := NewZoneMap(types.T_float64_type)
	b.Update(3.0)
	b.Update(9.0)
	b.Update(nil)

	a.Merge(b)
	assert.Equal(t, 1.5, a.GetMin())
	assert.Equal(t, 9.0, a.GetMax())
	assert.True(t, a.HasNull())

	// Merging an empty map never narrows.
	a.Merge(NewZoneMap(types.T_float64_type))
	assert.Equal(t, 1.5, a.GetMin())
	assert.Equal(t, 9.0, a.GetMax())
}

func TestZoneMapClone(t *testing.T) {
	zm := NewZoneMap(types.T_varchar_type)
	zm.Update("m")
	cloned := zm.Clone()
	cloned.Update("a")
	assert.Equal(t, "m", zm.GetMin())
	assert.Equal(t, "a", cloned.GetMin())
}
