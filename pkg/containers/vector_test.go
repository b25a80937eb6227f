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

package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/pkg/types"
)

func TestVectorAppendAndNulls(t *testing.T) {
	vec := MakeVector(types.T_int64_type)
	vec.Append(int64(7))
	vec.AppendNull()
	vec.Append(int64(9))
	require.Equal(t, 3, vec.Length())
	assert.Equal(t, int64(7), vec.Get(0))
	assert.Nil(t, vec.Get(1))
	assert.True(t, vec.IsNull(1))
	assert.True(t, vec.HasNull())

	vec.Update(1, int64(8))
	assert.False(t, vec.HasNull())
	assert.Equal(t, int64(8), vec.Get(1))

	vec.UpdateNull(2)
	assert.True(t, vec.IsNull(2))
}

func TestVectorWindowOps(t *testing.T) {
	src := MockVector(types.T_int32_type, 10, 0)
	cloned := src.CloneWindow(3, 4)
	require.Equal(t, 4, cloned.Length())
	assert.Equal(t, int32(3), cloned.Get(0))
	assert.Equal(t, int32(6), cloned.Get(3))

	dst := MakeVector(types.T_int32_type)
	dst.Extend(src)
	dst.ExtendWindow(src, 5, 2)
	require.Equal(t, 12, dst.Length())
	assert.Equal(t, int32(5), dst.Get(10))

	dst.Truncate(3)
	require.Equal(t, 3, dst.Length())
	assert.Equal(t, int32(2), dst.Get(2))
}

func TestVectorExtendCarriesNulls(t *testing.T) {
	src := MakeVector(types.T_varchar_type)
	src.Append("a")
	src.AppendNull()
	src.Append("c")

	dst := MakeVector(types.T_varchar_type)
	dst.Append("z")
	dst.Extend(src)
	require.Equal(t, 4, dst.Length())
	assert.False(t, dst.IsNull(1))
	assert.True(t, dst.IsNull(2))
	assert.Equal(t, "c", dst.Get(3))
}

func TestVectorCodecRoundTrip(t *testing.T) {
	for _, typ := range []types.Type{types.T_int64_type, types.T_varchar_type} {
		vec := MockVector(typ, 100, 42)
		vec.UpdateNull(17)
		image, err := EncodeVector(vec)
		require.NoError(t, err)
		decoded, err := DecodeVector(image)
		require.NoError(t, err)
		assert.True(t, vec.Equals(decoded), "type %s", typ)
	}
}

func TestBatchShape(t *testing.T) {
	attrs := []string{"id", "name"}
	typs := []types.Type{types.T_int64_type, types.T_varchar_type}
	bat := MockBatch(attrs, typs, 16, 0)
	require.Equal(t, 16, bat.Length())
	assert.Equal(t, "str-3", bat.GetVectorByName("name").Get(3))

	cloned := bat.CloneWindow(4, 8)
	require.Equal(t, 8, cloned.Length())
	assert.Equal(t, int64(4), cloned.GetVectorByName("id").Get(0))
	assert.False(t, bat.Equals(cloned))
	assert.True(t, bat.CloneWindow(0, 16).Equals(bat))
}
