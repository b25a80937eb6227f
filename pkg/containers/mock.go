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
	"fmt"

	"github.com/emberdb/ember/pkg/types"
)

// MockVector fills a vector with sequential values starting at offset.
func MockVector(typ types.Type, rows int, offset int) Vector {
	vec := MakeVector(typ)
	for i := 0; i < rows; i++ {
		switch typ.Oid {
		case types.T_bool:
			vec.Append((offset+i)%2 == 0)
		case types.T_int32:
			vec.Append(int32(offset + i))
		case types.T_int64:
			vec.Append(int64(offset + i))
		case types.T_float64:
			vec.Append(float64(offset + i))
		case types.T_varchar:
			vec.Append(fmt.Sprintf("str-%d", offset+i))
		default:
			panic(fmt.Sprintf("containers: cannot mock type %s", typ))
		}
	}
	return vec
}

func MockBatch(attrs []string, typs []types.Type, rows int, offset int) *Batch {
	bat := NewBatch()
	for i, attr := range attrs {
		bat.AddVector(attr, MockVector(typs[i], rows, offset))
	}
	return bat
}
