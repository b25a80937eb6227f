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

// Batch is a set of equal-length vectors, one per column.
type Batch struct {
	Attrs []string
	Vecs  []Vector
}

func NewBatch() *Batch {
	return &Batch{
		Attrs: make([]string, 0),
		Vecs:  make([]Vector, 0),
	}
}

func BuildBatch(attrs []string, typs []types.Type) *Batch {
	bat := NewBatch()
	for i, attr := range attrs {
		bat.AddVector(attr, MakeVector(typs[i]))
	}
	return bat
}

func (bat *Batch) AddVector(attr string, vec Vector) {
	bat.Attrs = append(bat.Attrs, attr)
	bat.Vecs = append(bat.Vecs, vec)
}

func (bat *Batch) GetVectorByName(name string) Vector {
	for i, attr := range bat.Attrs {
		if attr == name {
			return bat.Vecs[i]
		}
	}
	panic(fmt.Sprintf("containers: batch has no column %q", name))
}

func (bat *Batch) Length() int {
	if len(bat.Vecs) == 0 {
		return 0
	}
	return bat.Vecs[0].Length()
}

func (bat *Batch) CloneWindow(offset, length int) *Batch {
	cloned := NewBatch()
	for i, vec := range bat.Vecs {
		cloned.AddVector(bat.Attrs[i], vec.CloneWindow(offset, length))
	}
	return cloned
}

func (bat *Batch) Equals(o *Batch) bool {
	if len(bat.Vecs) != len(o.Vecs) {
		return false
	}
	for i, vec := range bat.Vecs {
		if bat.Attrs[i] != o.Attrs[i] {
			return false
		}
		if !vec.Equals(o.Vecs[i]) {
			return false
		}
	}
	return true
}
