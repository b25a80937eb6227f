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
	"bytes"
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/emberdb/ember/pkg/types"
)

// DefaultVectorSize is the fixed row-batch size shared by scan, append
// and update paths.
const DefaultVectorSize = 1024

type ItOp = func(v any, row int) error

// Vector is a typed, nullable column vector.
type Vector interface {
	GetType() types.Type
	Length() int
	Get(i int) any
	IsNull(i int) bool
	HasNull() bool
	NullMask() *roaring64.Bitmap

	Append(v any)
	AppendNull()
	AppendMany(vs ...any)
	Update(i int, v any)
	UpdateNull(i int)
	Extend(o Vector)
	ExtendWindow(o Vector, offset, length int)
	Truncate(length int)
	Reset()

	CloneWindow(offset, length int) Vector
	Foreach(op ItOp) error
	ForeachWindow(offset, length int, op ItOp) error

	Equals(o Vector) bool
	String() string
}

type vector[T any] struct {
	typ   types.Type
	data  []T
	nulls *roaring64.Bitmap
}

func newVector[T any](typ types.Type) *vector[T] {
	return &vector[T]{typ: typ}
}

// MakeVector constructs an empty vector of the given logical type.
func MakeVector(typ types.Type) Vector {
	switch typ.Oid {
	case types.T_bool:
		return newVector[bool](typ)
	case types.T_int32:
		return newVector[int32](typ)
	case types.T_int64:
		return newVector[int64](typ)
	case types.T_float64:
		return newVector[float64](typ)
	case types.T_varchar:
		return newVector[string](typ)
	}
	panic(fmt.Sprintf("containers: unsupported vector type %s", typ))
}

func (vec *vector[T]) GetType() types.Type { return vec.typ }
func (vec *vector[T]) Length() int         { return len(vec.data) }

func (vec *vector[T]) Get(i int) any {
	if vec.IsNull(i) {
		return nil
	}
	return vec.data[i]
}

func (vec *vector[T]) IsNull(i int) bool {
	return vec.nulls != nil && vec.nulls.Contains(uint64(i))
}

func (vec *vector[T]) HasNull() bool {
	return vec.nulls != nil && !vec.nulls.IsEmpty()
}

func (vec *vector[T]) NullMask() *roaring64.Bitmap { return vec.nulls }

func (vec *vector[T]) Append(v any) {
	if v == nil {
		vec.AppendNull()
		return
	}
	vec.data = append(vec.data, v.(T))
}

func (vec *vector[T]) AppendNull() {
	var zero T
	if vec.nulls == nil {
		vec.nulls = roaring64.New()
	}
	vec.nulls.Add(uint64(len(vec.data)))
	vec.data = append(vec.data, zero)
}

func (vec *vector[T]) AppendMany(vs ...any) {
	for _, v := range vs {
		vec.Append(v)
	}
}

func (vec *vector[T]) Update(i int, v any) {
	if v == nil {
		vec.UpdateNull(i)
		return
	}
	if vec.nulls != nil {
		vec.nulls.Remove(uint64(i))
	}
	vec.data[i] = v.(T)
}

func (vec *vector[T]) UpdateNull(i int) {
	var zero T
	if vec.nulls == nil {
		vec.nulls = roaring64.New()
	}
	vec.nulls.Add(uint64(i))
	vec.data[i] = zero
}

func (vec *vector[T]) Extend(o Vector) {
	vec.ExtendWindow(o, 0, o.Length())
}

func (vec *vector[T]) ExtendWindow(o Vector, offset, length int) {
	src := o.(*vector[T])
	base := len(vec.data)
	vec.data = append(vec.data, src.data[offset:offset+length]...)
	if src.nulls == nil {
		return
	}
	it := src.nulls.Iterator()
	for it.HasNext() {
		row := it.Next()
		if row < uint64(offset) {
			continue
		}
		if row >= uint64(offset+length) {
			break
		}
		if vec.nulls == nil {
			vec.nulls = roaring64.New()
		}
		vec.nulls.Add(uint64(base) + row - uint64(offset))
	}
}

func (vec *vector[T]) Truncate(length int) {
	if length >= len(vec.data) {
		return
	}
	vec.data = vec.data[:length]
	if vec.nulls != nil {
		vec.nulls.RemoveRange(uint64(length), uint64(1)<<63)
	}
}

func (vec *vector[T]) Reset() {
	vec.data = vec.data[:0]
	vec.nulls = nil
}

func (vec *vector[T]) CloneWindow(offset, length int) Vector {
	cloned := newVector[T](vec.typ)
	cloned.ExtendWindow(vec, offset, length)
	return cloned
}

func (vec *vector[T]) Foreach(op ItOp) error {
	return vec.ForeachWindow(0, len(vec.data), op)
}

func (vec *vector[T]) ForeachWindow(offset, length int, op ItOp) error {
	for i := offset; i < offset+length; i++ {
		if err := op(vec.Get(i), i); err != nil {
			return err
		}
	}
	return nil
}

func (vec *vector[T]) Equals(o Vector) bool {
	if vec.Length() != o.Length() {
		return false
	}
	if !vec.typ.Eq(o.GetType()) {
		return false
	}
	for i := 0; i < vec.Length(); i++ {
		if vec.IsNull(i) != o.IsNull(i) {
			return false
		}
		if vec.IsNull(i) {
			continue
		}
		if types.Compare(vec.typ, vec.Get(i), o.Get(i)) != 0 {
			return false
		}
	}
	return true
}

func (vec *vector[T]) String() string {
	var w bytes.Buffer
	w.WriteString(fmt.Sprintf("Vec[%s;%d]", vec.typ, vec.Length()))
	return w.String()
}
