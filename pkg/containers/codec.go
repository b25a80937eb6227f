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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/emberdb/ember/pkg/types"
)

// EncodeVector serializes a vector into a block image:
// [oid u8][rows u32][nullCount u32][null rows u64...][values].
func EncodeVector(vec Vector) ([]byte, error) {
	var w bytes.Buffer
	typ := vec.GetType()
	if err := w.WriteByte(byte(typ.Oid)); err != nil {
		return nil, err
	}
	if err := binary.Write(&w, binary.LittleEndian, uint32(vec.Length())); err != nil {
		return nil, err
	}
	var nullRows []uint64
	if mask := vec.NullMask(); mask != nil {
		nullRows = mask.ToArray()
	}
	if err := binary.Write(&w, binary.LittleEndian, uint32(len(nullRows))); err != nil {
		return nil, err
	}
	for _, row := range nullRows {
		if err := binary.Write(&w, binary.LittleEndian, row); err != nil {
			return nil, err
		}
	}
	err := vec.Foreach(func(v any, row int) error {
		if v == nil {
			v = types.DefaultValue(typ)
		}
		switch typ.Oid {
		case types.T_bool:
			b := byte(0)
			if v.(bool) {
				b = 1
			}
			return w.WriteByte(b)
		case types.T_int32, types.T_int64, types.T_float64:
			return binary.Write(&w, binary.LittleEndian, v)
		case types.T_varchar:
			s := v.(string)
			if err := binary.Write(&w, binary.LittleEndian, uint32(len(s))); err != nil {
				return err
			}
			_, err := w.WriteString(s)
			return err
		}
		return fmt.Errorf("containers: cannot encode type %s", typ)
	})
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeVector rebuilds a vector from a block image.
func DecodeVector(buf []byte) (Vector, error) {
	r := bytes.NewReader(buf)
	oid, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	typ := types.New(types.T(oid))
	var rows, nullCount uint32
	if err = binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, err
	}
	if err = binary.Read(r, binary.LittleEndian, &nullCount); err != nil {
		return nil, err
	}
	nullRows := make(map[uint64]struct{}, nullCount)
	for i := uint32(0); i < nullCount; i++ {
		var row uint64
		if err = binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, err
		}
		nullRows[row] = struct{}{}
	}
	vec := MakeVector(typ)
	for i := uint32(0); i < rows; i++ {
		var v any
		switch typ.Oid {
		case types.T_bool:
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			v = b == 1
		case types.T_int32:
			var x int32
			if err = binary.Read(r, binary.LittleEndian, &x); err != nil {
				return nil, err
			}
			v = x
		case types.T_int64:
			var x int64
			if err = binary.Read(r, binary.LittleEndian, &x); err != nil {
				return nil, err
			}
			v = x
		case types.T_float64:
			var x float64
			if err = binary.Read(r, binary.LittleEndian, &x); err != nil {
				return nil, err
			}
			v = x
		case types.T_varchar:
			var n uint32
			if err = binary.Read(r, binary.LittleEndian, &n); err != nil {
				return nil, err
			}
			s := make([]byte, n)
			if _, err = io.ReadFull(r, s); err != nil {
				return nil, err
			}
			v = string(s)
		default:
			return nil, fmt.Errorf("containers: cannot decode type %s", typ)
		}
		if _, null := nullRows[uint64(i)]; null {
			vec.AppendNull()
		} else {
			vec.Append(v)
		}
	}
	return vec, nil
}
