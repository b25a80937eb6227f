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

package types

import (
	"fmt"
	"strings"
)

type T uint8

const (
	T_any T = iota
	T_bool
	T_int32
	T_int64
	T_float64
	T_varchar
)

// Type is the logical type of a column.
type Type struct {
	Oid   T
	Width int32
}

func New(oid T) Type {
	return Type{Oid: oid}
}

var (
	T_bool_type    = New(T_bool)
	T_int32_type   = New(T_int32)
	T_int64_type   = New(T_int64)
	T_float64_type = New(T_float64)
	T_varchar_type = New(T_varchar)
)

func (t Type) Eq(o Type) bool { return t.Oid == o.Oid }

func (t Type) IsVarlen() bool { return t.Oid == T_varchar }

func (t Type) String() string {
	switch t.Oid {
	case T_bool:
		return "BOOL"
	case T_int32:
		return "INT32"
	case T_int64:
		return "INT64"
	case T_float64:
		return "FLOAT64"
	case T_varchar:
		return "VARCHAR"
	}
	return "ANY"
}

func FromString(s string) (Type, error) {
	switch strings.ToUpper(s) {
	case "BOOL":
		return T_bool_type, nil
	case "INT32":
		return T_int32_type, nil
	case "INT64":
		return T_int64_type, nil
	case "FLOAT64":
		return T_float64_type, nil
	case "VARCHAR":
		return T_varchar_type, nil
	}
	return Type{}, fmt.Errorf("types: unknown type %q", s)
}

// Compare orders two non-null values of the given type.
func Compare(t Type, a, b any) int {
	switch t.Oid {
	case T_bool:
		av, bv := a.(bool), b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case T_int32:
		return compareOrdered(a.(int32), b.(int32))
	case T_int64:
		return compareOrdered(a.(int64), b.(int64))
	case T_float64:
		return compareOrdered(a.(float64), b.(float64))
	case T_varchar:
		return strings.Compare(a.(string), b.(string))
	}
	panic(fmt.Sprintf("types: compare not supported for %s", t))
}

func compareOrdered[V int32 | int64 | float64](a, b V) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// DefaultValue is the zero value stored for uninitialized slots.
func DefaultValue(t Type) any {
	switch t.Oid {
	case T_bool:
		return false
	case T_int32:
		return int32(0)
	case T_int64:
		return int64(0)
	case T_float64:
		return float64(0)
	case T_varchar:
		return ""
	}
	return nil
}
