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
	"fmt"

	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/types"
)

type CompareOp uint8

const (
	OpEQ CompareOp = iota
	OpLT
	OpLE
	OpGT
	OpGE
)

func (op CompareOp) String() string {
	switch op {
	case OpEQ:
		return "="
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	case OpGT:
		return ">"
	case OpGE:
		return ">="
	}
	return "?"
}

// ZoneMap keeps min/max/null-presence statistics for one segment of one
// column. It may report false positives but never false negatives.
type ZoneMap struct {
	typ      types.Type
	min, max any
	hasNull  bool
	inited   bool
}

func NewZoneMap(typ types.Type) *ZoneMap {
	return &ZoneMap{typ: typ}
}

func (zm *ZoneMap) GetType() types.Type { return zm.typ }
func (zm *ZoneMap) GetMin() any         { return zm.min }
func (zm *ZoneMap) GetMax() any         { return zm.max }
func (zm *ZoneMap) HasNull() bool       { return zm.hasNull }
func (zm *ZoneMap) Inited() bool        { return zm.inited }

// Update widens the zonemap with a single value. A nil value records
// null presence only.
func (zm *ZoneMap) Update(v any) {
	if v == nil {
		zm.hasNull = true
		return
	}
	if !zm.inited {
		zm.min = v
		zm.max = v
		zm.inited = true
		return
	}
	if types.Compare(zm.typ, v, zm.min) < 0 {
		zm.min = v
	}
	if types.Compare(zm.typ, v, zm.max) > 0 {
		zm.max = v
	}
}

func (zm *ZoneMap) BatchUpdate(keys containers.Vector) error {
	if !keys.GetType().Eq(zm.typ) {
		return fmt.Errorf("index: zonemap type mismatch %s vs %s", zm.typ, keys.GetType())
	}
	return keys.Foreach(func(v any, _ int) error {
		zm.Update(v)
		return nil
	})
}

// Merge widens this zonemap with another one. Merge is pointwise: it
// never replaces, so concurrent writers to disjoint segments can merge
// into shared statistics in any order.
func (zm *ZoneMap) Merge(o *ZoneMap) {
	if o == nil || !o.inited {
		if o != nil && o.hasNull {
			zm.hasNull = true
		}
		return
	}
	zm.Update(o.min)
	zm.Update(o.max)
	if o.hasNull {
		zm.hasNull = true
	}
}

func (zm *ZoneMap) Clone() *ZoneMap {
	cloned := *zm
	return &cloned
}

func (zm *ZoneMap) Contains(key any) bool {
	if !zm.inited {
		return false
	}
	return types.Compare(zm.typ, key, zm.min) >= 0 &&
		types.Compare(zm.typ, key, zm.max) <= 0
}

// CheckFilter reports whether any row in the zone could satisfy
// `value <op> probe`. False positives are allowed.
func (zm *ZoneMap) CheckFilter(op CompareOp, probe any) bool {
	if !zm.inited {
		// No values recorded yet. Nothing can match.
		return false
	}
	switch op {
	case OpEQ:
		return zm.Contains(probe)
	case OpLT:
		return types.Compare(zm.typ, zm.min, probe) < 0
	case OpLE:
		return types.Compare(zm.typ, zm.min, probe) <= 0
	case OpGT:
		return types.Compare(zm.typ, zm.max, probe) > 0
	case OpGE:
		return types.Compare(zm.typ, zm.max, probe) >= 0
	}
	panic(fmt.Sprintf("index: unknown compare op %d", op))
}

func (zm *ZoneMap) String() string {
	return fmt.Sprintf("ZM[%s;min=%v;max=%v;null=%v]", zm.typ, zm.min, zm.max, zm.hasNull)
}
