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

// Package wal abstracts the durable record sink the commit engine
// serializes into. The on-disk encoding is not this layer's concern;
// each Write call is atomic from the caller's perspective.
package wal

import (
	"github.com/emberdb/ember/pkg/containers"
)

type RecordKind uint8

const (
	RecordInvalid RecordKind = iota
	RecordSetTable
	RecordCreateSchema
	RecordCreateTable
	RecordCreateView
	RecordCreateSequence
	RecordCreateMacro
	RecordAlter
	RecordDropSchema
	RecordDropTable
	RecordDropView
	RecordDropSequence
	RecordDropMacro
	RecordInsert
	RecordDelete
	RecordUpdate
)

func (k RecordKind) String() string {
	switch k {
	case RecordSetTable:
		return "SET_TABLE"
	case RecordCreateSchema:
		return "CREATE_SCHEMA"
	case RecordCreateTable:
		return "CREATE_TABLE"
	case RecordCreateView:
		return "CREATE_VIEW"
	case RecordCreateSequence:
		return "CREATE_SEQUENCE"
	case RecordCreateMacro:
		return "CREATE_MACRO"
	case RecordAlter:
		return "ALTER"
	case RecordDropSchema:
		return "DROP_SCHEMA"
	case RecordDropTable:
		return "DROP_TABLE"
	case RecordDropView:
		return "DROP_VIEW"
	case RecordDropSequence:
		return "DROP_SEQUENCE"
	case RecordDropMacro:
		return "DROP_MACRO"
	case RecordInsert:
		return "INSERT"
	case RecordDelete:
		return "DELETE"
	case RecordUpdate:
		return "UPDATE"
	}
	return "INVALID"
}

// Record is one serialized mutation. Which fields are meaningful
// depends on Kind.
type Record struct {
	Kind   RecordKind
	Schema string
	Name   string

	// Insert payload
	StartRow uint64
	Batch    *containers.Batch

	// Delete/update payload
	RowIDs []uint64
	ColIdx uint16
	Values containers.Vector

	// Alter payload
	Info string
}

// Driver is the append-only log sink consumed by the commit engine.
type Driver interface {
	WriteSetTable(schema, name string) error
	WriteCreateSchema(name string) error
	WriteCreateTable(schema, name string) error
	WriteCreateView(schema, name string) error
	WriteCreateSequence(schema, name string) error
	WriteCreateMacro(schema, name string) error
	WriteAlter(info string) error
	WriteDropSchema(name string) error
	WriteDropTable(schema, name string) error
	WriteDropView(schema, name string) error
	WriteDropSequence(schema, name string) error
	WriteDropMacro(schema, name string) error
	WriteInsert(startRow uint64, batch *containers.Batch) error
	WriteDelete(rowIDs []uint64) error
	WriteUpdate(colIdx uint16, rowIDs []uint64, values containers.Vector) error
	Close() error
}
