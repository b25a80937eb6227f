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

package txnbase

import (
	"github.com/emberdb/ember/pkg/catalog"
	"github.com/emberdb/ember/pkg/iface/txnif"
)

// The undo log's entry kinds form a closed sum. Each entry is created
// synchronously with its mutation, appended in temporal order, and
// consumed exactly once at transaction end.

// CatalogChangeEntry records a DDL mutation: Entry is the superseded
// version (or tombstone) whose Parent is the new version.
type CatalogChangeEntry struct {
	Entry *catalog.Entry
	// AlterInfo carries the serialized alter description for ALTER
	// operations; empty otherwise.
	AlterInfo string
}

// InsertEntry records an appended row range.
type InsertEntry struct {
	Table    txnif.Table
	StartRow uint64
	Count    uint32
}

// DeleteEntry records rows deleted within one row batch.
type DeleteEntry struct {
	Table   txnif.Table
	Node    txnif.DeleteNode
	BaseRow uint64
	Rows    []uint32
}

// UpdateEntry records one column's update-chain node for one row batch.
// One entry exists per affected batch regardless of how many update
// calls touched it.
type UpdateEntry struct {
	Table txnif.Table
	Node  txnif.UpdateNode
}

func (*CatalogChangeEntry) IsUndoEntry() {}
func (*InsertEntry) IsUndoEntry()        {}
func (*DeleteEntry) IsUndoEntry()        {}
func (*UpdateEntry) IsUndoEntry()        {}
