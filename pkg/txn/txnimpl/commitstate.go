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

// Package txnimpl holds the commit engine: the per-transaction visitor
// that walks an undo log and either finalizes or reverts each entry.
package txnimpl

import (
	"fmt"

	"github.com/emberdb/ember/pkg/catalog"
	"github.com/emberdb/ember/pkg/iface/txnif"
	"github.com/emberdb/ember/pkg/txn/txnbase"
	"github.com/emberdb/ember/pkg/wal"
)

// CommitState visits one transaction's undo log exactly once. Forward
// it carries the freshly assigned commit id and may serialize records
// to the log sink; backward it carries the transaction's own id and
// never logs. The undo-entry taxonomy is closed: an unknown entry kind
// is a programming error, not a runtime condition.
type CommitState struct {
	id  uint64
	log wal.Driver

	// Log records address one table at a time; a set-table marker is
	// emitted only when the addressed table changes.
	hasTable  bool
	curSchema string
	curTable  string
}

func NewCommitState(id uint64, log wal.Driver) *CommitState {
	return &CommitState{id: id, log: log}
}

// NewCommitter adapts CommitState to the transaction manager's
// factory shape.
func NewCommitter(id uint64, log wal.Driver) txnbase.Committer {
	return NewCommitState(id, log)
}

func (cs *CommitState) CommitEntry(e txnif.UndoEntry) error {
	switch entry := e.(type) {
	case *txnbase.CatalogChangeEntry:
		return cs.commitCatalogChange(entry)
	case *txnbase.InsertEntry:
		return cs.commitInsert(entry)
	case *txnbase.DeleteEntry:
		return cs.commitDelete(entry)
	case *txnbase.UpdateEntry:
		return cs.commitUpdate(entry)
	default:
		panic(fmt.Sprintf("txnimpl: cannot commit undo entry %T", e))
	}
}

func (cs *CommitState) RevertEntry(e txnif.UndoEntry) error {
	switch entry := e.(type) {
	case *txnbase.CatalogChangeEntry:
		cs.revertCatalogChange(entry)
	case *txnbase.InsertEntry:
		entry.Table.RevertAppend(entry.StartRow, entry.Count)
	case *txnbase.DeleteEntry:
		entry.Table.RestoreRows(uint32(len(entry.Rows)))
		entry.Node.Unlink()
	case *txnbase.UpdateEntry:
		entry.Node.Unlink()
	default:
		panic(fmt.Sprintf("txnimpl: cannot revert undo entry %T", e))
	}
	return nil
}

// switchTable emits a set-table marker iff the addressed table
// changes, so consecutive records against one table share a marker.
func (cs *CommitState) switchTable(schema, name string) error {
	if cs.hasTable && cs.curSchema == schema && cs.curTable == name {
		return nil
	}
	if err := cs.log.WriteSetTable(schema, name); err != nil {
		return err
	}
	cs.hasTable = true
	cs.curSchema = schema
	cs.curTable = name
	return nil
}

// commitCatalogChange stamps the new version with the commit id (both
// versions on a rename, where the chains differ by name) and emits the
// matching DDL record.
func (cs *CommitState) commitCatalogChange(entry *txnbase.CatalogChangeEntry) error {
	old := entry.Entry
	parent := old.Parent
	parent.Set.UpdateTimestamp(parent, cs.id)
	if parent.Name != old.Name {
		old.Set.UpdateTimestamp(old, cs.id)
	}
	if cs.log == nil {
		return nil
	}
	return cs.writeCatalogRecord(old, parent)
}

func (cs *CommitState) revertCatalogChange(entry *txnbase.CatalogChangeEntry) {
	old := entry.Entry
	parent := old.Parent
	parent.Set.UpdateTimestamp(parent, cs.id)
	if parent.Name != old.Name {
		old.Set.UpdateTimestamp(old, cs.id)
	}
}

// writeCatalogRecord classifies the new version and emits the matching
// create/alter/drop record. Entry kinds that are never persisted
// (indexes, prepared statements, functions, collations) are no-ops;
// anything else unrecognized is fatal.
func (cs *CommitState) writeCatalogRecord(old, parent *catalog.Entry) error {
	if parent.Temporary {
		return nil
	}
	switch parent.Typ {
	case catalog.ET_Table:
		if old.Typ == catalog.ET_Table {
			parent.CommitAlter(parent.AlterInfo)
			return cs.log.WriteAlter(parent.AlterInfo)
		}
		return cs.log.WriteCreateTable(parent.SchemaName, parent.Name)
	case catalog.ET_Schema:
		if old.Typ == catalog.ET_Schema {
			// Schema alters carry no persisted payload.
			return nil
		}
		return cs.log.WriteCreateSchema(parent.Name)
	case catalog.ET_View:
		if old.Typ == catalog.ET_View {
			parent.CommitAlter(parent.AlterInfo)
			return cs.log.WriteAlter(parent.AlterInfo)
		}
		return cs.log.WriteCreateView(parent.SchemaName, parent.Name)
	case catalog.ET_Sequence:
		return cs.log.WriteCreateSequence(parent.SchemaName, parent.Name)
	case catalog.ET_Macro:
		return cs.log.WriteCreateMacro(parent.SchemaName, parent.Name)
	case catalog.ET_Deleted:
		switch old.Typ {
		case catalog.ET_Table:
			old.CommitDrop()
			return cs.log.WriteDropTable(old.SchemaName, old.Name)
		case catalog.ET_Schema:
			return cs.log.WriteDropSchema(old.Name)
		case catalog.ET_View:
			return cs.log.WriteDropView(old.SchemaName, old.Name)
		case catalog.ET_Sequence:
			return cs.log.WriteDropSequence(old.SchemaName, old.Name)
		case catalog.ET_Macro:
			return cs.log.WriteDropMacro(old.SchemaName, old.Name)
		case catalog.ET_Index, catalog.ET_PreparedStatement,
			catalog.ET_ScalarFunction, catalog.ET_AggregateFunction,
			catalog.ET_Collation:
			// Not persisted, nothing to log.
			return nil
		default:
			panic(fmt.Sprintf("txnimpl: cannot drop catalog type %s", old.Typ))
		}
	case catalog.ET_Index, catalog.ET_PreparedStatement,
		catalog.ET_ScalarFunction, catalog.ET_AggregateFunction,
		catalog.ET_Collation:
		return nil
	default:
		panic(fmt.Sprintf("txnimpl: cannot log catalog type %s", parent.Typ))
	}
}

func (cs *CommitState) commitInsert(entry *txnbase.InsertEntry) error {
	if cs.log != nil && !entry.Table.IsTemporary() {
		if err := cs.switchTable(entry.Table.SchemaName(), entry.Table.Name()); err != nil {
			return err
		}
		if err := entry.Table.WriteToLog(cs.log, entry.StartRow, entry.Count); err != nil {
			return err
		}
	}
	entry.Table.CommitAppend(cs.id, entry.StartRow, entry.Count)
	return nil
}

func (cs *CommitState) commitDelete(entry *txnbase.DeleteEntry) error {
	if cs.log != nil && !entry.Table.IsTemporary() {
		if err := cs.switchTable(entry.Table.SchemaName(), entry.Table.Name()); err != nil {
			return err
		}
		rowIDs := make([]uint64, len(entry.Rows))
		for i, offset := range entry.Rows {
			rowIDs[i] = entry.BaseRow + uint64(offset)
		}
		if err := cs.log.WriteDelete(rowIDs); err != nil {
			return err
		}
	}
	entry.Node.CommitDelete(cs.id, entry.Rows)
	return nil
}

// commitUpdate logs the batch's pre-image paired with its row ids,
// then stamps the chain node. The pre-image, not the new value, is
// what replay needs to reconstruct the version chain.
func (cs *CommitState) commitUpdate(entry *txnbase.UpdateEntry) error {
	if cs.log != nil && !entry.Table.IsTemporary() {
		if err := cs.switchTable(entry.Table.SchemaName(), entry.Table.Name()); err != nil {
			return err
		}
		offsets := entry.Node.RowOffsets()
		rowIDs := make([]uint64, len(offsets))
		for i, offset := range offsets {
			rowIDs[i] = entry.Node.BaseRow() + uint64(offset)
		}
		if err := cs.log.WriteUpdate(entry.Node.ColumnIndex(), rowIDs, entry.Node.PreImage()); err != nil {
			return err
		}
	}
	entry.Node.StampCommit(cs.id)
	return nil
}

var _ txnbase.Committer = (*CommitState)(nil)
