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

package tables

import (
	"errors"
	"fmt"
	"sync"

	"github.com/emberdb/ember/pkg/buffer"
	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/iface/txnif"
	"github.com/emberdb/ember/pkg/tables/updates"
	"github.com/emberdb/ember/pkg/txn/txnbase"
	"github.com/emberdb/ember/pkg/types"
	"github.com/emberdb/ember/pkg/wal"
)

var (
	ErrRowNotVisible = errors.New("tables: row not visible")
	ErrSchemaShape   = errors.New("tables: batch does not match table schema")
)

// appendNode is the MVCC record of one appended row range: transient
// while the appending txn is active, commit-stamped after.
type appendNode struct {
	start uint64
	count uint32
	ts    uint64
}

// DataTable is the table facade: one ColumnData per column, a shared
// delete chain, and the append MVCC nodes the commit engine stamps.
type DataTable struct {
	id         uint64
	schemaName string
	name       string
	temporary  bool
	attrs      []string
	colTypes   []types.Type
	cols       []*ColumnData

	mu       sync.RWMutex
	appends  []*appendNode
	deadRows uint64

	deletes *updates.DeleteChain
}

func NewDataTable(
	id uint64,
	schemaName, name string,
	temporary bool,
	attrs []string,
	colTypes []types.Type,
	mgr buffer.BlockManager,
	segmentMaxRows uint32,
) (*DataTable, error) {
	if len(attrs) != len(colTypes) || len(attrs) == 0 {
		return nil, ErrSchemaShape
	}
	tbl := &DataTable{
		id:         id,
		schemaName: schemaName,
		name:       name,
		temporary:  temporary,
		attrs:      attrs,
		colTypes:   colTypes,
		deletes:    updates.NewDeleteChain(),
	}
	for i, typ := range colTypes {
		col, err := NewColumnData(uint16(i), typ, mgr, segmentMaxRows)
		if err != nil {
			return nil, err
		}
		tbl.cols = append(tbl.cols, col)
	}
	return tbl, nil
}

func (tbl *DataTable) ID() uint64         { return tbl.id }
func (tbl *DataTable) SchemaName() string { return tbl.schemaName }
func (tbl *DataTable) Name() string       { return tbl.name }
func (tbl *DataTable) IsTemporary() bool  { return tbl.temporary }

func (tbl *DataTable) GetColumnData(colIdx uint16) *ColumnData { return tbl.cols[int(colIdx)] }

func (tbl *DataTable) Rows() uint64 {
	return tbl.cols[0].Rows()
}

// LiveRows is the approximate live count: appended minus deleted.
// Deletions decrement it eagerly; reverting a deletion restores it.
func (tbl *DataTable) LiveRows() uint64 {
	tbl.mu.RLock()
	defer tbl.mu.RUnlock()
	return tbl.cols[0].Rows() - tbl.deadRows
}

// VisibleRows is the contiguous row prefix whose append nodes txn can
// see. Appends land in commit order, so the first invisible node ends
// the prefix.
func (tbl *DataTable) VisibleRows(txn txnif.TxnReader) uint64 {
	tbl.mu.RLock()
	defer tbl.mu.RUnlock()
	var rows uint64
	for _, node := range tbl.appends {
		if !txn.IsVisible(node.ts) {
			break
		}
		rows = node.start + uint64(node.count)
	}
	return rows
}

// Append lands the batch at the tail of every column and records one
// insertion undo entry for the whole range.
func (tbl *DataTable) Append(txn txnif.AsyncTxn, bat *containers.Batch) error {
	if len(bat.Vecs) != len(tbl.cols) {
		return ErrSchemaShape
	}
	count := bat.Length()
	if count == 0 {
		return nil
	}
	start := tbl.cols[0].InitializeAppend()
	for i, col := range tbl.cols {
		vec := bat.Vecs[i]
		if vec.Length() != count || !vec.GetType().Eq(tbl.colTypes[i]) {
			return ErrSchemaShape
		}
		if err := col.Append(vec); err != nil {
			// A failed append aborts the mutation; roll the columns
			// already extended back to the pre-append row count.
			for j := 0; j <= i; j++ {
				_ = tbl.cols[j].RevertAppend(start)
			}
			return err
		}
	}
	tbl.mu.Lock()
	tbl.appends = append(tbl.appends, &appendNode{
		start: start,
		count: uint32(count),
		ts:    txn.GetID(),
	})
	tbl.mu.Unlock()
	txn.LogEntry(&txnbase.InsertEntry{Table: tbl, StartRow: start, Count: uint32(count)})
	return nil
}

// Delete marks rows deleted under txn's id, one version-info block and
// one undo entry per affected row batch.
func (tbl *DataTable) Delete(txn txnif.AsyncTxn, rowIDs []uint64) error {
	byBatch := make(map[uint32][]uint32)
	var order []uint32
	for _, row := range rowIDs {
		if row >= tbl.Rows() {
			return fmt.Errorf("tables: delete row %d beyond table rows %d", row, tbl.Rows())
		}
		batchIdx := uint32(row / containers.DefaultVectorSize)
		if _, ok := byBatch[batchIdx]; !ok {
			order = append(order, batchIdx)
		}
		byBatch[batchIdx] = append(byBatch[batchIdx], uint32(row%containers.DefaultVectorSize))
	}
	for _, batchIdx := range order {
		offsets := byBatch[batchIdx]
		node, err := tbl.deletes.DeleteRows(txn, batchIdx, offsets)
		if err != nil {
			return err
		}
		txn.LogEntry(&txnbase.DeleteEntry{
			Table:   tbl,
			Node:    node,
			BaseRow: node.BaseRow(),
			Rows:    offsets,
		})
	}
	tbl.mu.Lock()
	tbl.deadRows += uint64(len(rowIDs))
	tbl.mu.Unlock()
	return nil
}

// Update stages new values for one column and logs one undo entry per
// freshly touched row batch.
func (tbl *DataTable) Update(txn txnif.AsyncTxn, colIdx uint16, rowIDs []uint64, values containers.Vector) error {
	if int(colIdx) >= len(tbl.cols) {
		return fmt.Errorf("tables: no column %d", colIdx)
	}
	created, err := tbl.cols[int(colIdx)].Update(txn, rowIDs, values)
	if err != nil {
		return err
	}
	for _, node := range created {
		txn.LogEntry(&txnbase.UpdateEntry{Table: tbl, Node: node})
	}
	return nil
}

// IsDeleted resolves one row's deletion state under txn's snapshot.
func (tbl *DataTable) IsDeleted(txn txnif.TxnReader, row uint64) bool {
	batchIdx := uint32(row / containers.DefaultVectorSize)
	return tbl.deletes.IsDeleted(txn, batchIdx, uint32(row%containers.DefaultVectorSize))
}

// Scan materializes every row visible to txn for the chosen columns,
// skipping rows txn sees as deleted.
func (tbl *DataTable) Scan(txn txnif.TxnReader, colIdxs []uint16) (*containers.Batch, error) {
	out := containers.NewBatch()
	for _, colIdx := range colIdxs {
		if int(colIdx) >= len(tbl.cols) {
			return nil, fmt.Errorf("tables: no column %d", colIdx)
		}
		out.AddVector(tbl.attrs[int(colIdx)], containers.MakeVector(tbl.colTypes[int(colIdx)]))
	}
	end := tbl.VisibleRows(txn)
	if end == 0 {
		return out, nil
	}
	states := make([]*ScanState, len(colIdxs))
	tmp := make([]containers.Vector, len(colIdxs))
	for i, colIdx := range colIdxs {
		states[i] = &ScanState{endRow: end}
		tmp[i] = containers.MakeVector(tbl.colTypes[int(colIdx)])
	}
	for !states[0].Done() {
		var startRow uint64
		var n int
		for i, colIdx := range colIdxs {
			tmp[i].Reset()
			var err error
			startRow, n, err = tbl.cols[int(colIdx)].Scan(txn, states[i], tmp[i])
			if err != nil {
				return nil, err
			}
		}
		if n == 0 {
			break
		}
		batchIdx := uint32(startRow / containers.DefaultVectorSize)
		deleted := tbl.deletes.CollectDeleted(txn, batchIdx)
		for row := 0; row < n; row++ {
			if deleted != nil && deleted.Contains(uint32(row)) {
				continue
			}
			for i := range colIdxs {
				out.Vecs[i].Append(tmp[i].Get(row))
			}
		}
	}
	return out, nil
}

// Fetch resolves a single visible, undeleted row of one column.
func (tbl *DataTable) Fetch(txn txnif.TxnReader, colIdx uint16, row uint64) (any, error) {
	if row >= tbl.VisibleRows(txn) || tbl.IsDeleted(txn, row) {
		return nil, ErrRowNotVisible
	}
	return tbl.cols[int(colIdx)].Fetch(txn, row)
}

// WriteToLog serializes the base values of one appended row range as a
// single insert record.
func (tbl *DataTable) WriteToLog(log wal.Driver, startRow uint64, count uint32) error {
	bat := containers.NewBatch()
	end := startRow + uint64(count)
	for i, col := range tbl.cols {
		vec := containers.MakeVector(tbl.colTypes[i])
		row := startRow
		for row < end {
			seg, ok := col.segments.FindSegment(row)
			if !ok {
				return fmt.Errorf("tables: no segment covers row %d", row)
			}
			length := seg.Start() + uint64(seg.Count()) - row
			if left := end - row; left < length {
				length = left
			}
			if err := seg.ScanWindow(uint32(row-seg.Start()), uint32(length), vec); err != nil {
				return err
			}
			row += length
		}
		bat.AddVector(tbl.attrs[i], vec)
	}
	return log.WriteInsert(startRow, bat)
}

// CommitAppend stamps the append node covering the range with the
// commit id, making the rows visible to later snapshots.
func (tbl *DataTable) CommitAppend(commitID uint64, startRow uint64, count uint32) {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	for _, node := range tbl.appends {
		if node.start == startRow && node.count == count {
			node.ts = commitID
			return
		}
	}
}

// RevertAppend truncates the aborted range back out of every column
// and drops its append nodes. Idempotent.
func (tbl *DataTable) RevertAppend(startRow uint64, count uint32) {
	for _, col := range tbl.cols {
		_ = col.RevertAppend(startRow)
	}
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	kept := tbl.appends[:0]
	for _, node := range tbl.appends {
		if node.start < startRow {
			kept = append(kept, node)
		}
	}
	tbl.appends = kept
}

// RestoreRows re-increments the live row count when a deletion is
// reverted.
func (tbl *DataTable) RestoreRows(count uint32) {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	tbl.deadRows -= uint64(count)
}

var _ txnif.Table = (*DataTable)(nil)
