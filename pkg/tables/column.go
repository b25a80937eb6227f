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
	"github.com/emberdb/ember/pkg/index"
	"github.com/emberdb/ember/pkg/tables/updates"
	"github.com/emberdb/ember/pkg/types"
)

var (
	ErrBadSegmentRows = errors.New("tables: segment rows must be a multiple of the vector size")
)

// Filter is the predicate shape zonemap pruning understands.
type Filter struct {
	Op  index.CompareOp
	Val any
}

// Eval applies the predicate to one value. Null never satisfies.
func (f Filter) Eval(typ types.Type, v any) bool {
	if v == nil {
		return false
	}
	cmp := types.Compare(typ, v, f.Val)
	switch f.Op {
	case index.OpEQ:
		return cmp == 0
	case index.OpLT:
		return cmp < 0
	case index.OpLE:
		return cmp <= 0
	case index.OpGT:
		return cmp > 0
	case index.OpGE:
		return cmp >= 0
	}
	panic(fmt.Sprintf("tables: unknown compare op %d", f.Op))
}

// ScanState carries a scan's position between batches. Segment
// boundaries are fixed when the state is initialized.
type ScanState struct {
	nextRow uint64
	endRow  uint64
}

func (state *ScanState) Done() bool { return state.nextRow >= state.endRow }

// ColumnData composes one column's data segments and update overlay.
// Segment capacity is a fixed multiple of the vector size, so a row
// batch never straddles two segments.
type ColumnData struct {
	colIdx  uint16
	typ     types.Type
	mgr     buffer.BlockManager
	maxRows uint32

	segments *SegmentTree
	overlay  *updates.UpdateTree

	statsMu sync.Mutex
	stats   *index.ZoneMap
}

func NewColumnData(colIdx uint16, typ types.Type, mgr buffer.BlockManager, segmentMaxRows uint32) (*ColumnData, error) {
	if segmentMaxRows == 0 || segmentMaxRows%containers.DefaultVectorSize != 0 {
		return nil, ErrBadSegmentRows
	}
	return &ColumnData{
		colIdx:   colIdx,
		typ:      typ,
		mgr:      mgr,
		maxRows:  segmentMaxRows,
		segments: NewSegmentTree(),
		overlay:  updates.NewUpdateTree(colIdx, typ),
		stats:    index.NewZoneMap(typ),
	}, nil
}

func (col *ColumnData) ColumnIndex() uint16 { return col.colIdx }
func (col *ColumnData) GetType() types.Type { return col.typ }
func (col *ColumnData) Rows() uint64        { return col.segments.Rows() }

func (col *ColumnData) InitializeScan() *ScanState {
	return &ScanState{endRow: col.segments.Rows()}
}

// InitializeScanWithOffset starts the scan at an arbitrary batch
// boundary.
func (col *ColumnData) InitializeScanWithOffset(row uint64) *ScanState {
	return &ScanState{nextRow: row, endRow: col.segments.Rows()}
}

// Scan materializes the next row batch into out: base segment values
// first, then every overlay version visible to txn. Returns the batch's
// starting row and its length; length 0 means the scan is done.
func (col *ColumnData) Scan(txn txnif.TxnReader, state *ScanState, out containers.Vector) (startRow uint64, n int, err error) {
	if state.Done() {
		return 0, 0, nil
	}
	startRow = state.nextRow
	length := uint32(containers.DefaultVectorSize)
	if left := state.endRow - startRow; left < uint64(length) {
		length = uint32(left)
	}
	seg, ok := col.segments.FindSegment(startRow)
	if !ok {
		return 0, 0, fmt.Errorf("tables: no segment covers row %d", startRow)
	}
	base := out.Length()
	if err = seg.ScanWindow(uint32(startRow-seg.Start()), length, out); err != nil {
		return 0, 0, err
	}
	batchIdx := uint32(startRow / containers.DefaultVectorSize)
	if chain, ok := col.overlay.GetChain(batchIdx); ok {
		chain.ApplyVisibleOffset(txn, out, base)
	}
	state.nextRow += uint64(length)
	return startRow, int(length), nil
}

// CheckZonemap reports whether the segment covering the scan's current
// position could hold a row satisfying every filter. False positives
// are allowed; pending overlay entries force a yes.
func (col *ColumnData) CheckZonemap(state *ScanState, filters ...Filter) bool {
	if state.Done() {
		return false
	}
	batchIdx := uint32(state.nextRow / containers.DefaultVectorSize)
	if _, ok := col.overlay.GetChain(batchIdx); ok {
		return true
	}
	seg, ok := col.segments.FindSegment(state.nextRow)
	if !ok {
		return false
	}
	stats := seg.GetStats()
	for _, filter := range filters {
		if !stats.CheckFilter(filter.Op, filter.Val) {
			return false
		}
	}
	return true
}

// FilterScan scans the next batch and compacts the offsets of rows
// satisfying the conjunction of filters into a selection vector. A
// batch any filter's zonemap check excludes is skipped without
// decoding.
func (col *ColumnData) FilterScan(txn txnif.TxnReader, state *ScanState, filters []Filter, out containers.Vector) (startRow uint64, sel []uint32, err error) {
	for !state.Done() {
		if !col.CheckZonemap(state, filters...) {
			skip := uint64(containers.DefaultVectorSize)
			if left := state.endRow - state.nextRow; left < skip {
				skip = left
			}
			state.nextRow += skip
			continue
		}
		out.Reset()
		var n int
		startRow, n, err = col.Scan(txn, state, out)
		if err != nil || n == 0 {
			return
		}
		for i := 0; i < n; i++ {
			hit := true
			for _, filter := range filters {
				if !filter.Eval(col.typ, out.Get(i)) {
					hit = false
					break
				}
			}
			if hit {
				sel = append(sel, uint32(i))
			}
		}
		return
	}
	return 0, nil, nil
}

// IndexScan is Scan for exact-lookup consumers: with allowPending
// false it refuses batches carrying updates not yet committed.
func (col *ColumnData) IndexScan(txn txnif.TxnReader, state *ScanState, out containers.Vector, allowPending bool) (startRow uint64, n int, err error) {
	if !allowPending && !state.Done() {
		batchIdx := uint32(state.nextRow / containers.DefaultVectorSize)
		if chain, ok := col.overlay.GetChain(batchIdx); ok && chain.HasUncommitted() {
			return 0, 0, txnif.ErrConcurrentModification
		}
	}
	return col.Scan(txn, state, out)
}

// InitializeAppend returns the row the next append lands on.
func (col *ColumnData) InitializeAppend() uint64 {
	return col.segments.Rows()
}

// Append writes the vector at the tail, growing the segment chain as
// needed. A persistent tail with free capacity is promoted first.
// Statistics grow incrementally under the exclusive statistics lock.
func (col *ColumnData) Append(src containers.Vector) error {
	offset := 0
	for offset < src.Length() {
		tail, err := col.appendableTail()
		if err != nil {
			return err
		}
		n := tail.Append(src, offset)
		if n == 0 {
			return fmt.Errorf("tables: append made no progress at row %d", col.segments.Rows())
		}
		col.segments.AddRows(uint64(n))
		offset += n
	}
	col.statsMu.Lock()
	defer col.statsMu.Unlock()
	return src.Foreach(func(v any, _ int) error {
		col.stats.Update(v)
		return nil
	})
}

func (col *ColumnData) appendableTail() (*TransientSegment, error) {
	tail, ok := col.segments.Tail()
	if !ok || tail.Count() >= tail.Capacity() {
		seg := NewTransientSegment(col.typ, col.segments.Rows(), col.maxRows)
		if err := col.segments.Append(seg); err != nil {
			return nil, err
		}
		return seg, nil
	}
	if trans, ok := tail.(*TransientSegment); ok {
		return trans, nil
	}
	promoted, err := tail.(*PersistentSegment).ToTransient(col.maxRows)
	if err != nil {
		return nil, err
	}
	col.segments.Replace(promoted)
	return promoted, nil
}

// RevertAppend rolls the column back to startRow. Overlay chains for
// batches past the new end are dropped with it. Idempotent when
// startRow already equals the row count.
func (col *ColumnData) RevertAppend(startRow uint64) error {
	if err := col.segments.TruncateAfter(startRow); err != nil {
		return err
	}
	col.overlay.TruncateAfter(startRow)
	return nil
}

// Update stages new values for the given rows under txn's id. One
// chain node exists per affected batch per transaction; the returned
// slice holds only the nodes this call created, each owed one undo
// entry by the caller.
func (col *ColumnData) Update(txn txnif.TxnReader, rowIDs []uint64, values containers.Vector) ([]txnif.UpdateNode, error) {
	if len(rowIDs) != values.Length() {
		return nil, fmt.Errorf("tables: %d row ids vs %d values", len(rowIDs), values.Length())
	}
	var created []txnif.UpdateNode
	for i, row := range rowIDs {
		if row >= col.segments.Rows() {
			return nil, fmt.Errorf("tables: update row %d beyond column rows %d", row, col.segments.Rows())
		}
		batchIdx := uint32(row / containers.DefaultVectorSize)
		chain := col.overlay.GetOrCreateChain(batchIdx)
		node, fresh, err := chain.GetOrCreateNode(txn)
		if err != nil {
			return nil, err
		}
		if fresh {
			created = append(created, node)
		}
		offset := uint32(row % containers.DefaultVectorSize)
		pre, err := col.fetchCommitted(txn, row)
		if err != nil {
			return nil, err
		}
		node.Update(offset, values.Get(i), pre)
	}
	return created, nil
}

// fetchCommitted resolves a row against base data plus overlay entries
// committed before txn, skipping txn's own pending version. This is
// the value the WAL pre-image records.
func (col *ColumnData) fetchCommitted(txn txnif.TxnReader, row uint64) (any, error) {
	batchIdx := uint32(row / containers.DefaultVectorSize)
	offset := uint32(row % containers.DefaultVectorSize)
	if chain, ok := col.overlay.GetChain(batchIdx); ok {
		if v, found := chain.GetVisibleCommitted(txn, offset); found {
			return v, nil
		}
	}
	return col.fetchBase(row)
}

func (col *ColumnData) fetchBase(row uint64) (any, error) {
	seg, ok := col.segments.FindSegment(row)
	if !ok {
		return nil, fmt.Errorf("tables: no segment covers row %d", row)
	}
	return seg.Fetch(uint32(row - seg.Start()))
}

// Fetch is the point-lookup twin of Scan: overlay first, base second.
func (col *ColumnData) Fetch(txn txnif.TxnReader, row uint64) (any, error) {
	batchIdx := uint32(row / containers.DefaultVectorSize)
	offset := uint32(row % containers.DefaultVectorSize)
	if chain, ok := col.overlay.GetChain(batchIdx); ok {
		if v, found := chain.GetVisibleValue(txn, offset); found {
			return v, nil
		}
	}
	return col.fetchBase(row)
}

// FreezeTail registers the full tail segment with the block manager
// and swaps in its persistent twin. A partially filled tail stays
// transient.
func (col *ColumnData) FreezeTail() error {
	tail, ok := col.segments.Tail()
	if !ok || tail.IsPersistent() {
		return nil
	}
	trans := tail.(*TransientSegment)
	if trans.Count() < trans.Capacity() {
		return nil
	}
	frozen, err := FreezeSegment(col.mgr, trans)
	if err != nil {
		return err
	}
	col.segments.Replace(frozen)
	return nil
}

func (col *ColumnData) GetStatistics() *index.ZoneMap {
	col.statsMu.Lock()
	defer col.statsMu.Unlock()
	return col.stats.Clone()
}

func (col *ColumnData) SetStatistics(stats *index.ZoneMap) {
	col.statsMu.Lock()
	defer col.statsMu.Unlock()
	col.stats = stats.Clone()
}

// MergeStatistics widens the column statistics with another zonemap.
// Merging is pointwise, so concurrent loaders of disjoint segments may
// merge in any order.
func (col *ColumnData) MergeStatistics(o *index.ZoneMap) {
	col.statsMu.Lock()
	defer col.statsMu.Unlock()
	col.stats.Merge(o)
}

func (col *ColumnData) HasPendingUpdates() bool {
	return col.overlay.HasUncommitted()
}
