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
	"fmt"
	"sync"

	"github.com/tidwall/btree"
)

type segItem struct {
	start uint64
	seg   Segment
}

func segLess(a, b *segItem) bool { return a.start < b.start }

// SegmentTree is the ordered collection of one column's contiguous,
// row-disjoint segments. Only the single writer owning the column
// mutates it, but readers descend it concurrently, so shape changes
// go through the tree's own lock.
type SegmentTree struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[*segItem]
	rows uint64
}

func NewSegmentTree() *SegmentTree {
	return &SegmentTree{
		tree: btree.NewBTreeGOptions(segLess, btree.Options{NoLocks: true}),
	}
}

func (st *SegmentTree) Rows() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.rows
}

func (st *SegmentTree) Depth() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.tree.Len()
}

// Append adds a segment at the tail. The segment must start exactly
// where the tree ends.
func (st *SegmentTree) Append(seg Segment) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if seg.Start() != st.rows {
		return fmt.Errorf("tables: segment start %d breaks contiguity at %d", seg.Start(), st.rows)
	}
	st.tree.Set(&segItem{start: seg.Start(), seg: seg})
	st.rows += uint64(seg.Count())
	return nil
}

// AddRows extends the row count after the tail segment grew in place.
func (st *SegmentTree) AddRows(n uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rows += n
}

// Replace swaps the segment starting at the given row, keeping its
// row range.
func (st *SegmentTree) Replace(seg Segment) {
	st.mu.Lock()
	defer st.mu.Unlock()
	item, ok := st.tree.Get(&segItem{start: seg.Start()})
	if !ok {
		panic(fmt.Sprintf("tables: replace at %d misses segment boundary", seg.Start()))
	}
	item.seg = seg
}

// FindSegment locates the segment covering one row id.
func (st *SegmentTree) FindSegment(row uint64) (Segment, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var found Segment
	st.tree.Descend(&segItem{start: row}, func(item *segItem) bool {
		if row < item.start+uint64(item.seg.Count()) {
			found = item.seg
		}
		return false
	})
	return found, found != nil
}

// Tail returns the last segment, if any.
func (st *SegmentTree) Tail() (Segment, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	item, ok := st.tree.Max()
	if !ok {
		return nil, false
	}
	return item.seg, true
}

// Scan visits segments in row order.
func (st *SegmentTree) Scan(fn func(seg Segment) bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	st.tree.Scan(func(item *segItem) bool {
		return fn(item.seg)
	})
}

// TruncateAfter discards every row at or beyond the given row id:
// whole segments past it are dropped and closed, and a segment
// straddling it keeps only its head. Idempotent when row already
// equals the tree's row count.
func (st *SegmentTree) TruncateAfter(row uint64) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if row >= st.rows {
		return nil
	}
	var dead []*segItem
	st.tree.Ascend(&segItem{start: row}, func(item *segItem) bool {
		if item.start >= row {
			dead = append(dead, item)
		}
		return true
	})
	for _, item := range dead {
		st.tree.Delete(item)
		item.seg.Close()
	}
	st.rows = row
	tail, ok := st.tree.Max()
	if !ok || tail.start+uint64(tail.seg.Count()) <= row {
		return nil
	}
	switch seg := tail.seg.(type) {
	case *TransientSegment:
		seg.TruncateTo(row)
	case *PersistentSegment:
		// A partially reverted persistent tail goes back to being
		// appendable; the block is released.
		promoted, err := seg.ToTransient(seg.Capacity())
		if err != nil {
			return err
		}
		promoted.TruncateTo(row)
		tail.seg = promoted
	}
	return nil
}
