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

// Package tables implements per-column segment storage with update
// overlays and the table facade the transaction layer drives.
package tables

import (
	"fmt"
	"sync"

	"github.com/emberdb/ember/pkg/buffer"
	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/index"
	"github.com/emberdb/ember/pkg/types"
)

// Segment owns one contiguous row range of a column. Persistent
// segments wrap an immutable block-manager block; transient segments
// are the appendable in-memory variant.
type Segment interface {
	Start() uint64
	Count() uint32
	Capacity() uint32
	IsPersistent() bool
	GetStats() *index.ZoneMap
	// ScanWindow copies rows [offset, offset+length) into out.
	ScanWindow(offset, length uint32, out containers.Vector) error
	Fetch(offset uint32) (any, error)
	Close()
}

// TransientSegment holds appendable in-memory data. The writer grows
// the tail while readers copy committed prefixes out, so data access
// goes through the segment's own lock.
type TransientSegment struct {
	mu       sync.RWMutex
	start    uint64
	capacity uint32
	data     containers.Vector
	stats    *index.ZoneMap
}

func NewTransientSegment(typ types.Type, start uint64, capacity uint32) *TransientSegment {
	return &TransientSegment{
		start:    start,
		capacity: capacity,
		data:     containers.MakeVector(typ),
		stats:    index.NewZoneMap(typ),
	}
}

func (seg *TransientSegment) Start() uint64      { return seg.start }
func (seg *TransientSegment) Capacity() uint32   { return seg.capacity }
func (seg *TransientSegment) IsPersistent() bool { return false }

func (seg *TransientSegment) Count() uint32 {
	seg.mu.RLock()
	defer seg.mu.RUnlock()
	return uint32(seg.data.Length())
}

// GetStats returns a point-in-time copy; the writer widens the live
// zonemap while appending.
func (seg *TransientSegment) GetStats() *index.ZoneMap {
	seg.mu.RLock()
	defer seg.mu.RUnlock()
	return seg.stats.Clone()
}

func (seg *TransientSegment) Data() containers.Vector { return seg.data }

// Append moves up to the remaining capacity from src[srcOffset:] into
// the segment and returns how many rows it took.
func (seg *TransientSegment) Append(src containers.Vector, srcOffset int) int {
	seg.mu.Lock()
	defer seg.mu.Unlock()
	free := int(seg.capacity) - seg.data.Length()
	n := src.Length() - srcOffset
	if n > free {
		n = free
	}
	if n <= 0 {
		return 0
	}
	seg.data.ExtendWindow(src, srcOffset, n)
	_ = src.ForeachWindow(srcOffset, n, func(v any, _ int) error {
		seg.stats.Update(v)
		return nil
	})
	return n
}

// TruncateTo drops rows at or beyond the given absolute row id.
// Statistics are left widened; zonemaps only ever over-approximate.
func (seg *TransientSegment) TruncateTo(row uint64) {
	seg.mu.Lock()
	defer seg.mu.Unlock()
	if row <= seg.start {
		seg.data.Truncate(0)
		return
	}
	seg.data.Truncate(int(row - seg.start))
}

func (seg *TransientSegment) ScanWindow(offset, length uint32, out containers.Vector) error {
	seg.mu.RLock()
	defer seg.mu.RUnlock()
	if int(offset+length) > seg.data.Length() {
		return fmt.Errorf("tables: window [%d,%d) out of segment range %d",
			offset, offset+length, seg.data.Length())
	}
	out.ExtendWindow(seg.data, int(offset), int(length))
	return nil
}

func (seg *TransientSegment) Fetch(offset uint32) (any, error) {
	seg.mu.RLock()
	defer seg.mu.RUnlock()
	if int(offset) >= seg.data.Length() {
		return nil, fmt.Errorf("tables: fetch offset %d out of segment range %d", offset, seg.data.Length())
	}
	return seg.data.Get(int(offset)), nil
}

func (seg *TransientSegment) Close() {}

// PersistentSegment wraps a frozen block. Reads pin the block for the
// duration of the copy; the data itself never changes.
type PersistentSegment struct {
	mgr     buffer.BlockManager
	blockID uint64
	start   uint64
	count   uint32
	stats   *index.ZoneMap
}

// FreezeSegment registers a transient segment's data as a block and
// returns the persistent twin covering the same row range.
func FreezeSegment(mgr buffer.BlockManager, seg *TransientSegment) (*PersistentSegment, error) {
	id, err := mgr.Register(seg.data)
	if err != nil {
		return nil, err
	}
	return &PersistentSegment{
		mgr:     mgr,
		blockID: id,
		start:   seg.start,
		count:   seg.Count(),
		stats:   seg.stats.Clone(),
	}, nil
}

func (seg *PersistentSegment) Start() uint64            { return seg.start }
func (seg *PersistentSegment) Count() uint32            { return seg.count }
func (seg *PersistentSegment) Capacity() uint32         { return seg.count }
func (seg *PersistentSegment) IsPersistent() bool       { return true }
func (seg *PersistentSegment) GetStats() *index.ZoneMap { return seg.stats }
func (seg *PersistentSegment) BlockID() uint64          { return seg.blockID }

func (seg *PersistentSegment) ScanWindow(offset, length uint32, out containers.Vector) error {
	if offset+length > seg.count {
		return fmt.Errorf("tables: window [%d,%d) out of segment range %d",
			offset, offset+length, seg.count)
	}
	h, err := seg.mgr.Pin(seg.blockID)
	if err != nil {
		return err
	}
	defer h.Close()
	out.ExtendWindow(h.Data(), int(offset), int(length))
	return nil
}

func (seg *PersistentSegment) Fetch(offset uint32) (any, error) {
	if offset >= seg.count {
		return nil, fmt.Errorf("tables: fetch offset %d out of segment range %d", offset, seg.count)
	}
	h, err := seg.mgr.Pin(seg.blockID)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.Data().Get(int(offset)), nil
}

// ToTransient clones the block's data into an appendable segment with
// the given capacity and releases the block. The block manager keeps
// the image alive until the last outstanding reader unpins it, so
// in-flight scans finish against the old data.
func (seg *PersistentSegment) ToTransient(capacity uint32) (*TransientSegment, error) {
	h, err := seg.mgr.Pin(seg.blockID)
	if err != nil {
		return nil, err
	}
	cloned := h.Data().CloneWindow(0, int(seg.count))
	h.Close()
	seg.mgr.Unregister(seg.blockID)
	if capacity < seg.count {
		capacity = seg.count
	}
	return &TransientSegment{
		start:    seg.start,
		capacity: capacity,
		data:     cloned,
		stats:    seg.stats.Clone(),
	}, nil
}

func (seg *PersistentSegment) Close() {
	seg.mgr.Unregister(seg.blockID)
}
