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

package updates

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/emberdb/ember/pkg/common"
	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/iface/txnif"
	"github.com/emberdb/ember/pkg/types"
)

// ColumnChain is one row batch's chain of pending and committed update
// nodes for one column, newest first.
type ColumnChain struct {
	mu       sync.RWMutex
	colIdx   uint16
	batchIdx uint32
	baseRow  uint64
	typ      types.Type
	link     *common.GenericDList[*ColumnUpdateNode]
}

func NewColumnChain(colIdx uint16, batchIdx uint32, baseRow uint64, typ types.Type) *ColumnChain {
	return &ColumnChain{
		colIdx:   colIdx,
		batchIdx: batchIdx,
		baseRow:  baseRow,
		typ:      typ,
		link:     common.NewGenericDList[*ColumnUpdateNode](),
	}
}

func (chain *ColumnChain) BatchIndex() uint32 { return chain.batchIdx }
func (chain *ColumnChain) BaseRow() uint64    { return chain.baseRow }

func (chain *ColumnChain) DepthLocked() int { return chain.link.Depth() }

func (chain *ColumnChain) LoopChainLocked(fn func(n *ColumnUpdateNode) bool) {
	chain.link.Loop(func(node *common.GenericDLNode[*ColumnUpdateNode]) bool {
		return fn(node.GetPayload())
	}, false)
}

// PrepareUpdate checks the newest node for a write-write conflict. The
// transaction layer is expected to prevent conflicts before they get
// here; this is the last line of defense.
func (chain *ColumnChain) prepareUpdateLocked(txn txnif.TxnReader) error {
	head := chain.link.GetHead()
	if head == nil {
		return nil
	}
	n := head.GetPayload()
	if txnif.IsTransient(n.ts) && n.ts != txn.GetID() {
		return txnif.ErrTxnWWConflict
	}
	return nil
}

// GetOrCreateNode returns the chain node owned by txn, creating one if
// the newest node belongs to someone else or the chain is empty.
// Reusing the txn's own node is what keeps one undo entry per batch no
// matter how many updates the txn issues.
func (chain *ColumnChain) GetOrCreateNode(txn txnif.TxnReader) (node *ColumnUpdateNode, created bool, err error) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	if err = chain.prepareUpdateLocked(txn); err != nil {
		return
	}
	if head := chain.link.GetHead(); head != nil {
		n := head.GetPayload()
		if n.ts == txn.GetID() {
			return n, false, nil
		}
	}
	node = newColumnUpdateNode(chain, txn.GetID())
	node.dlnode = chain.link.Insert(node)
	created = true
	return
}

// ApplyVisible overlays every update visible to txn onto out, which
// holds this batch's base values. Newer nodes win.
func (chain *ColumnChain) ApplyVisible(txn txnif.TxnReader, out containers.Vector) {
	chain.ApplyVisibleOffset(txn, out, 0)
}

// ApplyVisibleOffset is ApplyVisible for an out vector whose batch
// starts at position base, e.g. a scan accumulating several batches.
func (chain *ColumnChain) ApplyVisibleOffset(txn txnif.TxnReader, out containers.Vector, base int) {
	chain.mu.RLock()
	defer chain.mu.RUnlock()
	applied := roaring.New()
	chain.LoopChainLocked(func(n *ColumnUpdateNode) bool {
		if !txn.IsVisible(n.ts) {
			return true
		}
		it := n.mask.Iterator()
		for it.HasNext() {
			row := it.Next()
			if applied.Contains(row) {
				continue
			}
			applied.Add(row)
			if pos := base + int(row); pos < out.Length() {
				out.Update(pos, n.vals[row])
			}
		}
		return true
	})
}

// GetVisibleValue resolves a point lookup against the chain.
func (chain *ColumnChain) GetVisibleValue(txn txnif.TxnReader, offset uint32) (v any, found bool) {
	chain.mu.RLock()
	defer chain.mu.RUnlock()
	chain.LoopChainLocked(func(n *ColumnUpdateNode) bool {
		if !txn.IsVisible(n.ts) {
			return true
		}
		if n.mask.Contains(offset) {
			v = n.vals[offset]
			found = true
			return false
		}
		return true
	})
	return
}

// GetVisibleCommitted is GetVisibleValue minus the caller's own
// pending node: the newest version committed before txn's snapshot.
// It is what the write-ahead pre-image records.
func (chain *ColumnChain) GetVisibleCommitted(txn txnif.TxnReader, offset uint32) (v any, found bool) {
	chain.mu.RLock()
	defer chain.mu.RUnlock()
	chain.LoopChainLocked(func(n *ColumnUpdateNode) bool {
		if n.ts == txn.GetID() || !txn.IsVisible(n.ts) {
			return true
		}
		if n.mask.Contains(offset) {
			v = n.vals[offset]
			found = true
			return false
		}
		return true
	})
	return
}

// HasUncommitted reports whether any node still carries a transient id.
func (chain *ColumnChain) HasUncommitted() bool {
	chain.mu.RLock()
	defer chain.mu.RUnlock()
	var found bool
	chain.LoopChainLocked(func(n *ColumnUpdateNode) bool {
		if txnif.IsTransient(n.ts) {
			found = true
			return false
		}
		return true
	})
	return found
}

// DeleteNode unlinks an aborted node from the chain.
func (chain *ColumnChain) DeleteNode(node *ColumnUpdateNode) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	chain.link.Delete(node.dlnode)
}

func (chain *ColumnChain) String() string {
	chain.mu.RLock()
	defer chain.mu.RUnlock()
	return fmt.Sprintf("UpdateChain[col=%d;batch=%d;depth=%d]",
		chain.colIdx, chain.batchIdx, chain.link.Depth())
}
