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
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/tidwall/btree"

	"github.com/emberdb/ember/pkg/common"
	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/iface/txnif"
)

// DeleteNode is one version-info block: the rows one txn deleted within
// one batch. Timestamp semantics match update nodes.
type DeleteNode struct {
	chain  *batchDeleteChain
	dlnode *common.GenericDLNode[*DeleteNode]
	ts     uint64
	mask   *roaring.Bitmap
}

func (node *DeleteNode) GetMask() *roaring.Bitmap { return node.mask }

func (node *DeleteNode) RowOffsets() []uint32 { return node.mask.ToArray() }

func (node *DeleteNode) BaseRow() uint64 { return node.chain.baseRow }

// CommitDelete stamps the node with the commit id.
func (node *DeleteNode) CommitDelete(ts uint64, rows []uint32) {
	node.chain.owner.mu.Lock()
	defer node.chain.owner.mu.Unlock()
	node.ts = ts
}

// Unlink drops the aborted node out of its batch chain.
func (node *DeleteNode) Unlink() {
	node.chain.owner.RemoveNode(node)
}

var _ txnif.DeleteNode = (*DeleteNode)(nil)

type batchDeleteChain struct {
	owner    *DeleteChain
	batchIdx uint32
	baseRow  uint64
	link     *common.GenericDList[*DeleteNode]
}

func batchChainLess(a, b *batchDeleteChain) bool { return a.batchIdx < b.batchIdx }

// DeleteChain tracks row deletions for one table, one node chain per
// row batch.
type DeleteChain struct {
	mu     sync.RWMutex
	chains *btree.BTreeG[*batchDeleteChain]
}

func NewDeleteChain() *DeleteChain {
	return &DeleteChain{
		chains: btree.NewBTreeGOptions(batchChainLess, btree.Options{NoLocks: true}),
	}
}

func (dc *DeleteChain) getOrCreateLocked(batchIdx uint32) *batchDeleteChain {
	if chain, ok := dc.chains.Get(&batchDeleteChain{batchIdx: batchIdx}); ok {
		return chain
	}
	chain := &batchDeleteChain{
		owner:    dc,
		batchIdx: batchIdx,
		baseRow:  uint64(batchIdx) * containers.DefaultVectorSize,
		link:     common.NewGenericDList[*DeleteNode](),
	}
	dc.chains.Set(chain)
	return chain
}

// DeleteRows records offsets as deleted by txn within one batch. A row
// already deleted by a visible or pending version is a conflict.
func (dc *DeleteChain) DeleteRows(txn txnif.TxnReader, batchIdx uint32, offsets []uint32) (*DeleteNode, error) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	chain := dc.getOrCreateLocked(batchIdx)
	for _, offset := range offsets {
		if dc.isDeletedAnyLocked(chain, txn, offset) {
			return nil, txnif.ErrTxnWWConflict
		}
	}
	var node *DeleteNode
	if head := chain.link.GetHead(); head != nil && head.GetPayload().ts == txn.GetID() {
		node = head.GetPayload()
	} else {
		node = &DeleteNode{chain: chain, ts: txn.GetID(), mask: roaring.New()}
		node.dlnode = chain.link.Insert(node)
	}
	for _, offset := range offsets {
		node.mask.Add(offset)
	}
	return node, nil
}

// isDeletedAnyLocked treats both committed-anywhere and pending
// deletions as conflicting; deletes never overlap by construction.
func (dc *DeleteChain) isDeletedAnyLocked(chain *batchDeleteChain, txn txnif.TxnReader, offset uint32) bool {
	found := false
	chain.link.Loop(func(n *common.GenericDLNode[*DeleteNode]) bool {
		node := n.GetPayload()
		if node.mask.Contains(offset) {
			found = true
			return false
		}
		return true
	}, false)
	return found
}

// IsDeleted resolves one row against txn's snapshot.
func (dc *DeleteChain) IsDeleted(txn txnif.TxnReader, batchIdx uint32, offset uint32) bool {
	mask := dc.CollectDeleted(txn, batchIdx)
	return mask != nil && mask.Contains(offset)
}

// CollectDeleted merges every visible delete mask of one batch.
func (dc *DeleteChain) CollectDeleted(txn txnif.TxnReader, batchIdx uint32) *roaring.Bitmap {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	chain, ok := dc.chains.Get(&batchDeleteChain{batchIdx: batchIdx})
	if !ok {
		return nil
	}
	var merged *roaring.Bitmap
	chain.link.Loop(func(n *common.GenericDLNode[*DeleteNode]) bool {
		node := n.GetPayload()
		if !txn.IsVisible(node.ts) {
			return true
		}
		if merged == nil {
			merged = roaring.New()
		}
		merged.Or(node.mask)
		return true
	}, false)
	return merged
}

// RemoveNode unlinks an aborted delete node. Idempotent: a node reused
// across several delete calls owes one unlink per undo entry.
func (dc *DeleteChain) RemoveNode(node *DeleteNode) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if node.dlnode == nil {
		return
	}
	node.chain.link.Delete(node.dlnode)
	node.dlnode = nil
}
