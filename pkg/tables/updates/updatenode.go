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

	"github.com/RoaringBitmap/roaring"

	"github.com/emberdb/ember/pkg/common"
	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/iface/txnif"
)

// ColumnUpdateNode is one version in a ColumnChain: the offsets a txn
// changed within the batch, the new values, and the committed values
// they replaced (the WAL pre-image). Its timestamp is the txn id until
// commit and the commit id after.
type ColumnUpdateNode struct {
	chain  *ColumnChain
	dlnode *common.GenericDLNode[*ColumnUpdateNode]

	ts       uint64
	mask     *roaring.Bitmap
	vals     map[uint32]any
	preimage map[uint32]any
}

func newColumnUpdateNode(chain *ColumnChain, txnID uint64) *ColumnUpdateNode {
	return &ColumnUpdateNode{
		chain:    chain,
		ts:       txnID,
		mask:     roaring.New(),
		vals:     make(map[uint32]any),
		preimage: make(map[uint32]any),
	}
}

// UpdateLocked records a new value for one offset. The pre-image is
// captured only on the first touch so later updates by the same txn
// keep the original committed value for the log.
func (node *ColumnUpdateNode) UpdateLocked(offset uint32, v, pre any) {
	if !node.mask.Contains(offset) {
		node.mask.Add(offset)
		node.preimage[offset] = pre
	}
	node.vals[offset] = v
}

func (node *ColumnUpdateNode) Update(offset uint32, v, pre any) {
	node.chain.mu.Lock()
	defer node.chain.mu.Unlock()
	node.UpdateLocked(offset, v, pre)
}

func (node *ColumnUpdateNode) GetChain() *ColumnChain   { return node.chain }
func (node *ColumnUpdateNode) GetMask() *roaring.Bitmap { return node.mask }

func (node *ColumnUpdateNode) GetValueLocked(offset uint32) (any, bool) {
	v, ok := node.vals[offset]
	return v, ok
}

func (node *ColumnUpdateNode) Timestamp() uint64 {
	node.chain.mu.RLock()
	defer node.chain.mu.RUnlock()
	return node.ts
}

// txnif.UpdateNode

func (node *ColumnUpdateNode) ColumnIndex() uint16 { return node.chain.colIdx }
func (node *ColumnUpdateNode) BatchIndex() uint32  { return node.chain.batchIdx }
func (node *ColumnUpdateNode) BaseRow() uint64     { return node.chain.baseRow }

func (node *ColumnUpdateNode) RowOffsets() []uint32 {
	node.chain.mu.RLock()
	defer node.chain.mu.RUnlock()
	return node.mask.ToArray()
}

func (node *ColumnUpdateNode) PreImage() containers.Vector {
	node.chain.mu.RLock()
	defer node.chain.mu.RUnlock()
	vec := containers.MakeVector(node.chain.typ)
	for _, offset := range node.mask.ToArray() {
		vec.Append(node.preimage[offset])
	}
	return vec
}

func (node *ColumnUpdateNode) StampCommit(commitID uint64) {
	node.chain.mu.Lock()
	defer node.chain.mu.Unlock()
	node.ts = commitID
}

// Unlink drops the aborted node out of its chain; the batch reads as
// if the transaction never touched it.
func (node *ColumnUpdateNode) Unlink() {
	node.chain.DeleteNode(node)
}

var _ txnif.UpdateNode = (*ColumnUpdateNode)(nil)

func (node *ColumnUpdateNode) String() string {
	return fmt.Sprintf("UpdateNode[col=%d;batch=%d;ts=%d;rows=%d]",
		node.chain.colIdx, node.chain.batchIdx, node.ts, node.mask.GetCardinality())
}
