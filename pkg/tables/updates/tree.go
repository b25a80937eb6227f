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

	"github.com/tidwall/btree"

	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/types"
)

// UpdateTree is the overlay parallel to a column's data segments: one
// ColumnChain per fixed-size row batch, addressed by batch index.
type UpdateTree struct {
	mu     sync.RWMutex
	colIdx uint16
	typ    types.Type
	chains *btree.BTreeG[*ColumnChain]
}

func chainLess(a, b *ColumnChain) bool { return a.batchIdx < b.batchIdx }

func NewUpdateTree(colIdx uint16, typ types.Type) *UpdateTree {
	return &UpdateTree{
		colIdx: colIdx,
		typ:    typ,
		chains: btree.NewBTreeGOptions(chainLess, btree.Options{NoLocks: true}),
	}
}

func (tree *UpdateTree) GetChain(batchIdx uint32) (*ColumnChain, bool) {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	return tree.chains.Get(&ColumnChain{batchIdx: batchIdx})
}

func (tree *UpdateTree) GetOrCreateChain(batchIdx uint32) *ColumnChain {
	tree.mu.Lock()
	defer tree.mu.Unlock()
	if chain, ok := tree.chains.Get(&ColumnChain{batchIdx: batchIdx}); ok {
		return chain
	}
	chain := NewColumnChain(tree.colIdx, batchIdx,
		uint64(batchIdx)*containers.DefaultVectorSize, tree.typ)
	tree.chains.Set(chain)
	return chain
}

// HasUncommitted reports whether any chain carries a pending node.
func (tree *UpdateTree) HasUncommitted() bool {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	found := false
	tree.chains.Scan(func(chain *ColumnChain) bool {
		if chain.HasUncommitted() {
			found = true
			return false
		}
		return true
	})
	return found
}

// TruncateAfter drops chains covering batches at or beyond the given
// row; used when an append is reverted past overlay territory.
func (tree *UpdateTree) TruncateAfter(row uint64) {
	tree.mu.Lock()
	defer tree.mu.Unlock()
	firstDead := uint32(row / containers.DefaultVectorSize)
	if row%containers.DefaultVectorSize != 0 {
		firstDead++
	}
	var dead []*ColumnChain
	tree.chains.Ascend(&ColumnChain{batchIdx: firstDead}, func(chain *ColumnChain) bool {
		dead = append(dead, chain)
		return true
	})
	for _, chain := range dead {
		tree.chains.Delete(chain)
	}
}

func (tree *UpdateTree) Depth() int {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	return tree.chains.Len()
}
