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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/iface/txnif"
	"github.com/emberdb/ember/pkg/types"
)

// testTxn is a minimal TxnReader: a fixed id and snapshot.
type testTxn struct {
	id       uint64
	snapshot uint64
}

func (t *testTxn) GetID() uint64            { return t.id }
func (t *testTxn) GetSnapshotTS() uint64    { return t.snapshot }
func (t *testTxn) GetCommitTS() uint64      { return 0 }
func (t *testTxn) GetState() txnif.TxnState { return txnif.TxnStateActive }

func (t *testTxn) IsVisible(ts uint64) bool {
	if ts == t.id {
		return true
	}
	if txnif.IsTransient(ts) {
		return false
	}
	return ts <= t.snapshot
}

func newTestTxn(seq, snapshot uint64) *testTxn {
	return &testTxn{id: txnif.TxnIDStart + seq, snapshot: snapshot}
}

func TestChainReusesOwnNode(t *testing.T) {
	chain := NewColumnChain(0, 0, 0, types.T_int64_type)
	txn := newTestTxn(1, 0)

	n1, created, err := chain.GetOrCreateNode(txn)
	require.NoError(t, err)
	assert.True(t, created)
	n1.Update(5, int64(50), int64(5))

	n2, created, err := chain.GetOrCreateNode(txn)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, n1, n2)
	n2.Update(5, int64(500), int64(999))

	// The pre-image keeps the first-touch value; the new value is the
	// latest one.
	pre := n1.PreImage()
	require.Equal(t, 1, pre.Length())
	assert.Equal(t, int64(5), pre.Get(0))
	v, ok := n1.GetValueLocked(5)
	require.True(t, ok)
	assert.Equal(t, int64(500), v)
}

func TestChainConflictOnPendingHead(t *testing.T) {
	chain := NewColumnChain(0, 0, 0, types.T_int64_type)
	txn1 := newTestTxn(1, 0)
	txn2 := newTestTxn(2, 0)

	_, _, err := chain.GetOrCreateNode(txn1)
	require.NoError(t, err)
	_, _, err = chain.GetOrCreateNode(txn2)
	assert.ErrorIs(t, err, txnif.ErrTxnWWConflict)
}

func TestChainSnapshotVisibility(t *testing.T) {
	chain := NewColumnChain(0, 0, 0, types.T_int64_type)

	writer := newTestTxn(1, 0)
	node, _, err := chain.GetOrCreateNode(writer)
	require.NoError(t, err)
	node.Update(3, int64(33), int64(3))
	node.StampCommit(5)

	base := containers.MockVector(types.T_int64_type, 8, 0)
	early := &testTxn{id: txnif.TxnIDStart + 9, snapshot: 4}
	out := base.CloneWindow(0, 8)
	chain.ApplyVisible(early, out)
	assert.Equal(t, int64(3), out.Get(3))

	late := &testTxn{id: txnif.TxnIDStart + 10, snapshot: 5}
	out = base.CloneWindow(0, 8)
	chain.ApplyVisible(late, out)
	assert.Equal(t, int64(33), out.Get(3))

	v, found := chain.GetVisibleValue(late, 3)
	require.True(t, found)
	assert.Equal(t, int64(33), v)
	_, found = chain.GetVisibleValue(early, 3)
	assert.False(t, found)
}

// Newer committed nodes shadow older ones row by row.
func TestChainNewestWins(t *testing.T) {
	chain := NewColumnChain(0, 0, 0, types.T_int64_type)

	w1 := newTestTxn(1, 0)
	n1, _, err := chain.GetOrCreateNode(w1)
	require.NoError(t, err)
	n1.Update(0, int64(100), int64(0))
	n1.Update(1, int64(101), int64(1))
	n1.StampCommit(5)

	w2 := newTestTxn(2, 5)
	n2, _, err := chain.GetOrCreateNode(w2)
	require.NoError(t, err)
	n2.Update(1, int64(201), int64(101))
	n2.StampCommit(6)

	reader := &testTxn{id: txnif.TxnIDStart + 9, snapshot: 6}
	out := containers.MockVector(types.T_int64_type, 4, 0)
	chain.ApplyVisible(reader, out)
	assert.Equal(t, int64(100), out.Get(0))
	assert.Equal(t, int64(201), out.Get(1))
	assert.Equal(t, int64(2), out.Get(2))
}

func TestChainGetVisibleCommittedSkipsOwnNode(t *testing.T) {
	chain := NewColumnChain(0, 0, 0, types.T_int64_type)

	w1 := newTestTxn(1, 0)
	n1, _, err := chain.GetOrCreateNode(w1)
	require.NoError(t, err)
	n1.Update(2, int64(22), int64(2))
	n1.StampCommit(5)

	w2 := newTestTxn(2, 5)
	n2, _, err := chain.GetOrCreateNode(w2)
	require.NoError(t, err)
	n2.Update(2, int64(222), int64(22))

	// w2's own pending value resolves through GetVisibleValue but the
	// committed view still sees the prior commit.
	v, found := chain.GetVisibleValue(w2, 2)
	require.True(t, found)
	assert.Equal(t, int64(222), v)
	v, found = chain.GetVisibleCommitted(w2, 2)
	require.True(t, found)
	assert.Equal(t, int64(22), v)
}

func TestChainDeleteNode(t *testing.T) {
	chain := NewColumnChain(0, 0, 0, types.T_int64_type)
	txn := newTestTxn(1, 0)
	node, _, err := chain.GetOrCreateNode(txn)
	require.NoError(t, err)
	assert.True(t, chain.HasUncommitted())

	chain.DeleteNode(node)
	assert.False(t, chain.HasUncommitted())
	_, found := chain.GetVisibleValue(txn, 0)
	assert.False(t, found)
}

func TestUpdateTreeAddressing(t *testing.T) {
	tree := NewUpdateTree(0, types.T_int64_type)
	chain := tree.GetOrCreateChain(3)
	assert.Equal(t, uint32(3), chain.BatchIndex())
	assert.Equal(t, uint64(3*containers.DefaultVectorSize), chain.BaseRow())
	assert.Same(t, chain, tree.GetOrCreateChain(3))

	_, ok := tree.GetChain(4)
	assert.False(t, ok)
	require.Equal(t, 1, tree.Depth())
}

func TestUpdateTreeTruncateAfter(t *testing.T) {
	tree := NewUpdateTree(0, types.T_int64_type)
	tree.GetOrCreateChain(0)
	tree.GetOrCreateChain(2)
	tree.GetOrCreateChain(5)

	// Truncating at a mid-batch row kills the straddling batch too.
	tree.TruncateAfter(2*containers.DefaultVectorSize + 10)
	_, ok := tree.GetChain(0)
	assert.True(t, ok)
	_, ok = tree.GetChain(2)
	assert.True(t, ok)
	_, ok = tree.GetChain(5)
	assert.False(t, ok)

	tree.TruncateAfter(2 * containers.DefaultVectorSize)
	_, ok = tree.GetChain(2)
	assert.False(t, ok)
	require.Equal(t, 1, tree.Depth())
}

func TestDeleteChainConflicts(t *testing.T) {
	dc := NewDeleteChain()
	txn1 := newTestTxn(1, 0)
	txn2 := newTestTxn(2, 0)

	node, err := dc.DeleteRows(txn1, 0, []uint32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), node.BaseRow())

	// Same txn extends its own node.
	node2, err := dc.DeleteRows(txn1, 0, []uint32{7})
	require.NoError(t, err)
	assert.Same(t, node, node2)

	// Any overlap with an existing deletion conflicts.
	_, err = dc.DeleteRows(txn2, 0, []uint32{3, 9})
	assert.ErrorIs(t, err, txnif.ErrTxnWWConflict)

	// Disjoint rows in another batch are fine.
	_, err = dc.DeleteRows(txn2, 1, []uint32{3})
	assert.NoError(t, err)
}

func TestDeleteChainVisibility(t *testing.T) {
	dc := NewDeleteChain()
	writer := newTestTxn(1, 0)
	node, err := dc.DeleteRows(writer, 0, []uint32{4, 5})
	require.NoError(t, err)

	reader := &testTxn{id: txnif.TxnIDStart + 9, snapshot: 10}
	assert.False(t, dc.IsDeleted(reader, 0, 4))
	assert.True(t, dc.IsDeleted(writer, 0, 4))

	node.CommitDelete(7, node.RowOffsets())
	assert.True(t, dc.IsDeleted(reader, 0, 4))
	early := &testTxn{id: txnif.TxnIDStart + 10, snapshot: 6}
	assert.False(t, dc.IsDeleted(early, 0, 4))

	mask := dc.CollectDeleted(reader, 0)
	require.NotNil(t, mask)
	assert.Equal(t, uint64(2), mask.GetCardinality())
	assert.Nil(t, dc.CollectDeleted(reader, 3))
}

func TestDeleteChainRemoveNode(t *testing.T) {
	dc := NewDeleteChain()
	txn := newTestTxn(1, 0)
	node, err := dc.DeleteRows(txn, 0, []uint32{0})
	require.NoError(t, err)
	dc.RemoveNode(node)
	assert.False(t, dc.IsDeleted(txn, 0, 0))

	// A reused node owes one unlink per undo entry; extra unlinks are
	// no-ops.
	dc.RemoveNode(node)

	// The row is free again.
	other := newTestTxn(2, 0)
	_, err = dc.DeleteRows(other, 0, []uint32{0})
	assert.NoError(t, err)
}
