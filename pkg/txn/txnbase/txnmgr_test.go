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

package txnbase_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/pkg/iface/txnif"
	"github.com/emberdb/ember/pkg/txn/txnbase"
	"github.com/emberdb/ember/pkg/txn/txnimpl"
)

func newMgr() *txnbase.TxnManager {
	return txnbase.NewTxnManager(nil, txnimpl.NewCommitter)
}

func TestTxnIDsAreTransient(t *testing.T) {
	mgr := newMgr()
	txn := mgr.StartTxn()
	assert.True(t, txnif.IsTransient(txn.GetID()))
	assert.Equal(t, txnif.TxnStateActive, txn.GetState())
	assert.Equal(t, uint64(0), txn.GetSnapshotTS())
	assert.Equal(t, 1, mgr.ActiveCount())
	assert.Same(t, txn, mgr.GetTxn(txn.GetID()))
}

func TestCommitAssignsOrderedIDs(t *testing.T) {
	mgr := newMgr()
	txn1 := mgr.StartTxn()
	txn2 := mgr.StartTxn()
	require.NoError(t, mgr.Commit(txn1))
	require.NoError(t, mgr.Commit(txn2))

	assert.Equal(t, txnif.TxnStateCommitted, txn1.GetState())
	assert.Less(t, txn1.GetCommitTS(), txn2.GetCommitTS())
	assert.False(t, txnif.IsTransient(txn1.GetCommitTS()))
	assert.Equal(t, txn2.GetCommitTS(), mgr.LatestCommitTS())
	assert.Equal(t, 0, mgr.ActiveCount())
}

func TestSnapshotTracksLatestCommit(t *testing.T) {
	mgr := newMgr()
	txn1 := mgr.StartTxn()
	require.NoError(t, mgr.Commit(txn1))

	txn2 := mgr.StartTxn()
	assert.Equal(t, txn1.GetCommitTS(), txn2.GetSnapshotTS())
	assert.True(t, txn2.IsVisible(txn1.GetCommitTS()))
	assert.True(t, txn2.IsVisible(txn2.GetID()))
	assert.False(t, txn2.IsVisible(txn1.GetCommitTS()+1))
}

func TestCommitTwiceFails(t *testing.T) {
	mgr := newMgr()
	txn := mgr.StartTxn()
	require.NoError(t, mgr.Commit(txn))
	assert.ErrorIs(t, mgr.Commit(txn), txnif.ErrTxnNotActive)
	assert.ErrorIs(t, mgr.Rollback(txn), txnif.ErrTxnNotActive)
}

func TestRollbackState(t *testing.T) {
	mgr := newMgr()
	txn := mgr.StartTxn()
	require.NoError(t, mgr.Rollback(txn))
	assert.Equal(t, txnif.TxnStateRollbacked, txn.GetState())
	assert.Equal(t, 0, mgr.ActiveCount())
	assert.Equal(t, uint64(0), mgr.LatestCommitTS())
}

func TestConcurrentCommitsSerialize(t *testing.T) {
	mgr := newMgr()
	const n = 32
	txns := make([]*txnbase.Txn, n)
	for i := range txns {
		txns[i] = mgr.StartTxn()
	}
	var wg sync.WaitGroup
	for _, txn := range txns {
		wg.Add(1)
		go func(txn *txnbase.Txn) {
			defer wg.Done()
			require.NoError(t, mgr.Commit(txn))
		}(txn)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for _, txn := range txns {
		ts := txn.GetCommitTS()
		assert.False(t, seen[ts], "duplicate commit id %d", ts)
		seen[ts] = true
		assert.False(t, txnif.IsTransient(ts))
	}
	assert.Equal(t, 0, mgr.ActiveCount())
}
