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

package txnbase

import (
	"sync"
	"time"

	"github.com/emberdb/ember/pkg/common"
	"github.com/emberdb/ember/pkg/iface/txnif"
	"github.com/emberdb/ember/pkg/logutil"
	"github.com/emberdb/ember/pkg/wal"
)

// Committer walks one transaction's undo log at transaction end.
type Committer interface {
	CommitEntry(e txnif.UndoEntry) error
	RevertEntry(e txnif.UndoEntry) error
}

// CommitterFactory builds the committer for one transaction end. For a
// commit, id is the freshly assigned commit id; for a rollback, it is
// the transaction's own id and log is nil.
type CommitterFactory func(id uint64, log wal.Driver) Committer

// TxnManager owns the shared counter space: transaction ids above the
// high-water mark, commit ids below it. Commits are applied one at a
// time under the manager's lock, which is what gives commit ids their
// strict global order.
type TxnManager struct {
	mu       sync.Mutex
	idAlloc  *common.IdAllocator
	tsAlloc  *common.IdAllocator
	active   map[uint64]*Txn
	log      wal.Driver
	factory  CommitterFactory
	lastMade uint64
}

func NewTxnManager(log wal.Driver, factory CommitterFactory) *TxnManager {
	return &TxnManager{
		idAlloc: common.NewIdAllocator(txnif.TxnIDStart + 1),
		tsAlloc: common.NewIdAllocator(1),
		active:  make(map[uint64]*Txn),
		log:     log,
		factory: factory,
	}
}

// StartTxn opens a transaction whose snapshot is the latest fully
// applied commit.
func (mgr *TxnManager) StartTxn() *Txn {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	txn := newTxn(mgr, mgr.idAlloc.Alloc(), mgr.lastMade)
	mgr.active[txn.id] = txn
	return txn
}

func (mgr *TxnManager) GetTxn(id uint64) *Txn {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.active[id]
}

func (mgr *TxnManager) ActiveCount() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return len(mgr.active)
}

// Commit assigns a commit id and walks the undo log forward. On a log
// sink failure the walk stops immediately; entries stamped before the
// failure stay stamped (reconciliation is the log's recovery concern)
// and the transaction is reported failed.
func (mgr *TxnManager) Commit(txn *Txn) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if txn.GetState() != txnif.TxnStateActive {
		return txnif.ErrTxnNotActive
	}
	now := time.Now()
	commitID := mgr.tsAlloc.Alloc()
	committer := mgr.factory(commitID, mgr.log)
	for _, e := range txn.UndoEntries() {
		if err := committer.CommitEntry(e); err != nil {
			txn.SetError(err)
			txn.mu.Lock()
			txn.state = txnif.TxnStateRollbacked
			txn.mu.Unlock()
			delete(mgr.active, txn.id)
			logutil.Errorf("%s commit failed: %v", txn.String(), err)
			return err
		}
	}
	txn.mu.Lock()
	txn.commitTS = commitID
	txn.state = txnif.TxnStateCommitted
	txn.mu.Unlock()
	mgr.lastMade = commitID
	delete(mgr.active, txn.id)
	logutil.Debugf("%s committed at %d takes %s", txn.String(), commitID, time.Since(now))
	return nil
}

// Rollback walks the undo log backward, restoring pre-transaction
// visibility with the transaction's own id.
func (mgr *TxnManager) Rollback(txn *Txn) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if txn.GetState() != txnif.TxnStateActive {
		return txnif.ErrTxnNotActive
	}
	committer := mgr.factory(txn.id, nil)
	entries := txn.UndoEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if err := committer.RevertEntry(entries[i]); err != nil {
			return err
		}
	}
	txn.mu.Lock()
	txn.state = txnif.TxnStateRollbacked
	txn.mu.Unlock()
	delete(mgr.active, txn.id)
	return nil
}

// LatestCommitTS is the newest commit visible to a fresh snapshot.
func (mgr *TxnManager) LatestCommitTS() uint64 {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.lastMade
}
