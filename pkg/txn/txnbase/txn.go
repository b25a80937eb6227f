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
	"fmt"
	"sync"

	"github.com/emberdb/ember/pkg/iface/txnif"
)

// Txn is one transaction: identity in the shared counter space, a
// snapshot, and the undo log of its pending mutations.
type Txn struct {
	mu sync.Mutex

	mgr      *TxnManager
	id       uint64
	snapshot uint64
	commitTS uint64
	state    txnif.TxnState
	undo     []txnif.UndoEntry
	err      error
}

func newTxn(mgr *TxnManager, id, snapshot uint64) *Txn {
	return &Txn{
		mgr:      mgr,
		id:       id,
		snapshot: snapshot,
		state:    txnif.TxnStateActive,
	}
}

func (txn *Txn) GetID() uint64         { return txn.id }
func (txn *Txn) GetSnapshotTS() uint64 { return txn.snapshot }

func (txn *Txn) GetCommitTS() uint64 {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	return txn.commitTS
}

func (txn *Txn) GetState() txnif.TxnState {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	return txn.state
}

// IsVisible applies the snapshot rule: own writes are always visible;
// committed versions are visible up to the snapshot; other txns'
// transient versions never are.
func (txn *Txn) IsVisible(ts uint64) bool {
	if ts == txn.id {
		return true
	}
	if txnif.IsTransient(ts) {
		return false
	}
	return ts <= txn.snapshot
}

// LogEntry appends an undo entry in temporal order.
func (txn *Txn) LogEntry(e txnif.UndoEntry) {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	txn.undo = append(txn.undo, e)
}

func (txn *Txn) UndoEntries() []txnif.UndoEntry {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	return txn.undo
}

func (txn *Txn) SetError(err error) {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	if txn.err == nil {
		txn.err = err
	}
}

func (txn *Txn) GetError() error {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	return txn.err
}

func (txn *Txn) String() string {
	return fmt.Sprintf("Txn[%d;snapshot=%d;state=%d]", txn.id, txn.snapshot, txn.state)
}

var _ txnif.AsyncTxn = (*Txn)(nil)
