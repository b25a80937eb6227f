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

package txnif

import (
	"errors"

	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/wal"
)

// TxnIDStart is the high-water mark of the shared counter space.
// Timestamps at or above it are transient transaction ids; committed
// timestamps are always below it.
const TxnIDStart uint64 = 1 << 62

// IsTransient reports whether ts is an uncommitted transaction id.
func IsTransient(ts uint64) bool { return ts >= TxnIDStart }

var (
	ErrTxnWWConflict          = errors.New("txn: write-write conflict")
	ErrConcurrentModification = errors.New("txn: concurrent modification")
	ErrTxnNotActive           = errors.New("txn: not active")
	ErrTxnCommitFailed        = errors.New("txn: commit failed")
)

type TxnState uint8

const (
	TxnStateActive TxnState = iota
	TxnStateCommitted
	TxnStateRollbacked
)

// TxnReader is the read-side view of a transaction: identity plus the
// snapshot visibility rule.
type TxnReader interface {
	GetID() uint64
	GetSnapshotTS() uint64
	GetCommitTS() uint64
	GetState() TxnState
	// IsVisible applies the snapshot rule: a version is visible iff its
	// timestamp is this txn's id or a commit id at or below the snapshot.
	IsVisible(ts uint64) bool
}

// AsyncTxn is the write-side view: mutating operations record undo
// entries through it in temporal order.
type AsyncTxn interface {
	TxnReader
	LogEntry(e UndoEntry)
}

// UndoEntry is the closed sum of pending-mutation records. The concrete
// variants live in txnbase; the commit engine dispatches over them with
// an exhaustive type switch.
type UndoEntry interface {
	IsUndoEntry()
}

// Table is the table-layer collaborator the commit engine drives.
type Table interface {
	ID() uint64
	SchemaName() string
	Name() string
	IsTemporary() bool
	WriteToLog(log wal.Driver, startRow uint64, count uint32) error
	CommitAppend(commitID uint64, startRow uint64, count uint32)
	RevertAppend(startRow uint64, count uint32)
	// RestoreRows re-increments the live row count when a committed
	// deletion is reverted.
	RestoreRows(count uint32)
}

// UpdateNode is one update-chain entry as seen by the commit engine.
type UpdateNode interface {
	ColumnIndex() uint16
	BatchIndex() uint32
	BaseRow() uint64
	RowOffsets() []uint32
	// PreImage returns the committed values the update replaced, aligned
	// with RowOffsets.
	PreImage() containers.Vector
	StampCommit(commitID uint64)
	// Unlink removes the aborted node from its chain, restoring the
	// batch to its pre-transaction state.
	Unlink()
}

// DeleteNode is one version-info block holding pending row deletions.
type DeleteNode interface {
	CommitDelete(ts uint64, rows []uint32)
	// Unlink removes the aborted node from its chain.
	Unlink()
}
