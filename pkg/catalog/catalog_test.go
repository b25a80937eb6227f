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

package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/pkg/catalog"
	"github.com/emberdb/ember/pkg/iface/txnif"
	"github.com/emberdb/ember/pkg/txn/txnbase"
	"github.com/emberdb/ember/pkg/txn/txnimpl"
)

func newTestMgr() *txnbase.TxnManager {
	return txnbase.NewTxnManager(nil, txnimpl.NewCommitter)
}

func TestCatalogCreateVisibility(t *testing.T) {
	mgr := newTestMgr()
	c := catalog.NewCatalog()

	writer := mgr.StartTxn()
	undoRef, err := c.CreateObject(writer, catalog.ET_Table, "main", "t1", false)
	require.NoError(t, err)
	writer.LogEntry(&txnbase.CatalogChangeEntry{Entry: undoRef})

	// Own pending entry is visible to the writer only.
	_, err = c.GetObject(writer, "main", "t1")
	assert.NoError(t, err)
	reader := mgr.StartTxn()
	_, err = c.GetObject(reader, "main", "t1")
	assert.ErrorIs(t, err, catalog.ErrEntryNotFound)

	require.NoError(t, mgr.Commit(writer))

	// The old reader's snapshot predates the commit.
	_, err = c.GetObject(reader, "main", "t1")
	assert.ErrorIs(t, err, catalog.ErrEntryNotFound)
	later := mgr.StartTxn()
	e, err := c.GetObject(later, "main", "t1")
	require.NoError(t, err)
	assert.Equal(t, catalog.ET_Table, e.Typ)
	assert.Equal(t, writer.GetCommitTS(), e.Timestamp())
}

func TestCatalogDuplicateCreate(t *testing.T) {
	mgr := newTestMgr()
	c := catalog.NewCatalog()

	txn := mgr.StartTxn()
	undoRef, err := c.CreateObject(txn, catalog.ET_Table, "main", "t1", false)
	require.NoError(t, err)
	txn.LogEntry(&txnbase.CatalogChangeEntry{Entry: undoRef})
	require.NoError(t, mgr.Commit(txn))

	txn2 := mgr.StartTxn()
	_, err = c.CreateObject(txn2, catalog.ET_Table, "main", "t1", false)
	assert.ErrorIs(t, err, catalog.ErrEntryExists)
}

func TestCatalogWriteWriteConflict(t *testing.T) {
	mgr := newTestMgr()
	c := catalog.NewCatalog()

	txn1 := mgr.StartTxn()
	_, err := c.CreateObject(txn1, catalog.ET_View, "main", "v1", false)
	require.NoError(t, err)

	// txn2 collides with txn1's still-pending head version.
	txn2 := mgr.StartTxn()
	_, err = c.CreateObject(txn2, catalog.ET_View, "main", "v1", false)
	assert.ErrorIs(t, err, txnif.ErrTxnWWConflict)
}

func TestCatalogDropAndAlter(t *testing.T) {
	mgr := newTestMgr()
	c := catalog.NewCatalog()

	setup := mgr.StartTxn()
	undoRef, err := c.CreateObject(setup, catalog.ET_Table, "main", "t1", false)
	require.NoError(t, err)
	setup.LogEntry(&txnbase.CatalogChangeEntry{Entry: undoRef})
	require.NoError(t, mgr.Commit(setup))

	alter := mgr.StartTxn()
	old, err := c.AlterObject(alter, "main", "t1", "RENAME COLUMN a TO b")
	require.NoError(t, err)
	alter.LogEntry(&txnbase.CatalogChangeEntry{Entry: old, AlterInfo: "RENAME COLUMN a TO b"})
	assert.Equal(t, "RENAME COLUMN a TO b", old.Parent.AlterInfo)
	require.NoError(t, mgr.Commit(alter))

	drop := mgr.StartTxn()
	dropped, err := c.DropObject(drop, "main", "t1")
	require.NoError(t, err)
	drop.LogEntry(&txnbase.CatalogChangeEntry{Entry: dropped})

	// Other snapshots still see the table until the drop commits.
	other := mgr.StartTxn()
	_, err = c.GetObject(other, "main", "t1")
	assert.NoError(t, err)

	require.NoError(t, mgr.Commit(drop))
	after := mgr.StartTxn()
	_, err = c.GetObject(after, "main", "t1")
	assert.ErrorIs(t, err, catalog.ErrEntryNotFound)
}

func TestCatalogDropMissing(t *testing.T) {
	mgr := newTestMgr()
	c := catalog.NewCatalog()
	txn := mgr.StartTxn()
	_, err := c.DropObject(txn, "main", "nope")
	assert.ErrorIs(t, err, catalog.ErrEntryNotFound)
}

func TestCatalogSchemas(t *testing.T) {
	mgr := newTestMgr()
	c := catalog.NewCatalog()

	txn := mgr.StartTxn()
	undoRef, err := c.CreateSchema(txn, "analytics")
	require.NoError(t, err)
	txn.LogEntry(&txnbase.CatalogChangeEntry{Entry: undoRef})
	require.NoError(t, mgr.Commit(txn))

	later := mgr.StartTxn()
	e, err := c.SchemaSet().GetEntry(later, "analytics")
	require.NoError(t, err)
	assert.Equal(t, catalog.ET_Schema, e.Typ)
}
