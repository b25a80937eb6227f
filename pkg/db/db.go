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

// Package db assembles the storage engine: catalog, table storage,
// block manager, log sink and transaction manager behind one handle.
package db

import (
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/emberdb/ember/pkg/buffer"
	"github.com/emberdb/ember/pkg/catalog"
	"github.com/emberdb/ember/pkg/common"
	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/iface/txnif"
	"github.com/emberdb/ember/pkg/logutil"
	"github.com/emberdb/ember/pkg/options"
	"github.com/emberdb/ember/pkg/tables"
	"github.com/emberdb/ember/pkg/txn/txnbase"
	"github.com/emberdb/ember/pkg/txn/txnimpl"
	"github.com/emberdb/ember/pkg/types"
	"github.com/emberdb/ember/pkg/wal"
)

var (
	ErrTableNotFound = errors.New("db: table not found")
	ErrClosed        = errors.New("db: closed")
)

// DB is the embedded engine handle.
type DB struct {
	opts    *options.Options
	catalog *catalog.Catalog
	mgr     *txnbase.TxnManager
	blocks  buffer.BlockManager
	log     wal.Driver
	pool    *ants.Pool

	mu       sync.RWMutex
	tables   map[string]*tables.DataTable
	tblAlloc *common.IdAllocator
	closed   bool
}

func tableKey(schema, name string) string { return schema + "." + name }

// Open builds an engine from options. A nil opts gets defaults and an
// in-memory log sink.
func Open(opts *options.Options) (*DB, error) {
	opts = opts.FillDefaults()
	if opts.LogCfg != nil {
		logutil.SetupLogger(opts.LogCfg)
	}
	blocks, err := buffer.NewNodeManager(opts.CacheCfg.BlockCacheSize, opts.CacheCfg.BlockCacheCounter)
	if err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(opts.SchedulerCfg.LoadWorkers)
	if err != nil {
		blocks.Close()
		return nil, err
	}
	var log wal.Driver
	if !opts.WalDisabled {
		log = wal.NewMemoryDriver()
	}
	db := &DB{
		opts:     opts,
		catalog:  catalog.NewCatalog(),
		blocks:   blocks,
		log:      log,
		pool:     pool,
		tables:   make(map[string]*tables.DataTable),
		tblAlloc: common.NewIdAllocator(1),
	}
	db.mgr = txnbase.NewTxnManager(log, txnimpl.NewCommitter)
	logutil.Infof("engine opened, segment rows %d, wal disabled %v",
		opts.StorageCfg.SegmentMaxRows, opts.WalDisabled)
	return db, nil
}

func (db *DB) Catalog() *catalog.Catalog         { return db.catalog }
func (db *DB) TxnManager() *txnbase.TxnManager   { return db.mgr }
func (db *DB) BlockManager() buffer.BlockManager { return db.blocks }
func (db *DB) LogDriver() wal.Driver             { return db.log }

func (db *DB) StartTxn() *txnbase.Txn { return db.mgr.StartTxn() }

func (db *DB) Commit(txn *txnbase.Txn) error   { return db.mgr.Commit(txn) }
func (db *DB) Rollback(txn *txnbase.Txn) error { return db.mgr.Rollback(txn) }

// CreateSchema installs a schema entry under txn.
func (db *DB) CreateSchema(txn txnif.AsyncTxn, name string) error {
	undoRef, err := db.catalog.CreateSchema(txn, name)
	if err != nil {
		return err
	}
	txn.LogEntry(&txnbase.CatalogChangeEntry{Entry: undoRef})
	return nil
}

// CreateTable installs the catalog entry and the backing column
// storage in one step.
func (db *DB) CreateTable(
	txn txnif.AsyncTxn,
	schema, name string,
	temporary bool,
	attrs []string,
	colTypes []types.Type,
) (*tables.DataTable, error) {
	undoRef, err := db.catalog.CreateObject(txn, catalog.ET_Table, schema, name, temporary)
	if err != nil {
		return nil, err
	}
	tbl, err := tables.NewDataTable(
		db.tblAlloc.Alloc(), schema, name, temporary,
		attrs, colTypes, db.blocks, db.opts.StorageCfg.SegmentMaxRows,
	)
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	db.tables[tableKey(schema, name)] = tbl
	db.mu.Unlock()
	txn.LogEntry(&txnbase.CatalogChangeEntry{Entry: undoRef})
	logutil.Debugf("created table %s.%s id %d", schema, name, tbl.ID())
	return tbl, nil
}

func (db *DB) createObject(txn txnif.AsyncTxn, typ catalog.EntryType, schema, name string) error {
	undoRef, err := db.catalog.CreateObject(txn, typ, schema, name, false)
	if err != nil {
		return err
	}
	txn.LogEntry(&txnbase.CatalogChangeEntry{Entry: undoRef})
	return nil
}

func (db *DB) CreateView(txn txnif.AsyncTxn, schema, name string) error {
	return db.createObject(txn, catalog.ET_View, schema, name)
}

func (db *DB) CreateSequence(txn txnif.AsyncTxn, schema, name string) error {
	return db.createObject(txn, catalog.ET_Sequence, schema, name)
}

func (db *DB) CreateMacro(txn txnif.AsyncTxn, schema, name string) error {
	return db.createObject(txn, catalog.ET_Macro, schema, name)
}

// DropObject places a tombstone over the named object.
func (db *DB) DropObject(txn txnif.AsyncTxn, schema, name string) error {
	undoRef, err := db.catalog.DropObject(txn, schema, name)
	if err != nil {
		return err
	}
	txn.LogEntry(&txnbase.CatalogChangeEntry{Entry: undoRef})
	return nil
}

// AlterObject installs a new version carrying the alter description.
func (db *DB) AlterObject(txn txnif.AsyncTxn, schema, name, info string) error {
	undoRef, err := db.catalog.AlterObject(txn, schema, name, info)
	if err != nil {
		return err
	}
	txn.LogEntry(&txnbase.CatalogChangeEntry{Entry: undoRef, AlterInfo: info})
	return nil
}

// GetTable resolves a table's storage iff its catalog entry is visible
// to txn.
func (db *DB) GetTable(txn txnif.TxnReader, schema, name string) (*tables.DataTable, error) {
	entry, err := db.catalog.GetObject(txn, schema, name)
	if err != nil {
		return nil, err
	}
	if entry.Typ != catalog.ET_Table {
		return nil, fmt.Errorf("db: %s.%s is a %s, not a table", schema, name, entry.Typ)
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	tbl, ok := db.tables[tableKey(schema, name)]
	if !ok {
		return nil, ErrTableNotFound
	}
	return tbl, nil
}

// BulkLoad appends batches through the shared worker pool.
func (db *DB) BulkLoad(txn txnif.AsyncTxn, tbl *tables.DataTable, bats []*containers.Batch) error {
	return tables.BulkLoad(txn, db.pool, tbl, bats)
}

func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return ErrClosed
	}
	db.closed = true
	db.mu.Unlock()
	db.pool.Release()
	db.blocks.Close()
	if db.log != nil {
		return db.log.Close()
	}
	return nil
}
