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

package catalog

import (
	"sync"

	"github.com/emberdb/ember/pkg/iface/txnif"
)

// checkConflictLocked rejects a mutation when the newest version is
// owned by another live txn or committed after this txn's snapshot.
func checkConflictLocked(txn txnif.TxnReader, head *Entry) error {
	if head == nil {
		return nil
	}
	if txnif.IsTransient(head.timestamp) {
		if head.timestamp != txn.GetID() {
			return txnif.ErrTxnWWConflict
		}
		return nil
	}
	if head.timestamp > txn.GetSnapshotTS() {
		return txnif.ErrTxnWWConflict
	}
	return nil
}

func (set *EntrySet) visibleLocked(txn txnif.TxnReader, name string) *Entry {
	for e := set.entries[name]; e != nil; e = e.child {
		if !txn.IsVisible(e.timestamp) {
			continue
		}
		if e.Typ == ET_Deleted {
			return nil
		}
		return e
	}
	return nil
}

// CreateEntry installs newE as the newest version of its name. The
// returned entry is the undo reference: the superseded version (or a
// fresh tombstone when the name is new), whose Parent is newE.
func (set *EntrySet) CreateEntry(txn txnif.AsyncTxn, newE *Entry) (*Entry, error) {
	set.mu.Lock()
	defer set.mu.Unlock()
	head := set.entries[newE.Name]
	if err := checkConflictLocked(txn, head); err != nil {
		return nil, err
	}
	if set.visibleLocked(txn, newE.Name) != nil {
		return nil, ErrEntryExists
	}
	newE.Set = set
	newE.timestamp = txn.GetID()
	var undoRef *Entry
	if head == nil {
		undoRef = &Entry{
			Typ:        ET_Deleted,
			Name:       newE.Name,
			SchemaName: newE.SchemaName,
			Temporary:  newE.Temporary,
			Set:        set,
		}
	} else {
		undoRef = head
	}
	undoRef.Parent = newE
	newE.child = undoRef
	set.entries[newE.Name] = newE
	return undoRef, nil
}

// DropEntry places a tombstone on top of the chain. The undo reference
// is the dropped version; its Parent is the tombstone.
func (set *EntrySet) DropEntry(txn txnif.AsyncTxn, name string) (*Entry, error) {
	set.mu.Lock()
	defer set.mu.Unlock()
	head := set.entries[name]
	if err := checkConflictLocked(txn, head); err != nil {
		return nil, err
	}
	dropped := set.visibleLocked(txn, name)
	if dropped == nil {
		return nil, ErrEntryNotFound
	}
	tomb := &Entry{
		Typ:        ET_Deleted,
		Name:       name,
		SchemaName: dropped.SchemaName,
		Temporary:  dropped.Temporary,
		Set:        set,
		timestamp:  txn.GetID(),
	}
	head.Parent = tomb
	tomb.child = head
	set.entries[name] = tomb
	return head, nil
}

// AlterEntry installs a new version of the same type carrying the alter
// description. The undo reference is the superseded version.
func (set *EntrySet) AlterEntry(txn txnif.AsyncTxn, name string, info string) (*Entry, error) {
	set.mu.Lock()
	defer set.mu.Unlock()
	head := set.entries[name]
	if err := checkConflictLocked(txn, head); err != nil {
		return nil, err
	}
	old := set.visibleLocked(txn, name)
	if old == nil {
		return nil, ErrEntryNotFound
	}
	newE := &Entry{
		Typ:        old.Typ,
		Name:       old.Name,
		SchemaName: old.SchemaName,
		Temporary:  old.Temporary,
		Set:        set,
		AlterInfo:  info,
		timestamp:  txn.GetID(),
	}
	head.Parent = newE
	newE.child = head
	set.entries[name] = newE
	return head, nil
}

// Catalog holds the schema namespace and one object namespace per
// schema. Tables, views, sequences and macros share the per-schema set,
// distinguished by entry type.
type Catalog struct {
	mu      sync.Mutex
	schemas *EntrySet
	objects map[string]*EntrySet
}

func NewCatalog() *Catalog {
	return &Catalog{
		schemas: NewEntrySet(),
		objects: make(map[string]*EntrySet),
	}
}

func (c *Catalog) SchemaSet() *EntrySet { return c.schemas }

func (c *Catalog) ObjectSet(schema string) *EntrySet {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.objects[schema]
	if !ok {
		set = NewEntrySet()
		c.objects[schema] = set
	}
	return set
}

func (c *Catalog) CreateSchema(txn txnif.AsyncTxn, name string) (*Entry, error) {
	return c.schemas.CreateEntry(txn, &Entry{Typ: ET_Schema, Name: name, SchemaName: name})
}

func (c *Catalog) CreateObject(txn txnif.AsyncTxn, typ EntryType, schema, name string, temporary bool) (*Entry, error) {
	return c.ObjectSet(schema).CreateEntry(txn, &Entry{
		Typ:        typ,
		Name:       name,
		SchemaName: schema,
		Temporary:  temporary,
	})
}

func (c *Catalog) DropObject(txn txnif.AsyncTxn, schema, name string) (*Entry, error) {
	return c.ObjectSet(schema).DropEntry(txn, name)
}

func (c *Catalog) AlterObject(txn txnif.AsyncTxn, schema, name, info string) (*Entry, error) {
	return c.ObjectSet(schema).AlterEntry(txn, name, info)
}

func (c *Catalog) GetObject(txn txnif.TxnReader, schema, name string) (*Entry, error) {
	return c.ObjectSet(schema).GetEntry(txn, name)
}
