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
	"errors"
	"fmt"
	"sync"

	"github.com/emberdb/ember/pkg/iface/txnif"
)

var (
	ErrEntryExists   = errors.New("catalog: entry already exists")
	ErrEntryNotFound = errors.New("catalog: entry not found")
)

type EntryType uint8

const (
	ET_Invalid EntryType = iota
	ET_Schema
	ET_Table
	ET_View
	ET_Sequence
	ET_Macro
	ET_Index
	ET_PreparedStatement
	ET_ScalarFunction
	ET_AggregateFunction
	ET_Collation
	// ET_Deleted marks a tombstone version in a chain
	ET_Deleted
)

func (t EntryType) String() string {
	switch t {
	case ET_Schema:
		return "SCHEMA"
	case ET_Table:
		return "TABLE"
	case ET_View:
		return "VIEW"
	case ET_Sequence:
		return "SEQUENCE"
	case ET_Macro:
		return "MACRO"
	case ET_Index:
		return "INDEX"
	case ET_PreparedStatement:
		return "PREPARED_STATEMENT"
	case ET_ScalarFunction:
		return "SCALAR_FUNCTION"
	case ET_AggregateFunction:
		return "AGGREGATE_FUNCTION"
	case ET_Collation:
		return "COLLATION"
	case ET_Deleted:
		return "DELETED"
	}
	return "INVALID"
}

// Entry is one version in a catalog chain. Parent points at the next
// newer version; the set's map always addresses the newest version.
// The version timestamp is a txn id until commit and a commit id after.
type Entry struct {
	Typ        EntryType
	Name       string
	SchemaName string
	Temporary  bool

	// Parent is the next newer version; child the next older one
	Parent *Entry
	child  *Entry
	Set    *EntrySet

	timestamp uint64

	// AlterInfo carries the serialized alter description when this
	// version superseded an older one via ALTER
	AlterInfo string

	committedAlter string
	dropped        bool
}

func (e *Entry) Timestamp() uint64 {
	e.Set.mu.RLock()
	defer e.Set.mu.RUnlock()
	return e.timestamp
}

// CommitAlter is invoked by the commit engine before the alter record
// reaches the log.
func (e *Entry) CommitAlter(info string) {
	e.committedAlter = info
}

// CommitDrop releases storage owned by the dropped entry.
func (e *Entry) CommitDrop() {
	e.dropped = true
}

func (e *Entry) IsDroppedCommitted() bool { return e.dropped }
func (e *Entry) CommittedAlter() string   { return e.committedAlter }

func (e *Entry) String() string {
	return fmt.Sprintf("%s<%s.%s@%d>", e.Typ, e.SchemaName, e.Name, e.timestamp)
}

// EntrySet owns the version chains of one namespace (the schemas of a
// catalog, or the objects of one schema).
type EntrySet struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewEntrySet() *EntrySet {
	return &EntrySet{entries: make(map[string]*Entry)}
}

// UpdateTimestamp re-stamps one version. Used by the commit engine in
// both directions: commit id going forward, txn id when reverting.
func (set *EntrySet) UpdateTimestamp(e *Entry, ts uint64) {
	set.mu.Lock()
	defer set.mu.Unlock()
	e.timestamp = ts
}

// GetEntry resolves the newest version visible to txn, or ErrEntryNotFound
// when the visible version is a tombstone or no version is visible.
func (set *EntrySet) GetEntry(txn txnif.TxnReader, name string) (*Entry, error) {
	set.mu.RLock()
	defer set.mu.RUnlock()
	for e := set.entries[name]; e != nil; e = e.child {
		if !txn.IsVisible(e.timestamp) {
			continue
		}
		if e.Typ == ET_Deleted {
			return nil, ErrEntryNotFound
		}
		return e, nil
	}
	return nil, ErrEntryNotFound
}
