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

package wal

import (
	"errors"
	"sync"

	"github.com/emberdb/ember/pkg/containers"
)

var ErrDriverClosed = errors.New("wal: driver closed")

// MemoryDriver keeps records in memory. It backs tests and ephemeral
// databases; FailAfter injects a sink failure for commit-error paths.
type MemoryDriver struct {
	mu      sync.Mutex
	records []Record
	closed  bool

	failAfter int
	failErr   error
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{failAfter: -1}
}

// FailAfter makes the n+1'th write (and every write after it) fail.
func (d *MemoryDriver) FailAfter(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAfter = n
	d.failErr = err
}

func (d *MemoryDriver) append(r Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDriverClosed
	}
	if d.failAfter >= 0 && len(d.records) >= d.failAfter {
		return d.failErr
	}
	d.records = append(d.records, r)
	return nil
}

// Reset drops every record written so far.
func (d *MemoryDriver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = d.records[:0]
}

// Records returns a snapshot of everything written so far.
func (d *MemoryDriver) Records() []Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

func (d *MemoryDriver) RecordsOfKind(kind RecordKind) []Record {
	var out []Record
	for _, r := range d.Records() {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func (d *MemoryDriver) WriteSetTable(schema, name string) error {
	return d.append(Record{Kind: RecordSetTable, Schema: schema, Name: name})
}

func (d *MemoryDriver) WriteCreateSchema(name string) error {
	return d.append(Record{Kind: RecordCreateSchema, Name: name})
}

func (d *MemoryDriver) WriteCreateTable(schema, name string) error {
	return d.append(Record{Kind: RecordCreateTable, Schema: schema, Name: name})
}

func (d *MemoryDriver) WriteCreateView(schema, name string) error {
	return d.append(Record{Kind: RecordCreateView, Schema: schema, Name: name})
}

func (d *MemoryDriver) WriteCreateSequence(schema, name string) error {
	return d.append(Record{Kind: RecordCreateSequence, Schema: schema, Name: name})
}

func (d *MemoryDriver) WriteCreateMacro(schema, name string) error {
	return d.append(Record{Kind: RecordCreateMacro, Schema: schema, Name: name})
}

func (d *MemoryDriver) WriteAlter(info string) error {
	return d.append(Record{Kind: RecordAlter, Info: info})
}

func (d *MemoryDriver) WriteDropSchema(name string) error {
	return d.append(Record{Kind: RecordDropSchema, Name: name})
}

func (d *MemoryDriver) WriteDropTable(schema, name string) error {
	return d.append(Record{Kind: RecordDropTable, Schema: schema, Name: name})
}

func (d *MemoryDriver) WriteDropView(schema, name string) error {
	return d.append(Record{Kind: RecordDropView, Schema: schema, Name: name})
}

func (d *MemoryDriver) WriteDropSequence(schema, name string) error {
	return d.append(Record{Kind: RecordDropSequence, Schema: schema, Name: name})
}

func (d *MemoryDriver) WriteDropMacro(schema, name string) error {
	return d.append(Record{Kind: RecordDropMacro, Schema: schema, Name: name})
}

func (d *MemoryDriver) WriteInsert(startRow uint64, batch *containers.Batch) error {
	return d.append(Record{Kind: RecordInsert, StartRow: startRow, Batch: batch})
}

func (d *MemoryDriver) WriteDelete(rowIDs []uint64) error {
	return d.append(Record{Kind: RecordDelete, RowIDs: rowIDs})
}

func (d *MemoryDriver) WriteUpdate(colIdx uint16, rowIDs []uint64, values containers.Vector) error {
	return d.append(Record{Kind: RecordUpdate, ColIdx: colIdx, RowIDs: rowIDs, Values: values})
}

func (d *MemoryDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
