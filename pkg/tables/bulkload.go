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

package tables

import (
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/iface/txnif"
	"github.com/emberdb/ember/pkg/txn/txnbase"
)

// BulkLoad appends a run of batches across all columns in parallel,
// one worker per column. Columns own disjoint segment trees, so the
// only shared state is each column's statistics, which Append merges
// under its own lock. The whole load lands as one insertion undo
// entry; any failure reverts every column to the pre-load row count.
func BulkLoad(txn txnif.AsyncTxn, pool *ants.Pool, tbl *DataTable, bats []*containers.Batch) error {
	if len(bats) == 0 {
		return nil
	}
	var total int
	for _, bat := range bats {
		if len(bat.Vecs) != len(tbl.cols) {
			return ErrSchemaShape
		}
		total += bat.Length()
	}
	if total == 0 {
		return nil
	}
	start := tbl.cols[0].InitializeAppend()

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error
	for i := range tbl.cols {
		colIdx := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			for _, bat := range bats {
				if err := tbl.cols[colIdx].Append(bat.Vecs[colIdx]); err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					return
				}
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			errMu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			errMu.Unlock()
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		for _, col := range tbl.cols {
			_ = col.RevertAppend(start)
		}
		return firstErr
	}

	tbl.mu.Lock()
	tbl.appends = append(tbl.appends, &appendNode{
		start: start,
		count: uint32(total),
		ts:    txn.GetID(),
	})
	tbl.mu.Unlock()
	txn.LogEntry(&txnbase.InsertEntry{Table: tbl, StartRow: start, Count: uint32(total)})
	return nil
}
