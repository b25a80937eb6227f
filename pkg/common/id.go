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

package common

import (
	"fmt"
	"sync/atomic"
)

// ID is the general identifier shared by tables, columns and blocks.
type ID struct {
	TableID uint64
	// Column index within the owning table
	Idx uint16
	// Block id within the buffer layer
	BlockID uint64
}

func (id *ID) String() string {
	return fmt.Sprintf("<%d-%d-%d>", id.TableID, id.Idx, id.BlockID)
}

func (id *ID) TableString() string {
	return fmt.Sprintf("TBL<%d>", id.TableID)
}

type IdAllocator struct {
	id uint64
}

func NewIdAllocator(from uint64) *IdAllocator {
	if from == 0 {
		panic("should not be 0")
	}
	return &IdAllocator{id: from - 1}
}

func (alloc *IdAllocator) Alloc() uint64 {
	return atomic.AddUint64(&alloc.id, uint64(1))
}

func (alloc *IdAllocator) Get() uint64 {
	return atomic.LoadUint64(&alloc.id)
}

func (alloc *IdAllocator) SetStart(start uint64) {
	atomic.StoreUint64(&alloc.id, start)
}
