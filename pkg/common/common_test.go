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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdAllocator(t *testing.T) {
	alloc := NewIdAllocator(100)
	assert.Equal(t, uint64(100), alloc.Alloc())
	assert.Equal(t, uint64(101), alloc.Alloc())
	assert.Equal(t, uint64(101), alloc.Get())

	alloc.SetStart(200)
	assert.Equal(t, uint64(201), alloc.Alloc())

	assert.Panics(t, func() { NewIdAllocator(0) })
}

func TestIdAllocatorConcurrent(t *testing.T) {
	alloc := NewIdAllocator(1)
	const n = 1000
	ids := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- alloc.Alloc()
		}()
	}
	wg.Wait()
	close(ids)
	seen := make(map[uint64]bool, n)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestDListInsertOrder(t *testing.T) {
	link := NewGenericDList[int]()
	link.Insert(1)
	link.Insert(2)
	link.Insert(3)

	// Newest first.
	require.Equal(t, 3, link.Depth())
	assert.Equal(t, 3, link.GetHead().GetPayload())
	assert.Equal(t, 1, link.GetTail().GetPayload())

	var fwd []int
	link.Loop(func(n *GenericDLNode[int]) bool {
		fwd = append(fwd, n.GetPayload())
		return true
	}, false)
	assert.Equal(t, []int{3, 2, 1}, fwd)

	var rev []int
	link.Loop(func(n *GenericDLNode[int]) bool {
		rev = append(rev, n.GetPayload())
		return true
	}, true)
	assert.Equal(t, []int{1, 2, 3}, rev)
}

func TestDListDelete(t *testing.T) {
	link := NewGenericDList[string]()
	a := link.Insert("a")
	b := link.Insert("b")
	c := link.Insert("c")

	link.Delete(b)
	require.Equal(t, 2, link.Depth())
	assert.Equal(t, "c", link.GetHead().GetPayload())
	assert.Equal(t, "a", link.GetTail().GetPayload())

	link.Delete(c)
	link.Delete(a)
	assert.Equal(t, 0, link.Depth())
	assert.Nil(t, link.GetHead())
}

func TestDListEarlyStop(t *testing.T) {
	link := NewGenericDList[int]()
	for i := 0; i < 5; i++ {
		link.Insert(i)
	}
	var visited int
	link.Loop(func(n *GenericDLNode[int]) bool {
		visited++
		return visited < 2
	}, false)
	assert.Equal(t, 2, visited)
}
