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

// Package buffer models the block manager collaborator: fixed blocks of
// encoded column data addressed by block id, with a decoded-block cache
// in front of the block images.
package buffer

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/emberdb/ember/pkg/common"
	"github.com/emberdb/ember/pkg/containers"
)

var (
	ErrBlockNotFound = errors.New("buffer: block not found")
)

// BlockManager owns persistent block images. Register freezes a vector
// into a new block; Pin hands out a reference-counted handle; Unregister
// drops the block once the last handle is closed.
type BlockManager interface {
	Register(data containers.Vector) (uint64, error)
	Pin(id uint64) (*BlockHandle, error)
	Unregister(id uint64)
	Close()
}

type block struct {
	id      uint64
	image   []byte
	refs    atomic.Int32
	dropped atomic.Bool
}

type BlockHandle struct {
	mgr  *nodeManager
	blk  *block
	data containers.Vector
	once sync.Once
}

func (h *BlockHandle) Data() containers.Vector { return h.data }

func (h *BlockHandle) Close() {
	h.once.Do(func() {
		h.mgr.unpin(h.blk)
	})
}

type nodeManager struct {
	mu      sync.RWMutex
	blocks  map[uint64]*block
	idAlloc *common.IdAllocator
	cache   *ristretto.Cache[uint64, containers.Vector]
}

func NewNodeManager(cacheSize, cacheCounters int64) (BlockManager, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, containers.Vector]{
		NumCounters: cacheCounters,
		MaxCost:     cacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &nodeManager{
		blocks:  make(map[uint64]*block),
		idAlloc: common.NewIdAllocator(1),
		cache:   cache,
	}, nil
}

func (mgr *nodeManager) Register(data containers.Vector) (uint64, error) {
	image, err := containers.EncodeVector(data)
	if err != nil {
		return 0, err
	}
	blk := &block{
		id:    mgr.idAlloc.Alloc(),
		image: image,
	}
	mgr.mu.Lock()
	mgr.blocks[blk.id] = blk
	mgr.mu.Unlock()
	return blk.id, nil
}

func (mgr *nodeManager) Pin(id uint64) (*BlockHandle, error) {
	mgr.mu.RLock()
	blk, ok := mgr.blocks[id]
	mgr.mu.RUnlock()
	if !ok || blk.dropped.Load() {
		return nil, ErrBlockNotFound
	}
	blk.refs.Add(1)
	data, ok := mgr.cache.Get(id)
	if !ok {
		var err error
		if data, err = containers.DecodeVector(blk.image); err != nil {
			blk.refs.Add(-1)
			return nil, err
		}
		mgr.cache.Set(id, data, int64(len(blk.image)))
	}
	return &BlockHandle{mgr: mgr, blk: blk, data: data}, nil
}

func (mgr *nodeManager) unpin(blk *block) {
	if blk.refs.Add(-1) == 0 && blk.dropped.Load() {
		mgr.drop(blk.id)
	}
}

// Unregister marks the block as dropped. The image is freed immediately
// when no handle is outstanding, otherwise when the last handle closes.
func (mgr *nodeManager) Unregister(id uint64) {
	mgr.mu.RLock()
	blk, ok := mgr.blocks[id]
	mgr.mu.RUnlock()
	if !ok {
		return
	}
	blk.dropped.Store(true)
	if blk.refs.Load() == 0 {
		mgr.drop(id)
	}
}

func (mgr *nodeManager) drop(id uint64) {
	mgr.mu.Lock()
	delete(mgr.blocks, id)
	mgr.mu.Unlock()
	mgr.cache.Del(id)
}

func (mgr *nodeManager) Close() {
	mgr.cache.Close()
}
