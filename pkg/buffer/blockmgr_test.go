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

package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/types"
)

func newTestManager(t *testing.T) BlockManager {
	mgr, err := NewNodeManager(1<<20, 1<<10)
	require.NoError(t, err)
	t.Cleanup(mgr.Close)
	return mgr
}

func TestBlockRegisterAndPin(t *testing.T) {
	mgr := newTestManager(t)
	vec := containers.MockVector(types.T_int64_type, 512, 0)
	id, err := mgr.Register(vec)
	require.NoError(t, err)

	h, err := mgr.Pin(id)
	require.NoError(t, err)
	defer h.Close()
	assert.True(t, vec.Equals(h.Data()))
}

func TestBlockPinUnknown(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Pin(42)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

// An unregistered block stays readable through outstanding handles and
// disappears once the last one closes.
func TestBlockUnregisterWithOutstandingHandle(t *testing.T) {
	mgr := newTestManager(t)
	vec := containers.MockVector(types.T_varchar_type, 64, 0)
	id, err := mgr.Register(vec)
	require.NoError(t, err)

	h, err := mgr.Pin(id)
	require.NoError(t, err)
	mgr.Unregister(id)

	assert.True(t, vec.Equals(h.Data()))
	_, err = mgr.Pin(id)
	assert.ErrorIs(t, err, ErrBlockNotFound)

	h.Close()
	// Double close is safe.
	h.Close()
	_, err = mgr.Pin(id)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestBlockUnregisterIdle(t *testing.T) {
	mgr := newTestManager(t)
	id, err := mgr.Register(containers.MockVector(types.T_int32_type, 8, 0))
	require.NoError(t, err)
	mgr.Unregister(id)
	_, err = mgr.Pin(id)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}
