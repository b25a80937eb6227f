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

package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillDefaults(t *testing.T) {
	var o *Options
	o = o.FillDefaults()
	require.NotNil(t, o)
	assert.Equal(t, DefaultSegmentMaxRows, o.StorageCfg.SegmentMaxRows)
	assert.Equal(t, DefaultBlockCacheSize, o.CacheCfg.BlockCacheSize)
	assert.Equal(t, DefaultLoadWorkers, o.SchedulerCfg.LoadWorkers)
	assert.Equal(t, "info", o.LogCfg.Level)
	assert.False(t, o.WalDisabled)
}

func TestFillDefaultsKeepsExplicit(t *testing.T) {
	o := &Options{
		StorageCfg:  &StorageCfg{SegmentMaxRows: 4096},
		WalDisabled: true,
	}
	o = o.FillDefaults()
	assert.Equal(t, uint32(4096), o.StorageCfg.SegmentMaxRows)
	assert.True(t, o.WalDisabled)
	assert.NotNil(t, o.CacheCfg)
}

func TestLoadFromFile(t *testing.T) {
	content := `
wal-disabled = true

[storage]
segment-max-rows = 2048

[scheduler]
load-workers = 8

[log]
level = "debug"
`
	path := filepath.Join(t.TempDir(), "ember.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	o, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, o.WalDisabled)
	assert.Equal(t, uint32(2048), o.StorageCfg.SegmentMaxRows)
	assert.Equal(t, 8, o.SchedulerCfg.LoadWorkers)
	assert.Equal(t, "debug", o.LogCfg.Level)
	// Untouched sections still get defaults.
	assert.Equal(t, DefaultBlockCacheSize, o.CacheCfg.BlockCacheSize)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
