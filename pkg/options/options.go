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
	"github.com/BurntSushi/toml"

	"github.com/emberdb/ember/pkg/logutil"
)

const (
	DefaultSegmentMaxRows    = uint32(8 * 1024)
	DefaultBlockCacheSize    = int64(64 * 1024 * 1024)
	DefaultBlockCacheCounter = int64(1 << 16)
	DefaultLoadWorkers       = 4
)

type StorageCfg struct {
	// SegmentMaxRows is the capacity of a transient segment. Must be a
	// multiple of the vector size so row batches never straddle segments.
	SegmentMaxRows uint32 `toml:"segment-max-rows"`
}

type CacheCfg struct {
	// BlockCacheSize is the ristretto cost budget for pinned block data
	BlockCacheSize    int64 `toml:"block-cache-size"`
	BlockCacheCounter int64 `toml:"block-cache-counter"`
}

type SchedulerCfg struct {
	// LoadWorkers sizes the bulk-load worker pool
	LoadWorkers int `toml:"load-workers"`
}

type Options struct {
	StorageCfg   *StorageCfg        `toml:"storage"`
	CacheCfg     *CacheCfg          `toml:"cache"`
	SchedulerCfg *SchedulerCfg      `toml:"scheduler"`
	LogCfg       *logutil.LogConfig `toml:"log"`
	// WalDisabled turns off commit-time logging entirely
	WalDisabled bool `toml:"wal-disabled"`
}

func (o *Options) FillDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.StorageCfg == nil {
		o.StorageCfg = &StorageCfg{
			SegmentMaxRows: DefaultSegmentMaxRows,
		}
	}
	if o.CacheCfg == nil {
		o.CacheCfg = &CacheCfg{
			BlockCacheSize:    DefaultBlockCacheSize,
			BlockCacheCounter: DefaultBlockCacheCounter,
		}
	}
	if o.SchedulerCfg == nil {
		o.SchedulerCfg = &SchedulerCfg{
			LoadWorkers: DefaultLoadWorkers,
		}
	}
	if o.LogCfg == nil {
		o.LogCfg = &logutil.LogConfig{Level: "info"}
	}
	return o
}

func LoadFromFile(path string) (*Options, error) {
	o := &Options{}
	if _, err := toml.DecodeFile(path, o); err != nil {
		return nil, err
	}
	return o.FillDefaults(), nil
}
