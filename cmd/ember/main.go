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

// ember is the developer tool around the storage engine: generate a
// config skeleton or run a quick load/scan benchmark against an
// in-memory instance.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/emberdb/ember/pkg/containers"
	"github.com/emberdb/ember/pkg/db"
	"github.com/emberdb/ember/pkg/logutil"
	"github.com/emberdb/ember/pkg/options"
	"github.com/emberdb/ember/pkg/types"
)

var (
	configFile string
	benchRows  int
)

func main() {
	root := &cobra.Command{
		Use:   "ember",
		Short: "ember storage engine tool",
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a toml config file")
	root.AddCommand(newConfigCmd(), newBenchCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadOptions() (*options.Options, error) {
	if configFile == "" {
		return (&options.Options{}).FillDefaults(), nil
	}
	return options.LoadFromFile(configFile)
}

func newConfigCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			return toml.NewEncoder(f).Encode((&options.Options{}).FillDefaults())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "ember.toml", "output path")
	return cmd
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "load and scan rows against a fresh engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions()
			if err != nil {
				return err
			}
			return runBench(opts)
		},
	}
	cmd.Flags().IntVarP(&benchRows, "rows", "r", 1<<20, "rows to load")
	return cmd
}

func runBench(opts *options.Options) error {
	engine, err := db.Open(opts)
	if err != nil {
		return err
	}
	defer engine.Close()

	attrs := []string{"id", "payload"}
	typs := []types.Type{types.T_int64_type, types.T_varchar_type}

	txn := engine.StartTxn()
	tbl, err := engine.CreateTable(txn, "bench", "events", false, attrs, typs)
	if err != nil {
		return err
	}
	var bats []*containers.Batch
	for offset := 0; offset < benchRows; offset += containers.DefaultVectorSize {
		rows := containers.DefaultVectorSize
		if left := benchRows - offset; left < rows {
			rows = left
		}
		bats = append(bats, containers.MockBatch(attrs, typs, rows, offset))
	}

	start := time.Now()
	if err := engine.BulkLoad(txn, tbl, bats); err != nil {
		return err
	}
	if err := engine.Commit(txn); err != nil {
		return err
	}
	loadTook := time.Since(start)

	reader := engine.StartTxn()
	start = time.Now()
	bat, err := tbl.Scan(reader, []uint16{0, 1})
	if err != nil {
		return err
	}
	scanTook := time.Since(start)

	logutil.Infof("bench: loaded %d rows in %s, scanned %d rows in %s",
		benchRows, loadTook, bat.Length(), scanTook)
	fmt.Printf("load  %d rows: %s\nscan  %d rows: %s\n",
		benchRows, loadTook, bat.Length(), scanTook)
	return nil
}
