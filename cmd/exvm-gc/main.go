// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command exvm-gc exercises the copying collector outside the VM: it
// runs synthetic allocation workloads, prints live-heap statistics and
// inspects heap snapshot files.
package main

import (
	"fmt"
	"os"

	"github.com/cznic/exvm/gc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	heapSize int64
	poison   bool
	dumpDir  string
	verbose  bool
)

func main() {
	root := &cobra.Command{
		Use:           "exvm-gc",
		Short:         "exercise the exvm copying garbage collector",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if !verbose {
				logrus.SetLevel(logrus.WarnLevel)
			}
		},
	}
	root.PersistentFlags().Int64Var(&heapSize, "heap-size", 16<<20, "total managed heap bytes (both semispaces)")
	root.PersistentFlags().BoolVar(&poison, "poison", false, "revoke access to the evacuated semispace after each collection")
	root.PersistentFlags().StringVar(&dumpDir, "dump-dir", "", "write a heap snapshot into this directory after every collection")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every collection cycle")

	root.AddCommand(churnCmd(), infoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCollector(roots gc.RootSet) (*gc.Collector, error) {
	return gc.New(gc.Config{
		HeapSize:        heapSize,
		Roots:           roots,
		PoisonFromSpace: poison,
		DumpDir:         dumpDir,
	})
}

// churnCmd allocates a stream of short-lived objects while keeping a
// bounded working set rooted, forcing the collector through many cycles.
func churnCmd() *cobra.Command {
	var (
		objects int64
		keep    int
	)
	cmd := &cobra.Command{
		Use:   "churn",
		Short: "allocate a stream of objects, keeping a bounded working set live",
		RunE: func(*cobra.Command, []string) error {
			roots := make(gc.AddressRoots, keep)
			for i := range roots {
				roots[i] = gc.NilAddr
			}

			c, err := newCollector(roots)
			if err != nil {
				return err
			}
			defer c.Close()

			for i := int64(0); i < objects; i++ {
				v := c.AllocTagged(gc.TagNumber, 8)
				if v.IsNull() {
					return fmt.Errorf("out of heap after %d objects", i)
				}
				gc.SetNumberValue(v, i)
				roots[i%int64(keep)] = v
			}

			c.Collect()
			var stats gc.HeapStats
			if err := c.Verify(nil, &stats); err != nil {
				return err
			}
			fmt.Printf("%d objects allocated, %d cycles, %d live objects / %s after final collection\n",
				objects, c.Cycles(), stats.Objects, gc.FormatBytes(stats.Bytes))
			return nil
		},
	}
	cmd.Flags().Int64Var(&objects, "objects", 1_000_000, "objects to allocate")
	cmd.Flags().IntVar(&keep, "keep", 1024, "size of the rooted working set")
	return cmd
}

// infoCmd prints the header of a snapshot file written by --dump-dir or
// Collector.DumpToFile.
func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <snapshot>",
		Short: "print the header of a heap snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, heap, err := gc.ReadSnapshot(f)
			if err != nil {
				return err
			}
			fmt.Printf("heap size  %s\n", gc.FormatBytes(info.HeapSize))
			fmt.Printf("live bytes %s (%d decompressed)\n", gc.FormatBytes(info.LiveBytes), len(heap))
			fmt.Printf("objects    %d\n", info.Objects)
			fmt.Printf("cycles     %d\n", info.Cycles)
			return nil
		},
	}
}
