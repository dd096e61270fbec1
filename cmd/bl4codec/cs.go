// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saltfen/bl4codec"
)

var (
	csBackend string
	csVerbose bool
)

var csCmd = &cobra.Command{
	Use:   "cs",
	Short: "Decode a configuration-store (CS) blob",
}

func init() {
	csCmd.PersistentFlags().StringVar(&csBackend, "backend", "zlib", "decompressor backend (zlib|lz4)")
	csCmd.PersistentFlags().BoolVar(&csVerbose, "verbose", false, "log non-fatal diagnostics to stderr as they are recorded")
	csCmd.AddCommand(csDecodeCmd)
}

var csDecodeCmd = &cobra.Command{
	Use:   "decode <ncs-file>",
	Short: "Decode an NCS-framed CS payload and print its table summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mapFile(args[0])
		if err != nil {
			return err
		}
		opts := &bl4codec.CSDecoderOptions{}
		if csVerbose {
			zl := bl4codec.NewStdLogger(os.Stderr)
			opts.Logger = bl4codec.NewHelper(&zl)
		}
		decoder := bl4codec.NewCSDecoder(opts)
		registry := bl4codec.NewDecompressorRegistry()
		doc, err := decoder.Decode(data, registry, csBackend)
		if err != nil {
			return err
		}
		for _, name := range doc.TableNames() {
			table := doc.Table(name)
			fmt.Printf("table %q: %d deps, %d records\n", name, len(table.Deps), len(table.Records))
		}
		if !csVerbose {
			for _, d := range decoder.Diagnostics() {
				fmt.Println(d)
			}
		}
		return nil
	},
}
