// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saltfen/bl4codec"
)

var serialCmd = &cobra.Command{
	Use:   "serial",
	Short: "Decode or encode an item serial",
}

func init() {
	serialCmd.AddCommand(serialDecodeCmd, serialEncodeCmd)
}

var serialDecodeCmd = &cobra.Command{
	Use:   "decode <serial>",
	Short: "Decode a printable item serial into its token stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifest, err := bl4codec.LoadStaticManifest()
		if err != nil {
			return err
		}
		codec := bl4codec.NewSerialCodec(manifest)
		item, err := codec.Decode(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("category=%d discriminant=%d parts=%d string=%q\n",
			item.Category, item.Discriminant, len(item.Parts), item.String)
		for _, p := range item.Parts {
			fmt.Printf("  part index=%d values=%v\n", p.Index, p.Values)
		}
		return nil
	},
}

var serialEncodeCmd = &cobra.Command{
	Use:   "encode <serial>",
	Short: "Round-trip a serial through decode then encode (for verification)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifest, err := bl4codec.LoadStaticManifest()
		if err != nil {
			return err
		}
		codec := bl4codec.NewSerialCodec(manifest)
		item, err := codec.Decode(args[0])
		if err != nil {
			return err
		}
		out, err := codec.Encode(item)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}
