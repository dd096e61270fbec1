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

var fodZone string

var fodCmd = &cobra.Command{
	Use:   "fod",
	Short: "Reveal or clear the fog-of-discovery map in a decrypted save tree",
}

func init() {
	fodCmd.PersistentFlags().StringVar(&fodZone, "zone", "", "zone levelname to target (all zones if omitted)")
	fodCmd.AddCommand(fodRevealCmd, fodClearCmd)
}

var fodRevealCmd = &cobra.Command{
	Use:   "reveal <save-tree-file>",
	Short: "Reveal the fog-of-discovery grid for one or all zones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSaveDocument(args[0], func(doc *bl4codec.SaveDocument) error {
			count, err := doc.RevealMap(fodZone)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "revealed %d zone(s)\n", count)
			return nil
		})
	},
}

var fodClearCmd = &cobra.Command{
	Use:   "clear <save-tree-file>",
	Short: "Clear the fog-of-discovery grid for one or all zones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSaveDocument(args[0], func(doc *bl4codec.SaveDocument) error {
			count, err := doc.ClearMap(fodZone)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "cleared %d zone(s)\n", count)
			return nil
		})
	},
}

func withSaveDocument(path string, fn func(*bl4codec.SaveDocument) error) error {
	data, err := mapFile(path)
	if err != nil {
		return err
	}
	doc, err := bl4codec.LoadSaveDocument(data)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	out, err := doc.Dump()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
