// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bl4codec",
	Short: "Decode and encode Borderlands-style save cryptograms, item serials, and CS game-data blobs",
}

func main() {
	rootCmd.AddCommand(saveCmd, serialCmd, csCmd, fodCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
