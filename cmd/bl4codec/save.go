// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/spf13/cobra"

	"github.com/saltfen/bl4codec"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Decrypt or re-encrypt a save cryptogram",
}

var saveIdentifier string

func init() {
	saveCmd.PersistentFlags().StringVar(&saveIdentifier, "identifier", "", "player identifier used for key derivation")
	saveCmd.AddCommand(saveDecryptCmd, saveEncryptCmd)
}

var saveDecryptCmd = &cobra.Command{
	Use:   "decrypt <cryptogram-file>",
	Short: "Decrypt a save cryptogram to its textual configuration tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mapFile(args[0])
		if err != nil {
			return err
		}
		plain, err := bl4codec.NewSaveCryptogram().Decrypt(data, saveIdentifier)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(plain)
		return err
	},
}

var saveEncryptCmd = &cobra.Command{
	Use:   "encrypt <tree-file>",
	Short: "Re-encrypt a textual configuration tree into a save cryptogram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mapFile(args[0])
		if err != nil {
			return err
		}
		cipher, err := bl4codec.NewSaveCryptogram().Encrypt(data, saveIdentifier)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(cipher)
		return err
	},
}

// mapFile memory-maps name for read-only access rather than reading it
// fully into memory.
func mapFile(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", name, err)
	}
	return data, nil
}
