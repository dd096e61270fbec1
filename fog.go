// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"io"
)

// FogOfDiscoveryGridSize is the fixed byte length of a per-zone
// exploration grid (128x128).
const FogOfDiscoveryGridSize = 128 * 128

// FogRevealed marks a fully explored zone byte.
const FogRevealed byte = 0xFF

// FogFogged marks a wholly unexplored zone byte.
const FogFogged byte = 0x00

// FogOfDiscovery encodes and decodes the per-zone exploration grid stored
// in a save as base64(zlib(grid)).
type FogOfDiscovery struct{}

// NewFogOfDiscovery returns a ready-to-use FogOfDiscovery codec.
func NewFogOfDiscovery() *FogOfDiscovery { return &FogOfDiscovery{} }

// Encode deflates grid at max compression and base64-encodes the result.
// grid must be exactly FogOfDiscoveryGridSize bytes.
func (FogOfDiscovery) Encode(grid []byte) (string, error) {
	if len(grid) != FogOfDiscoveryGridSize {
		return "", ErrInvalidGrid
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write(grid); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode base64-decodes and inflates s, rejecting any result whose length
// is not exactly FogOfDiscoveryGridSize.
func (FogOfDiscovery) Decode(s string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	grid, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	if len(grid) != FogOfDiscoveryGridSize {
		return nil, ErrInvalidGrid
	}
	return grid, nil
}

// Fill returns a new grid of FogOfDiscoveryGridSize bytes, every byte set
// to value.
func (FogOfDiscovery) Fill(value byte) []byte {
	grid := make([]byte, FogOfDiscoveryGridSize)
	for i := range grid {
		grid[i] = value
	}
	return grid
}

// RevealAll returns a grid with every zone fully explored.
func (f FogOfDiscovery) RevealAll() []byte { return f.Fill(FogRevealed) }

// ClearAll returns a grid with every zone fogged.
func (f FogOfDiscovery) ClearAll() []byte { return f.Fill(FogFogged) }
