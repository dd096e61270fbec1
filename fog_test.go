// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFogOfDiscoveryRoundtrip(t *testing.T) {
	fod := NewFogOfDiscovery()
	grid := make([]byte, FogOfDiscoveryGridSize)
	for i := range grid {
		grid[i] = byte(i % 256)
	}

	encoded, err := fod.Encode(grid)
	require.NoError(t, err)

	decoded, err := fod.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, grid, decoded)
}

func TestFogOfDiscoveryRejectsWrongSize(t *testing.T) {
	fod := NewFogOfDiscovery()
	_, err := fod.Encode(make([]byte, 10))
	require.ErrorIs(t, err, ErrInvalidGrid)
}

func TestFogOfDiscoveryDecodeRejectsWrongInflatedSize(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(make([]byte, 10))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	wrongSized := base64.StdEncoding.EncodeToString(buf.Bytes())
	_, err = NewFogOfDiscovery().Decode(wrongSized)
	require.ErrorIs(t, err, ErrInvalidGrid)
}

func TestFogOfDiscoveryRevealAllIsFF(t *testing.T) {
	fod := NewFogOfDiscovery()
	grid := fod.RevealAll()
	require.Len(t, grid, FogOfDiscoveryGridSize)
	for _, b := range grid {
		require.Equal(t, FogRevealed, b)
	}
}

func TestFogOfDiscoveryClearAllIsZero(t *testing.T) {
	fod := NewFogOfDiscovery()
	grid := fod.ClearAll()
	for _, b := range grid {
		require.Equal(t, FogFogged, b)
	}
}
