// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

func TestZlibDecompressorRoundtrip(t *testing.T) {
	plain := []byte("the lazy dog jumps over the quick brown fox, repeatedly")
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	out, err := ZlibDecompressor(buf.Bytes(), uint32(len(plain)))
	require.NoError(t, err)
	require.Equal(t, plain, out)
}

func TestLZ4DecompressorRoundtrip(t *testing.T) {
	plain := []byte("the lazy dog jumps over the quick brown fox, repeatedly, repeatedly")
	compressed := make([]byte, len(plain)*2+64)
	n, err := lz4.CompressBlock(plain, compressed, nil)
	require.NoError(t, err)
	require.NotZero(t, n)

	out, err := LZ4Decompressor(compressed[:n], uint32(len(plain)))
	require.NoError(t, err)
	require.Equal(t, plain, out)
}

func TestDecompressorRegistryUnknownBackend(t *testing.T) {
	r := NewDecompressorRegistry()
	_, err := r.Get("oodle")
	require.ErrorIs(t, err, ErrUnknownDecompressor)
}

func TestDecompressorRegistryRegisterOverride(t *testing.T) {
	r := NewDecompressorRegistry()
	called := false
	r.Register("noop", func(compressed []byte, declared uint32) ([]byte, error) {
		called = true
		return compressed, nil
	})
	d, err := r.Get("noop")
	require.NoError(t, err)
	_, err = d([]byte("x"), 1)
	require.NoError(t, err)
	require.True(t, called)
}
