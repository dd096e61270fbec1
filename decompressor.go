// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// Decompressor is the pluggable decompression back-end port: given the
// compressed payload and the declared uncompressed size from the outer
// NCS framing, it returns the inflated bytes. The real title-specific
// Oodle/NCS block codec is external to this package; only zlib and lz4
// are registered as built-in backends (neither is the production codec,
// but both demonstrate the port is not hard-wired to one compressor).
type Decompressor func(compressed []byte, declaredUncompressedSize uint32) ([]byte, error)

// DecompressorRegistry maps a backend name to its Decompressor.
type DecompressorRegistry struct {
	backends map[string]Decompressor
}

// NewDecompressorRegistry returns a registry pre-populated with the zlib
// and lz4 built-in backends.
func NewDecompressorRegistry() *DecompressorRegistry {
	r := &DecompressorRegistry{backends: make(map[string]Decompressor)}
	r.Register("zlib", ZlibDecompressor)
	r.Register("lz4", LZ4Decompressor)
	return r
}

// Register adds or replaces the backend named name.
func (r *DecompressorRegistry) Register(name string, d Decompressor) {
	r.backends[name] = d
}

// Get returns the backend named name, or ErrUnknownDecompressor.
func (r *DecompressorRegistry) Get(name string) (Decompressor, error) {
	d, ok := r.backends[name]
	if !ok {
		return nil, ErrUnknownDecompressor
	}
	return d, nil
}

// ZlibDecompressor wraps github.com/klauspost/compress/zlib as a
// Decompressor backend.
func ZlibDecompressor(compressed []byte, declaredUncompressedSize uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, int64(declaredUncompressedSize)+1))
}

// LZ4Decompressor wraps github.com/pierrec/lz4/v4 as a Decompressor
// backend.
func LZ4Decompressor(compressed []byte, declaredUncompressedSize uint32) ([]byte, error) {
	out := make([]byte, declaredUncompressedSize)
	n, err := lz4.UncompressBlock(compressed, out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
