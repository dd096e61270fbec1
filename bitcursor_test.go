// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitCursorReadBitsCrossByte(t *testing.T) {
	data := []byte{0xFF, 0xFF}
	c := NewBitCursor(data)
	v, err := c.ReadBits(12)
	require.NoError(t, err)
	require.Equal(t, uint64(0xFFF), v)
}

func TestBitCursorReadBitsMSBFirst(t *testing.T) {
	// 0b10110101
	data := []byte{0b10110101}
	c := NewBitCursor(data)

	tests := []struct {
		n    int
		want uint64
	}{
		{1, 1},
		{1, 0},
		{1, 1},
		{1, 1},
		{4, 0b0101},
	}
	for _, tt := range tests {
		got, err := c.ReadBits(tt.n)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}

func TestBitCursorUnderflow(t *testing.T) {
	c := NewBitCursor([]byte{0xFF})
	_, err := c.ReadBits(9)
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestBitCursorVarintRoundtrip(t *testing.T) {
	for _, value := range []uint64{0, 1, 15, 16, 255, 1000, 65535} {
		w := NewBitCursor(nil)
		w.WriteVarint(value)
		r := NewBitCursor(w.Bytes())
		got, err := r.ReadVarint()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestBitCursorVarbitRoundtrip(t *testing.T) {
	for _, value := range []uint64{0, 1, 7, 8, 31, 32, 127, 1000} {
		w := NewBitCursor(nil)
		w.WriteVarbit(value)
		r := NewBitCursor(w.Bytes())
		got, err := r.ReadVarbit()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestBitCursorVarintOverflow(t *testing.T) {
	w := NewBitCursor(nil)
	// Five nibbles, all with continuation bit set.
	for i := 0; i < 5; i++ {
		w.WriteBits(0xF, 4)
		w.WriteBits(1, 1)
	}
	r := NewBitCursor(w.Bytes())
	_, err := r.ReadVarint()
	require.ErrorIs(t, err, ErrOverflow)
}

func TestBitCursorVarbitOverflow(t *testing.T) {
	w := NewBitCursor(nil)
	w.WriteBits(33, 5) // length > 32
	r := NewBitCursor(w.Bytes())
	_, err := r.ReadVarbit()
	require.ErrorIs(t, err, ErrOverflow)
}

func TestBitCursorAlignToByte(t *testing.T) {
	c := NewBitCursor([]byte{0xFF, 0xFF})
	_, _ = c.ReadBits(3)
	c.AlignToByte()
	require.Equal(t, 8, c.Position())
}

func TestBitWidth(t *testing.T) {
	tests := []struct {
		count uint32
		want  uint8
	}{
		{0, 1}, {1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {256, 8},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, BitWidth(tt.count))
	}
}

func TestEliasGammaRoundtrip(t *testing.T) {
	for _, value := range []uint64{1, 2, 3, 4, 7, 8, 100, 1000} {
		w := NewBitCursor(nil)
		w.WriteEliasGamma(value)
		r := NewBitCursor(w.Bytes())
		got, err := r.ReadEliasGamma()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestFixedWidthArrayHeader(t *testing.T) {
	// count=3 (24-bit LE-in-bitstream, but read as plain MSB-first bits),
	// width=8, values=[10,20,30]
	w := NewBitCursor(nil)
	w.WriteBits(3, 24)
	w.WriteBits(8, 8)
	w.WriteBits(10, 8)
	w.WriteBits(20, 8)
	w.WriteBits(30, 8)

	r := NewBitCursor(w.Bytes())
	count, err := r.ReadBits(24)
	require.NoError(t, err)
	width, err := r.ReadBits(8)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)
	require.Equal(t, uint64(8), width)
	for _, want := range []uint64{10, 20, 30} {
		got, err := r.ReadBits(int(width))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}
