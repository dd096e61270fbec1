// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMirrorByte(t *testing.T) {
	tests := []struct{ in, want byte }{
		{0b10000000, 0b00000001},
		{0b11000000, 0b00000011},
		{0b10101010, 0b01010101},
		{0b00000000, 0b00000000},
		{0b11111111, 0b11111111},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, mirrorByte(tt.in))
	}
}

func TestBase85RoundtripRandomish(t *testing.T) {
	samples := [][]byte{
		{},
		{0x00},
		{0x01, 0x02},
		{0x01, 0x02, 0x03},
		{0xFF, 0xFE, 0xFD, 0xFC},
		{0xFF, 0xFE, 0xFD, 0xFC, 0x01},
		[]byte("the quick brown fox jumps over the lazy dog"),
	}
	for _, s := range samples {
		encoded := base85Encode(s)
		decoded, err := base85Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, s, decoded)
	}
}

func TestBase85DecodeStripsBackslashes(t *testing.T) {
	encoded := base85Encode([]byte{0x01, 0x02, 0x03, 0x04})
	withEscapes := ""
	for _, r := range encoded {
		withEscapes += "\\" + string(r)
	}
	decoded, err := base85Decode(withEscapes)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, decoded)
}

func TestBase85DecodeInvalidChar(t *testing.T) {
	_, err := base85Decode("\x01\x02")
	require.ErrorIs(t, err, ErrBadBase85)
}

func TestBase85DecodeSingleCharPartial(t *testing.T) {
	result, err := base85Decode("g")
	require.NoError(t, err)
	require.Len(t, result, 0)
}
