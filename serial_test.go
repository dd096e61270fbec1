// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testManifest(t *testing.T) *StaticManifest {
	t.Helper()
	m, err := LoadStaticManifest()
	require.NoError(t, err)
	return m
}

func buildItem() Item {
	return Item{
		Category:     13,
		Discriminant: 42,
		Parts: []Part{
			{Index: 0, Values: []uint64{5}},
			{Index: 2, Values: []uint64{1}},
			{Index: 999, Values: []uint64{3}},
		},
		HeaderHasSoftSeparator: true,
	}
}

func TestSerialEncodeDecodeRoundtrip(t *testing.T) {
	codec := NewSerialCodec(testManifest(t))
	item := buildItem()

	serial, err := codec.Encode(item)
	require.NoError(t, err)
	require.Contains(t, serial, serialPrefix)

	decoded, err := codec.Decode(serial)
	require.NoError(t, err)
	require.Equal(t, item.Category, decoded.Category)
	require.Equal(t, item.Discriminant, decoded.Discriminant)
	require.Equal(t, len(item.Parts), len(decoded.Parts))
	for i := range item.Parts {
		require.Equal(t, item.Parts[i].Index, decoded.Parts[i].Index)
		require.Equal(t, item.Parts[i].Values, decoded.Parts[i].Values)
	}
}

// TestSerialEncodeDecodeRoundtripMultiValuePart exercises a category whose
// part declares more than one varbit value field (spec §3.2: "the number
// and shape of value fields per part depend on the current category"), to
// guard against the single-value fallback silently swallowing the rest of
// a multi-value part's bits.
func TestSerialEncodeDecodeRoundtripMultiValuePart(t *testing.T) {
	codec := NewSerialCodec(testManifest(t))
	item := Item{
		Category:     279, // Energy Shield; part index 1 declares 2 value fields
		Discriminant: 7,
		Parts: []Part{
			{Index: 0, Values: []uint64{3}},
			{Index: 1, Values: []uint64{9, 200}},
		},
		HeaderHasSoftSeparator: true,
	}

	serial, err := codec.Encode(item)
	require.NoError(t, err)

	decoded, err := codec.Decode(serial)
	require.NoError(t, err)
	require.Equal(t, len(item.Parts), len(decoded.Parts))
	for i := range item.Parts {
		require.Equal(t, item.Parts[i].Index, decoded.Parts[i].Index)
		require.Equal(t, item.Parts[i].Values, decoded.Parts[i].Values)
	}
}

func TestSerialDecodeMissingPrefix(t *testing.T) {
	codec := NewSerialCodec(testManifest(t))
	_, err := codec.Decode("NotASerial")
	require.ErrorIs(t, err, ErrMissingPrefix)
}

func TestSerialModifyReplacesOnlyRequestedParts(t *testing.T) {
	codec := NewSerialCodec(testManifest(t))
	base := buildItem()
	source := Item{
		Category: 13,
		Parts: []Part{
			{Index: 0, Values: []uint64{99}},
			{Index: 2, Values: []uint64{77}},
		},
	}

	modified := codec.Modify(base, source, []int{0})
	require.Equal(t, uint64(99), modified.Parts[0].Values[0])
	require.Equal(t, base.Parts[1].Values[0], modified.Parts[1].Values[0])
	require.Equal(t, base.Parts[2], modified.Parts[2])
}

func TestSerialValidateFlagsOutOfRangePart(t *testing.T) {
	codec := NewSerialCodec(testManifest(t))
	item := buildItem()
	report := codec.Validate(item)
	require.False(t, report.Valid == true && len(report.Issues) == 0)
	require.Contains(t, report.Issues, "part index out of range")
}

func TestSerialValidateUnknownCategory(t *testing.T) {
	codec := NewSerialCodec(testManifest(t))
	report := codec.Validate(Item{Category: 99999})
	require.False(t, report.Valid)
}
