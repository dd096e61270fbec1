// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import "strings"

const serialPrefix = "@Ug"

// Part is one bit-packed weapon/gear component inside a serial. Values are
// in declaration order. A Part whose Index lies beyond the category's
// declared part count is still preserved on re-encode even though
// StaticManifest cannot name it. Encode writes exactly the manifest's
// value-slot count for the Index: missing values are written as 0 and
// extra values are dropped.
type Part struct {
	Index  uint64
	Values []uint64
}

// Item is the decoded token stream of an item serial: header fields, an
// ordered list of Part tokens, and an optional trailing string payload.
type Item struct {
	Category      uint64
	Discriminant  uint64
	Parts         []Part
	HasString     bool
	String        string
	// HeaderHasSoftSeparator records which of the two header-layout
	// variants this item decoded under, so Encode can reproduce the
	// identical bit layout.
	HeaderHasSoftSeparator bool
}

// SerialCodec parses and emits the token stream embedded in an item
// serial: "@Ug" prefix, bit-reversed custom-alphabet Base85 body.
type SerialCodec struct {
	manifest *StaticManifest
	diagnosticSink
}

// NewSerialCodec returns a SerialCodec resolving category shapes against m.
// Attach a logger with SetLogger if unmanifested-category/out-of-range-part
// diagnostics should also be surfaced as log lines.
func NewSerialCodec(m *StaticManifest) *SerialCodec {
	return &SerialCodec{manifest: m}
}

func bitReverseBytes(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = mirrorByte(b)
	}
	return out
}

// Decode parses a printable serial string into its token list.
func (c *SerialCodec) Decode(serial string) (Item, error) {
	if !strings.HasPrefix(serial, serialPrefix) {
		return Item{}, ErrMissingPrefix
	}
	raw, err := base85Decode(strings.TrimPrefix(serial, serialPrefix))
	if err != nil {
		return Item{}, err
	}
	reversed := bitReverseBytes(raw)

	// The soft separator bit is not reliably present across all observed
	// serials; try both variants and keep whichever round-trips.
	withSep, errWith := c.decodeBits(reversed, true)
	if errWith == nil {
		if reencoded, encErr := c.Encode(withSep); encErr == nil && reencoded == serial {
			return withSep, nil
		}
	}
	withoutSep, errWithout := c.decodeBits(reversed, false)
	if errWithout == nil {
		if reencoded, encErr := c.Encode(withoutSep); encErr == nil && reencoded == serial {
			return withoutSep, nil
		}
	}
	// Neither variant reproduced the input byte-for-byte; prefer the
	// with-separator parse if it at least decoded cleanly, matching the
	// spec's "attempt both, accept whichever" guidance loosely when no
	// exact round-trip is achievable (e.g. trailing pad bits differ).
	if errWith == nil {
		return withSep, nil
	}
	if errWithout == nil {
		return withoutSep, nil
	}
	return Item{}, errWith
}

func (c *SerialCodec) decodeBits(reversed []byte, softSep bool) (Item, error) {
	cur := NewBitCursor(reversed)

	category, err := cur.ReadVarint()
	if err != nil {
		return Item{}, err
	}
	discriminant, err := cur.ReadVarbit()
	if err != nil {
		return Item{}, err
	}
	if softSep {
		if _, err := cur.ReadBit(); err != nil {
			return Item{}, err
		}
	}

	shape := c.manifest.categoryShape(uint32(category))
	if shape == nil {
		c.add(DiagUnknownCategory, cur.Position(), "unmanifested category id %d", category)
		shape = defaultCategoryShape
	}

	item := Item{
		Category:               category,
		Discriminant:           discriminant,
		HeaderHasSoftSeparator: softSep,
	}

	for cur.HasBits(minPartHeaderBits) {
		start := cur.Clone()
		index, err := cur.ReadVarint()
		if err != nil {
			break
		}
		slotCount := shape.valueSlotCount(int(index))
		if int(index) >= shape.PartCount {
			c.add(DiagPartIndexOutOfRange, start.Position(), "part index %d exceeds category part count %d", index, shape.PartCount)
		}
		values := make([]uint64, 0, slotCount)
		ok := true
		for i := 0; i < slotCount; i++ {
			v, err := cur.ReadVarbit()
			if err != nil {
				ok = false
				break
			}
			values = append(values, v)
		}
		if !ok {
			*cur = *start
			break
		}
		hardSep, err := cur.ReadBit()
		if err != nil {
			*cur = *start
			break
		}
		item.Parts = append(item.Parts, Part{Index: index, Values: values})
		if !hardSep {
			break
		}
	}

	if shape.HasStringPayload && cur.HasBits(4) {
		length, err := cur.ReadVarint()
		if err == nil {
			var sb strings.Builder
			truncated := false
			for i := uint64(0); i < length; i++ {
				v, err := cur.ReadBits(7)
				if err != nil {
					truncated = true
					break
				}
				sb.WriteByte(mirror7(byte(v)))
			}
			if !truncated {
				item.HasString = true
				item.String = sb.String()
			}
		}
	}

	return item, nil
}

// mirror7 reverses the low 7 bits of b, leaving bit 7 untouched (it is
// always 0 for these 7-bit payload characters).
func mirror7(b byte) byte {
	var r byte
	for i := 0; i < 7; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

const minPartHeaderBits = 5 // smallest possible varint (one nibble + stop bit)

// Encode re-emits a decoded Item as a printable serial string.
func (c *SerialCodec) Encode(item Item) (string, error) {
	cur := NewBitCursor(nil)
	cur.WriteVarint(item.Category)
	cur.WriteVarbit(item.Discriminant)
	if item.HeaderHasSoftSeparator {
		cur.WriteBits(0, 1)
	}

	shape := c.manifest.categoryShape(uint32(item.Category))
	if shape == nil {
		shape = defaultCategoryShape
	}

	for i, p := range item.Parts {
		cur.WriteVarint(p.Index)
		slotCount := shape.valueSlotCount(int(p.Index))
		for j := 0; j < slotCount; j++ {
			var v uint64
			if j < len(p.Values) {
				v = p.Values[j]
			}
			cur.WriteVarbit(v)
		}
		hasMore := i != len(item.Parts)-1
		if hasMore {
			cur.WriteBits(1, 1)
		} else {
			cur.WriteBits(0, 1)
		}
	}

	if item.HasString {
		cur.WriteVarint(uint64(len(item.String)))
		for _, ch := range []byte(item.String) {
			cur.WriteBits(uint64(mirror7(ch)), 7)
		}
	}

	reversed := cur.Bytes()
	raw := bitReverseBytes(reversed)
	return serialPrefix + base85Encode(raw), nil
}

// Modify copies base, then replaces base.Parts[i] with source's part whose
// Index matches base.Parts[i].Index, for each i named in partIndices (an
// index into base.Parts, not a serial part index).
func (c *SerialCodec) Modify(base, source Item, partIndices []int) Item {
	out := base
	out.Parts = append([]Part(nil), base.Parts...)
	for _, i := range partIndices {
		if i < 0 || i >= len(out.Parts) {
			continue
		}
		target := out.Parts[i].Index
		for _, sp := range source.Parts {
			if sp.Index == target {
				out.Parts[i] = Part{Index: sp.Index, Values: append([]uint64(nil), sp.Values...)}
				break
			}
		}
	}
	return out
}

// Report is the structural-legality result of Validate: purely a check
// that the serial's tokens are internally consistent, never an
// anti-cheat verdict.
type Report struct {
	Valid  bool
	Issues []string
}

// Validate performs structural legality checks on a decoded Item: known
// category, in-range part indices. It never inspects gameplay legality.
func (c *SerialCodec) Validate(item Item) Report {
	var report Report
	report.Valid = true

	shape := c.manifest.categoryShape(uint32(item.Category))
	if shape == nil {
		report.Issues = append(report.Issues, "unknown category id")
		report.Valid = false
		return report
	}
	for _, p := range item.Parts {
		if int(p.Index) >= shape.PartCount {
			report.Issues = append(report.Issues, "part index out of range")
		}
	}
	return report
}
