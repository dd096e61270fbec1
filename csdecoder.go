// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"regexp"
)

const (
	ncsMagic         = "NCS"
	ncsManifestMagic = "_NCS/"
	ncsOuterHeaderSize = 16 // version:1 + magic:3 + flags:4 + uncompressed:4 + compressed:4

	maxEntryCount  = 100_000
	maxStringBytes = 10_000_000
	maxRemapCount  = 1_000_000

	dataTableTypeName = "gbx_ue_data_table"
)

// formatCode enumerates the NCS reference-locator variants observed in the
// wild. Only abjx's bit layout is implemented; the others degrade to a
// diagnostic per row.
type formatCode byte

const (
	formatAbjx formatCode = iota
	formatAbij
	formatAbhj
	formatAbpe
	formatAbqr
	formatUnknown
)

var formatCodeNames = [...]string{"abjx", "abij", "abhj", "abpe", "abqr"}

func (f formatCode) String() string {
	if int(f) < len(formatCodeNames) {
		return formatCodeNames[f]
	}
	return "unknown"
}

// BlobHeader is the 16-byte little-endian header at the start of a
// decompressed CS payload (spec §3.3).
type BlobHeader struct {
	EntryCount  uint32
	Flags       uint32
	StringBytes uint32
	Reserved    uint32
}

// TypeCodeTable is the post-header section declaring per-column type
// codes, per-row format flags, and the three string pools (spec §4.7.3).
//
// The Declared* counts are kept alongside the parsed pools because the
// wire format's bit widths (§4.7.5) are derived from the declared counts,
// not from however many strings actually serialized: a sparse pool
// (declared > actual, §3.3/§4.7.3) still reads index bits at the
// declared width, or the rest of the table's bit stream desyncs.
type TypeCodeTable struct {
	ColumnTypes  []byte
	RowFormats   []formatCode
	ValueStrings []string
	ValueKinds   []string
	KeyStrings   []string
	DataOffset   uint32

	DeclaredValueCount uint32
	DeclaredKindCount  uint32
	DeclaredKeyCount   uint32
}

// CSDecoderOptions bounds resource usage during decode, mirroring the
// teacher's Options struct shape (threaded through the constructor rather
// than package-level globals).
type CSDecoderOptions struct {
	MaxEntryCount uint32
	MaxStringBytes uint32
	MaxRemapCount uint32
	Logger        *Helper
}

// CSDecoder parses a decompressed CS payload into a CSDocument: blob
// header, header strings, type-code table, then the bit-packed record
// decode loop.
type CSDecoder struct {
	opts CSDecoderOptions
	diagnosticSink
}

// NewCSDecoder returns a CSDecoder. A nil opts uses the default memory
// bounds (entry_count <= 100_000, string_bytes <= 10_000_000, remap count
// <= 1_000_000).
func NewCSDecoder(opts *CSDecoderOptions) *CSDecoder {
	d := &CSDecoder{}
	if opts != nil {
		d.opts = *opts
	}
	if d.opts.MaxEntryCount == 0 {
		d.opts.MaxEntryCount = maxEntryCount
	}
	if d.opts.MaxStringBytes == 0 {
		d.opts.MaxStringBytes = maxStringBytes
	}
	if d.opts.MaxRemapCount == 0 {
		d.opts.MaxRemapCount = maxRemapCount
	}
	d.SetLogger(d.opts.Logger)
	return d
}

// IsManifestContainer reports whether data begins with the 5-byte "_NCS/"
// manifest-container magic. The decoder never descends into these
// implicitly; the host is expected to index them separately.
func IsManifestContainer(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ncsManifestMagic))
}

// Decode parses a full NCS data-container byte stream: it verifies the
// outer framing, delegates decompression to backend, then parses the
// decompressed payload into a CSDocument.
func (d *CSDecoder) Decode(outer []byte, registry *DecompressorRegistry, backend string) (*CSDocument, error) {
	if IsManifestContainer(outer) {
		return nil, fmt.Errorf("%w: manifest container passed to data decoder", ErrBadContainer)
	}
	if len(outer) < ncsOuterHeaderSize || string(outer[1:4]) != ncsMagic {
		return nil, ErrBadContainer
	}

	flags := binary.LittleEndian.Uint32(outer[4:8])
	_ = flags
	uncompressedSize := binary.LittleEndian.Uint32(outer[8:12])
	compressedSize := binary.LittleEndian.Uint32(outer[12:16])
	if uint64(ncsOuterHeaderSize)+uint64(compressedSize) > uint64(len(outer)) {
		return nil, ErrBadContainer
	}
	compressed := outer[ncsOuterHeaderSize : ncsOuterHeaderSize+compressedSize]

	decomp, err := registry.Get(backend)
	if err != nil {
		return nil, err
	}
	payload, err := decomp(compressed, uncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("bl4codec: decompression failed: %w", err)
	}
	if uint32(len(payload)) < uncompressedSize {
		return nil, ErrSizeMismatch
	}

	return d.decodePayload(payload)
}

func (d *CSDecoder) decodePayload(payload []byte) (*CSDocument, error) {
	header, err := parseBlobHeader(payload)
	if err != nil {
		return nil, err
	}
	if header.Reserved != 0 {
		return nil, fmt.Errorf("%w: non-zero reserved field", ErrBadContainer)
	}
	if header.EntryCount > d.opts.MaxEntryCount {
		return nil, fmt.Errorf("%w: entry_count %d exceeds limit", ErrBadContainer, header.EntryCount)
	}
	if header.StringBytes > d.opts.MaxStringBytes {
		return nil, fmt.Errorf("%w: string_bytes %d exceeds limit", ErrBadContainer, header.StringBytes)
	}
	if uint64(16)+uint64(header.StringBytes) > uint64(len(payload)) {
		return nil, ErrBadContainer
	}

	headerStrings := splitNullDelimited(payload[16 : 16+header.StringBytes])
	if len(headerStrings) == 0 {
		return nil, fmt.Errorf("%w: empty header string block", ErrBadContainer)
	}
	docTypeName := headerStrings[0]
	depNames := headerStrings[1:]

	bodyStart := 16 + int(header.StringBytes)
	if bodyStart > len(payload) {
		return nil, ErrBadContainer
	}
	body := payload[bodyStart:]

	tct, consumed, err := d.parseTCT(body)
	if err != nil {
		return nil, err
	}

	table := &Table{
		Name:         docTypeName,
		ValueStrings: tct.ValueStrings,
		ValueKinds:   tct.ValueKinds,
		KeyStrings:   tct.KeyStrings,
	}

	dataStart := int(tct.DataOffset)
	if dataStart < consumed {
		dataStart = consumed
	}
	if dataStart > len(body) {
		return nil, ErrBadContainer
	}

	cur := NewBitCursor(body[dataStart:])
	records, err := d.decodeTableRecords(cur, tct, docTypeName == dataTableTypeName)
	if err != nil {
		return nil, err
	}
	table.Records = records

	doc := NewCSDocument()
	doc.AddTable(table)
	for _, dep := range depNames {
		if doc.Table(dep) == nil {
			// Dependency names reference tables outside this document;
			// register an empty placeholder under each name so
			// doc.Table(dep) finds it. The "dep:%d" tokens decodeRef
			// produces are not resolved through these placeholders. The
			// host supplies the real table when composing a
			// multi-document graph.
			doc.AddTable(&Table{Name: dep})
		}
	}
	table.Deps = append([]string(nil), depNames...)
	return doc, nil
}

func parseBlobHeader(payload []byte) (BlobHeader, error) {
	if len(payload) < 16 {
		return BlobHeader{}, ErrBadContainer
	}
	return BlobHeader{
		EntryCount:  binary.LittleEndian.Uint32(payload[0:4]),
		Flags:       binary.LittleEndian.Uint32(payload[4:8]),
		StringBytes: binary.LittleEndian.Uint32(payload[8:12]),
		Reserved:    binary.LittleEndian.Uint32(payload[12:16]),
	}, nil
}

func splitNullDelimited(block []byte) []string {
	var out []string
	start := 0
	for i, b := range block {
		if b == 0 {
			out = append(out, string(block[start:i]))
			start = i + 1
		}
	}
	if start < len(block) {
		out = append(out, string(block[start:]))
	}
	return out
}

// parseTCT reads the TypeCodeHeader and the three string pools. It
// returns the parsed table plus the number of bytes consumed from body,
// so the caller can sanity-check the declared data_offset against it.
func (d *CSDecoder) parseTCT(body []byte) (TypeCodeTable, int, error) {
	r := &byteReader{buf: body}

	columnCount, err := r.u32()
	if err != nil {
		return TypeCodeTable{}, 0, err
	}
	columnTypes, err := r.bytes(int(columnCount))
	if err != nil {
		return TypeCodeTable{}, 0, err
	}

	typeIndexCount, err := r.u32()
	if err != nil {
		return TypeCodeTable{}, 0, err
	}
	rowFlagBytes, err := r.bytes(int(typeIndexCount))
	if err != nil {
		return TypeCodeTable{}, 0, err
	}
	rowFormats := make([]formatCode, len(rowFlagBytes))
	for i, b := range rowFlagBytes {
		if int(b) < len(formatCodeNames) {
			rowFormats[i] = formatCode(b)
		} else {
			rowFormats[i] = formatUnknown
		}
		if rowFormats[i] != formatAbjx {
			d.add(DiagUnknownFormat, 0, "row %d uses format code %q; refs are still decoded with the abjx layout", i, rowFormats[i])
		}
	}

	valueStrings, declaredValueCount, err := d.readStringPool(r)
	if err != nil {
		return TypeCodeTable{}, 0, err
	}
	valueKinds, declaredKindCount, err := d.readStringPool(r)
	if err != nil {
		return TypeCodeTable{}, 0, err
	}
	keyStrings, declaredKeyCount, err := d.readStringPool(r)
	if err != nil {
		return TypeCodeTable{}, 0, err
	}

	dataOffset, err := r.u32()
	if err != nil {
		return TypeCodeTable{}, 0, err
	}

	return TypeCodeTable{
		ColumnTypes:        columnTypes,
		RowFormats:         rowFormats,
		ValueStrings:       valueStrings,
		ValueKinds:         valueKinds,
		KeyStrings:         keyStrings,
		DataOffset:         dataOffset,
		DeclaredValueCount: declaredValueCount,
		DeclaredKindCount:  declaredKindCount,
		DeclaredKeyCount:   declaredKeyCount,
	}, r.pos, nil
}

// readStringPool reads a declared_count:u32, byte_length:u32, then
// byte_length bytes of null-delimited strings, and returns declared_count
// alongside the parsed strings: §4.7.5's index bit widths are derived from
// the declared count, not from however many strings actually serialize, so
// callers must not discard it. If fewer strings actually serialize than
// declared_count, the shortfall is recorded as a DiagSparsePool diagnostic
// rather than an error (spec §4.7.3).
func (d *CSDecoder) readStringPool(r *byteReader) ([]string, uint32, error) {
	declaredCount, err := r.u32()
	if err != nil {
		return nil, 0, err
	}
	byteLen, err := r.u32()
	if err != nil {
		return nil, 0, err
	}
	if byteLen > d.opts.MaxStringBytes {
		return nil, 0, fmt.Errorf("%w: string pool byte length %d exceeds limit", ErrBadContainer, byteLen)
	}
	raw, err := r.bytes(int(byteLen))
	if err != nil {
		return nil, 0, err
	}
	strs := splitNullDelimited(raw)
	if uint32(len(strs)) < declaredCount {
		d.add(DiagSparsePool, r.pos*8, "string pool declared %d entries, serialized %d", declaredCount, len(strs))
	}
	return strs, declaredCount, nil
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) u32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, ErrUnderflow
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrUnderflow
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// decodeTableRecords runs the bit-packed record decode loop (spec
// §4.7.4-§4.7.5): remap arrays, record_count, then entry_count records
// each carrying key/kind/value-typed entries, recursing into nested maps.
func (d *CSDecoder) decodeTableRecords(cur *BitCursor, tct TypeCodeTable, isDataTable bool) ([]Record, error) {
	keyRemap, err := d.readRemapArray(cur)
	if err != nil {
		return nil, err
	}
	valueRemap, err := d.readRemapArray(cur)
	if err != nil {
		return nil, err
	}

	typeIndexCount := uint32(len(tct.RowFormats))
	if typeIndexCount == 0 {
		typeIndexCount = 1
	}
	recordCountWidth := int(BitWidth(typeIndexCount + 1))
	recordCount, err := cur.ReadBits(recordCountWidth)
	if err != nil {
		return nil, err
	}

	// Widths are derived from the TCT's declared pool counts, not from the
	// number of strings that actually serialized: a sparse pool still used
	// the declared width on the wire (spec §4.7.3, §4.7.5).
	keyWidth := int(BitWidth(tct.DeclaredKeyCount))
	kindWidth := int(BitWidth(tct.DeclaredKindCount))
	valueWidth := int(BitWidth(tct.DeclaredValueCount))

	records := make([]Record, 0, recordCount)
	for i := uint64(0); i < recordCount; i++ {
		rec, err := d.decodeRecord(cur, tct, keyRemap, valueRemap, keyWidth, kindWidth, valueWidth)
		if err != nil {
			return nil, err
		}
		if isDataTable {
			rec = stripGUIDSuffixes(rec)
		}
		records = append(records, rec)
	}
	cur.AlignToByte()
	return records, nil
}

type remapArray struct {
	values []uint64
	width  uint8
}

func (r remapArray) active() bool { return len(r.values) > 0 && r.width > 0 }

func (r remapArray) remap(idx int) int {
	if !r.active() || idx < 0 || idx >= len(r.values) {
		return idx
	}
	return int(r.values[idx])
}

// readRemapArray reads a FixedWidthIntArray: a 24-bit count, an 8-bit
// value width, then count*width bits of values (spec §4.7.4). count==0 or
// width==0 means the remap is inactive.
func (d *CSDecoder) readRemapArray(cur *BitCursor) (remapArray, error) {
	count, err := cur.ReadBits(24)
	if err != nil {
		return remapArray{}, err
	}
	if count > uint64(d.opts.MaxRemapCount) {
		return remapArray{}, fmt.Errorf("%w: remap count %d exceeds limit", ErrBadContainer, count)
	}
	width, err := cur.ReadBits(8)
	if err != nil {
		return remapArray{}, err
	}
	if count == 0 || width == 0 {
		return remapArray{}, nil
	}
	values := make([]uint64, count)
	for i := range values {
		v, err := cur.ReadBits(int(width))
		if err != nil {
			return remapArray{}, err
		}
		values[i] = v
	}
	return remapArray{values: values, width: uint8(width)}, nil
}

func (d *CSDecoder) decodeRecord(cur *BitCursor, tct TypeCodeTable, keyRemap, valueRemap remapArray, keyWidth, kindWidth, valueWidth int) (Record, error) {
	entryCount, err := cur.ReadVarint()
	if err != nil {
		return Record{}, err
	}
	var rec Record
	for i := uint64(0); i < entryCount; i++ {
		entry, err := d.decodeEntry(cur, tct, keyRemap, valueRemap, keyWidth, kindWidth, valueWidth)
		if err != nil {
			return Record{}, err
		}
		rec.Entries = append(rec.Entries, entry)
	}
	return rec, nil
}

func (d *CSDecoder) decodeEntry(cur *BitCursor, tct TypeCodeTable, keyRemap, valueRemap remapArray, keyWidth, kindWidth, valueWidth int) (Entry, error) {
	position := cur.Position()

	var keyIdx int
	if keyWidth > 0 {
		raw, err := cur.ReadBits(keyWidth)
		if err != nil {
			return Entry{}, err
		}
		keyIdx = keyRemap.remap(int(raw))
	}
	key, keyOK := lookupString(tct.KeyStrings, keyIdx)
	if !keyOK {
		d.add(DiagUnresolvedReference, position, "key index %d exceeds serialized key pool", keyIdx)
		key = rawIndexToken(keyIdx)
	}

	var kindIdx int
	if kindWidth > 0 {
		raw, err := cur.ReadBits(kindWidth)
		if err != nil {
			return Entry{}, err
		}
		kindIdx = int(raw)
	}
	kind, kindOK := lookupString(tct.ValueKinds, kindIdx)
	if !kindOK {
		d.add(DiagUnknownKind, position, "kind index %d exceeds serialized kind pool", kindIdx)
		return Entry{Key: key, Value: RefValue(rawIndexToken(kindIdx))}, nil
	}

	switch {
	case kind == "map":
		childCount, err := cur.ReadVarint()
		if err != nil {
			return Entry{}, err
		}
		m := NewOrderedMap()
		for i := uint64(0); i < childCount; i++ {
			child, err := d.decodeEntry(cur, tct, keyRemap, valueRemap, keyWidth, kindWidth, valueWidth)
			if err != nil {
				return Entry{}, err
			}
			m.Set(child.Key, child.Value)
		}
		return Entry{Key: key, Value: MapValue(m)}, nil

	case kind == "empty" || kind == "":
		return Entry{Key: key, Value: NullValue()}, nil

	case kind == "ref":
		refWord, err := cur.ReadVarint()
		if err != nil {
			return Entry{}, err
		}
		return Entry{Key: key, Value: d.decodeRef(refWord, position)}, nil

	case kind == "leaf" || len(kind) >= 5 && kind[:5] == "leaf:":
		var valIdx int
		if valueWidth > 0 {
			raw, err := cur.ReadBits(valueWidth)
			if err != nil {
				return Entry{}, err
			}
			valIdx = valueRemap.remap(int(raw))
		}
		valStr, valOK := lookupString(tct.ValueStrings, valIdx)
		if !valOK {
			d.add(DiagUnresolvedReference, position, "value index %d exceeds serialized value pool", valIdx)
			return Entry{Key: key, Value: RefValue(rawIndexToken(valIdx))}, nil
		}
		return Entry{Key: key, Value: LeafValue(valStr)}, nil

	default:
		d.add(DiagUnknownKind, position, "unrecognized value kind %q", kind)
		return Entry{Key: key, Value: RefValue("kind:" + kind)}, nil
	}
}

// decodeRef implements the abjx reference-locator layout: the MSB of the
// reference word selects dependency-name (1) vs intra-document
// table/record locator (0).
func (d *CSDecoder) decodeRef(word uint64, position int) Value {
	isDepRef := word&(1<<63) != 0
	if isDepRef {
		depIdx := word &^ (1 << 63)
		return RefValue(fmt.Sprintf("dep:%d", depIdx))
	}
	tableIdx := word >> 32
	recordIdx := word & 0xFFFFFFFF
	ref := fmt.Sprintf("table:%d:record:%d", tableIdx, recordIdx)
	return RefValue(ref)
}

// lookupString resolves idx against pool, reporting whether idx actually
// fell within the serialized pool. A declared-but-not-serialized index
// (sparse pool, spec §4.7.3) reports false rather than silently returning
// an empty string, so callers can preserve it as Ref(raw-index) instead of
// losing the index value.
func lookupString(pool []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(pool) {
		return "", false
	}
	return pool[idx], true
}

// rawIndexToken formats an out-of-range pool index as the "raw-index"
// placeholder spec §4.7.3 mandates for excess indices.
func rawIndexToken(idx int) string {
	return fmt.Sprintf("raw:%d", idx)
}

var guidSuffixRe = regexp.MustCompile(`_[0-9A-Fa-f]{32}$`)

// stripGUIDSuffixes strips the trailing "_<32-hex-char GUID>" from each
// entry key in rec, the only place the decoder modifies string content
// (spec §4.7.7, gbx_ue_data_table specialization).
func stripGUIDSuffixes(rec Record) Record {
	out := Record{Entries: make([]Entry, len(rec.Entries))}
	for i, e := range rec.Entries {
		out.Entries[i] = Entry{Key: guidSuffixRe.ReplaceAllString(e.Key, ""), Value: e.Value}
	}
	return out
}
