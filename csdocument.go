// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import "github.com/cespare/xxhash/v2"

// OrderedMap is a string-keyed map that preserves insertion order and
// still offers O(1) lookup. It backs CS Map values: an index-vector holds
// entries in insertion order, a hash-index maps xxhash.Sum64String(key) to
// a position in that vector. CSDocument's table index uses the same scheme
// in its own fields.
type OrderedMap struct {
	keys   []string
	values []Value
	index  map[uint64]int
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{index: make(map[uint64]int)}
}

// Len reports the number of entries.
func (m *OrderedMap) Len() int { return len(m.keys) }

// Set inserts or replaces the value for key, preserving its original
// position on replace and appending on first insert.
func (m *OrderedMap) Set(key string, v Value) {
	h := xxhash.Sum64String(key)
	if pos, ok := m.index[h]; ok && m.keys[pos] == key {
		m.values[pos] = v
		return
	}
	m.index[h] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, v)
}

// Get returns the value stored under key, and whether it was present.
func (m *OrderedMap) Get(key string) (Value, bool) {
	h := xxhash.Sum64String(key)
	pos, ok := m.index[h]
	if !ok || m.keys[pos] != key {
		return Value{}, false
	}
	return m.values[pos], true
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string { return m.keys }

// Range calls fn for each entry in insertion order, stopping early if fn
// returns false.
func (m *OrderedMap) Range(fn func(key string, v Value) bool) {
	for i, k := range m.keys {
		if !fn(k, m.values[i]) {
			return
		}
	}
}

// Table is one named table of the configuration store: an ordered list of
// records plus the three string pools it was decoded against.
type Table struct {
	Name         string
	Deps         []string
	Records      []Record
	ValueStrings []string
	ValueKinds   []string
	KeyStrings   []string
}

// RecordAt returns the record at index i, or a zero Record and false if i
// is out of range.
func (t *Table) RecordAt(i int) (Record, bool) {
	if i < 0 || i >= len(t.Records) {
		return Record{}, false
	}
	return t.Records[i], true
}

// CSDocument is the fully decoded configuration store: a named collection
// of Table, indexed by the same ordered/hashed scheme as OrderedMap so
// cross-table Ref lookups stay cheap.
type CSDocument struct {
	tableNames []string
	tables     []*Table
	index      map[uint64]int
}

// NewCSDocument returns an empty CSDocument.
func NewCSDocument() *CSDocument {
	return &CSDocument{index: make(map[uint64]int)}
}

// AddTable appends t, keyed by t.Name. A later AddTable with the same name
// overwrites the earlier entry in place (position is preserved).
func (d *CSDocument) AddTable(t *Table) {
	h := xxhash.Sum64String(t.Name)
	if pos, ok := d.index[h]; ok && d.tableNames[pos] == t.Name {
		d.tables[pos] = t
		return
	}
	d.index[h] = len(d.tableNames)
	d.tableNames = append(d.tableNames, t.Name)
	d.tables = append(d.tables, t)
}

// Table returns the table named name, or nil if no such table exists.
func (d *CSDocument) Table(name string) *Table {
	h := xxhash.Sum64String(name)
	pos, ok := d.index[h]
	if !ok || d.tableNames[pos] != name {
		return nil
	}
	return d.tables[pos]
}

// TableNames returns all table names in registration order.
func (d *CSDocument) TableNames() []string { return d.tableNames }

// ResolveRef resolves a Ref token of the form "table:index" against this
// document, returning the referenced record. Tokens that do not resolve
// to an existing table/record are reported through sink rather than
// failing the whole decode.
func (d *CSDocument) ResolveRef(ref Value, sink *diagnosticSink, position int) (Record, bool) {
	if ref.Kind != KindRef {
		return Record{}, false
	}
	table, idx, ok := splitRef(ref.Ref)
	if !ok {
		sink.add(DiagUnresolvedReference, position, "malformed ref token %q", ref.Ref)
		return Record{}, false
	}
	t := d.Table(table)
	if t == nil {
		sink.add(DiagUnresolvedReference, position, "ref to unknown table %q", table)
		return Record{}, false
	}
	rec, ok := t.RecordAt(idx)
	if !ok {
		sink.add(DiagUnresolvedReference, position, "ref index %d out of range for table %q", idx, table)
		return Record{}, false
	}
	return rec, true
}

func splitRef(ref string) (table string, idx int, ok bool) {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == ':' {
			table = ref[:i]
			n := 0
			for _, c := range ref[i+1:] {
				if c < '0' || c > '9' {
					return "", 0, false
				}
				n = n*10 + int(c-'0')
			}
			return table, n, true
		}
	}
	return "", 0, false
}
