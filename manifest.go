// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"bufio"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

//go:embed manifestdata/*.tsv manifestdata/*.json
var manifestFS embed.FS

// PartInfo names one part slot entry: a category-local index, a display
// name, the slot it occupies (e.g. "body", "barrel"), and the number of
// varbit value fields the part token carries (spec §3.2: "the number and
// shape of value fields per part depend on the current category").
type PartInfo struct {
	Index  int
	Name   string
	Slot   string
	Values int
}

// Category carries the shape metadata SerialCodec needs to parse a part
// stream: how many parts the category declares, whether a trailing string
// payload is present, the divisor used to turn the header discriminant
// into a character level, and the dense parts table itself.
type Category struct {
	ID           uint32
	Name         string
	PartCount    int
	LevelDivisor uint64
	HasStringPayload bool
	Parts        []PartInfo
}

// Level derives the item's character level from the header discriminant
// using this category's divisor, per spec §3.2.
func (c Category) Level(discriminant uint64) uint64 {
	if c.LevelDivisor == 0 {
		return discriminant
	}
	return discriminant / c.LevelDivisor
}

// RarityTier describes one rarity tier's display attributes and relative
// drop weight.
type RarityTier struct {
	Tier   uint8
	Code   string
	Name   string
	Color  string
	Weight float64
}

// Element describes one elemental damage type.
type Element struct {
	Code        string
	Name        string
	Description string
	Color       string
}

// Manufacturer describes one weapon/gear manufacturer.
type Manufacturer struct {
	Code            string
	Name            string
	WeaponTypeCodes []string
	Style           string
}

// WeaponType describes one weapon type.
type WeaponType struct {
	Code        string
	Name        string
	Description string
}

// GearType describes one non-weapon gear type (shields, class mods, ...).
type GearType struct {
	Code        string
	Name        string
	Description string
}

// DropEntry is one boss/source → item drop relation.
type DropEntry struct {
	Source        string
	SourceDisplay string
	Manufacturer  string
	GearType      string
	ItemName      string
	ItemID        string
	Pool          string
	Tier          string
	Chance        float64
}

// DropLocation is a drop entry annotated with its source, returned from a
// by-item lookup and sorted by descending chance.
type DropLocation = DropEntry

// StaticManifest is the process-global, read-only catalog of compile-time
// embedded lookup tables used to resolve numeric indices into
// human-meaningful names. It is safe to share across goroutines without
// synchronization once loaded.
type StaticManifest struct {
	categories    map[uint32]*Category
	rarities      map[uint8]RarityTier
	elements      map[string]Element
	manufacturers map[string]Manufacturer
	weaponTypes   map[string]WeaponType
	gearTypes     map[string]GearType
	dropsBySource map[string][]DropEntry
	dropsByItem   map[string][]DropLocation
}

var defaultCategoryShape = &Category{PartCount: 0, HasStringPayload: false}

func (m *StaticManifest) categoryShape(id uint32) *Category {
	if m == nil {
		return nil
	}
	return m.categories[id]
}

// valueSlotCount returns how many self-describing varbit value fields the
// part at partIndex carries, per spec §3.2/§6.2's "values: list<varbit>"
// grammar. A part absent from the manifest (unmanifested category, or an
// index beyond the category's declared parts) defaults to 1, matching the
// single-value shape assumed before any category-specific part data is
// available.
func (c *Category) valueSlotCount(partIndex int) int {
	for _, p := range c.Parts {
		if p.Index == partIndex {
			if p.Values > 0 {
				return p.Values
			}
			return 1
		}
	}
	return 1
}

// LoadStaticManifest parses the embedded manifestdata/ resources once and
// validates all cross-references. Failure here is a startup failure, not
// a per-request one, per spec §4.5.
func LoadStaticManifest() (*StaticManifest, error) {
	m := &StaticManifest{
		categories:    make(map[uint32]*Category),
		rarities:      make(map[uint8]RarityTier),
		elements:      make(map[string]Element),
		manufacturers: make(map[string]Manufacturer),
		weaponTypes:   make(map[string]WeaponType),
		gearTypes:     make(map[string]GearType),
		dropsBySource: make(map[string][]DropEntry),
		dropsByItem:   make(map[string][]DropLocation),
	}

	if err := m.loadCategoryNames(); err != nil {
		return nil, err
	}
	if err := m.loadParts(); err != nil {
		return nil, err
	}
	if err := m.loadJSON("manifestdata/manufacturers.json", &manufacturerRows{m}); err != nil {
		return nil, err
	}
	if err := m.loadJSON("manifestdata/weapon_types.json", &weaponTypeRows{m}); err != nil {
		return nil, err
	}
	if err := m.loadJSON("manifestdata/gear_types.json", &gearTypeRows{m}); err != nil {
		return nil, err
	}
	if err := m.loadJSON("manifestdata/elements.json", &elementRows{m}); err != nil {
		return nil, err
	}
	if err := m.loadJSON("manifestdata/rarity.json", &rarityRows{m}); err != nil {
		return nil, err
	}
	if err := m.loadDrops(); err != nil {
		return nil, err
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *StaticManifest) loadCategoryNames() error {
	f, err := manifestFS.Open("manifestdata/category_names.tsv")
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			first = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			return fmt.Errorf("bl4codec: malformed category_names.tsv row %q", line)
		}
		id, err := strconv.ParseUint(cols[0], 10, 32)
		if err != nil {
			return fmt.Errorf("bl4codec: bad category id %q: %w", cols[0], err)
		}
		cid := uint32(id)
		if _, dup := m.categories[cid]; dup {
			return fmt.Errorf("bl4codec: duplicate category id %d", cid)
		}
		m.categories[cid] = &Category{ID: cid, Name: cols[1], LevelDivisor: 1}
	}
	// Class mods carry a free-form display name in the trailing string
	// payload; category_names.tsv has no column for this since the wire
	// format never declares it explicitly, so it is hand-pinned here.
	if cat, ok := m.categories[97]; ok {
		cat.HasStringPayload = true
	}
	return sc.Err()
}

func (m *StaticManifest) loadParts() error {
	f, err := manifestFS.Open("manifestdata/parts_database.tsv")
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			first = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 4 {
			return fmt.Errorf("bl4codec: malformed parts_database.tsv row %q", line)
		}
		catID, err := strconv.ParseUint(cols[0], 10, 32)
		if err != nil {
			return fmt.Errorf("bl4codec: bad part category %q: %w", cols[0], err)
		}
		index, err := strconv.Atoi(cols[1])
		if err != nil {
			return fmt.Errorf("bl4codec: bad part index %q: %w", cols[1], err)
		}
		cat, ok := m.categories[uint32(catID)]
		if !ok {
			return fmt.Errorf("bl4codec: part row references unknown category %d", catID)
		}
		for _, existing := range cat.Parts {
			if existing.Index == index {
				return fmt.Errorf("bl4codec: duplicate (index,name) part row for category %d index %d", catID, index)
			}
		}
		values := 1
		if len(cols) >= 5 && strings.TrimSpace(cols[4]) != "" {
			values, err = strconv.Atoi(cols[4])
			if err != nil {
				return fmt.Errorf("bl4codec: bad part value count %q: %w", cols[4], err)
			}
			if values < 1 {
				return fmt.Errorf("bl4codec: part value count must be >= 1, got %d for category %d index %d", values, catID, index)
			}
		}
		cat.Parts = append(cat.Parts, PartInfo{Index: index, Name: cols[2], Slot: cols[3], Values: values})
		if index+1 > cat.PartCount {
			cat.PartCount = index + 1
		}
	}
	return sc.Err()
}

func (m *StaticManifest) loadJSON(path string, sink interface{ apply([]byte) error }) error {
	data, err := manifestFS.ReadFile(path)
	if err != nil {
		return err
	}
	return sink.apply(data)
}

type manufacturerRows struct{ m *StaticManifest }

func (r *manufacturerRows) apply(data []byte) error {
	var rows []struct {
		Code        string   `json:"code"`
		Name        string   `json:"name"`
		WeaponTypes []string `json:"weapon_types"`
		Style       string   `json:"style"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	for _, row := range rows {
		if _, dup := r.m.manufacturers[row.Code]; dup {
			return fmt.Errorf("bl4codec: duplicate manufacturer code %q", row.Code)
		}
		r.m.manufacturers[row.Code] = Manufacturer{
			Code: row.Code, Name: row.Name, WeaponTypeCodes: row.WeaponTypes, Style: row.Style,
		}
	}
	return nil
}

type weaponTypeRows struct{ m *StaticManifest }

func (r *weaponTypeRows) apply(data []byte) error {
	var rows []WeaponType
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	for _, row := range rows {
		if _, dup := r.m.weaponTypes[row.Code]; dup {
			return fmt.Errorf("bl4codec: duplicate weapon type code %q", row.Code)
		}
		r.m.weaponTypes[row.Code] = row
	}
	return nil
}

type gearTypeRows struct{ m *StaticManifest }

func (r *gearTypeRows) apply(data []byte) error {
	var rows []GearType
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	for _, row := range rows {
		if _, dup := r.m.gearTypes[row.Code]; dup {
			return fmt.Errorf("bl4codec: duplicate gear type code %q", row.Code)
		}
		r.m.gearTypes[row.Code] = row
	}
	return nil
}

type elementRows struct{ m *StaticManifest }

func (r *elementRows) apply(data []byte) error {
	var rows []Element
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	for _, row := range rows {
		if _, dup := r.m.elements[row.Code]; dup {
			return fmt.Errorf("bl4codec: duplicate element code %q", row.Code)
		}
		r.m.elements[row.Code] = row
	}
	return nil
}

type rarityRows struct{ m *StaticManifest }

func (r *rarityRows) apply(data []byte) error {
	var rows []RarityTier
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	for _, row := range rows {
		if _, dup := r.m.rarities[row.Tier]; dup {
			return fmt.Errorf("bl4codec: duplicate rarity tier %d", row.Tier)
		}
		r.m.rarities[row.Tier] = row
	}
	return nil
}

func (m *StaticManifest) loadDrops() error {
	data, err := manifestFS.ReadFile("manifestdata/drops.json")
	if err != nil {
		return err
	}
	var doc struct {
		Version int `json:"version"`
		Drops   []struct {
			Source        string  `json:"source"`
			SourceDisplay string  `json:"source_display"`
			Manufacturer  string  `json:"manufacturer"`
			GearType      string  `json:"gear_type"`
			ItemName      string  `json:"item_name"`
			ItemID        string  `json:"item_id"`
			Pool          string  `json:"pool"`
			Tier          string  `json:"tier"`
			Chance        float64 `json:"chance"`
		} `json:"drops"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	for _, d := range doc.Drops {
		entry := DropEntry{
			Source: d.Source, SourceDisplay: d.SourceDisplay, Manufacturer: d.Manufacturer,
			GearType: d.GearType, ItemName: d.ItemName, ItemID: d.ItemID, Pool: d.Pool,
			Tier: d.Tier, Chance: d.Chance,
		}
		m.dropsBySource[d.Source] = append(m.dropsBySource[d.Source], entry)
		m.dropsByItem[strings.ToLower(d.ItemName)] = append(m.dropsByItem[strings.ToLower(d.ItemName)], entry)
	}
	for item := range m.dropsByItem {
		locs := m.dropsByItem[item]
		sort.Slice(locs, func(i, j int) bool { return locs[i].Chance > locs[j].Chance })
		m.dropsByItem[item] = locs
	}
	return nil
}

// validate checks that all cross-references resolve, per spec §4.5's
// load-time validation requirement: each manufacturer's weapon-type codes,
// and each drop's manufacturer and gear-type codes (a drop's gear type may
// name either a weapon type or a gear type). Empty codes are not checked.
func (m *StaticManifest) validate() error {
	for code, mf := range m.manufacturers {
		for _, wt := range mf.WeaponTypeCodes {
			if _, ok := m.weaponTypes[wt]; !ok {
				return fmt.Errorf("bl4codec: manufacturer %q references unknown weapon type %q", code, wt)
			}
		}
	}
	for source, entries := range m.dropsBySource {
		for _, e := range entries {
			if _, ok := m.manufacturers[e.Manufacturer]; e.Manufacturer != "" && !ok {
				return fmt.Errorf("bl4codec: drop from %q references unknown manufacturer %q", source, e.Manufacturer)
			}
			_, isWeapon := m.weaponTypes[e.GearType]
			_, isGear := m.gearTypes[e.GearType]
			if e.GearType != "" && !isWeapon && !isGear {
				return fmt.Errorf("bl4codec: drop from %q references unknown gear type %q", source, e.GearType)
			}
		}
	}
	return nil
}

// CategoryByID returns the category named by id, or false if unmanifested.
func (m *StaticManifest) CategoryByID(id uint32) (Category, bool) {
	c, ok := m.categories[id]
	if !ok {
		return Category{}, false
	}
	return *c, true
}

// PartsBySlot returns every part declared for (categoryID, slot), sorted
// by index.
func (m *StaticManifest) PartsBySlot(categoryID uint32, slot string) []PartInfo {
	cat, ok := m.categories[categoryID]
	if !ok {
		return nil
	}
	var out []PartInfo
	for _, p := range cat.Parts {
		if p.Slot == slot {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// RarityByTier returns the rarity tier metadata for tier.
func (m *StaticManifest) RarityByTier(tier uint8) (RarityTier, bool) {
	r, ok := m.rarities[tier]
	return r, ok
}

// ElementByCode returns the element metadata for code.
func (m *StaticManifest) ElementByCode(code string) (Element, bool) {
	e, ok := m.elements[code]
	return e, ok
}

// ManufacturerByCode returns the manufacturer metadata for code.
func (m *StaticManifest) ManufacturerByCode(code string) (Manufacturer, bool) {
	mf, ok := m.manufacturers[code]
	return mf, ok
}

// WeaponTypeByCode returns the weapon type metadata for code.
func (m *StaticManifest) WeaponTypeByCode(code string) (WeaponType, bool) {
	wt, ok := m.weaponTypes[code]
	return wt, ok
}

// GearTypeByCode returns the gear type metadata for code.
func (m *StaticManifest) GearTypeByCode(code string) (GearType, bool) {
	gt, ok := m.gearTypes[code]
	return gt, ok
}

// DropsFindByItem returns every drop location for an exact,
// case-insensitive item name, sorted by descending chance.
func (m *StaticManifest) DropsFindByItem(name string) []DropLocation {
	return append([]DropLocation(nil), m.dropsByItem[strings.ToLower(name)]...)
}

// DropsFindByItemFuzzy resolves drop locations by case-insensitive
// substring match against the item name, supplementing DropsFindByItem's
// exact lookup.
func (m *StaticManifest) DropsFindByItemFuzzy(query string) []DropLocation {
	q := strings.ToLower(query)
	var out []DropLocation
	for item, locs := range m.dropsByItem {
		if strings.Contains(item, q) {
			out = append(out, locs...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chance > out[j].Chance })
	return out
}

// DropsFindBySource returns every drop entry for a boss/source name.
func (m *StaticManifest) DropsFindBySource(source string) []DropEntry {
	return append([]DropEntry(nil), m.dropsBySource[source]...)
}
