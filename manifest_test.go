// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadStaticManifestValidates(t *testing.T) {
	m, err := LoadStaticManifest()
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestCategoryByID(t *testing.T) {
	m := testManifest(t)
	cat, ok := m.CategoryByID(13)
	require.True(t, ok)
	require.Equal(t, "Daedalus Assault Rifle", cat.Name)
	require.Greater(t, cat.PartCount, 0)

	_, ok = m.CategoryByID(999999)
	require.False(t, ok)
}

func TestPartsNoDuplicateIndexName(t *testing.T) {
	m := testManifest(t)
	cat, ok := m.CategoryByID(13)
	require.True(t, ok)
	seen := make(map[int]string)
	for _, p := range cat.Parts {
		if prev, dup := seen[p.Index]; dup {
			t.Fatalf("duplicate part index %d: %q and %q", p.Index, prev, p.Name)
		}
		seen[p.Index] = p.Name
	}
}

func TestCategoryPartValueSlotCount(t *testing.T) {
	m := testManifest(t)

	cat, ok := m.CategoryByID(13)
	require.True(t, ok)
	require.Equal(t, 1, cat.valueSlotCount(0), "single-value part defaults to one varbit")

	shield, ok := m.CategoryByID(279)
	require.True(t, ok)
	require.Equal(t, 2, shield.valueSlotCount(1), "shield booster part declares two varbit value fields")

	require.Equal(t, 1, shield.valueSlotCount(999), "unmanifested part index falls back to one varbit")
}

func TestManufacturerByCode(t *testing.T) {
	m := testManifest(t)
	mf, ok := m.ManufacturerByCode("JAK")
	require.True(t, ok)
	require.Equal(t, "Jakobs", mf.Name)
	require.Contains(t, mf.WeaponTypeCodes, "SG")
}

func TestWeaponTypeByCode(t *testing.T) {
	m := testManifest(t)
	wt, ok := m.WeaponTypeByCode("SR")
	require.True(t, ok)
	require.Equal(t, "Sniper Rifle", wt.Name)
}

func TestRarityByTier(t *testing.T) {
	m := testManifest(t)
	r, ok := m.RarityByTier(5)
	require.True(t, ok)
	require.Equal(t, "Legendary", r.Name)
}

func TestElementByCode(t *testing.T) {
	m := testManifest(t)
	e, ok := m.ElementByCode("cryo")
	require.True(t, ok)
	require.Equal(t, "Cryo", e.Name)
}

func TestDropsFindByItemExactAndCaseInsensitive(t *testing.T) {
	m := testManifest(t)
	locs := m.DropsFindByItem("Hellwalker")
	require.Len(t, locs, 1)
	require.Equal(t, "MeatheadRider_Jockey", locs[0].Source)

	locsLower := m.DropsFindByItem("hellwalker")
	require.Len(t, locsLower, 1)
}

func TestDropsFindByItemFuzzy(t *testing.T) {
	m := testManifest(t)
	locs := m.DropsFindByItemFuzzy("plasma")
	require.Len(t, locs, 1)
	require.Equal(t, "PlasmaCoil", locs[0].ItemName)
}

func TestDropsFindBySourceReturnsAllEntries(t *testing.T) {
	m := testManifest(t)
	entries := m.DropsFindBySource("Timekeeper_Guardian")
	require.Len(t, entries, 2)
}

func TestDropsFindByItemOneLocationPerFixtureItem(t *testing.T) {
	m := testManifest(t)
	all := []string{"Hellwalker", "PlasmaCoil", "Plaguebearer"}
	for _, name := range all {
		locs := m.DropsFindByItem(name)
		require.Len(t, locs, 1)
	}
}
