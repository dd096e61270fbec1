// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveDocument is a typed view over the decrypted textual configuration
// tree. It is backed by a yaml.v3 *yaml.Node rather than a plain
// map[string]any specifically because Node preserves key insertion order,
// which the decoded save's inventory and mapping sequences depend on.
type SaveDocument struct {
	root *yaml.Node
}

// LoadSaveDocument parses the decrypted configuration tree bytes (the
// output of SaveCryptogram.Decrypt) into a SaveDocument.
func LoadSaveDocument(data []byte) (*SaveDocument, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		// An empty document still parses as a valid, empty tree.
		doc.Kind = yaml.DocumentNode
		doc.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}
	return &SaveDocument{root: &doc}, nil
}

// Dump serializes the document back to YAML bytes.
func (d *SaveDocument) Dump() ([]byte, error) {
	return yaml.Marshal(d.root)
}

func (d *SaveDocument) rootMapping() *yaml.Node {
	if len(d.root.Content) == 0 {
		return nil
	}
	return d.root.Content[0]
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// navigate walks segments from node, returning the final node. create
// controls whether missing mapping keys are materialized along the way
// (used by Set).
func navigate(node *yaml.Node, segments []string, create bool) (*yaml.Node, error) {
	cur := node
	for _, seg := range segments {
		switch cur.Kind {
		case yaml.MappingNode:
			found, err := mappingValue(cur, seg, create)
			if err != nil {
				return nil, err
			}
			cur = found
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, ErrKeyNotFound
			}
			if idx < 0 || idx >= len(cur.Content) {
				return nil, ErrKeyNotFound
			}
			cur = cur.Content[idx]
		default:
			return nil, ErrKeyNotFound
		}
	}
	return cur, nil
}

func mappingValue(m *yaml.Node, key string, create bool) (*yaml.Node, error) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1], nil
		}
	}
	if !create {
		return nil, ErrKeyNotFound
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	valNode := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	m.Content = append(m.Content, keyNode, valNode)
	return valNode, nil
}

// Get resolves a dot-separated path (integer segments address sequence
// elements) to its scalar string value.
func (d *SaveDocument) Get(path string) (string, error) {
	n, err := navigate(d.rootMapping(), splitPath(path), false)
	if err != nil {
		return "", err
	}
	if n.Kind != yaml.ScalarNode {
		return "", ErrTypeMismatch
	}
	return n.Value, nil
}

// GetNode resolves path to its raw *yaml.Node, for callers that need
// sequence/mapping structure rather than a scalar.
func (d *SaveDocument) GetNode(path string) (*yaml.Node, error) {
	return navigate(d.rootMapping(), splitPath(path), false)
}

// Set assigns a scalar string value at path, creating intermediate
// mappings as needed. Integer path segments addressing a sequence
// element that does not yet exist are not auto-extended (sequences are
// not create-on-set, only mappings are).
func (d *SaveDocument) Set(path string, value string) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ErrKeyNotFound
	}
	parent, err := navigate(d.rootMapping(), segments[:len(segments)-1], true)
	if err != nil {
		return err
	}
	last := segments[len(segments)-1]
	switch parent.Kind {
	case yaml.MappingNode:
		target, err := mappingValue(parent, last, true)
		if err != nil {
			return err
		}
		target.Kind = yaml.ScalarNode
		target.Tag = "!!str"
		target.Value = value
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(parent.Content) {
			return ErrKeyNotFound
		}
		parent.Content[idx] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	default:
		return ErrTypeMismatch
	}
	return nil
}

// CharacterName returns save.character.name (or the root-level alias
// save.name if the nested form is absent).
func (d *SaveDocument) CharacterName() (string, error) {
	if v, err := d.Get("character.name"); err == nil {
		return v, nil
	}
	return d.Get("name")
}

// Level returns the character's level field.
func (d *SaveDocument) Level() (string, error) { return d.Get("character.level") }

// XP returns the character's experience field.
func (d *SaveDocument) XP() (string, error) { return d.Get("character.xp") }

// Cash returns the character's cash currency field.
func (d *SaveDocument) Cash() (string, error) { return d.Get("currencies.cash") }

// Eridium returns the character's eridium currency field.
func (d *SaveDocument) Eridium() (string, error) { return d.Get("currencies.eridium") }

// itemSequence returns the scalar serial strings of a sequence node at
// path, in save order.
func (d *SaveDocument) itemSequence(path string) ([]string, error) {
	n, err := d.GetNode(path)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	if n.Kind != yaml.SequenceNode {
		return nil, ErrTypeMismatch
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind == yaml.ScalarNode {
			out = append(out, item.Value)
			continue
		}
		if serial, err := mappingValue(item, "serial", false); err == nil && serial.Kind == yaml.ScalarNode {
			out = append(out, serial.Value)
		}
	}
	return out, nil
}

// InventoryItems returns the player's backpack inventory item serials, in
// insertion order.
func (d *SaveDocument) InventoryItems() ([]string, error) { return d.itemSequence("inventory.items") }

// BankItems returns the bank's stored item serials.
func (d *SaveDocument) BankItems() ([]string, error) { return d.itemSequence("bank.items") }

// Equipped returns the currently equipped item serials.
func (d *SaveDocument) Equipped() ([]string, error) { return d.itemSequence("inventory.equipped") }

// fodZonesNode locates the gbx_discovery_pc.foddatas sequence, falling
// back to the document root if gbx_discovery_pc is absent.
func (d *SaveDocument) fodZonesNode() (*yaml.Node, error) {
	n, err := d.GetNode("gbx_discovery_pc.foddatas")
	if err == nil {
		return n, nil
	}
	return d.GetNode("foddatas")
}

// FogOfDiscovery decodes the foddata payload for the zone whose
// levelname matches zone case-insensitively, or the first zone entry if
// zone is empty.
func (d *SaveDocument) FogOfDiscovery(zone string) ([]byte, error) {
	zones, err := d.fodZonesNode()
	if err != nil {
		return nil, err
	}
	entry, err := findZone(zones, zone)
	if err != nil {
		return nil, err
	}
	data, err := mappingValue(entry, "foddata", false)
	if err != nil {
		return nil, err
	}
	return NewFogOfDiscovery().Decode(data.Value)
}

func findZone(zones *yaml.Node, zone string) (*yaml.Node, error) {
	if zones == nil || zones.Kind != yaml.SequenceNode {
		return nil, ErrKeyNotFound
	}
	for _, entry := range zones.Content {
		if zone == "" {
			return entry, nil
		}
		name, err := mappingValue(entry, "levelname", false)
		if err == nil && strings.EqualFold(name.Value, zone) {
			return entry, nil
		}
	}
	if zone == "" && len(zones.Content) > 0 {
		return zones.Content[0], nil
	}
	return nil, ErrKeyNotFound
}

// RevealMap replaces the foddata of the named zone (or every zone when
// zone is empty) with a fully-revealed grid, returning how many zones
// were updated.
func (d *SaveDocument) RevealMap(zone string) (int, error) {
	return d.setAllFoddata(zone, NewFogOfDiscovery().RevealAll())
}

// ClearMap replaces the foddata of the named zone (or every zone when
// zone is empty) with a fully-fogged grid, returning how many zones were
// updated.
func (d *SaveDocument) ClearMap(zone string) (int, error) {
	return d.setAllFoddata(zone, NewFogOfDiscovery().ClearAll())
}

func (d *SaveDocument) setAllFoddata(zone string, grid []byte) (int, error) {
	zones, err := d.fodZonesNode()
	if err != nil {
		return 0, err
	}
	if zones.Kind != yaml.SequenceNode {
		return 0, ErrTypeMismatch
	}
	encoded, err := NewFogOfDiscovery().Encode(grid)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range zones.Content {
		if zone != "" {
			name, err := mappingValue(entry, "levelname", false)
			if err != nil || !strings.EqualFold(name.Value, zone) {
				continue
			}
		}
		data, err := mappingValue(entry, "foddata", true)
		if err != nil {
			continue
		}
		data.Kind = yaml.ScalarNode
		data.Tag = "!!str"
		data.Value = encoded
		count++
	}
	if zone != "" && count == 0 {
		return 0, ErrKeyNotFound
	}
	return count, nil
}

// ValidateItems runs SerialCodec.Validate over every inventory, bank, and
// equipped item serial and returns one Report per serial encountered.
func (d *SaveDocument) ValidateItems(codec *SerialCodec) ([]Report, error) {
	var serials []string
	for _, getter := range []func() ([]string, error){d.InventoryItems, d.BankItems, d.Equipped} {
		items, err := getter()
		if err != nil {
			return nil, err
		}
		serials = append(serials, items...)
	}
	reports := make([]Report, 0, len(serials))
	for _, s := range serials {
		item, err := codec.Decode(s)
		if err != nil {
			reports = append(reports, Report{Valid: false, Issues: []string{err.Error()}})
			continue
		}
		reports = append(reports, codec.Validate(item))
	}
	return reports, nil
}
