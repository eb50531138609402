package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/bytedance/sonic"
)

// RawEntity is one entity record of the snapshot as decoded from JSON
type RawEntity map[string]interface{}

// Snapshot is the static entity file, keyed by entity type
type Snapshot map[string][]RawEntity

// ChangeEntry is one timestamped batch of events
type ChangeEntry struct {
	Time   float64 `json:"time"`
	Events []Event `json:"events"`
}

// Event is a named occurrence with reversible attribute deltas per entity type
type Event struct {
	Name    string             `json:"name"`
	Changes map[string][]Delta `json:"changes"`
}

// Delta carries the old/new pairs of every changed attribute of one entity
type Delta struct {
	ID         int
	Attributes []AttributeChange
}

// AttributeChange is a single {old, new} pair
type AttributeChange struct {
	Name string
	Old  interface{}
	New  interface{}
}

// Value returns the new value when forward is set and the old one otherwise
func (c AttributeChange) Value(forward bool) interface{} {
	if forward {
		return c.New
	}
	return c.Old
}

// Attribute returns the change for a named attribute
func (d Delta) Attribute(name string) (AttributeChange, bool) {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeChange{}, false
}

// UnmarshalJSON decodes `{id, attr: {old, new}, ...}`. Attributes are kept
// sorted by name so application order does not depend on map iteration.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, ok := AsID(raw["id"])
	if !ok {
		return fmt.Errorf("delta without a valid id: %v", raw["id"])
	}
	d.ID = id
	d.Attributes = d.Attributes[:0]

	for name, v := range raw {
		if name == "id" {
			continue
		}
		pair, ok := v.(map[string]interface{})
		if !ok {
			return fmt.Errorf("attribute %q of entity %d is not an {old, new} pair", name, id)
		}
		_, hasOld := pair["old"]
		_, hasNew := pair["new"]
		if !hasOld || !hasNew {
			return fmt.Errorf("attribute %q of entity %d is missing old or new", name, id)
		}
		d.Attributes = append(d.Attributes, AttributeChange{Name: name, Old: pair["old"], New: pair["new"]})
	}

	sort.Slice(d.Attributes, func(i, j int) bool {
		return d.Attributes[i].Name < d.Attributes[j].Name
	})
	return nil
}

// MarshalJSON writes the wire shape back out
func (d Delta) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Attributes)+1)
	out["id"] = d.ID
	for _, a := range d.Attributes {
		out[a.Name] = map[string]interface{}{"old": a.Old, "new": a.New}
	}
	return sonic.Marshal(out)
}

// Page is a contiguous time-ordered slice of change entries
type Page struct {
	Index   int
	Start   float64
	End     float64
	Entries []ChangeEntry
}

// Len returns the number of entries in the page
func (p *Page) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Entries)
}

// IDReference marks an attribute value that points at other entities
type IDReference struct {
	Type string
	IDs  []*int
	// Multi is set when the marker carries an array of ids
	Multi bool
}

// AsIDReference recognizes the `{type, id}` marker used by the history files
func AsIDReference(v interface{}) (IDReference, bool) {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) != 2 {
		return IDReference{}, false
	}
	typ, ok := m["type"].(string)
	if !ok {
		return IDReference{}, false
	}
	raw, ok := m["id"]
	if !ok {
		return IDReference{}, false
	}
	ref := IDReference{Type: typ}
	if arr, isArr := raw.([]interface{}); isArr {
		ref.Multi = true
		ref.IDs = make([]*int, len(arr))
		for i, el := range arr {
			if el == nil {
				continue
			}
			id, ok := AsID(el)
			if !ok {
				return IDReference{}, false
			}
			ref.IDs[i] = &id
		}
		return ref, true
	}
	if raw == nil {
		ref.IDs = []*int{nil}
		return ref, true
	}
	id, ok := AsID(raw)
	if !ok {
		return IDReference{}, false
	}
	ref.IDs = []*int{&id}
	return ref, true
}

// AsID converts a decoded JSON number to an integer id
func AsID(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
