package entity

import (
	"fmt"
	"sort"

	"github.com/penwyp/go-fleet-replay/internal/core/geo"
	"github.com/penwyp/go-fleet-replay/internal/core/model"
)

// Store holds the reconstructed state of every entity, keyed by type and id
type Store struct {
	schema   *Schema
	entities map[string]map[int]*Entity
	adhoc    map[string]*TypeSchema
}

// NewStore creates an empty store for the given schema
func NewStore(schema *Schema) *Store {
	if schema == nil {
		schema = BikeSharing()
	}
	return &Store{
		schema:   schema,
		entities: make(map[string]map[int]*Entity),
		adhoc:    make(map[string]*TypeSchema),
	}
}

type deferredRef struct {
	entity *Entity
	name   string
	raw    interface{}
}

// Load builds every entity from the snapshot. References are resolved in a
// second pass once all entities of all types exist. On error the store is
// left untouched.
func (s *Store) Load(snap model.Snapshot) error {
	entities := make(map[string]map[int]*Entity, len(snap))
	adhoc := make(map[string]*TypeSchema)
	var deferred []deferredRef

	typeNames := make([]string, 0, len(snap))
	for typ := range snap {
		typeNames = append(typeNames, typ)
	}
	sort.Strings(typeNames)

	for _, typ := range typeNames {
		ts, ok := s.schema.Type(typ)
		if !ok {
			ts = &TypeSchema{Name: typ}
			adhoc[typ] = ts
		}
		byID := make(map[int]*Entity, len(snap[typ]))
		for i, raw := range snap[typ] {
			id, ok := model.AsID(raw["id"])
			if !ok {
				return model.NewValidationError("snapshot", "%s[%d] has no integer id", typ, i)
			}
			if _, dup := byID[id]; dup {
				return model.NewValidationError("snapshot", "duplicate id %d in %s", id, typ)
			}
			e := newEntity(typ, id)
			for name, value := range raw {
				if name == "id" {
					continue
				}
				if isReference(ts.Attribute(name), value) {
					deferred = append(deferred, deferredRef{entity: e, name: name, raw: value})
					continue
				}
				v, err := decodeValue(ts.Attribute(name), value)
				if err != nil {
					return model.NewValidationError("snapshot", "%s[%d].%s: %v", typ, id, name, err)
				}
				e.set(name, v)
			}
			byID[id] = e
		}
		entities[typ] = byID
	}

	lookup := func(typ string, id int) (*Entity, bool) {
		e, ok := entities[typ][id]
		return e, ok
	}
	for _, d := range deferred {
		ts := s.typeSchema(d.entity.Type, adhoc)
		v, err := resolveRef(ts.Attribute(d.name), d.name, d.raw, lookup)
		if err != nil {
			return fmt.Errorf("resolve %s.%s: %w", d.entity.Key(), d.name, err)
		}
		d.entity.set(d.name, v)
	}

	s.entities = entities
	s.adhoc = adhoc
	return nil
}

// Schema returns the store schema
func (s *Store) Schema() *Schema {
	return s.schema
}

// TypeSchema returns the declared schema of a type, or the plain schema used
// for types the snapshot introduced
func (s *Store) TypeSchema(typ string) *TypeSchema {
	return s.typeSchema(typ, s.adhoc)
}

func (s *Store) typeSchema(typ string, adhoc map[string]*TypeSchema) *TypeSchema {
	if ts, ok := s.schema.Type(typ); ok {
		return ts
	}
	if ts, ok := adhoc[typ]; ok {
		return ts
	}
	return &TypeSchema{Name: typ}
}

// Get returns an entity or a ReferenceError
func (s *Store) Get(typ string, id int) (*Entity, error) {
	e, ok := s.entities[typ][id]
	if !ok {
		return nil, &model.ReferenceError{Type: typ, ID: id}
	}
	return e, nil
}

// Resolve converts a wire value of the named attribute into its stored form,
// looking up referenced entities
func (s *Store) Resolve(typ, name string, raw interface{}) (interface{}, error) {
	attr := s.TypeSchema(typ).Attribute(name)
	if isReference(attr, raw) {
		return resolveRef(attr, name, raw, func(t string, id int) (*Entity, bool) {
			e, ok := s.entities[t][id]
			return e, ok
		})
	}
	v, err := decodeValue(attr, raw)
	if err != nil {
		return nil, model.NewValidationError("change", "%s.%s: %v", typ, name, err)
	}
	return v, nil
}

// ApplyAttribute overwrites one attribute with an already resolved value.
// It is the only mutation entry point after Load.
func (s *Store) ApplyAttribute(typ string, id int, name string, value interface{}) error {
	e, err := s.Get(typ, id)
	if err != nil {
		return err
	}
	e.set(name, value)
	return nil
}

// Types returns the loaded type names, schema types first
func (s *Store) Types() []string {
	var names []string
	seen := make(map[string]bool)
	for _, ts := range s.schema.Types() {
		if _, ok := s.entities[ts.Name]; ok {
			names = append(names, ts.Name)
			seen[ts.Name] = true
		}
	}
	var rest []string
	for typ := range s.entities {
		if !seen[typ] {
			rest = append(rest, typ)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// IDs returns the sorted ids of a type
func (s *Store) IDs(typ string) []int {
	ids := make([]int, 0, len(s.entities[typ]))
	for id := range s.entities[typ] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Count returns the number of entities of a type
func (s *Store) Count(typ string) int {
	return len(s.entities[typ])
}

// Materialize renders an entity as a JSON-friendly map, references as ids
func (s *Store) Materialize(typ string, id int) (map[string]interface{}, error) {
	e, err := s.Get(typ, id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(e.attrs)+1)
	out["id"] = e.ID
	for name, v := range e.attrs {
		out[name] = materializeValue(v)
	}
	return out, nil
}

func materializeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case *Entity:
		if val == nil {
			return nil
		}
		return val.ID
	case []*Entity:
		ids := make([]interface{}, len(val))
		for i, ref := range val {
			if ref != nil {
				ids[i] = ref.ID
			}
		}
		return ids
	case geo.Point:
		return map[string]interface{}{"latitude": val.Latitude, "longitude": val.Longitude}
	case *geo.Route:
		if val == nil {
			return nil
		}
		points := make([]interface{}, len(val.Points))
		for i, p := range val.Points {
			points[i] = materializeValue(p)
		}
		return map[string]interface{}{"points": points}
	default:
		return v
	}
}

func isReference(attr Attribute, raw interface{}) bool {
	if _, ok := model.AsIDReference(raw); ok {
		return true
	}
	return attr.Kind == KindRef || attr.Kind == KindRefArray
}

type lookupFunc func(typ string, id int) (*Entity, bool)

// resolveRef turns a marker or a bare id (array) into entity pointers.
// A missing referent is a ReferenceError; null ids stay empty slots.
func resolveRef(attr Attribute, name string, raw interface{}, lookup lookupFunc) (interface{}, error) {
	target := attr.Target
	multi := attr.Kind == KindRefArray
	var ids []*int

	if ref, ok := model.AsIDReference(raw); ok {
		target = ref.Type
		multi = ref.Multi
		ids = ref.IDs
	} else {
		switch v := raw.(type) {
		case nil:
			if multi {
				return []*Entity(nil), nil
			}
			return (*Entity)(nil), nil
		case []interface{}:
			if !multi {
				return nil, model.NewValidationError("reference", "%s expects a single id, got an array", name)
			}
			ids = make([]*int, len(v))
			for i, el := range v {
				if el == nil {
					continue
				}
				id, ok := model.AsID(el)
				if !ok {
					return nil, model.NewValidationError("reference", "%s[%d] is not an id: %v", name, i, el)
				}
				ids[i] = &id
			}
		default:
			id, ok := model.AsID(v)
			if !ok || multi {
				return nil, model.NewValidationError("reference", "%s has an invalid id value: %v", name, raw)
			}
			ids = []*int{&id}
		}
	}

	if target == "" {
		return nil, model.NewValidationError("reference", "%s has no target type", name)
	}

	resolved := make([]*Entity, len(ids))
	for i, id := range ids {
		if id == nil {
			continue
		}
		e, ok := lookup(target, *id)
		if !ok {
			return nil, &model.ReferenceError{Type: target, ID: *id, Attribute: name}
		}
		resolved[i] = e
	}

	if multi {
		return resolved, nil
	}
	if len(resolved) == 0 {
		return (*Entity)(nil), nil
	}
	return resolved[0], nil
}

func decodeValue(attr Attribute, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	switch attr.Kind {
	case KindPoint:
		p, err := decodePoint(raw)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindRoute:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("route must be an object")
		}
		rawPoints, ok := m["points"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("route has no points")
		}
		route := &geo.Route{Points: make([]geo.Point, len(rawPoints))}
		for i, rp := range rawPoints {
			p, err := decodePoint(rp)
			if err != nil {
				return nil, fmt.Errorf("route point %d: %w", i, err)
			}
			route.Points[i] = p
		}
		return route, nil
	default:
		return raw, nil
	}
}

func decodePoint(raw interface{}) (geo.Point, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return geo.Point{}, fmt.Errorf("point must be an object")
	}
	lat, okLat := m["latitude"].(float64)
	lon, okLon := m["longitude"].(float64)
	if !okLat || !okLon {
		return geo.Point{}, fmt.Errorf("point needs numeric latitude and longitude")
	}
	return geo.Point{Latitude: lat, Longitude: lon}, nil
}
