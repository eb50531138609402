package entity

import (
	"fmt"
	"sort"

	"github.com/penwyp/go-fleet-replay/internal/core/geo"
)

// Key identifies an entity across types
type Key struct {
	Type string
	ID   int
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%d]", k.Type, k.ID)
}

// Entity is the reconstructed state of one tracked record. Reference
// attributes hold *Entity (single) or []*Entity (array, nil slots allowed).
type Entity struct {
	Type  string
	ID    int
	attrs map[string]interface{}
}

func newEntity(typ string, id int) *Entity {
	return &Entity{Type: typ, ID: id, attrs: make(map[string]interface{})}
}

// Key returns the entity key
func (e *Entity) Key() Key {
	return Key{Type: e.Type, ID: e.ID}
}

// Get returns the stored attribute value
func (e *Entity) Get(name string) (interface{}, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// Names returns the attribute names in sorted order
func (e *Entity) Names() []string {
	names := make([]string, 0, len(e.attrs))
	for name := range e.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ref returns a single-reference attribute, nil when unset
func (e *Entity) Ref(name string) *Entity {
	ref, _ := e.attrs[name].(*Entity)
	return ref
}

// Refs returns a reference-array attribute
func (e *Entity) Refs(name string) []*Entity {
	refs, _ := e.attrs[name].([]*Entity)
	return refs
}

// Number returns a numeric attribute, zero when absent
func (e *Entity) Number(name string) float64 {
	switch n := e.attrs[name].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// Point returns a point attribute
func (e *Entity) Point(name string) (geo.Point, bool) {
	p, ok := e.attrs[name].(geo.Point)
	return p, ok
}

// Route returns a route attribute, nil when unset
func (e *Entity) Route(name string) *geo.Route {
	r, _ := e.attrs[name].(*geo.Route)
	return r
}

func (e *Entity) set(name string, value interface{}) {
	e.attrs[name] = value
}
