package entity

// Kind describes how an attribute value is stored and resolved
type Kind int

const (
	// KindPlain is any JSON value kept as decoded
	KindPlain Kind = iota
	// KindPoint is a geographic point
	KindPoint
	// KindRoute is a route of geographic points
	KindRoute
	// KindRef points at one entity of the target type, or nothing
	KindRef
	// KindRefArray is a slice of slots, each pointing at an entity or empty
	KindRefArray
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindPoint:
		return "point"
	case KindRoute:
		return "route"
	case KindRef:
		return "ref"
	case KindRefArray:
		return "ref[]"
	default:
		return "unknown"
	}
}

// Attribute declares the kind of one named attribute
type Attribute struct {
	Kind   Kind
	Target string // entity type for KindRef and KindRefArray
}

// Motion declares how entities of a type move along routes
type Motion struct {
	RouteAttr string
	// Speed returns the entity's speed in distance units per second
	Speed func(e *Entity) float64
}

// TypeSchema is the static declaration of one entity type
type TypeSchema struct {
	Name         string
	Attributes   map[string]Attribute
	PositionAttr string
	Motion       *Motion
}

// Attribute returns the declared attribute, defaulting to a plain value
func (t *TypeSchema) Attribute(name string) Attribute {
	if a, ok := t.Attributes[name]; ok {
		return a
	}
	return Attribute{Kind: KindPlain}
}

// Schema is the ordered set of entity types known to the store.
// Type order fixes the order in which change lists are applied.
type Schema struct {
	types []*TypeSchema
	index map[string]*TypeSchema
}

// NewSchema builds a schema from type declarations in application order
func NewSchema(types ...*TypeSchema) *Schema {
	s := &Schema{index: make(map[string]*TypeSchema, len(types))}
	for _, t := range types {
		s.types = append(s.types, t)
		s.index[t.Name] = t
	}
	return s
}

// Type looks up a type declaration
func (s *Schema) Type(name string) (*TypeSchema, bool) {
	t, ok := s.index[name]
	return t, ok
}

// Types returns the declarations in application order
func (s *Schema) Types() []*TypeSchema {
	return s.types
}

// Names returns the type names in application order
func (s *Schema) Names() []string {
	names := make([]string, len(s.types))
	for i, t := range s.types {
		names[i] = t.Name
	}
	return names
}

// BikeSharing returns the schema of the bike-sharing simulator history
func BikeSharing() *Schema {
	users := &TypeSchema{
		Name: "users",
		Attributes: map[string]Attribute{
			"bike":               {Kind: KindRef, Target: "bikes"},
			"destinationStation": {Kind: KindRef, Target: "stations"},
			"reservations":       {Kind: KindRefArray, Target: "reservations"},
			"position":           {Kind: KindPoint},
			"route":              {Kind: KindRoute},
		},
		PositionAttr: "position",
		Motion: &Motion{
			RouteAttr: "route",
			Speed:     userSpeed,
		},
	}
	bikes := &TypeSchema{
		Name: "bikes",
		Attributes: map[string]Attribute{
			"station": {Kind: KindRef, Target: "stations"},
		},
	}
	stations := &TypeSchema{
		Name: "stations",
		Attributes: map[string]Attribute{
			"position": {Kind: KindPoint},
			"bikes":    {Kind: KindRefArray, Target: "bikes"},
		},
		PositionAttr: "position",
	}
	reservations := &TypeSchema{
		Name: "reservations",
		Attributes: map[string]Attribute{
			"user":    {Kind: KindRef, Target: "users"},
			"station": {Kind: KindRef, Target: "stations"},
			"bike":    {Kind: KindRef, Target: "bikes"},
		},
	}
	return NewSchema(users, bikes, stations, reservations)
}

// userSpeed is the cycling velocity while a bike is held, walking otherwise
func userSpeed(e *Entity) float64 {
	if e.Ref("bike") != nil {
		return e.Number("cyclingVelocity")
	}
	return e.Number("walkingVelocity")
}
