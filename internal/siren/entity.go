package siren

// Entity is a resolved representation of one instance. It is produced per
// call and never cached.
type Entity struct {
	Class           []string
	Rel             []string // set when nested in a parent
	Title           string
	Properties      []Property
	Entities        []SubEntity
	Links           []Link
	Actions         []Action
	ClassSuppressed bool
}

// Property is one name/value pair of an entity, in declaration order.
type Property struct {
	Name  string
	Value any
}

// SubEntity is either an embedded representation or an embedded link.
// Exactly one of Entity and Link is set.
type SubEntity struct {
	Rel    []string
	Entity *Entity
	Link   *Link
}

// Embedded reports whether the sub-entity carries a full representation.
func (s SubEntity) Embedded() bool { return s.Entity != nil }

// Link is a resolved navigational link. Struct fields of this type (or
// []Link) contribute links at runtime; Href may then be a template.
type Link struct {
	Rel   []string `json:"rel"`
	Href  string   `json:"href"`
	Title string   `json:"title,omitempty"`
	Class []string `json:"class,omitempty"`
	Type  string   `json:"type,omitempty"`
}

// Action is a resolved action affordance. Struct fields of this type (or
// []Action) contribute actions at runtime.
type Action struct {
	Name   string        `json:"name"`
	Class  []string      `json:"class,omitempty"`
	Method string        `json:"method,omitempty"`
	Href   string        `json:"href"`
	Title  string        `json:"title,omitempty"`
	Type   string        `json:"type,omitempty"`
	Fields []ActionField `json:"fields,omitempty"`
}

// ActionField describes one expected input of an action.
type ActionField struct {
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Title       string   `json:"title,omitempty"`
	Value       string   `json:"value,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Required    bool     `json:"required,omitempty"`
	MaxLength   int      `json:"maxLength,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Step        *float64 `json:"step,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// Property returns the value of the named property.
func (e *Entity) Property(name string) (any, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// Link returns the first link carrying rel.
func (e *Entity) Link(rel string) (*Link, bool) {
	for i := range e.Links {
		for _, r := range e.Links[i].Rel {
			if r == rel {
				return &e.Links[i], true
			}
		}
	}
	return nil, false
}

// Action returns the named action.
func (e *Entity) Action(name string) (*Action, bool) {
	for i := range e.Actions {
		if e.Actions[i].Name == name {
			return &e.Actions[i], true
		}
	}
	return nil, false
}

// Depth returns the nesting depth of embedded sub-entities below e
// (0 for an entity without embedded sub-entities).
func (e *Entity) Depth() int {
	deepest := 0
	for _, sub := range e.Entities {
		if sub.Entity == nil {
			continue
		}
		if d := sub.Entity.Depth() + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}
