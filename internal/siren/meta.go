package siren

import (
	"fmt"
	"strings"
)

/*
 * Declared metadata.
 *
 * EntityMeta is the raw, declarative description of how a Go type renders.
 * It is what a MetadataSource answers; the DescriptorCache compiles it once
 * per type into an immutable TypeDescriptor (templates parsed, field roles
 * partitioned, accessors bound).
 *
 * Zero values mean "not declared" everywhere so partial declarations from
 * struct tags, registries and TOML files can be layered.
 */

// Role is the part a struct field plays in the rendered entity.
type Role int

const (
	RoleInfer Role = iota // decided from the field type at descriptor build
	RoleProperty
	RoleSubEntity
	RoleLink
	RoleAction
	RoleIgnored
)

var roleNames = map[Role]string{
	RoleInfer:     "infer",
	RoleProperty:  "property",
	RoleSubEntity: "entity",
	RoleLink:      "link",
	RoleAction:    "action",
	RoleIgnored:   "ignored",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole maps a declared role name to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "infer":
		return RoleInfer, nil
	case "property":
		return RoleProperty, nil
	case "entity", "subentity":
		return RoleSubEntity, nil
	case "link":
		return RoleLink, nil
	case "action":
		return RoleAction, nil
	case "ignored", "ignore", "-":
		return RoleIgnored, nil
	default:
		return RoleInfer, fmt.Errorf("unknown field role %q", s)
	}
}

// Nesting selects how a sub-entity appears inside its parent.
type Nesting int

const (
	NestingDefault Nesting = iota // embedded
	Embedded
	Linked
)

func (n Nesting) String() string {
	switch n {
	case Linked:
		return "linked"
	default:
		return "embedded"
	}
}

// ParseNesting maps a declared nesting name to a Nesting.
func ParseNesting(s string) (Nesting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return NestingDefault, nil
	case "embedded":
		return Embedded, nil
	case "linked":
		return Linked, nil
	default:
		return NestingDefault, fmt.Errorf("unknown nesting %q", s)
	}
}

// InclusionPolicy controls how null and empty property values are rendered.
type InclusionPolicy int

const (
	IncludeDefault  InclusionPolicy = iota // inherit from the type, then NonNull
	IncludeNonNull                         // omit nil values
	IncludeAlways                          // emit nil values as explicit null
	IncludeNonEmpty                        // omit nil values, empty strings and empty collections
)

// ParseInclusionPolicy maps a declared policy name to an InclusionPolicy.
func ParseInclusionPolicy(s string) (InclusionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return IncludeDefault, nil
	case "nonnull", "non_null":
		return IncludeNonNull, nil
	case "always":
		return IncludeAlways, nil
	case "nonempty", "non_empty":
		return IncludeNonEmpty, nil
	default:
		return IncludeDefault, fmt.Errorf("unknown inclusion policy %q", s)
	}
}

// EntityMeta is the declared metadata of one type.
type EntityMeta struct {
	Class                 []string
	URI                   string // self URI template; empty means no self link
	Title                 string // optional title template
	SuppressClassProperty bool
	Include               InclusionPolicy
	MaxDepth              int // honored on root types only
	Links                 []LinkMeta
	Actions               []ActionMeta
	Fields                map[string]FieldSpec // keyed by Go field name or rendered name
}

// FieldSpec declares a field's role outside of struct tags.
type FieldSpec struct {
	Name    string
	Role    Role
	Nesting Nesting
	Rel     []string
	Include InclusionPolicy
}

// LinkMeta declares a static link.
type LinkMeta struct {
	Rel       []string
	Href      string
	Title     string
	Class     []string
	Type      string // media type hint
	Optional  bool   // omit instead of failing when Href cannot resolve
	Condition *Condition
}

// ActionMeta declares an action affordance.
type ActionMeta struct {
	Name      string
	Title     string
	Method    string
	Href      string
	Type      string // request content type
	Class     []string
	Fields    []ActionFieldMeta
	Optional  bool
	Condition *Condition
}

// ActionFieldMeta declares one input of an action. Value may be a template,
// in which case it is resolved against the instance.
type ActionFieldMeta struct {
	Name        string   `toml:"name"`
	Type        string   `toml:"type"` // input kind: text, hidden, number, email, ...
	Title       string   `toml:"title"`
	Value       string   `toml:"value"`
	Placeholder string   `toml:"placeholder"`
	Pattern     string   `toml:"pattern"`
	Required    bool     `toml:"required"`
	MaxLength   int      `toml:"max_length"`
	Min         *float64 `toml:"min"`
	Max         *float64 `toml:"max"`
	Step        *float64 `toml:"step"`
	Options     []string `toml:"options"`
}

// Condition gates a link or action on an instance field value.
type Condition struct {
	Field  string // dotted path, same syntax as a placeholder
	Op     Op
	Value  any
	Values []any // for OpIn
}
