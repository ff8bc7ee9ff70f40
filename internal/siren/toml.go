package siren

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

/*
 * TOML metadata documents.
 *
 * Declares EntityMeta for types bound by name in a Registry:
 *
 *	[[entity]]
 *	type  = "review"
 *	class = ["review"]
 *	uri   = "/reviews/{id}"
 *
 *	[entity.fields.course]
 *	role    = "entity"
 *	nesting = "linked"
 *
 *	[[entity.link]]
 *	rel      = ["course"]
 *	href     = "/courses/{courseId}"
 *	optional = true
 *
 *	[[entity.action]]
 *	name   = "edit"
 *	method = "PUT"
 *	href   = "/reviews/{id}"
 *
 *	[[entity.action.field]]
 *	name     = "body"
 *	required = true
 *
 * Conditions are inline tables: condition = { field = "status", op = "eq", value = "open" }.
 */

type tomlDocument struct {
	Entity []tomlEntity `toml:"entity"`
}

type tomlEntity struct {
	Type          string               `toml:"type"`
	Class         []string             `toml:"class"`
	URI           string               `toml:"uri"`
	Title         string               `toml:"title"`
	SuppressClass bool                 `toml:"suppress_class"`
	Include       string               `toml:"include"`
	MaxDepth      int                  `toml:"max_depth"`
	Fields        map[string]tomlField `toml:"fields"`
	Links         []tomlLink           `toml:"link"`
	Actions       []tomlAction         `toml:"action"`
}

type tomlField struct {
	Name    string   `toml:"name"`
	Role    string   `toml:"role"`
	Nesting string   `toml:"nesting"`
	Rel     []string `toml:"rel"`
	Include string   `toml:"include"`
}

type tomlLink struct {
	Rel       []string       `toml:"rel"`
	Href      string         `toml:"href"`
	Title     string         `toml:"title"`
	Class     []string       `toml:"class"`
	Type      string         `toml:"type"`
	Optional  bool           `toml:"optional"`
	Condition *tomlCondition `toml:"condition"`
}

type tomlAction struct {
	Name      string            `toml:"name"`
	Title     string            `toml:"title"`
	Method    string            `toml:"method"`
	Href      string            `toml:"href"`
	Type      string            `toml:"type"`
	Class     []string          `toml:"class"`
	Optional  bool              `toml:"optional"`
	Condition *tomlCondition    `toml:"condition"`
	Fields    []ActionFieldMeta `toml:"field"`
}

type tomlCondition struct {
	Field  string `toml:"field"`
	Op     string `toml:"op"`
	Value  any    `toml:"value"`
	Values []any  `toml:"values"`
}

// LoadTOML parses a metadata document and registers every declared entity
// in reg. Entity type names must already be bound with Registry.Name.
// Nothing is registered when the document has an error.
func LoadTOML(data []byte, reg *Registry) error {
	var doc tomlDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse metadata document: %w", err)
	}

	type pending struct {
		name string
		meta EntityMeta
	}
	decls := make([]pending, 0, len(doc.Entity))
	for i, e := range doc.Entity {
		if e.Type == "" {
			return fmt.Errorf("entity %d: missing type", i)
		}
		if _, ok := reg.Lookup(e.Type); !ok {
			return fmt.Errorf("entity %q: type name not registered", e.Type)
		}
		meta, err := e.toMeta()
		if err != nil {
			return fmt.Errorf("entity %q: %w", e.Type, err)
		}
		decls = append(decls, pending{name: e.Type, meta: meta})
	}

	for _, d := range decls {
		t, _ := reg.Lookup(d.name)
		reg.Register(t, d.meta)
	}
	return nil
}

func (e tomlEntity) toMeta() (EntityMeta, error) {
	include, err := ParseInclusionPolicy(e.Include)
	if err != nil {
		return EntityMeta{}, err
	}
	meta := EntityMeta{
		Class:                 e.Class,
		URI:                   e.URI,
		Title:                 e.Title,
		SuppressClassProperty: e.SuppressClass,
		Include:               include,
		MaxDepth:              e.MaxDepth,
	}

	if len(e.Fields) > 0 {
		meta.Fields = make(map[string]FieldSpec, len(e.Fields))
	}
	for key, f := range e.Fields {
		spec, err := f.toSpec()
		if err != nil {
			return EntityMeta{}, fmt.Errorf("field %s: %w", key, err)
		}
		meta.Fields[key] = spec
	}

	for i, l := range e.Links {
		cond, err := l.Condition.toCondition()
		if err != nil {
			return EntityMeta{}, fmt.Errorf("link %d: %w", i, err)
		}
		meta.Links = append(meta.Links, LinkMeta{
			Rel:       l.Rel,
			Href:      l.Href,
			Title:     l.Title,
			Class:     l.Class,
			Type:      l.Type,
			Optional:  l.Optional,
			Condition: cond,
		})
	}

	for _, a := range e.Actions {
		cond, err := a.Condition.toCondition()
		if err != nil {
			return EntityMeta{}, fmt.Errorf("action %s: %w", a.Name, err)
		}
		meta.Actions = append(meta.Actions, ActionMeta{
			Name:      a.Name,
			Title:     a.Title,
			Method:    a.Method,
			Href:      a.Href,
			Type:      a.Type,
			Class:     a.Class,
			Fields:    a.Fields,
			Optional:  a.Optional,
			Condition: cond,
		})
	}
	return meta, nil
}

func (f tomlField) toSpec() (FieldSpec, error) {
	role, err := ParseRole(f.Role)
	if err != nil {
		return FieldSpec{}, err
	}
	nesting, err := ParseNesting(f.Nesting)
	if err != nil {
		return FieldSpec{}, err
	}
	include, err := ParseInclusionPolicy(f.Include)
	if err != nil {
		return FieldSpec{}, err
	}
	return FieldSpec{Name: f.Name, Role: role, Nesting: nesting, Rel: f.Rel, Include: include}, nil
}

func (c *tomlCondition) toCondition() (*Condition, error) {
	if c == nil {
		return nil, nil
	}
	op, err := ParseOp(c.Op)
	if err != nil {
		return nil, err
	}
	if c.Field == "" {
		return nil, fmt.Errorf("condition has no field")
	}
	return &Condition{Field: c.Field, Op: op, Value: c.Value, Values: c.Values}, nil
}
