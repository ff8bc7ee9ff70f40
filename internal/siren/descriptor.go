package siren

import (
	"fmt"
	"reflect"

	"github.com/solatis/siren/internal/types"
)

/*
 * Type descriptors.
 *
 * Compiles declared EntityMeta plus struct tags into an immutable
 * TypeDescriptor, once per type. After compilation nothing about the type is
 * looked up by name again: templates are parsed, conditions validated and
 * every field carries a bound accessor.
 *
 * Compilation workflow:
 *   1. Query the metadata source (absence is fine for nested plain values)
 *   2. Partition every struct field into exactly one role; exported embedded
 *      structs are flattened the way encoding/json promotes them
 *   3. Resolve names (siren tag > json tag > lower-camel Go name), nesting,
 *      relations and inclusion policy
 *   4. Parse the self/title templates, link and action declarations
 *   5. Reject names that would collide in the rendered entity
 *
 * Role inference for untagged fields: siren.Link/siren.Action (or slices of
 * them) -> link/action; a struct, pointer or slice of a type with declared
 * metadata -> embedded sub-entity; everything else -> property.
 */

var (
	linkType   = reflect.TypeOf(Link{})
	actionType = reflect.TypeOf(Action{})
	bytesType  = reflect.TypeOf([]byte(nil))
)

// TypeDescriptor is the compiled, immutable rendering description of a type.
type TypeDescriptor struct {
	Type          reflect.Type
	HasMetadata   bool
	Class         []string
	URI           *Template // nil when no self URI is declared
	Title         *Template
	SuppressClass bool
	Include       InclusionPolicy
	MaxDepth      int
	Links         []LinkDescriptor
	Actions       []ActionDescriptor
	Fields        []FieldMeta
	byName        map[string]int
}

// Field looks up a field by rendered name or Go name.
func (d *TypeDescriptor) Field(name string) (*FieldMeta, bool) {
	i, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return &d.Fields[i], true
}

// FieldMeta is the compiled role of one struct field.
type FieldMeta struct {
	Name       string // rendered name
	GoName     string
	Role       Role
	Nesting    Nesting
	Rel        []string
	Include    InclusionPolicy // effective policy for properties
	Collection bool            // slice or array field
	Elem       reflect.Type    // sub-entity element type (pointers removed)

	// Read returns the field value of a struct value of the owning type.
	// ok=false when an embedded pointer on the way is nil. Nil for
	// unexported fields.
	Read func(reflect.Value) (reflect.Value, bool)
}

// LinkDescriptor is a compiled LinkMeta.
type LinkDescriptor struct {
	Rel       []string
	Href      *Template
	Title     string
	Class     []string
	Type      string
	Optional  bool
	Condition *Condition
	condPath  []string
}

// ActionDescriptor is a compiled ActionMeta.
type ActionDescriptor struct {
	Name      string
	Title     string
	Method    string
	Href      *Template
	Type      string
	Class     []string
	Fields    []ActionFieldDescriptor
	Optional  bool
	Condition *Condition
	condPath  []string
}

// ActionFieldDescriptor is a declared action input. Default is set when the
// declared value contains placeholders.
type ActionFieldDescriptor struct {
	ActionFieldMeta
	Default *Template
}

func buildDescriptor(t reflect.Type, src MetadataSource) (*TypeDescriptor, error) {
	d := &TypeDescriptor{
		Type:    t,
		Include: IncludeNonNull,
		byName:  make(map[string]int),
	}

	var meta EntityMeta
	if m, ok := src.MetadataFor(t); ok && m != nil {
		meta = *m
		d.HasMetadata = true
	}

	d.Class = append([]string(nil), meta.Class...)
	d.SuppressClass = meta.SuppressClassProperty
	d.MaxDepth = meta.MaxDepth
	if meta.Include != IncludeDefault {
		d.Include = meta.Include
	}

	var err error
	if meta.URI != "" {
		if d.URI, err = ParseTemplate(meta.URI); err != nil {
			return nil, metaErr(t, "self uri: %v", err)
		}
	}
	if meta.Title != "" {
		if d.Title, err = ParseTemplate(meta.Title); err != nil {
			return nil, metaErr(t, "title: %v", err)
		}
	}

	if t.Kind() == reflect.Struct {
		if err := collectFields(d, t, nil, src, meta.Fields); err != nil {
			return nil, err
		}
	}

	for i, lm := range meta.Links {
		ld, err := compileLink(lm)
		if err != nil {
			return nil, metaErr(t, "link %d: %v", i, err)
		}
		d.Links = append(d.Links, ld)
	}
	for i, am := range meta.Actions {
		ad, err := compileAction(am)
		if err != nil {
			return nil, metaErr(t, "action %d (%s): %v", i, am.Name, err)
		}
		d.Actions = append(d.Actions, ad)
	}

	if err := checkCollisions(d); err != nil {
		return nil, err
	}
	return d, nil
}

// collectFields appends the fields of t (reached through index) to d.
func collectFields(d *TypeDescriptor, t reflect.Type, index []int, src MetadataSource, specs map[string]FieldSpec) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		idx := append(append([]int(nil), index...), i)

		tag, err := parseFieldTag(sf)
		if err != nil {
			return metaErr(d.Type, "%v", err)
		}

		// Promote fields of exported embedded structs. Unexported embedded
		// structs yield read-only values and are ignored instead.
		if sf.Anonymous && !tag.Present && sf.IsExported() {
			if et := indirectType(sf.Type); et.Kind() == reflect.Struct {
				if err := collectFields(d, et, idx, src, specs); err != nil {
					return err
				}
				continue
			}
		}

		if !sf.IsExported() {
			d.addField(FieldMeta{Name: sf.Name, GoName: sf.Name, Role: RoleIgnored})
			continue
		}

		spec := tag.Spec
		name := tag.Name
		if name == "" {
			name = jsonName(sf)
		}
		if name == "" {
			name = lowerFirst(sf.Name)
		}
		if override, ok := specs[sf.Name]; ok {
			spec = mergeSpec(spec, override)
		} else if override, ok := specs[name]; ok {
			spec = mergeSpec(spec, override)
		}
		if spec.Name != "" {
			name = spec.Name
		}
		if !tag.Present && spec.Role == RoleInfer && jsonIgnored(sf) {
			spec.Role = RoleIgnored
		}

		f := FieldMeta{
			Name:    name,
			GoName:  sf.Name,
			Role:    spec.Role,
			Nesting: spec.Nesting,
			Rel:     spec.Rel,
			Include: spec.Include,
			Read:    fieldReader(idx),
		}
		if err := classifyField(&f, sf.Type, src); err != nil {
			return metaErr(d.Type, "field %s: %v", sf.Name, err)
		}
		if f.Include == IncludeDefault {
			f.Include = d.Include
		}
		if err := d.addField(f); err != nil {
			return err
		}
	}
	return nil
}

// classifyField settles role, nesting, relation and element type.
func classifyField(f *FieldMeta, ft reflect.Type, src MetadataSource) error {
	elem := ft
	if (ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array) && ft != bytesType {
		elem = ft.Elem()
		f.Collection = true
	}
	base := indirectType(elem)

	if f.Role == RoleInfer {
		switch {
		case base == linkType:
			f.Role = RoleLink
		case base == actionType:
			f.Role = RoleAction
		case base.Kind() == reflect.Struct && hasMetadata(src, base):
			f.Role = RoleSubEntity
		default:
			f.Role = RoleProperty
		}
	}

	switch f.Role {
	case RoleSubEntity:
		if base.Kind() != reflect.Struct && base.Kind() != reflect.Interface {
			return fmt.Errorf("sub-entity must be a struct, pointer or collection of structs, got %s", ft)
		}
		f.Elem = base
		if f.Nesting == NestingDefault {
			f.Nesting = Embedded
		}
		if len(f.Rel) == 0 {
			f.Rel = []string{f.Name}
		}
	case RoleLink:
		if base != linkType && !(base.Kind() == reflect.String && !f.Collection) {
			return fmt.Errorf("link field must be string, Link or []Link, got %s", ft)
		}
		if len(f.Rel) == 0 {
			f.Rel = []string{f.Name}
		}
	case RoleAction:
		if base != actionType {
			return fmt.Errorf("action field must be Action or []Action, got %s", ft)
		}
	}
	return nil
}

func (d *TypeDescriptor) addField(f FieldMeta) error {
	d.Fields = append(d.Fields, f)
	pos := len(d.Fields) - 1
	if f.Role != RoleIgnored || f.Read != nil {
		if prev, dup := d.byName[f.Name]; dup && d.Fields[prev].GoName != f.GoName {
			return metaErr(d.Type, "fields %s and %s both render as %q", d.Fields[prev].GoName, f.GoName, f.Name)
		}
		d.byName[f.Name] = pos
	}
	if _, taken := d.byName[f.GoName]; !taken {
		d.byName[f.GoName] = pos
	}
	return nil
}

// checkCollisions rejects property names that also appear as a relation of
// a sub-entity or link of the same entity.
func checkCollisions(d *TypeDescriptor) error {
	rels := make(map[string]string)
	if d.URI != nil {
		rels["self"] = "self link"
	}
	for _, l := range d.Links {
		for _, r := range l.Rel {
			rels[r] = "link"
		}
	}
	for _, f := range d.Fields {
		if f.Role == RoleSubEntity || f.Role == RoleLink {
			for _, r := range f.Rel {
				rels[r] = f.Role.String() + " " + f.GoName
			}
		}
	}
	for _, f := range d.Fields {
		if f.Role != RoleProperty {
			continue
		}
		if owner, clash := rels[f.Name]; clash {
			return metaErr(d.Type, "property %q collides with relation of %s", f.Name, owner)
		}
	}
	return nil
}

func compileLink(lm LinkMeta) (LinkDescriptor, error) {
	if len(lm.Rel) == 0 {
		return LinkDescriptor{}, fmt.Errorf("link has no rel")
	}
	href, err := ParseTemplate(lm.Href)
	if err != nil {
		return LinkDescriptor{}, err
	}
	condPath, err := compileCondition(lm.Condition)
	if err != nil {
		return LinkDescriptor{}, err
	}
	return LinkDescriptor{
		Rel:       append([]string(nil), lm.Rel...),
		Href:      href,
		Title:     lm.Title,
		Class:     append([]string(nil), lm.Class...),
		Type:      lm.Type,
		Optional:  lm.Optional,
		Condition: lm.Condition,
		condPath:  condPath,
	}, nil
}

func compileAction(am ActionMeta) (ActionDescriptor, error) {
	if am.Name == "" {
		return ActionDescriptor{}, fmt.Errorf("action has no name")
	}
	href, err := ParseTemplate(am.Href)
	if err != nil {
		return ActionDescriptor{}, err
	}
	condPath, err := compileCondition(am.Condition)
	if err != nil {
		return ActionDescriptor{}, err
	}
	ad := ActionDescriptor{
		Name:      am.Name,
		Title:     am.Title,
		Method:    am.Method,
		Href:      href,
		Type:      am.Type,
		Class:     append([]string(nil), am.Class...),
		Optional:  am.Optional,
		Condition: am.Condition,
		condPath:  condPath,
	}
	seen := make(map[string]bool, len(am.Fields))
	for _, fm := range am.Fields {
		if fm.Name == "" {
			return ActionDescriptor{}, fmt.Errorf("action field has no name")
		}
		if seen[fm.Name] {
			return ActionDescriptor{}, fmt.Errorf("duplicate action field %q", fm.Name)
		}
		seen[fm.Name] = true
		fd := ActionFieldDescriptor{ActionFieldMeta: fm}
		if fm.Value != "" {
			tmpl, err := ParseTemplate(fm.Value)
			if err != nil {
				return ActionDescriptor{}, fmt.Errorf("field %s value: %w", fm.Name, err)
			}
			if !tmpl.IsLiteral() {
				fd.Default = tmpl
			}
		}
		ad.Fields = append(ad.Fields, fd)
	}
	return ad, nil
}

func compileCondition(c *Condition) ([]string, error) {
	if c == nil {
		return nil, nil
	}
	if c.Op == OpUnspecified {
		return nil, fmt.Errorf("condition on %q has no operator", c.Field)
	}
	return parsePlaceholder(c.Field)
}

func mergeSpec(base, override FieldSpec) FieldSpec {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.Role != RoleInfer {
		base.Role = override.Role
	}
	if override.Nesting != NestingDefault {
		base.Nesting = override.Nesting
		if base.Role == RoleInfer {
			base.Role = RoleSubEntity
		}
	}
	if len(override.Rel) > 0 {
		base.Rel = override.Rel
	}
	if override.Include != IncludeDefault {
		base.Include = override.Include
	}
	return base
}

func hasMetadata(src MetadataSource, t reflect.Type) bool {
	_, ok := src.MetadataFor(t)
	return ok
}

func jsonIgnored(sf reflect.StructField) bool {
	return sf.Tag.Get("json") == "-"
}

// fieldReader binds an accessor for the field at index, dereferencing
// embedded pointers on the way.
func fieldReader(index []int) func(reflect.Value) (reflect.Value, bool) {
	if len(index) == 1 {
		i := index[0]
		return func(v reflect.Value) (reflect.Value, bool) {
			return v.Field(i), true
		}
	}
	return func(v reflect.Value) (reflect.Value, bool) {
		for n, i := range index {
			if n > 0 && v.Kind() == reflect.Pointer {
				if v.IsNil() {
					return reflect.Value{}, false
				}
				v = v.Elem()
			}
			v = v.Field(i)
		}
		return v, true
	}
}

func metaErr(t reflect.Type, format string, args ...any) error {
	return &types.MetadataError{Type: t, Reason: fmt.Sprintf(format, args...)}
}
