// internal/siren/walk.go
package siren

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/solatis/siren/internal/types"
)

/*
 * Entity graph walk.
 *
 * Resolves one instance into an Entity, recursing into embedded
 * sub-entities:
 *   1. Describe the type (metadata required for every entity position)
 *   2. Cycle guard: fail if the instance is already on the walk stack
 *   3. Push; extract properties; for each sub-entity field in order either
 *      recurse (embedded) or produce a link to the target's own self URI
 *      (linked); collections recurse per element, nil elements skipped
 *   4. Resolve self link, declared links, runtime link fields, declared
 *      actions, runtime action fields
 *   5. Pop and return
 *
 * Identity is the address of the struct being walked, so only values
 * reached through pointers (or addressable slice elements) take part in the
 * cycle guard. A value copy cannot be re-entered.
 *
 * Embedding forbids cycles, linking permits them: two instances referencing
 * each other resolve only when at least the back-reference is linked.
 */

const selfRel = "self"

// identity is the address of a struct on the walk stack.
type identity struct {
	t reflect.Type
	p uintptr
}

// Context is the per-walk state: the identities currently on the stack and
// the current embedding depth. Never share a Context between goroutines.
type Context struct {
	active   map[identity]struct{}
	depth    int
	maxDepth int
}

// NewContext creates a walk context. maxDepth <= 0 defers the limit to the
// root type's declared MaxDepth, then to the walker default.
func NewContext(maxDepth int) *Context {
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Context{
		active:   make(map[identity]struct{}),
		maxDepth: maxDepth,
	}
}

// Walker resolves instances into entities. Safe for concurrent use.
type Walker struct {
	cache              *DescriptorCache
	logger             *zap.Logger
	defaultMaxDepth    int
	inheritSuppression bool
}

// NewWalker creates a walker over cache.
func NewWalker(cache *DescriptorCache, opts ...Option) *Walker {
	cfg := newConfig(opts)
	if cache == nil {
		cache = NewDescriptorCache(cfg.source(), cfg.logger)
	}
	return &Walker{
		cache:              cache,
		logger:             cfg.logger,
		defaultMaxDepth:    cfg.maxDepth,
		inheritSuppression: cfg.inheritSuppression,
	}
}

// Walk resolves instance. A nil ctx gets a fresh context.
func (w *Walker) Walk(instance any, ctx *Context) (*Entity, error) {
	if ctx == nil {
		ctx = NewContext(0)
	}
	v := reflect.ValueOf(instance)
	sv, ok := indirectValue(v)
	if !ok {
		return nil, &types.MetadataError{Reason: "nil instance"}
	}
	d, err := w.cache.Describe(sv.Type(), true)
	if err != nil {
		return nil, err
	}
	if ctx.active == nil {
		ctx.active = make(map[identity]struct{})
	}
	if ctx.maxDepth == 0 {
		ctx.maxDepth = w.defaultMaxDepth
		if d.MaxDepth > 0 {
			ctx.maxDepth = d.MaxDepth
		}
	}
	return w.walk(v, d, ctx, reflect.Value{}, "", false)
}

func (w *Walker) walk(v reflect.Value, d *TypeDescriptor, ctx *Context, parent reflect.Value, path string, inherited bool) (*Entity, error) {
	sv, ok := indirectValue(v)
	if !ok {
		return nil, &types.MetadataError{Type: d.Type, Path: path, Reason: "nil instance"}
	}

	if sv.CanAddr() {
		id := identity{t: sv.Type(), p: sv.Addr().Pointer()}
		if _, seen := ctx.active[id]; seen {
			return nil, &types.CyclicGraphError{Type: d.Type, Path: path}
		}
		ctx.active[id] = struct{}{}
		defer delete(ctx.active, id)
	}

	suppressed := d.SuppressClass || (w.inheritSuppression && inherited)
	entity := &Entity{
		Properties:      ExtractProperties(sv, d),
		ClassSuppressed: suppressed,
	}
	if !suppressed {
		entity.Class = d.Class
	}

	s := scope{value: sv, parent: parent}
	if d.Title != nil {
		if title, err := w.cache.expand(d.Title, s); err == nil {
			entity.Title = title
		}
	}

	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Role != RoleSubEntity || f.Read == nil {
			continue
		}
		fv, ok := f.Read(sv)
		if !ok {
			continue
		}
		fieldPath := childPath(path, f.Name)
		if !f.Collection {
			sub, err := w.subEntity(f, fv, ctx, sv, fieldPath, suppressed)
			if err != nil {
				return nil, err
			}
			if sub != nil {
				entity.Entities = append(entity.Entities, *sub)
			}
			continue
		}
		fv, ok = indirectValue(fv)
		if !ok {
			continue
		}
		for j := 0; j < fv.Len(); j++ {
			sub, err := w.subEntity(f, fv.Index(j), ctx, sv, fmt.Sprintf("%s[%d]", fieldPath, j), suppressed)
			if err != nil {
				return nil, err
			}
			if sub != nil {
				entity.Entities = append(entity.Entities, *sub)
			}
		}
	}

	if err := w.resolveLinks(entity, d, s, path); err != nil {
		return nil, err
	}
	if err := w.resolveActions(entity, d, s, path); err != nil {
		return nil, err
	}
	return entity, nil
}

// subEntity resolves one sub-entity value. Returns nil for nil values.
func (w *Walker) subEntity(f *FieldMeta, v reflect.Value, ctx *Context, parent reflect.Value, path string, suppressed bool) (*SubEntity, error) {
	target, ok := indirectValue(v)
	if !ok {
		return nil, nil
	}
	td, err := w.cache.Describe(target.Type(), true)
	if err != nil {
		return nil, types.WithPath(err, path)
	}

	if f.Nesting == Linked {
		if td.URI == nil {
			return nil, &types.MetadataError{Type: td.Type, Path: path, Reason: "linked sub-entity declares no self uri"}
		}
		s := scope{value: target, parent: parent}
		href, err := w.cache.expand(td.URI, s)
		if err != nil {
			return nil, types.WithPath(err, path)
		}
		link := &Link{Rel: f.Rel, Href: href}
		if !td.SuppressClass && !(w.inheritSuppression && suppressed) {
			link.Class = td.Class
		}
		if td.Title != nil {
			if title, err := w.cache.expand(td.Title, s); err == nil {
				link.Title = title
			}
		}
		return &SubEntity{Rel: f.Rel, Link: link}, nil
	}

	if ctx.depth+1 > ctx.maxDepth {
		return nil, &types.DepthExceededError{Max: ctx.maxDepth, Path: path}
	}
	ctx.depth++
	child, err := w.walk(v, td, ctx, parent, path, suppressed)
	ctx.depth--
	if err != nil {
		return nil, err
	}
	child.Rel = f.Rel
	return &SubEntity{Rel: f.Rel, Entity: child}, nil
}

func (w *Walker) resolveLinks(entity *Entity, d *TypeDescriptor, s scope, path string) error {
	if d.URI != nil {
		href, err := w.cache.expand(d.URI, s)
		if err != nil {
			return types.WithPath(err, path)
		}
		entity.Links = append(entity.Links, Link{Rel: []string{selfRel}, Href: href})
	}

	for i := range d.Links {
		link, err := w.cache.bindLink(&d.Links[i], s)
		if err != nil {
			return types.WithPath(err, path)
		}
		if link != nil {
			entity.Links = append(entity.Links, *link)
		}
	}

	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Role != RoleLink || f.Read == nil {
			continue
		}
		fv, ok := f.Read(s.value)
		if !ok {
			continue
		}
		links, err := w.runtimeLinks(f, fv, s)
		if err != nil {
			return types.WithPath(err, childPath(path, f.Name))
		}
		entity.Links = append(entity.Links, links...)
	}
	return nil
}

// runtimeLinks converts a link field (string href, Link or []Link) into
// links. Hrefs may contain placeholders.
func (w *Walker) runtimeLinks(f *FieldMeta, fv reflect.Value, s scope) ([]Link, error) {
	fv, ok := indirectValue(fv)
	if !ok {
		return nil, nil
	}
	var links []Link
	switch {
	case fv.Kind() == reflect.String:
		if fv.Len() == 0 {
			return nil, nil
		}
		links = []Link{{Rel: f.Rel, Href: fv.String()}}
	case fv.Type() == linkType:
		links = []Link{fv.Interface().(Link)}
	default:
		for j := 0; j < fv.Len(); j++ {
			if ev, ok := indirectValue(fv.Index(j)); ok {
				links = append(links, ev.Interface().(Link))
			}
		}
	}

	out := links[:0]
	for _, l := range links {
		if l.Href == "" {
			continue
		}
		href, err := w.cache.expandData(l.Href, s)
		if err != nil {
			return nil, err
		}
		l.Href = href
		if len(l.Rel) == 0 {
			l.Rel = f.Rel
		}
		out = append(out, l)
	}
	return out, nil
}

func (w *Walker) resolveActions(entity *Entity, d *TypeDescriptor, s scope, path string) error {
	for i := range d.Actions {
		action, err := w.cache.bindAction(&d.Actions[i], s)
		if err != nil {
			return types.WithPath(err, path)
		}
		if action != nil {
			entity.Actions = append(entity.Actions, *action)
		}
	}

	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Role != RoleAction || f.Read == nil {
			continue
		}
		fv, ok := f.Read(s.value)
		if !ok {
			continue
		}
		fv, ok = indirectValue(fv)
		if !ok {
			continue
		}
		var actions []Action
		if fv.Type() == actionType {
			actions = []Action{fv.Interface().(Action)}
		} else {
			for j := 0; j < fv.Len(); j++ {
				if ev, ok := indirectValue(fv.Index(j)); ok {
					actions = append(actions, ev.Interface().(Action))
				}
			}
		}
		for _, a := range actions {
			if a.Name == "" {
				continue
			}
			href, err := w.cache.expandData(a.Href, s)
			if err != nil {
				return types.WithPath(err, childPath(path, f.Name))
			}
			a.Href = href
			entity.Actions = append(entity.Actions, a)
		}
	}
	return nil
}


func childPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
