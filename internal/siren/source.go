package siren

import (
	"fmt"
	"reflect"
	"sync"
)

/*
 * Metadata sources.
 *
 * The resolver only needs "what metadata is declared for this type". Three
 * answers are provided and chained in order:
 *
 *   - Declarer: the type answers itself via SirenMeta() on its zero value
 *   - Registry: a static reflect.Type -> EntityMeta table, filled in code
 *     or from a TOML document (LoadTOML)
 *   - Chain: first source that answers wins
 *
 * Sources are read by the DescriptorCache once per type; registering after
 * a type has been described has no effect on that cache.
 */

// MetadataSource answers the declared metadata of a type.
type MetadataSource interface {
	MetadataFor(t reflect.Type) (*EntityMeta, bool)
}

// SourceFunc adapts a function to MetadataSource.
type SourceFunc func(t reflect.Type) (*EntityMeta, bool)

// MetadataFor implements MetadataSource.
func (f SourceFunc) MetadataFor(t reflect.Type) (*EntityMeta, bool) { return f(t) }

// Declarer is implemented by types that declare their own metadata.
// SirenMeta is called on the zero value and must not depend on receiver state.
type Declarer interface {
	SirenMeta() EntityMeta
}

var declarerType = reflect.TypeOf((*Declarer)(nil)).Elem()

// DeclaredSource answers metadata for types implementing Declarer with either
// a value or a pointer receiver.
type DeclaredSource struct{}

// MetadataFor implements MetadataSource.
func (DeclaredSource) MetadataFor(t reflect.Type) (*EntityMeta, bool) {
	t = indirectType(t)
	switch {
	case t.Implements(declarerType):
		meta := reflect.Zero(t).Interface().(Declarer).SirenMeta()
		return &meta, true
	case reflect.PointerTo(t).Implements(declarerType):
		meta := reflect.New(t).Interface().(Declarer).SirenMeta()
		return &meta, true
	default:
		return nil, false
	}
}

// Chain queries sources in order; the first answer wins.
type Chain []MetadataSource

// MetadataFor implements MetadataSource.
func (c Chain) MetadataFor(t reflect.Type) (*EntityMeta, bool) {
	for _, src := range c {
		if src == nil {
			continue
		}
		if meta, ok := src.MetadataFor(t); ok {
			return meta, true
		}
	}
	return nil, false
}

// Registry is a static metadata table. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	metas map[reflect.Type]EntityMeta
	names map[string]reflect.Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		metas: make(map[reflect.Type]EntityMeta),
		names: make(map[string]reflect.Type),
	}
}

// Register declares metadata for t (pointer types are normalized to their element).
func (r *Registry) Register(t reflect.Type, meta EntityMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metas[indirectType(t)] = meta
}

// RegisterFor declares metadata for T.
func RegisterFor[T any](r *Registry, meta EntityMeta) {
	r.Register(reflect.TypeOf((*T)(nil)).Elem(), meta)
}

// Name binds a declaration name (as used by LoadTOML) to a type.
// Rebinding a name to a different type is an error.
func (r *Registry) Name(name string, t reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t = indirectType(t)
	if existing, ok := r.names[name]; ok && existing != t {
		return fmt.Errorf("type name %q already bound to %s", name, existing)
	}
	r.names[name] = t
	return nil
}

// Lookup returns the type bound to name.
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.names[name]
	return t, ok
}

// MetadataFor implements MetadataSource.
// Returns a copy so callers cannot mutate the table.
func (r *Registry) MetadataFor(t reflect.Type) (*EntityMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.metas[indirectType(t)]
	if !ok {
		return nil, false
	}
	return &meta, true
}

// Len returns the number of types with registered metadata.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.metas)
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
