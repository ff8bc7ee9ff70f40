package siren

import (
	"encoding/json"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/solatis/siren/internal/types"
)

// Option configures a Resolver or Walker.
type Option func(*config)

type config struct {
	sources            []MetadataSource
	logger             *zap.Logger
	maxDepth           int
	inheritSuppression bool
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:   zap.NewNop(),
		maxDepth: types.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// source chains Declarer metadata ahead of the configured sources.
func (c *config) source() MetadataSource {
	chain := Chain{DeclaredSource{}}
	return append(chain, c.sources...)
}

// WithSource adds a metadata source. Sources are queried after types that
// declare their own metadata, in the order added.
func WithSource(src MetadataSource) Option {
	return func(c *config) {
		if src != nil {
			c.sources = append(c.sources, src)
		}
	}
}

// WithLogger sets the logger for debug events (descriptor builds, omitted
// optional links and actions).
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxDepth sets the default embedding depth limit for root types that
// declare none.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithInheritedClassSuppression makes a class-suppressing entity suppress
// classes of all its embedded descendants and their links. By default
// suppression applies to the declaring entity only.
func WithInheritedClassSuppression() Option {
	return func(c *config) {
		c.inheritSuppression = true
	}
}

// Resolver turns annotated Go values into Siren entities and documents.
// Safe for concurrent use; each call walks with its own Context.
type Resolver struct {
	cache  *DescriptorCache
	walker *Walker
}

// New creates a resolver.
func New(opts ...Option) *Resolver {
	cfg := newConfig(opts)
	cache := NewDescriptorCache(cfg.source(), cfg.logger)
	walker := NewWalker(cache, opts...)
	return &Resolver{cache: cache, walker: walker}
}

// Resolve walks instance into an Entity tree.
func (r *Resolver) Resolve(instance any) (*Entity, error) {
	return r.walker.Walk(instance, NewContext(0))
}

// Render resolves instance and assembles the output document.
func (r *Resolver) Render(instance any) (*Document, error) {
	entity, err := r.Resolve(instance)
	if err != nil {
		return nil, err
	}
	return Assemble(entity), nil
}

// Marshal renders instance as Siren JSON.
func (r *Resolver) Marshal(instance any) ([]byte, error) {
	doc, err := r.Render(instance)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode siren document: %w", err)
	}
	return data, nil
}

// Describe returns the compiled descriptor of t, requiring metadata.
func (r *Resolver) Describe(t reflect.Type) (*TypeDescriptor, error) {
	return r.cache.Describe(t, true)
}

// Expand expands tmpl against instance.
func (r *Resolver) Expand(tmpl string, instance any) (string, error) {
	return r.cache.Expand(tmpl, instance)
}

// BindLink binds a declared link of instance's type.
func (r *Resolver) BindLink(desc *LinkDescriptor, instance any) (*Link, error) {
	return r.cache.bindLink(desc, scope{value: reflect.ValueOf(instance)})
}

// BindAction binds a declared action of instance's type.
func (r *Resolver) BindAction(desc *ActionDescriptor, instance any) (*Action, error) {
	return r.cache.bindAction(desc, scope{value: reflect.ValueOf(instance)})
}
