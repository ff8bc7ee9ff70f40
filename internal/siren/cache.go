package siren

import (
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/solatis/siren/internal/types"
)

// DescriptorCache memoizes TypeDescriptors per type.
//
// Reads never block. Two callers racing on the first use of a type may both
// build its descriptor; building is a pure function of the type and its
// declared metadata, so whichever store lands last is equivalent to the
// other. Build failures are cached too since they are just as deterministic.
type DescriptorCache struct {
	source  MetadataSource
	logger  *zap.Logger
	entries sync.Map // reflect.Type -> descriptorEntry
	builds  atomic.Int64
}

type descriptorEntry struct {
	desc *TypeDescriptor
	err  error
}

var defaultCache = NewDescriptorCache(DeclaredSource{}, nil)

// NewDescriptorCache creates a cache over src. A nil logger disables logging.
func NewDescriptorCache(src MetadataSource, logger *zap.Logger) *DescriptorCache {
	if src == nil {
		src = DeclaredSource{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DescriptorCache{source: src, logger: logger}
}

// Describe returns the descriptor of t (pointer types are normalized).
// With required set, a type without declared metadata fails with a
// MetadataError; otherwise a metadata-less descriptor is returned so plain
// nested values can still be traversed.
func (c *DescriptorCache) Describe(t reflect.Type, required bool) (*TypeDescriptor, error) {
	if t == nil {
		return nil, &types.MetadataError{Reason: "nil type"}
	}
	t = indirectType(t)
	if required && t.Kind() != reflect.Struct {
		return nil, &types.MetadataError{Type: t, Reason: "entities must be struct types"}
	}

	var entry descriptorEntry
	if cached, ok := c.entries.Load(t); ok {
		entry = cached.(descriptorEntry)
	} else {
		desc, err := buildDescriptor(t, c.source)
		entry = descriptorEntry{desc: desc, err: err}
		c.entries.Store(t, entry)
		c.builds.Add(1)
		if err != nil {
			c.logger.Debug("descriptor build failed", zap.Stringer("type", t), zap.Error(err))
		} else {
			c.logger.Debug("descriptor built",
				zap.Stringer("type", t),
				zap.Bool("metadata", desc.HasMetadata),
				zap.Int("fields", len(desc.Fields)))
		}
	}

	if entry.err != nil {
		return nil, entry.err
	}
	if required && !entry.desc.HasMetadata {
		return nil, &types.MetadataError{Type: t, Reason: "no metadata declared"}
	}
	return entry.desc, nil
}

// Builds returns how many descriptors have been built, including redundant
// builds from racing first uses.
func (c *DescriptorCache) Builds() int64 {
	return c.builds.Load()
}
