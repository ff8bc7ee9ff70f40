// Package types provides the error taxonomy, limits and identifiers shared
// across the siren resolver and the catalog service.
//
// Kept free of reflection-heavy or transport dependencies so every other
// package, including tests, can import it without pulling in the resolver.
package types

// Resource limits enforced during resolution.
const (
	// DefaultMaxDepth bounds embedded sub-entity nesting when neither the
	// root type nor the resolver configures a limit. Independent of the cycle
	// guard, which only catches exact re-entry.
	DefaultMaxDepth = 32

	// MaxPlaceholderSegments bounds a dotted placeholder path ({a.b.c}).
	// 16 segments covers any realistic object nesting without unbounded walks.
	MaxPlaceholderSegments = 16

	// MaxTemplateLength rejects absurd templates before parsing.
	// 2KB exceeds any practical URL length limit.
	MaxTemplateLength = 2048
)

// Service limits.
const (
	// DefaultPageSize applies when a collection request omits limit.
	DefaultPageSize = 20

	// MaxPageSize caps collection pages to keep rendered documents bounded.
	MaxPageSize = 100

	// MaxReviewBodyLength mirrors the maxLength declared on the addReview body field.
	MaxReviewBodyLength = 250
)
