package types

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for resolution and service operations.
var (
	// ErrMetadata indicates a type lacks the declarative metadata its position requires.
	ErrMetadata = errors.New("missing siren metadata")

	// ErrTemplateResolution indicates a mandatory URI template placeholder could not be resolved.
	ErrTemplateResolution = errors.New("uri template not resolvable")

	// ErrCyclicGraph indicates an embedded sub-entity re-enters an instance already being walked.
	ErrCyclicGraph = errors.New("cyclic embedded entity graph")

	// ErrDepthExceeded indicates embedding nested deeper than the traversal limit.
	ErrDepthExceeded = errors.New("entity graph exceeds maximum depth")

	// ErrNotFound indicates a requested resource does not exist in the store.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates a rejected action submission.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates an action not permitted in the resource's current state.
	ErrConflict = errors.New("resource state conflict")
)

/*
 * Typed resolution errors.
 *
 * Each carries the walk path (e.g. "reviews[2].course") so a caller can tell
 * which subtree failed, and unwraps to its sentinel so errors.Is works across
 * package boundaries. Paths are empty when the failure is at the root.
 */

// MetadataError reports a type without required metadata.
type MetadataError struct {
	Type   reflect.Type
	Path   string
	Reason string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("%s: %s%s: %s", ErrMetadata, typeName(e.Type), atPath(e.Path), e.Reason)
}

func (e *MetadataError) Unwrap() error { return ErrMetadata }

// TemplateResolutionError reports a placeholder that could not be resolved.
type TemplateResolutionError struct {
	Template    string
	Placeholder string
	Path        string
	Reason      string
}

func (e *TemplateResolutionError) Error() string {
	if e.Placeholder == "" {
		return fmt.Sprintf("%s: %q%s: %s", ErrTemplateResolution, e.Template, atPath(e.Path), e.Reason)
	}
	return fmt.Sprintf("%s: {%s} in %q%s: %s", ErrTemplateResolution, e.Placeholder, e.Template, atPath(e.Path), e.Reason)
}

func (e *TemplateResolutionError) Unwrap() error { return ErrTemplateResolution }

// CyclicGraphError reports re-entry of an instance through an embedded field.
type CyclicGraphError struct {
	Type reflect.Type
	Path string
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("%s: %s%s (declare the back-reference as linked)", ErrCyclicGraph, typeName(e.Type), atPath(e.Path))
}

func (e *CyclicGraphError) Unwrap() error { return ErrCyclicGraph }

// DepthExceededError reports embedding beyond the configured maximum depth.
type DepthExceededError struct {
	Max  int
	Path string
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("%s (%d)%s", ErrDepthExceeded, e.Max, atPath(e.Path))
}

func (e *DepthExceededError) Unwrap() error { return ErrDepthExceeded }

// WithPath returns a copy of a typed resolution error with its walk path set,
// leaving any other error untouched.
func WithPath(err error, path string) error {
	if path == "" {
		return err
	}
	switch e := err.(type) {
	case *MetadataError:
		c := *e
		c.Path = joinPath(path, e.Path)
		return &c
	case *TemplateResolutionError:
		c := *e
		c.Path = joinPath(path, e.Path)
		return &c
	case *CyclicGraphError:
		c := *e
		c.Path = joinPath(path, e.Path)
		return &c
	case *DepthExceededError:
		c := *e
		c.Path = joinPath(path, e.Path)
		return &c
	default:
		return err
	}
}

func joinPath(prefix, rest string) string {
	if rest == "" {
		return prefix
	}
	if rest[0] == '[' {
		return prefix + rest
	}
	return prefix + "." + rest
}

func atPath(path string) string {
	if path == "" {
		return ""
	}
	return " at " + path
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
