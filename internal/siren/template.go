package siren

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/solatis/siren/internal/types"
)

/*
 * URI templates.
 *
 * Syntax: literal text with {identifier} placeholders, where identifier is a
 * field name or a dotted path ({part.code}). A leading "parent" segment
 * ({parent.id}) addresses the enclosing instance when a sub-entity is being
 * rendered and the instance itself has no field named "parent".
 *
 * Parsing splits a template into literal and placeholder segments once per
 * distinct declared template string (process-wide cache). Hrefs carried by
 * instance data are parsed on every use instead. Expansion is all-or-nothing:
 * the first unresolvable placeholder fails the whole expansion with a
 * TemplateResolutionError and no partial string is returned. Expanded
 * strings are never cached because they depend on instance state.
 */

const parentSegment = "parent"

type segment struct {
	literal string
	expr    string   // placeholder text between braces
	path    []string // nil for literal segments
}

// Template is a parsed URI template. Immutable and safe for concurrent use.
type Template struct {
	raw      string
	segments []segment
}

type templateEntry struct {
	tmpl *Template
	err  error
}

var templateCache sync.Map // string -> templateEntry

// ParseTemplate parses s, reusing a previous parse of the same string.
func ParseTemplate(s string) (*Template, error) {
	if cached, ok := templateCache.Load(s); ok {
		entry := cached.(templateEntry)
		return entry.tmpl, entry.err
	}
	tmpl, err := parseTemplate(s)
	templateCache.Store(s, templateEntry{tmpl: tmpl, err: err})
	return tmpl, err
}

// MustParseTemplate is ParseTemplate that panics on error. For tests and
// package-level declarations.
func MustParseTemplate(s string) *Template {
	t, err := ParseTemplate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func parseTemplate(s string) (*Template, error) {
	if len(s) > types.MaxTemplateLength {
		return nil, &types.TemplateResolutionError{Template: s[:64] + "...", Reason: "template too long"}
	}

	t := &Template{raw: s}
	rest := s
	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		closing := strings.IndexByte(rest, '}')
		if closing >= 0 && (open < 0 || closing < open) {
			return nil, &types.TemplateResolutionError{Template: s, Reason: "unbalanced '}'"}
		}
		if open < 0 {
			t.segments = append(t.segments, segment{literal: rest})
			break
		}
		if open > 0 {
			t.segments = append(t.segments, segment{literal: rest[:open]})
		}
		rest = rest[open+1:]
		end := strings.IndexAny(rest, "{}")
		if end < 0 || rest[end] == '{' {
			return nil, &types.TemplateResolutionError{Template: s, Reason: "unterminated placeholder"}
		}
		expr := strings.TrimSpace(rest[:end])
		path, err := parsePlaceholder(expr)
		if err != nil {
			return nil, &types.TemplateResolutionError{Template: s, Placeholder: expr, Reason: err.Error()}
		}
		t.segments = append(t.segments, segment{expr: expr, path: path})
		rest = rest[end+1:]
	}
	return t, nil
}

func parsePlaceholder(expr string) ([]string, error) {
	if expr == "" {
		return nil, errors.New("empty placeholder")
	}
	path := strings.Split(expr, ".")
	if len(path) > types.MaxPlaceholderSegments {
		return nil, errPathTooDeep
	}
	for _, seg := range path {
		if seg == "" {
			return nil, errors.New("empty path segment")
		}
		if strings.ContainsAny(seg, " \t/?#") {
			return nil, fmt.Errorf("invalid path segment %q", seg)
		}
	}
	return path, nil
}

// String returns the template source.
func (t *Template) String() string { return t.raw }

// IsLiteral reports whether the template has no placeholders.
func (t *Template) IsLiteral() bool {
	for _, seg := range t.segments {
		if seg.path != nil {
			return false
		}
	}
	return true
}

// Placeholders returns the placeholder expressions in order of appearance.
func (t *Template) Placeholders() []string {
	var out []string
	for _, seg := range t.segments {
		if seg.path != nil {
			out = append(out, seg.expr)
		}
	}
	return out
}

// scope is what a template expands against: the instance and, for
// sub-entities, the enclosing instance.
type scope struct {
	value  reflect.Value
	parent reflect.Value
}

// expand resolves every placeholder of t against s.
func (c *DescriptorCache) expand(t *Template, s scope) (string, error) {
	var b strings.Builder
	b.Grow(len(t.raw) + 16)
	for _, seg := range t.segments {
		if seg.path == nil {
			b.WriteString(seg.literal)
			continue
		}
		v, err := c.lookup(seg.path, s)
		if err != nil {
			return "", templateError(t, seg, err)
		}
		str, err := canonicalString(v)
		if err != nil {
			return "", templateError(t, seg, err)
		}
		b.WriteString(str)
	}
	return b.String(), nil
}

// lookup resolves a placeholder path, falling back to the parent scope for
// {parent.x} when the instance has no field of that name.
func (c *DescriptorCache) lookup(path []string, s scope) (reflect.Value, error) {
	if len(path) > 1 && path[0] == parentSegment && s.parent.IsValid() && !c.hasField(s.value, parentSegment) {
		return c.resolvePath(s.parent, path[1:])
	}
	return c.resolvePath(s.value, path)
}

func (c *DescriptorCache) hasField(v reflect.Value, name string) bool {
	v, ok := indirectValue(v)
	if !ok || v.Kind() != reflect.Struct {
		return false
	}
	d, err := c.Describe(v.Type(), false)
	if err != nil {
		return false
	}
	_, found := d.Field(name)
	return found
}

// templateError converts a lookup failure into a TemplateResolutionError,
// passing metadata errors through unchanged.
func templateError(t *Template, seg segment, err error) error {
	var metaErr *types.MetadataError
	if errors.As(err, &metaErr) {
		return err
	}
	return &types.TemplateResolutionError{
		Template:    t.raw,
		Placeholder: seg.expr,
		Reason:      err.Error(),
	}
}

// Expand expands tmpl against instance using metadata declared through
// Declarer. Use Resolver.Expand for registry-backed metadata.
func Expand(tmpl string, instance any) (string, error) {
	return defaultCache.Expand(tmpl, instance)
}

// Expand parses tmpl and expands it against instance. tmpl is treated as
// caller data and never enters the template cache.
func (c *DescriptorCache) Expand(tmpl string, instance any) (string, error) {
	return c.expandData(tmpl, scope{value: reflect.ValueOf(instance)})
}

// expandData expands a template taken from instance data, such as a runtime
// link href. Strings without braces pass through; the rest are parsed
// uncached so the template cache stays bounded by declared metadata.
func (c *DescriptorCache) expandData(s string, sc scope) (string, error) {
	if !strings.ContainsAny(s, "{}") {
		return s, nil
	}
	t, err := parseTemplate(s)
	if err != nil {
		return "", err
	}
	return c.expand(t, sc)
}
