package siren

import (
	"errors"
	"reflect"
	"strconv"

	"github.com/solatis/siren/internal/types"
)

/*
 * Dotted path resolution over live Go values.
 *
 * Resolves "a.b.c" through structs (by rendered name or Go name), pointers,
 * interfaces, string-keyed maps and slices/arrays (numeric segment). Struct
 * fields are read through the accessor bound in the type's descriptor, so
 * field lookup by name happens once per type rather than once per value.
 *
 * Failure modes, all reported as reasons inside a TemplateResolutionError by
 * the caller:
 *   - errFieldNotFound: segment does not name a field/key/index
 *   - errInaccessible:  segment names an unexported field
 *   - errNilValue:      nil pointer/interface before the path ends
 *   - errPathTooDeep:   more than MaxPlaceholderSegments segments
 */

var (
	errFieldNotFound = errors.New("field not found")
	errInaccessible  = errors.New("field not accessible")
	errPathTooDeep   = errors.New("placeholder path too deep")
)

// resolvePath follows path segments starting at v.
func (c *DescriptorCache) resolvePath(v reflect.Value, path []string) (reflect.Value, error) {
	if len(path) > types.MaxPlaceholderSegments {
		return reflect.Value{}, errPathTooDeep
	}
	return c.resolveRecursive(v, path)
}

// resolveRecursive consumes one segment per call.
func (c *DescriptorCache) resolveRecursive(current reflect.Value, path []string) (reflect.Value, error) {
	if len(path) == 0 {
		return current, nil
	}

	current, ok := indirectValue(current)
	if !ok {
		// Null value at intermediate position
		return reflect.Value{}, errNilValue
	}

	seg := path[0]
	remaining := path[1:]

	switch current.Kind() {
	case reflect.Struct:
		d, err := c.Describe(current.Type(), false)
		if err != nil {
			return reflect.Value{}, err
		}
		f, ok := d.Field(seg)
		if !ok {
			return reflect.Value{}, errFieldNotFound
		}
		if f.Read == nil {
			return reflect.Value{}, errInaccessible
		}
		next, ok := f.Read(current)
		if !ok {
			return reflect.Value{}, errNilValue
		}
		return c.resolveRecursive(next, remaining)

	case reflect.Map:
		keyType := current.Type().Key()
		if keyType.Kind() != reflect.String {
			return reflect.Value{}, errFieldNotFound
		}
		val := current.MapIndex(reflect.ValueOf(seg).Convert(keyType))
		if !val.IsValid() {
			return reflect.Value{}, errFieldNotFound
		}
		return c.resolveRecursive(val, remaining)

	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= current.Len() {
			return reflect.Value{}, errFieldNotFound
		}
		return c.resolveRecursive(current.Index(idx), remaining)

	default:
		// Scalar value but path continues
		return reflect.Value{}, errFieldNotFound
	}
}

// indirectValue dereferences pointers and interfaces.
// Returns ok=false when a nil is encountered.
func indirectValue(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

// isNilValue reports whether v is invalid or a nil pointer, interface, map or slice.
func isNilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
