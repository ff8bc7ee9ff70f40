// internal/siren/properties.go
package siren

import "reflect"

// ExtractProperties returns the property fields of v in declaration order.
//
// Nil values follow the field's inclusion policy: omitted under
// IncludeNonNull, explicit null under IncludeAlways. IncludeNonEmpty also
// drops empty strings and empty collections. Slices and arrays render as
// []any of their elements ([]byte and maps pass through). A field that
// cannot be read, such as one promoted through a nil embedded pointer, is
// absent. Never fails.
func ExtractProperties(v reflect.Value, d *TypeDescriptor) []Property {
	v, ok := indirectValue(v)
	if !ok || v.Kind() != reflect.Struct || d == nil {
		return nil
	}

	props := make([]Property, 0, len(d.Fields))
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Role != RoleProperty || f.Read == nil {
			continue
		}
		fv, ok := f.Read(v)
		if !ok {
			continue
		}
		value, present := propertyValue(fv, f.Include)
		if !present {
			continue
		}
		props = append(props, Property{Name: f.Name, Value: value})
	}
	return props
}

func propertyValue(v reflect.Value, policy InclusionPolicy) (any, bool) {
	if isNilValue(v) {
		return nil, policy == IncludeAlways
	}
	if !v.CanInterface() {
		return nil, false
	}
	if policy == IncludeNonEmpty && isEmptyField(v) {
		return nil, false
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Type() == bytesType {
			return v.Interface(), true
		}
		out := make([]any, v.Len())
		for i := range out {
			elem := v.Index(i)
			if isNilValue(elem) {
				continue
			}
			out[i] = elem.Interface()
		}
		return out, true
	default:
		return v.Interface(), true
	}
}

func isEmptyField(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return v.Len() == 0
	case reflect.Pointer:
		return isEmptyField(v.Elem())
	default:
		return false
	}
}
