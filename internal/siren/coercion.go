package siren

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

/*
 * Canonical text form of placeholder values.
 *
 * Templates substitute values literally: no URL encoding beyond what the
 * value already carries. Resolution order:
 *
 *   1. nil pointer/interface/map/slice -> errNilValue (placeholder unresolved)
 *   2. encoding.TextMarshaler (time.Time, netip.Addr, ...) -> its text
 *   3. string kinds -> as is (named string types keep their raw value)
 *   4. integers -> base 10, floats -> shortest decimal, bools -> true/false
 *   5. fmt.Stringer -> String()
 *   6. anything else (structs, collections) -> errUnrenderable
 *
 * String kinds are checked before Stringer so an ID type whose String()
 * decorates its value still renders the raw identifier.
 */

var (
	errNilValue     = errors.New("value is null")
	errUnrenderable = errors.New("value has no canonical text form")
)

var (
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	stringerType      = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// canonicalString renders v for substitution into a URI template.
func canonicalString(v reflect.Value) (string, error) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return "", errNilValue
		}
		if v.Kind() == reflect.Pointer && v.Type().Implements(textMarshalerType) {
			break
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return "", errNilValue
	}
	if (v.Kind() == reflect.Map || v.Kind() == reflect.Slice) && v.IsNil() {
		return "", errNilValue
	}

	if v.Type().Implements(textMarshalerType) && v.CanInterface() {
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", fmt.Errorf("marshal text: %w", err)
		}
		return string(text), nil
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	}

	if v.Type().Implements(stringerType) && v.CanInterface() {
		return v.Interface().(fmt.Stringer).String(), nil
	}
	return "", fmt.Errorf("%w: %s", errUnrenderable, v.Type())
}
