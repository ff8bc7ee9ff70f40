package siren

import (
	"fmt"
	"reflect"
	"strings"
)

/*
 * Conditional inclusion of links and actions.
 *
 * A Condition names an instance field (dotted path) and an operator. The
 * field is resolved the same way a template placeholder is; an unresolvable
 * path counts as a nil value rather than an error, so conditions never fail
 * a walk, they only decide inclusion.
 *
 * Operators:
 *   - null/notnull/empty/notempty: presence checks
 *   - eq/neq: equality with numeric tolerance (int 3 == float 3.0)
 *   - lt/lte/gt/gte: numeric only; non-numeric operands never match
 *   - prefix/suffix: string only
 *   - in: membership with eq semantics
 */

// Op is a condition operator.
type Op int

const (
	OpUnspecified Op = iota
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpPrefix
	OpSuffix
	OpIn
	OpNull
	OpNotNull
	OpEmpty
	OpNotEmpty
)

var opNames = map[string]Op{
	"eq":       OpEq,
	"neq":      OpNeq,
	"lt":       OpLt,
	"lte":      OpLte,
	"gt":       OpGt,
	"gte":      OpGte,
	"prefix":   OpPrefix,
	"suffix":   OpSuffix,
	"in":       OpIn,
	"null":     OpNull,
	"notnull":  OpNotNull,
	"empty":    OpEmpty,
	"notempty": OpNotEmpty,
}

// ParseOp maps an operator name ("eq", "notnull", ...) to an Op.
func ParseOp(s string) (Op, error) {
	op, ok := opNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return OpUnspecified, fmt.Errorf("unknown condition operator %q", s)
	}
	return op, nil
}

// Compare applies op to a resolved field value and the condition target.
// value is nil when the field is absent or null.
func Compare(op Op, value, target any) bool {
	switch op {
	case OpNull:
		return value == nil
	case OpNotNull:
		return value != nil
	case OpEmpty:
		return isEmptyValue(value)
	case OpNotEmpty:
		return !isEmptyValue(value)
	}

	if value == nil {
		return op == OpNeq && target != nil
	}

	switch op {
	case OpEq:
		return compareEqual(value, target)
	case OpNeq:
		return !compareEqual(value, target)
	case OpLt:
		c, ok := compareNumeric(value, target)
		return ok && c < 0
	case OpLte:
		c, ok := compareNumeric(value, target)
		return ok && c <= 0
	case OpGt:
		c, ok := compareNumeric(value, target)
		return ok && c > 0
	case OpGte:
		c, ok := compareNumeric(value, target)
		return ok && c >= 0
	case OpPrefix:
		vs, ok1 := toText(value)
		ps, ok2 := toText(target)
		return ok1 && ok2 && strings.HasPrefix(vs, ps)
	case OpSuffix:
		vs, ok1 := toText(value)
		ss, ok2 := toText(target)
		return ok1 && ok2 && strings.HasSuffix(vs, ss)
	case OpIn:
		set, ok := target.([]any)
		if !ok {
			return false
		}
		for _, elem := range set {
			if compareEqual(value, elem) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// compareEqual performs equality with numeric and named-string tolerance.
func compareEqual(a, b any) bool {
	if na, ok := toFloat64(a); ok {
		nb, ok := toFloat64(b)
		return ok && na == nb
	}
	if sa, ok := toText(a); ok {
		sb, ok := toText(b)
		return ok && sa == sb
	}
	return reflect.DeepEqual(a, b)
}

// compareNumeric performs three-way numeric comparison.
// Returns ok=false for incomparable types.
func compareNumeric(a, b any) (int, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	if !oka || !okb {
		return 0, false
	}
	switch {
	case na < nb:
		return -1, true
	case na > nb:
		return 1, true
	default:
		return 0, true
	}
}

// toFloat64 converts any integer or float kind, including named types.
func toFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// toText converts string kinds (including named string types) to string.
func toText(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
