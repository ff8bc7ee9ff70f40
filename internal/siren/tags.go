package siren

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// fieldTag is a parsed `siren:"name,opts..."` struct tag.
//
// Options:
//
//	property | entity | link | action | ignore   role
//	embedded | linked                            nesting (implies entity)
//	rel=a|b                                      relation names
//	include=always|nonnull|nonempty              null inclusion policy
//
// A tag of "-" ignores the field.
type fieldTag struct {
	Name    string
	Spec    FieldSpec
	Present bool
}

func parseFieldTag(sf reflect.StructField) (fieldTag, error) {
	raw, ok := sf.Tag.Lookup("siren")
	if !ok {
		return fieldTag{}, nil
	}
	tag := fieldTag{Present: true}
	if raw == "-" {
		tag.Spec.Role = RoleIgnored
		return tag, nil
	}

	parts := strings.Split(raw, ",")
	tag.Name = strings.TrimSpace(parts[0])
	tag.Spec.Name = tag.Name

	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		key, value, hasValue := strings.Cut(opt, "=")
		switch {
		case opt == "":
			continue
		case hasValue && key == "rel":
			tag.Spec.Rel = strings.Split(value, "|")
		case hasValue && key == "include":
			p, err := ParseInclusionPolicy(value)
			if err != nil {
				return fieldTag{}, fmt.Errorf("field %s: %w", sf.Name, err)
			}
			tag.Spec.Include = p
		case opt == "embedded" || opt == "linked":
			n, _ := ParseNesting(opt)
			tag.Spec.Nesting = n
			if tag.Spec.Role == RoleInfer {
				tag.Spec.Role = RoleSubEntity
			}
		default:
			role, err := ParseRole(opt)
			if err != nil {
				return fieldTag{}, fmt.Errorf("field %s: %w", sf.Name, err)
			}
			tag.Spec.Role = role
		}
	}
	return tag, nil
}

// jsonName returns the name from a `json` tag, if any.
func jsonName(sf reflect.StructField) string {
	raw, ok := sf.Tag.Lookup("json")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(raw, ",")
	if name == "-" {
		return ""
	}
	return name
}

// lowerFirst converts an exported Go name to its rendered form: "CourseID" -> "courseID".
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
