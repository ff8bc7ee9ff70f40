// internal/siren/template_test.go
package siren

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/siren/internal/types"
)

func TestExpand_NestedPath(t *testing.T) {
	w := widget{ID: 42, Part: &part{Code: "A1"}}

	got, err := Expand("/widgets/{id}/parts/{part.code}", w)
	if err != nil {
		t.Fatalf("Expand() error = %v, want nil", err)
	}
	if got != "/widgets/42/parts/A1" {
		t.Errorf("Expand() = %q, want /widgets/42/parts/A1", got)
	}
}

func TestExpand_NullIntermediateFails(t *testing.T) {
	w := widget{ID: 42}

	got, err := Expand("/widgets/{id}/parts/{part.code}", w)
	if !errors.Is(err, types.ErrTemplateResolution) {
		t.Fatalf("Expand() error = %v, want ErrTemplateResolution", err)
	}
	if got != "" {
		t.Errorf("Expand() = %q, want no partial output", got)
	}

	var tre *types.TemplateResolutionError
	if !errors.As(err, &tre) {
		t.Fatalf("error type = %T, want *TemplateResolutionError", err)
	}
	if tre.Placeholder != "part.code" {
		t.Errorf("Placeholder = %q, want part.code", tre.Placeholder)
	}
}

func TestExpand_Errors(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
	}{
		{"missing field", "/widgets/{nope}"},
		{"unterminated", "/widgets/{id"},
		{"stray close", "/widgets/id}"},
		{"nested open", "/widgets/{{id}}"},
		{"empty placeholder", "/widgets/{}"},
		{"empty segment", "/widgets/{part..code}"},
		{"scalar continues", "/widgets/{id.code}"},
		{"unexported", "/courses/{secret}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var instance any = widget{ID: 1, Part: &part{Code: "x"}}
			if strings.Contains(tt.tmpl, "courses") {
				instance = course{ID: 1, secret: "s"}
			}
			_, err := Expand(tt.tmpl, instance)
			if !errors.Is(err, types.ErrTemplateResolution) {
				t.Errorf("Expand(%q) error = %v, want ErrTemplateResolution", tt.tmpl, err)
			}
		})
	}
}

type label string

func (l label) String() string { return "label:" + string(l) }

type version struct{ major, minor int }

func (v version) String() string { return fmt.Sprintf("v%d.%d", v.major, v.minor) }

func TestExpand_CanonicalForms(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	values := map[string]any{
		"int":     -7,
		"uint":    uint8(200),
		"float":   1.5,
		"whole":   2.0,
		"bool":    true,
		"label":   label("raw"),
		"time":    stamp,
		"version": version{1, 2},
		"ptr":     &stamp,
	}

	tests := []struct {
		placeholder string
		want        string
	}{
		{"int", "-7"},
		{"uint", "200"},
		{"float", "1.5"},
		{"whole", "2"},
		{"bool", "true"},
		{"label", "raw"},
		{"time", "2024-03-01T12:00:00Z"},
		{"version", "v1.2"},
		{"ptr", "2024-03-01T12:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.placeholder, func(t *testing.T) {
			got, err := Expand("{"+tt.placeholder+"}", values)
			if err != nil {
				t.Fatalf("Expand() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpand_StructValueUnrenderable(t *testing.T) {
	_, err := Expand("{part}", widget{Part: &part{Code: "x"}})
	if !errors.Is(err, types.ErrTemplateResolution) {
		t.Errorf("Expand() error = %v, want ErrTemplateResolution", err)
	}
}

func TestExpand_SliceIndexAndMap(t *testing.T) {
	instance := map[string]any{
		"items": []string{"a", "b"},
		"meta":  map[string]int{"page": 3},
	}
	got, err := Expand("/items/{items.1}?page={meta.page}", instance)
	if err != nil {
		t.Fatalf("Expand() error = %v, want nil", err)
	}
	if got != "/items/b?page=3" {
		t.Errorf("Expand() = %q, want /items/b?page=3", got)
	}
}

func TestParseTemplate_Memoized(t *testing.T) {
	a, err := ParseTemplate("/memo/{id}/x")
	if err != nil {
		t.Fatalf("ParseTemplate() error = %v", err)
	}
	b, err := ParseTemplate("/memo/{id}/x")
	if err != nil {
		t.Fatalf("ParseTemplate() error = %v", err)
	}
	if a != b {
		t.Errorf("ParseTemplate() returned distinct parses for the same string")
	}
	if got := a.Placeholders(); len(got) != 1 || got[0] != "id" {
		t.Errorf("Placeholders() = %v, want [id]", got)
	}
	if a.IsLiteral() {
		t.Errorf("IsLiteral() = true, want false")
	}
	if !MustParseTemplate("/static").IsLiteral() {
		t.Errorf("IsLiteral(/static) = false, want true")
	}
}

func TestParseTemplate_TooLong(t *testing.T) {
	_, err := ParseTemplate(strings.Repeat("a", types.MaxTemplateLength+1))
	if !errors.Is(err, types.ErrTemplateResolution) {
		t.Errorf("ParseTemplate() error = %v, want ErrTemplateResolution", err)
	}
}

func TestExpand_PropertyLiteralOnly(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("templates without braces expand to themselves", prop.ForAll(
		func(s string) bool {
			got, err := Expand(s, widget{})
			return err == nil && got == s
		},
		gen.AlphaString(),
	))

	properties.Property("integer ids render in decimal", prop.ForAll(
		func(id int) bool {
			got, err := Expand("/widgets/{id}", widget{ID: id})
			want := "/widgets/" + strconv.Itoa(id)
			return err == nil && got == want
		},
		gen.Int(),
	))

	properties.TestingRun(t)
}
