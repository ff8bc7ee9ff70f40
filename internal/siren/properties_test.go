package siren

import (
	"reflect"
	"testing"
)

type profile struct {
	Name     string   `json:"name"`
	Nick     *string  `json:"nick"`
	Email    *string  `siren:"email,include=always"`
	Bio      string   `siren:"bio,include=nonempty"`
	Roles    []string `json:"roles"`
	Emails   []string `siren:"emails,include=nonempty"`
	Scores   [2]int   `json:"scores"`
	Settings map[string]string
}

func TestExtractProperties_Inclusion(t *testing.T) {
	cache := NewDescriptorCache(DeclaredSource{}, nil)
	d, err := cache.Describe(reflect.TypeOf(profile{}), false)
	if err != nil {
		t.Fatalf("Describe() error = %v, want nil", err)
	}

	nick := "ace"
	tests := []struct {
		name string
		in   profile
		want []Property
	}{
		{
			name: "zero value",
			in:   profile{},
			want: []Property{
				{Name: "name", Value: ""},
				{Name: "email", Value: nil},
				{Name: "scores", Value: []any{0, 0}},
			},
		},
		{
			name: "populated",
			in: profile{
				Name:     "ada",
				Nick:     &nick,
				Bio:      "hi",
				Roles:    []string{"admin", "dev"},
				Emails:   []string{},
				Settings: map[string]string{"theme": "dark"},
			},
			want: []Property{
				{Name: "name", Value: "ada"},
				{Name: "nick", Value: &nick},
				{Name: "email", Value: nil},
				{Name: "bio", Value: "hi"},
				{Name: "roles", Value: []any{"admin", "dev"}},
				{Name: "scores", Value: []any{0, 0}},
				{Name: "settings", Value: map[string]string{"theme": "dark"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractProperties(reflect.ValueOf(&tt.in), d)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractProperties() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestExtractProperties_TypeLevelPolicy(t *testing.T) {
	type sparse struct {
		A *int   `json:"a"`
		B string `json:"b"`
		C *int   `siren:"c,include=nonnull"`
	}
	reg := NewRegistry()
	RegisterFor[sparse](reg, EntityMeta{Include: IncludeAlways})
	cache := NewDescriptorCache(reg, nil)

	d, err := cache.Describe(reflect.TypeOf(sparse{}), true)
	if err != nil {
		t.Fatalf("Describe() error = %v, want nil", err)
	}
	got := ExtractProperties(reflect.ValueOf(sparse{}), d)
	want := []Property{{Name: "a", Value: nil}, {Name: "b", Value: ""}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractProperties() = %#v, want %#v", got, want)
	}
}

func TestExtractProperties_NotAStruct(t *testing.T) {
	if got := ExtractProperties(reflect.ValueOf((*profile)(nil)), &TypeDescriptor{}); got != nil {
		t.Errorf("ExtractProperties(nil) = %v, want nil", got)
	}
}
