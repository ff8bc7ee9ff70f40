package siren

import (
	"errors"
	"reflect"
	"testing"

	"github.com/solatis/siren/internal/types"
)

func TestBindAction(t *testing.T) {
	r := New()
	d, err := r.Describe(reflect.TypeOf(course{}))
	if err != nil {
		t.Fatalf("Describe() error = %v, want nil", err)
	}
	addReview, closeAction := &d.Actions[0], &d.Actions[1]

	tests := []struct {
		name    string
		desc    *ActionDescriptor
		in      course
		wantNil bool
		href    string
	}{
		{"bound", addReview, course{ID: 3}, false, "/courses/3/reviews"},
		{"condition holds", closeAction, course{ID: 3, Status: "open"}, false, "/courses/3/close"},
		{"condition fails", closeAction, course{ID: 3, Status: "closed"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.BindAction(tt.desc, tt.in)
			if err != nil {
				t.Fatalf("BindAction() error = %v, want nil", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("BindAction() = %+v, want omitted", got)
				}
				return
			}
			if got == nil || got.Href != tt.href {
				t.Fatalf("BindAction() = %+v, want href %s", got, tt.href)
			}
		})
	}
}

func TestBindAction_TemplatedDefault(t *testing.T) {
	tmpl := MustParseTemplate("/carts/{id}")
	desc := &ActionDescriptor{
		Name: "checkout",
		Href: tmpl,
		Fields: []ActionFieldDescriptor{
			{ActionFieldMeta: ActionFieldMeta{Name: "cart", Type: "hidden"}, Default: MustParseTemplate("{id}")},
			{ActionFieldMeta: ActionFieldMeta{Name: "coupon", Type: "text", Value: "NONE"}},
			{ActionFieldMeta: ActionFieldMeta{Name: "owner", Type: "hidden"}, Default: MustParseTemplate("{owner.login}")},
		},
	}
	type cart struct {
		ID    int     `json:"id"`
		Owner *person `json:"owner"`
	}

	_, err := BindAction(desc, cart{ID: 1})
	if !errors.Is(err, types.ErrTemplateResolution) {
		t.Fatalf("BindAction() error = %v, want ErrTemplateResolution", err)
	}

	desc.Optional = true
	got, err := BindAction(desc, cart{ID: 1})
	if err != nil || got != nil {
		t.Fatalf("optional BindAction() = %+v, %v, want omitted", got, err)
	}

	got, err = BindAction(desc, cart{ID: 1, Owner: &person{Login: "ada"}})
	if err != nil {
		t.Fatalf("BindAction() error = %v, want nil", err)
	}
	values := []string{got.Fields[0].Value, got.Fields[1].Value, got.Fields[2].Value}
	if !reflect.DeepEqual(values, []string{"1", "NONE", "ada"}) {
		t.Errorf("field values = %v, want [1 NONE ada]", values)
	}
}

func TestBindLink(t *testing.T) {
	desc := &LinkDescriptor{
		Rel:       []string{"next"},
		Href:      MustParseTemplate("/pages/{next}"),
		Condition: &Condition{Field: "next", Op: OpNotNull},
	}
	type page struct {
		Next *int `json:"next"`
	}

	got, err := BindLink(desc, page{})
	if err != nil || got != nil {
		t.Errorf("BindLink(no next) = %+v, %v, want omitted by condition", got, err)
	}

	n := 2
	got, err = BindLink(desc, page{Next: &n})
	if err != nil || got == nil || got.Href != "/pages/2" {
		t.Errorf("BindLink() = %+v, %v, want /pages/2", got, err)
	}
}
