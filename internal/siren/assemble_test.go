package siren

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestAssemble_CourseDocument(t *testing.T) {
	c := sampleCourse()
	doc, err := New().Render(c)
	if err != nil {
		t.Fatalf("Render() error = %v, want nil", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	text := string(data)

	// Properties keep declaration order on the wire.
	if !strings.Contains(text, `"properties":{"id":7,"title":"Go","status":"open","tags":["lang"]}`) {
		t.Errorf("properties out of order: %s", text)
	}

	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(decoded.Class, []string{"course"}) {
		t.Errorf("class = %v, want [course]", decoded.Class)
	}
	names := make([]string, len(decoded.Properties))
	for i, p := range decoded.Properties {
		names[i] = p.Name
	}
	if want := []string{"id", "title", "status", "tags"}; !reflect.DeepEqual(names, want) {
		t.Errorf("decoded property order = %v, want %v", names, want)
	}
	if len(decoded.Entities) != 2 {
		t.Fatalf("len(entities) = %d, want 2", len(decoded.Entities))
	}
	sub := decoded.Entities[0]
	if !reflect.DeepEqual(sub.Rel, []string{"reviews"}) || len(sub.Entities) != 1 {
		t.Fatalf("first entity = %+v, want embedded review with one embedded link", sub)
	}
	if back := sub.Entities[0]; back.Href != "/courses/7" || back.Properties != nil {
		t.Errorf("embedded link = %+v, want href /courses/7 and no properties", back)
	}
	if len(decoded.Actions) != 2 || decoded.Actions[0].Name != "addReview" {
		t.Errorf("actions = %+v, want addReview then close", decoded.Actions)
	}
}

func TestAssemble_PreservesOrder(t *testing.T) {
	entity := &Entity{
		Class: []string{"x"},
		Properties: []Property{
			{Name: "z", Value: 1},
			{Name: "a", Value: 2},
		},
		Entities: []SubEntity{
			{Rel: []string{"second"}, Link: &Link{Rel: []string{"second"}, Href: "/2"}},
			{Rel: []string{"first"}, Entity: &Entity{Class: []string{"child"}}},
		},
		Links: []Link{
			{Rel: []string{"self"}, Href: "/x"},
			{Rel: []string{"up"}, Href: "/"},
		},
	}

	doc := Assemble(entity)
	if doc.Entities[0].Href != "/2" || doc.Entities[1].Class[0] != "child" {
		t.Errorf("entity order not preserved: %+v", doc.Entities)
	}
	if !reflect.DeepEqual(doc.Entities[1].Rel, []string{"first"}) {
		t.Errorf("embedded rel = %v, want [first]", doc.Entities[1].Rel)
	}
	if doc.Links[0].Rel[0] != "self" || doc.Links[1].Rel[0] != "up" {
		t.Errorf("link order not preserved: %+v", doc.Links)
	}

	data, err := json.Marshal(doc.Properties)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(data) != `{"z":1,"a":2}` {
		t.Errorf("properties = %s, want {\"z\":1,\"a\":2}", data)
	}
}

func TestAssemble_SuppressedClassOmitted(t *testing.T) {
	doc := Assemble(&Entity{Class: []string{"hidden"}, ClassSuppressed: true})
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if strings.Contains(string(data), `"class"`) {
		t.Errorf("document = %s, want no class member", data)
	}
	if Assemble(nil) != nil {
		t.Errorf("Assemble(nil) != nil")
	}
}

func TestProperties_UnmarshalRejectsNonObject(t *testing.T) {
	var p Properties
	if err := json.Unmarshal([]byte(`[1,2]`), &p); err == nil {
		t.Errorf("Unmarshal([1,2]) error = nil, want error")
	}
	if err := json.Unmarshal([]byte(`null`), &p); err != nil || p != nil {
		t.Errorf("Unmarshal(null) = %v, %v, want nil, nil", p, err)
	}
}
