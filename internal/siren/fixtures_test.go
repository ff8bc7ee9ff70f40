package siren

import "reflect"

// Shared test types. Types implementing Declarer carry their own metadata;
// the peer and level types get theirs from a Registry per test.

type part struct {
	Code string `json:"code"`
}

type widget struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	Part *part  `json:"part"`
}

func (widget) SirenMeta() EntityMeta {
	return EntityMeta{
		Class: []string{"widget"},
		URI:   "/widgets/{id}",
		Links: []LinkMeta{
			{Rel: []string{"component"}, Href: "/widgets/{id}/parts/{part.code}", Optional: true},
		},
	}
}

type review struct {
	ID     int     `json:"id"`
	Body   string  `json:"body"`
	Course *course `siren:"course,linked"`
}

func (review) SirenMeta() EntityMeta {
	return EntityMeta{
		Class: []string{"review"},
		URI:   "/courses/{parent.id}/reviews/{id}",
	}
}

type course struct {
	ID      int       `json:"id"`
	Title   string    `json:"title"`
	Status  string    `json:"status"`
	Tags    []string  `json:"tags"`
	Reviews []*review `json:"reviews"`
	secret  string
}

func (course) SirenMeta() EntityMeta {
	return EntityMeta{
		Class: []string{"course"},
		URI:   "/courses/{id}",
		Title: "{title}",
		Links: []LinkMeta{
			{Rel: []string{"collection"}, Href: "/courses"},
		},
		Actions: []ActionMeta{
			{
				Name:   "addReview",
				Method: "POST",
				Href:   "/courses/{id}/reviews",
				Type:   "application/x-www-form-urlencoded",
				Fields: []ActionFieldMeta{
					{Name: "courseId", Type: "hidden", Value: "{id}"},
					{Name: "body", Type: "text", Required: true, MaxLength: 250},
				},
			},
			{
				Name:      "close",
				Method:    "POST",
				Href:      "/courses/{id}/close",
				Condition: &Condition{Field: "status", Op: OpEq, Value: "open"},
			},
		},
	}
}

// peerA and peerB reference each other; nesting comes from the registry.
type peerA struct {
	ID   int    `json:"id"`
	Peer *peerB `json:"peer"`
}

type peerB struct {
	ID   int    `json:"id"`
	Peer *peerA `json:"peer"`
}

func peerMeta(class string, nesting Nesting) EntityMeta {
	return EntityMeta{
		Class:  []string{class},
		URI:    "/" + class + "/{id}",
		Fields: map[string]FieldSpec{"Peer": {Role: RoleSubEntity, Nesting: nesting}},
	}
}

func peerRegistry(a, b Nesting) *Registry {
	reg := NewRegistry()
	RegisterFor[peerA](reg, peerMeta("a", a))
	RegisterFor[peerB](reg, peerMeta("b", b))
	return reg
}

// level is a linear chain of embedded entities.
type level struct {
	N     int    `json:"n"`
	Child *level `json:"child"`
}

func levelRegistry(maxDepth int) *Registry {
	reg := NewRegistry()
	reg.Register(reflect.TypeOf(level{}), EntityMeta{
		Class:    []string{"level"},
		URI:      "/levels/{n}",
		MaxDepth: maxDepth,
	})
	return reg
}

func chain(n int) *level {
	var head *level
	for i := n - 1; i >= 0; i-- {
		head = &level{N: i, Child: head}
	}
	return head
}

// plain has metadata but no sub-entity fields.
type plain struct {
	ID    int     `json:"id"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (plain) SirenMeta() EntityMeta {
	return EntityMeta{Class: []string{"plain"}, URI: "/plain/{id}"}
}
