package siren

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MediaType is the Siren media type.
const MediaType = "application/vnd.siren+json"

// Document is the wire-shaped Siren document. Embedded links are Documents
// with only Class, Rel, Href and Title set.
type Document struct {
	Class      []string    `json:"class,omitempty"`
	Rel        []string    `json:"rel,omitempty"`
	Href       string      `json:"href,omitempty"`
	Title      string      `json:"title,omitempty"`
	Properties Properties  `json:"properties,omitempty"`
	Entities   []*Document `json:"entities,omitempty"`
	Links      []Link      `json:"links,omitempty"`
	Actions    []Action    `json:"actions,omitempty"`
}

// Assemble converts a resolved entity tree into a Document. Order of
// properties, entities, links and actions is preserved.
func Assemble(e *Entity) *Document {
	if e == nil {
		return nil
	}
	doc := &Document{
		Rel:        e.Rel,
		Title:      e.Title,
		Properties: Properties(e.Properties),
		Links:      e.Links,
		Actions:    e.Actions,
	}
	if !e.ClassSuppressed {
		doc.Class = e.Class
	}
	for _, sub := range e.Entities {
		switch {
		case sub.Entity != nil:
			child := Assemble(sub.Entity)
			child.Rel = sub.Rel
			doc.Entities = append(doc.Entities, child)
		case sub.Link != nil:
			doc.Entities = append(doc.Entities, &Document{
				Class: sub.Link.Class,
				Rel:   sub.Rel,
				Href:  sub.Link.Href,
				Title: sub.Link.Title,
			})
		}
	}
	return doc
}

// Properties is an ordered property set that encodes as a JSON object.
type Properties []Property

// Get returns the named property value.
func (p Properties) Get(name string) (any, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes the properties as an object in insertion order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", prop.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping key order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}
	var out Properties
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("properties: expected key, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
		out = append(out, Property{Name: name, Value: value})
	}
	*p = out
	return nil
}
