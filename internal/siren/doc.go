// Package siren resolves annotated Go values into Siren hypermedia entities.
//
// A type declares how it renders through EntityMeta: classes, a self URI
// template, static links, actions with typed fields and per-field roles.
// Metadata comes from a MetadataSource (the type itself via Declarer, a
// Registry filled in code or from TOML, or any chain of these) and is
// compiled once per type into a TypeDescriptor held by a DescriptorCache.
//
// A Resolver walks an instance graph: properties are extracted in
// declaration order, embedded sub-entities are resolved recursively, linked
// sub-entities become links to their own self URI, and URI templates such
// as "/courses/{id}/reviews/{review.id}" are expanded against live field
// values. Resolution fails with the typed errors of package types
// (MetadataError, TemplateResolutionError, CyclicGraphError,
// DepthExceededError), each carrying the path of the failing sub-entity.
//
//	r := siren.New(siren.WithSource(registry))
//	doc, err := r.Render(course)
//
// Assemble turns a resolved Entity into a Document that encodes as
// application/vnd.siren+json.
package siren
