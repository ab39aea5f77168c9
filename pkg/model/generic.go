package model

import (
	"maps"
	"slices"

	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/jsonapi"
)

// Generic is a schema-driven model. Attributes are kept as a map and
// relations are stored by name.
type Generic struct {
	Type       string
	ID         string
	Attributes map[string]any
	Links      map[string]any
	Meta       map[string]any

	schema    *Schema
	linkage   map[string]jsonapi.Linkage
	relations map[string]any
}

// PopulateFromResource implements Model.
func (g *Generic) PopulateFromResource(doc *jsonapi.Resource) error {
	g.Type = doc.Type
	g.ID = doc.ID
	g.Links = doc.Links
	g.Meta = doc.Meta
	g.Attributes = map[string]any{}
	if err := doc.DecodeAttributes(&g.Attributes); err != nil {
		return err
	}
	g.linkage = make(map[string]jsonapi.Linkage, len(doc.Relationships))
	for name, rel := range doc.Relationships {
		g.linkage[name] = rel.Data
	}
	return nil
}

// Relation implements Model. Declared relations come from the schema; open
// schemas infer undeclared ones from the linkage shape seen in the payload.
func (g *Generic) Relation(name string) Relation {
	if g.schema == nil {
		return nil
	}
	if r, ok := g.schema.relation(g.Type, name); ok {
		return r
	}
	if !g.schema.open {
		return nil
	}

	l := g.linkage[name]
	kind := KindToOne
	if l.IsMany {
		kind = KindToMany
	}
	target := g.Type
	if stubs := l.Stubs(); len(stubs) > 0 {
		target = stubs[0].Type
	}
	t, _ := g.schema.Lookup(target)
	return relation{kind: kind, target: t}
}

// SetRelation implements Model.
func (g *Generic) SetRelation(name string, value any) error {
	switch value.(type) {
	case Model, []Model:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "%s/%s.%s: unsupported relation value %T", g.Type, g.ID, name, value)
	}
	if g.relations == nil {
		g.relations = make(map[string]any)
	}
	g.relations[name] = value
	return nil
}

// One returns a resolved to-one relation, or nil if unset.
func (g *Generic) One(name string) *Generic {
	m, _ := g.Related(name).(*Generic)
	return m
}

// Many returns a resolved to-many relation.
func (g *Generic) Many(name string) []*Generic {
	ms, _ := g.Related(name).([]Model)
	out := make([]*Generic, 0, len(ms))
	for _, m := range ms {
		if gm, ok := m.(*Generic); ok {
			out = append(out, gm)
		}
	}
	return out
}

// Related returns the raw relation value: a Model, a []Model, or nil.
func (g *Generic) Related(name string) any {
	return g.relations[name]
}

// RelationNames returns the names of all resolved relations in sorted order.
func (g *Generic) RelationNames() []string {
	return slices.Sorted(maps.Keys(g.relations))
}

// String returns "type/id".
func (g *Generic) String() string { return g.Type + "/" + g.ID }
