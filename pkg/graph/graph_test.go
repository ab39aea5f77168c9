package graph

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/jsonapi"
	"github.com/matzehuels/apigraph/pkg/model"
)

// =============================================================================
// Test Models
// =============================================================================

var (
	personType  *model.Type
	articleType *model.Type
)

func init() {
	personType = model.NewType("people", func() model.Model { return &person{} })
	articleType = model.NewType("articles", func() model.Model { return &article{} })
}

// populated counts PopulateFromResource calls per key across a test.
var populated = map[string]int{}

type person struct {
	ID      string
	Name    string
	Friends []*person
	Best    *person
}

func (p *person) PopulateFromResource(doc *jsonapi.Resource) error {
	populated[doc.String()]++
	p.ID = doc.ID
	var attrs struct {
		Name string `json:"name"`
	}
	if err := doc.DecodeAttributes(&attrs); err != nil {
		return err
	}
	p.Name = attrs.Name
	return nil
}

func (p *person) Relation(name string) model.Relation {
	switch name {
	case "friends":
		return model.ToMany(personType)
	case "best-friend":
		return model.ToOne(personType)
	case "employer":
		return oddRelation{}
	}
	return nil
}

func (p *person) SetRelation(name string, v any) (err error) {
	switch name {
	case "friends":
		p.Friends, err = model.AsSlice[*person](v)
	case "best-friend":
		p.Best, err = model.As[*person](v)
	}
	return err
}

type article struct {
	ID         string
	Author     *person
	Readers    []*person
	readersSet bool
}

func (a *article) PopulateFromResource(doc *jsonapi.Resource) error {
	populated[doc.String()]++
	a.ID = doc.ID
	return nil
}

func (a *article) Relation(name string) model.Relation {
	switch name {
	case "author":
		return model.ToOne(personType)
	case "readers":
		return model.ToMany(personType)
	}
	return nil
}

func (a *article) SetRelation(name string, v any) (err error) {
	switch name {
	case "author":
		a.Author, err = model.As[*person](v)
	case "readers":
		a.Readers, err = model.AsSlice[*person](v)
		a.readersSet = true
	}
	return err
}

// oddRelation carries a discriminator the builder does not know.
type oddRelation struct{}

func (oddRelation) Kind() model.RelationKind { return model.RelationKind(9) }
func (oddRelation) Target() *model.Type      { return personType }

// =============================================================================
// Helpers
// =============================================================================

func res(typ, id string, rels map[string]jsonapi.Linkage) jsonapi.Resource {
	r := jsonapi.Resource{Type: typ, ID: id}
	if len(rels) > 0 {
		r.Relationships = make(map[string]jsonapi.Relationship, len(rels))
		for name, l := range rels {
			r.Relationships[name] = jsonapi.Relationship{Data: l}
		}
	}
	return r
}

func named(typ, id, name string, rels map[string]jsonapi.Linkage) jsonapi.Resource {
	r := res(typ, id, rels)
	r.Attributes = json.RawMessage(fmt.Sprintf(`{"name": %q}`, name))
	return r
}

func stub(typ, id string) jsonapi.ResourceStub {
	return jsonapi.ResourceStub{Type: typ, ID: id}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestBuilder(included, primary []jsonapi.Resource, opts ...Option) *Builder {
	for k := range populated {
		delete(populated, k)
	}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewBuilder(BuildResourceIndex(included, primary), opts...)
}

// =============================================================================
// Index Tests
// =============================================================================

func TestResourceIndex(t *testing.T) {
	included := []jsonapi.Resource{
		named("people", "1", "included copy", nil),
		named("people", "2", "Bob", nil),
	}
	primary := []jsonapi.Resource{named("people", "1", "primary copy", nil)}
	ix := BuildResourceIndex(included, primary)

	if ix.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ix.Len())
	}
	doc, ok := ix.Lookup("people", "1")
	if !ok || doc != &primary[0] {
		t.Errorf("Lookup(people, 1) should return the primary document")
	}
	if _, ok := ix.Lookup("people", "3"); ok {
		t.Error("Lookup(people, 3) should miss")
	}
	if !ix.HasType("people") || ix.HasType("articles") {
		t.Error("HasType() mismatch")
	}
}

func TestModelIndex(t *testing.T) {
	ix := NewModelIndex()
	a, b := &person{ID: "a"}, &person{ID: "b"}
	k := Key{Type: "people", ID: "1"}

	if !ix.Set(k, a) {
		t.Fatal("first Set() should register")
	}
	if ix.Set(k, b) {
		t.Error("second Set() should keep the existing entry")
	}
	if got, _ := ix.Get(k); got != a {
		t.Error("Get() returned the replacement")
	}
	ix.Set(Key{Type: "articles", ID: "1"}, b)
	keys := ix.Keys()
	if len(keys) != 2 || keys[0] != k || ix.Len() != 2 {
		t.Errorf("Keys() = %v", keys)
	}
}

// =============================================================================
// Materialize Tests
// =============================================================================

func TestMaterializeSharedIdentity(t *testing.T) {
	primary := []jsonapi.Resource{
		res("articles", "1", map[string]jsonapi.Linkage{"author": jsonapi.NewToOne("people", "9")}),
		res("articles", "2", map[string]jsonapi.Linkage{"author": jsonapi.NewToOne("people", "9")}),
	}
	included := []jsonapi.Resource{named("people", "9", "Dan", nil)}
	b := newTestBuilder(included, primary)

	m1, err := b.Materialize(&primary[0], articleType)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}
	m2, err := b.Materialize(&primary[1], articleType)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}

	a1, a2 := m1.(*article), m2.(*article)
	if a1.Author == nil || a1.Author != a2.Author {
		t.Fatal("both articles should share one author instance")
	}
	if a1.Author.Name != "Dan" {
		t.Errorf("Author.Name = %q", a1.Author.Name)
	}
	if populated["people/9"] != 1 {
		t.Errorf("people/9 populated %d times, want 1", populated["people/9"])
	}

	again, _ := b.Materialize(&primary[0], articleType)
	if again != m1 {
		t.Error("Materialize() should return the memoized instance")
	}
	if s := b.Stats(); s.Models != 3 || s.Links != 2 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestMaterializeCycle(t *testing.T) {
	primary := []jsonapi.Resource{
		named("people", "a", "A", map[string]jsonapi.Linkage{"best-friend": jsonapi.NewToOne("people", "b")}),
	}
	included := []jsonapi.Resource{
		named("people", "b", "B", map[string]jsonapi.Linkage{"best-friend": jsonapi.NewToOne("people", "a")}),
	}
	b := newTestBuilder(included, primary)

	m, err := b.Materialize(&primary[0], personType)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}
	a := m.(*person)
	if a.Best == nil || a.Best.Name != "B" {
		t.Fatalf("a.Best = %v", a.Best)
	}
	if a.Best.Best != a {
		t.Error("cycle should close on the same instance")
	}
	if b.Models().Len() != 2 {
		t.Errorf("Models().Len() = %d, want 2", b.Models().Len())
	}
}

func TestMaterializeSelfReference(t *testing.T) {
	primary := []jsonapi.Resource{
		named("people", "a", "A", map[string]jsonapi.Linkage{
			"friends": jsonapi.NewToMany(stub("people", "a")),
		}),
	}
	b := newTestBuilder(nil, primary)

	m, err := b.Materialize(&primary[0], personType)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}
	a := m.(*person)
	if len(a.Friends) != 1 || a.Friends[0] != a {
		t.Errorf("Friends = %v, want [self]", a.Friends)
	}
}

func TestMaterializeSparse(t *testing.T) {
	tests := []struct {
		name  string
		rels  map[string]jsonapi.Linkage
		check func(t *testing.T, a *article)
	}{
		{
			name: "to-many omits missing documents",
			rels: map[string]jsonapi.Linkage{
				"readers": jsonapi.NewToMany(stub("people", "1"), stub("people", "404"), stub("people", "2")),
			},
			check: func(t *testing.T, a *article) {
				if len(a.Readers) != 2 || a.Readers[0].ID != "1" || a.Readers[1].ID != "2" {
					t.Errorf("Readers = %v", a.Readers)
				}
			},
		},
		{
			name: "to-many absent is set empty",
			rels: map[string]jsonapi.Linkage{"readers": {}},
			check: func(t *testing.T, a *article) {
				if !a.readersSet || len(a.Readers) != 0 {
					t.Errorf("Readers = %v (set=%v)", a.Readers, a.readersSet)
				}
			},
		},
		{
			name: "to-one missing id stays unset",
			rels: map[string]jsonapi.Linkage{"author": jsonapi.NewToOne("people", "404")},
			check: func(t *testing.T, a *article) {
				if a.Author != nil {
					t.Errorf("Author = %v, want nil", a.Author)
				}
			},
		},
		{
			name: "to-one missing type stays unset",
			rels: map[string]jsonapi.Linkage{"author": jsonapi.NewToOne("robots", "1")},
			check: func(t *testing.T, a *article) {
				if a.Author != nil {
					t.Errorf("Author = %v, want nil", a.Author)
				}
			},
		},
		{
			name: "to-one null stays unset",
			rels: map[string]jsonapi.Linkage{"author": {Present: true}},
			check: func(t *testing.T, a *article) {
				if a.Author != nil {
					t.Errorf("Author = %v, want nil", a.Author)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := []jsonapi.Resource{res("articles", "1", tt.rels)}
			included := []jsonapi.Resource{named("people", "1", "A", nil), named("people", "2", "B", nil)}
			b := newTestBuilder(included, primary)
			m, err := b.Materialize(&primary[0], articleType)
			if err != nil {
				t.Fatalf("Materialize() error: %v", err)
			}
			tt.check(t, m.(*article))
		})
	}
}

func TestMaterializeUnknownKind(t *testing.T) {
	primary := []jsonapi.Resource{
		res("people", "1", map[string]jsonapi.Linkage{"employer": jsonapi.NewToOne("companies", "1")}),
	}
	b := newTestBuilder(nil, primary)

	_, err := b.Materialize(&primary[0], personType)
	if !errors.Is(err, errors.ErrCodeUnknownRelationKind) {
		t.Fatalf("Materialize() error = %v, want UNKNOWN_RELATION_KIND", err)
	}
	var kerr *UnknownRelationKindError
	if !stderrors.As(err, &kerr) || kerr.Relation != "employer" || kerr.Kind != model.RelationKind(9) {
		t.Errorf("error = %#v", err)
	}
}

func TestMaterializeUndeclared(t *testing.T) {
	primary := []jsonapi.Resource{
		res("articles", "1", map[string]jsonapi.Linkage{
			"author": jsonapi.NewToOne("people", "1"),
			"tags":   jsonapi.NewToMany(stub("tags", "1")),
		}),
	}
	included := []jsonapi.Resource{named("people", "1", "A", nil)}

	b := newTestBuilder(included, primary)
	if _, err := b.Materialize(&primary[0], articleType); !errors.Is(err, errors.ErrCodeUnknownRelationKind) {
		t.Errorf("Materialize() error = %v, want UNKNOWN_RELATION_KIND", err)
	}

	b = newTestBuilder(included, primary, WithSkipUndeclared())
	m, err := b.Materialize(&primary[0], articleType)
	if err != nil {
		t.Fatalf("Materialize() with skip error: %v", err)
	}
	if m.(*article).Author == nil {
		t.Error("declared relations should still be wired")
	}
}

func TestMaterializeDeepChain(t *testing.T) {
	const depth = 50000
	docs := make([]jsonapi.Resource, depth)
	for i := range docs {
		rels := map[string]jsonapi.Linkage{}
		if i+1 < depth {
			rels["best-friend"] = jsonapi.NewToOne("people", fmt.Sprint(i+1))
		}
		docs[i] = res("people", fmt.Sprint(i), rels)
	}
	b := newTestBuilder(docs[1:], docs[:1])

	m, err := b.Materialize(&docs[0], personType)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}
	n := 0
	for p := m.(*person); p != nil; p = p.Best {
		n++
	}
	if n != depth {
		t.Errorf("chain length = %d, want %d", n, depth)
	}
}

func TestMaterializeNilType(t *testing.T) {
	primary := []jsonapi.Resource{res("people", "1", nil)}
	b := newTestBuilder(nil, primary)
	if _, err := b.Materialize(&primary[0], nil); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("Materialize(nil type) error = %v, want INTERNAL_ERROR", err)
	}
}

// =============================================================================
// Assembly Tests
// =============================================================================

func TestAssembleIncluded(t *testing.T) {
	primary := []jsonapi.Resource{
		res("articles", "1", map[string]jsonapi.Linkage{"readers": jsonapi.NewToMany(stub("people", "2"), stub("people", "1"))}),
	}
	included := []jsonapi.Resource{
		named("people", "1", "A", nil),
		named("people", "2", "B", nil),
		named("people", "1", "A again", nil),
	}
	b := newTestBuilder(included, primary)
	if _, err := b.Materialize(&primary[0], articleType); err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}

	got, err := AssembleIncluded(b.Models(), included)
	if err != nil {
		t.Fatalf("AssembleIncluded() error: %v", err)
	}
	if len(got) != len(included) {
		t.Fatalf("len = %d, want %d", len(got), len(included))
	}
	if got[0].(*person).ID != "1" || got[1].(*person).ID != "2" {
		t.Errorf("order = %v", got)
	}
	if got[0] != got[2] {
		t.Error("duplicate included documents should map to one instance")
	}
	if doc, _ := b.Resources().Lookup("people", "1"); doc != &included[2] {
		t.Errorf("ResourceIndex holds %v, want the later duplicate", doc)
	}
	if name := got[0].(*person).Name; name != "A again" {
		t.Errorf("Name = %q, want the later duplicate's %q", name, "A again")
	}

	prim, err := AssemblePrimary(b.Models(), primary)
	if err != nil || len(prim) != 1 || prim[0].(*article).Readers[0] != got[1] {
		t.Errorf("AssemblePrimary() = %v, %v", prim, err)
	}
}

func TestAssembleIncludedOrphan(t *testing.T) {
	primary := []jsonapi.Resource{res("articles", "1", nil)}
	included := []jsonapi.Resource{named("people", "7", "Orphan", nil)}
	b := newTestBuilder(included, primary)
	if _, err := b.Materialize(&primary[0], articleType); err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}

	_, err := AssembleIncluded(b.Models(), included)
	if !errors.Is(err, errors.ErrCodeConsistency) {
		t.Fatalf("AssembleIncluded() error = %v, want CONSISTENCY_ERROR", err)
	}
	var cerr *ConsistencyError
	if !stderrors.As(err, &cerr) || cerr.Resource.String() != "people/7" || cerr.Index != 0 {
		t.Errorf("error = %#v", err)
	}

	if err := b.MaterializeRegistered(included, model.NewTypeMap(personType)); err != nil {
		t.Fatalf("MaterializeRegistered() error: %v", err)
	}
	got, err := AssembleIncluded(b.Models(), included)
	if err != nil || got[0].(*person).Name != "Orphan" {
		t.Errorf("AssembleIncluded() after registry = %v, %v", got, err)
	}
}

func TestGenericSchemaGraph(t *testing.T) {
	schema, err := model.NewSchema(map[string]model.TypeDef{
		"articles": {Relations: map[string]model.RelationDef{
			"author":   {Kind: "to-one", Target: "people"},
			"comments": {Kind: "to-many", Target: "comments"},
		}},
		"comments": {Relations: map[string]model.RelationDef{
			"author":  {Kind: "to-one", Target: "people"},
			"article": {Kind: "to-one", Target: "articles"},
		}},
		"people": {},
	})
	if err != nil {
		t.Fatalf("NewSchema() error: %v", err)
	}
	articles, _ := schema.Lookup("articles")

	primary := []jsonapi.Resource{
		res("articles", "1", map[string]jsonapi.Linkage{
			"author":   jsonapi.NewToOne("people", "9"),
			"comments": jsonapi.NewToMany(stub("comments", "5"), stub("comments", "12")),
		}),
	}
	included := []jsonapi.Resource{
		named("people", "9", "Dan", nil),
		res("comments", "5", map[string]jsonapi.Linkage{
			"author":  jsonapi.NewToOne("people", "9"),
			"article": jsonapi.NewToOne("articles", "1"),
		}),
		res("comments", "12", map[string]jsonapi.Linkage{"author": jsonapi.NewToOne("people", "2")}),
	}
	b := newTestBuilder(included, primary)

	m, err := b.Materialize(&primary[0], articles)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}
	a := m.(*model.Generic)
	comments := a.Many("comments")
	if len(comments) != 2 {
		t.Fatalf("comments = %v", comments)
	}
	if comments[0].One("author") != a.One("author") {
		t.Error("comment author and article author should be one instance")
	}
	if comments[0].One("article") != a {
		t.Error("back reference should resolve to the primary instance")
	}
	if comments[1].One("author") != nil {
		t.Error("missing author should stay unset")
	}
}

// =============================================================================
// Export Tests
// =============================================================================

func TestExport(t *testing.T) {
	primary := []jsonapi.Resource{
		res("articles", "1", map[string]jsonapi.Linkage{
			"author":  jsonapi.NewToOne("people", "9"),
			"readers": jsonapi.NewToMany(stub("people", "2"), stub("people", "9")),
		}),
	}
	included := []jsonapi.Resource{named("people", "9", "Dan", nil), named("people", "2", "Eve", nil)}
	b := newTestBuilder(included, primary)
	if _, err := b.Materialize(&primary[0], articleType); err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}

	g := Export(b, primary)
	wantNodes := []string{"articles/1", "people/2", "people/9"}
	if len(g.Nodes) != len(wantNodes) {
		t.Fatalf("nodes = %v", g.Nodes)
	}
	for i, id := range wantNodes {
		if g.Nodes[i].ID != id {
			t.Errorf("Nodes[%d].ID = %q, want %q", i, g.Nodes[i].ID, id)
		}
	}
	if !g.Nodes[0].IsPrimary() || g.Nodes[1].IsPrimary() {
		t.Error("roles mismatch")
	}
	if g.Nodes[2].Label != "Dan" || g.Nodes[0].DisplayLabel() != "articles/1" {
		t.Errorf("labels = %q, %q", g.Nodes[2].Label, g.Nodes[0].DisplayLabel())
	}

	wantEdges := []Edge{
		{From: "articles/1", To: "people/9", Relation: "author"},
		{From: "articles/1", To: "people/2", Relation: "readers"},
		{From: "articles/1", To: "people/9", Relation: "readers"},
	}
	if len(g.Edges) != len(wantEdges) {
		t.Fatalf("edges = %v", g.Edges)
	}
	for i, e := range wantEdges {
		if g.Edges[i] != e {
			t.Errorf("Edges[%d] = %v, want %v", i, g.Edges[i], e)
		}
	}

	data, err := MarshalGraph(g)
	if err != nil {
		t.Fatalf("MarshalGraph() error: %v", err)
	}
	back, err := UnmarshalGraph(data)
	if err != nil || len(back.Nodes) != 3 || back.Nodes[2].Attributes["name"] != "Dan" {
		t.Errorf("UnmarshalGraph() = %v, %v", back, err)
	}
}
