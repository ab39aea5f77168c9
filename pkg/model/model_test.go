package model

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/jsonapi"
)

type tag struct{ name string }

func (t *tag) PopulateFromResource(doc *jsonapi.Resource) error { t.name = doc.ID; return nil }
func (t *tag) Relation(string) Relation                         { return nil }
func (t *tag) SetRelation(string, any) error                    { return nil }

var tagType = NewType("tags", func() Model { return &tag{} })

func TestType(t *testing.T) {
	if tagType.Name() != "tags" || tagType.String() != "tags" {
		t.Errorf("Name() = %q", tagType.Name())
	}
	a, b := tagType.New(), tagType.New()
	if a == b {
		t.Error("New() should construct distinct instances")
	}
}

func TestRelationKind(t *testing.T) {
	tests := []struct {
		kind RelationKind
		want string
	}{
		{KindToOne, "to-one"},
		{KindToMany, "to-many"},
		{RelationKind(7), "kind(7)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}

	for _, s := range []string{"to-one", "one", "to-many", "many"} {
		if _, err := ParseRelationKind(s); err != nil {
			t.Errorf("ParseRelationKind(%q) error: %v", s, err)
		}
	}
	if _, err := ParseRelationKind("has-many"); !errors.Is(err, errors.ErrCodeInvalidSchema) {
		t.Errorf("ParseRelationKind(has-many) error = %v, want INVALID_SCHEMA", err)
	}
}

func TestDescriptors(t *testing.T) {
	one := ToOne(tagType)
	if one.Kind() != KindToOne || one.Target() != tagType {
		t.Errorf("ToOne() = %v/%v", one.Kind(), one.Target())
	}
	many := ToMany(tagType)
	if many.Kind() != KindToMany || many.Target() != tagType {
		t.Errorf("ToMany() = %v/%v", many.Kind(), many.Target())
	}
}

func TestAs(t *testing.T) {
	x := &tag{name: "x"}

	got, err := As[*tag](x)
	if err != nil || got != x {
		t.Errorf("As() = %v, %v", got, err)
	}
	if _, err := As[*tag]([]Model{x}); err == nil {
		t.Error("As() should reject sequences")
	}

	list, err := AsSlice[*tag]([]Model{x, x})
	if err != nil || len(list) != 2 || list[1] != x {
		t.Errorf("AsSlice() = %v, %v", list, err)
	}
	if _, err := AsSlice[*tag](x); err == nil {
		t.Error("AsSlice() should reject single models")
	}
	if _, err := AsSlice[*tag]([]Model{&Generic{}}); err == nil {
		t.Error("AsSlice() should reject foreign element types")
	}
}

func TestTypeMap(t *testing.T) {
	reg := NewTypeMap(tagType)
	if got, ok := reg.Lookup("tags"); !ok || got != tagType {
		t.Errorf("Lookup(tags) = %v, %v", got, ok)
	}
	if _, ok := reg.Lookup("people"); ok {
		t.Error("Lookup(people) should miss")
	}
}

func TestNewSchema(t *testing.T) {
	tests := []struct {
		name    string
		defs    map[string]TypeDef
		opts    []SchemaOption
		wantErr bool
	}{
		{
			name: "valid",
			defs: map[string]TypeDef{
				"articles": {Relations: map[string]RelationDef{
					"author":   {Kind: "to-one", Target: "people"},
					"comments": {Kind: "to-many", Target: "comments"},
				}},
				"people":   {},
				"comments": {Relations: map[string]RelationDef{"author": {Kind: "to-one", Target: "people"}}},
			},
		},
		{
			name: "self reference",
			defs: map[string]TypeDef{
				"people": {Relations: map[string]RelationDef{"friends": {Kind: "to-many", Target: "people"}}},
			},
		},
		{
			name:    "bad kind",
			defs:    map[string]TypeDef{"people": {Relations: map[string]RelationDef{"friends": {Kind: "graph", Target: "people"}}}},
			wantErr: true,
		},
		{
			name:    "unknown target",
			defs:    map[string]TypeDef{"articles": {Relations: map[string]RelationDef{"author": {Kind: "to-one", Target: "people"}}}},
			wantErr: true,
		},
		{
			name: "unknown target allowed when open",
			defs: map[string]TypeDef{"articles": {Relations: map[string]RelationDef{"author": {Kind: "to-one", Target: "people"}}}},
			opts: []SchemaOption{WithOpen()},
		},
		{
			name:    "bad type name",
			defs:    map[string]TypeDef{"blog/posts": {}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.defs, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSchema() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidSchema) {
				t.Errorf("NewSchema() code = %v, want INVALID_SCHEMA", errors.GetCode(err))
			}
		})
	}
}

func TestSchemaLookup(t *testing.T) {
	closed, err := NewSchema(map[string]TypeDef{"people": {}})
	if err != nil {
		t.Fatalf("NewSchema() error: %v", err)
	}
	p1, ok := closed.Lookup("people")
	if !ok {
		t.Fatal("Lookup(people) missed")
	}
	p2, _ := closed.Lookup("people")
	if p1 != p2 {
		t.Error("Lookup() should return the same Type on every call")
	}
	if _, ok := closed.Lookup("articles"); ok {
		t.Error("closed schema should not create types")
	}

	open := OpenSchema()
	a, ok := open.Lookup("articles")
	if !ok || a.Name() != "articles" {
		t.Fatalf("open Lookup(articles) = %v, %v", a, ok)
	}
	if _, ok := open.Lookup(""); ok {
		t.Error("empty type name should never resolve")
	}
}

func TestSchemaOpenLookupRetainsNothing(t *testing.T) {
	s, err := NewSchema(map[string]TypeDef{"people": {}}, WithOpen())
	if err != nil {
		t.Fatalf("NewSchema() error: %v", err)
	}
	people, _ := s.Lookup("people")

	for i := range 1000 {
		name := fmt.Sprintf("made-up-%d", i)
		if typ, ok := s.Lookup(name); !ok || typ.Name() != name {
			t.Fatalf("Lookup(%s) = %v, %v", name, typ, ok)
		}
	}
	if len(s.types) != 1 {
		t.Errorf("schema holds %d types after undeclared lookups, want 1", len(s.types))
	}
	if got := s.Types(); len(got) != 1 || got[0] != "people" {
		t.Errorf("Types() = %v, want [people]", got)
	}
	if p, _ := s.Lookup("people"); p != people {
		t.Error("declared types should keep their identity")
	}
}

func TestGenericDeclaredRelations(t *testing.T) {
	s, err := NewSchema(map[string]TypeDef{
		"articles": {Relations: map[string]RelationDef{"author": {Kind: "to-one", Target: "people"}}},
		"people":   {},
	})
	if err != nil {
		t.Fatalf("NewSchema() error: %v", err)
	}
	articles, _ := s.Lookup("articles")
	people, _ := s.Lookup("people")

	m := articles.New()
	doc := &jsonapi.Resource{
		Type:       "articles",
		ID:         "1",
		Attributes: json.RawMessage(`{"title": "Hello"}`),
		Relationships: map[string]jsonapi.Relationship{
			"author": {Data: jsonapi.NewToOne("people", "9")},
			"tags":   {Data: jsonapi.NewToMany()},
		},
	}
	if err := m.PopulateFromResource(doc); err != nil {
		t.Fatalf("PopulateFromResource() error: %v", err)
	}
	g := m.(*Generic)
	if g.Attributes["title"] != "Hello" {
		t.Errorf("Attributes = %v", g.Attributes)
	}

	r := g.Relation("author")
	if r == nil || r.Kind() != KindToOne || r.Target() != people {
		t.Errorf("Relation(author) = %v", r)
	}
	if g.Relation("tags") != nil {
		t.Error("closed schema should not infer undeclared relations")
	}
}

func TestGenericOpenInference(t *testing.T) {
	s := OpenSchema()
	articles, _ := s.Lookup("articles")

	m := articles.New().(*Generic)
	doc := &jsonapi.Resource{
		Type: "articles",
		ID:   "1",
		Relationships: map[string]jsonapi.Relationship{
			"author": {Data: jsonapi.NewToOne("people", "9")},
			"tags":   {Data: jsonapi.NewToMany(jsonapi.ResourceStub{Type: "tags", ID: "1"})},
			"editor": {Data: jsonapi.Linkage{Present: true}},
		},
	}
	if err := m.PopulateFromResource(doc); err != nil {
		t.Fatalf("PopulateFromResource() error: %v", err)
	}

	if r := m.Relation("author"); r.Kind() != KindToOne || r.Target().Name() != "people" {
		t.Errorf("Relation(author) = %v/%v", r.Kind(), r.Target())
	}
	if r := m.Relation("tags"); r.Kind() != KindToMany || r.Target().Name() != "tags" {
		t.Errorf("Relation(tags) = %v/%v", r.Kind(), r.Target())
	}
	if r := m.Relation("editor"); r.Kind() != KindToOne {
		t.Errorf("Relation(editor).Kind() = %v, want to-one", r.Kind())
	}
}

func TestGenericSetRelation(t *testing.T) {
	a := &Generic{Type: "articles", ID: "1"}
	b := &Generic{Type: "people", ID: "9"}

	if err := a.SetRelation("author", b); err != nil {
		t.Fatalf("SetRelation() error: %v", err)
	}
	if err := a.SetRelation("comments", []Model{b}); err != nil {
		t.Fatalf("SetRelation() error: %v", err)
	}
	if err := a.SetRelation("broken", "people/9"); err == nil {
		t.Error("SetRelation() should reject non-model values")
	}

	if a.One("author") != b {
		t.Error("One(author) lost identity")
	}
	if got := a.Many("comments"); len(got) != 1 || got[0] != b {
		t.Errorf("Many(comments) = %v", got)
	}
	if a.One("missing") != nil {
		t.Error("One(missing) should be nil")
	}
	if a.Related("author") != Model(b) {
		t.Error("Related(author) should return the stored model")
	}
	if ms, ok := a.Related("comments").([]Model); !ok || len(ms) != 1 {
		t.Errorf("Related(comments) = %#v", a.Related("comments"))
	}
	if a.Related("missing") != nil {
		t.Error("Related(missing) should be nil")
	}
	names := a.RelationNames()
	if len(names) != 2 || names[0] != "author" || names[1] != "comments" {
		t.Errorf("RelationNames() = %v", names)
	}
}
