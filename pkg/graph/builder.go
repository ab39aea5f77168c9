package graph

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/jsonapi"
	"github.com/matzehuels/apigraph/pkg/model"
)

// Link is a resolved relation between two materialized models.
type Link struct {
	From     Key
	To       Key
	Relation string
}

// Stats summarizes a builder's work so far.
type Stats struct {
	Resources int `json:"resources"` // distinct documents in the ResourceIndex
	Models    int `json:"models"`    // models materialized
	Links     int `json:"links"`     // relations resolved
	Skipped   int `json:"skipped"`   // stubs whose documents were absent from the response
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for debug output. Defaults to a discard logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithSkipUndeclared makes the builder ignore relationships the model does
// not declare instead of failing with UNKNOWN_RELATION_KIND.
func WithSkipUndeclared() Option {
	return func(b *Builder) { b.skipUndeclared = true }
}

// pending is a registered model whose relationships are not wired yet.
type pending struct {
	doc   *jsonapi.Resource
	model model.Model
}

// Builder materializes documents from a ResourceIndex into a ModelIndex.
type Builder struct {
	resources      *ResourceIndex
	models         *ModelIndex
	logger         *log.Logger
	skipUndeclared bool

	work    []pending
	links   []Link
	skipped int
}

// NewBuilder returns a Builder over resources with an empty ModelIndex.
func NewBuilder(resources *ResourceIndex, opts ...Option) *Builder {
	b := &Builder{
		resources: resources,
		models:    NewModelIndex(),
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Resources returns the index the builder reads from.
func (b *Builder) Resources() *ResourceIndex { return b.resources }

// Models returns the index the builder memoizes into.
func (b *Builder) Models() *ModelIndex { return b.models }

// Links returns every relation resolved so far, in wiring order.
func (b *Builder) Links() []Link {
	out := make([]Link, len(b.links))
	copy(out, b.links)
	return out
}

// Stats returns counters for the work done so far.
func (b *Builder) Stats() Stats {
	return Stats{
		Resources: b.resources.Len(),
		Models:    b.models.Len(),
		Links:     len(b.links),
		Skipped:   b.skipped,
	}
}

// Materialize returns the model for doc, building it with t if the
// document's (type, id) has not been materialized yet.
//
// Everything reachable from doc through relationships whose targets are in
// the ResourceIndex is materialized as well, each (type, id) exactly once.
// When a (type, id) is already in the ModelIndex the memoized instance is
// returned and t is not consulted.
//
// On error the ModelIndex may hold partially wired models; callers must
// discard the builder.
func (b *Builder) Materialize(doc *jsonapi.Resource, t *model.Type) (model.Model, error) {
	m, fresh, err := b.instantiate(doc, t)
	if err != nil || !fresh {
		return m, err
	}
	for len(b.work) > 0 {
		p := b.work[len(b.work)-1]
		b.work = b.work[:len(b.work)-1]
		if err := b.wire(p); err != nil {
			b.work = nil
			return nil, err
		}
	}
	return m, nil
}

// MaterializeRegistered materializes every document of docs that has no
// model yet and whose type reg knows. Documents of unknown types are left
// alone.
func (b *Builder) MaterializeRegistered(docs []jsonapi.Resource, reg model.Registry) error {
	for i := range docs {
		doc := &docs[i]
		if _, ok := b.models.Get(KeyOf(doc)); ok {
			continue
		}
		t, ok := reg.Lookup(doc.Type)
		if !ok {
			continue
		}
		// Use the indexed copy so primary documents shadow included ones.
		if indexed, ok := b.resources.Lookup(doc.Type, doc.ID); ok {
			doc = indexed
		}
		if _, err := b.Materialize(doc, t); err != nil {
			return err
		}
	}
	return nil
}

// instantiate returns the memoized model for doc or constructs, populates
// and registers a new one. Fresh models are queued for wiring.
func (b *Builder) instantiate(doc *jsonapi.Resource, t *model.Type) (model.Model, bool, error) {
	key := KeyOf(doc)
	if m, ok := b.models.Get(key); ok {
		return m, false, nil
	}
	if t == nil {
		return nil, false, errors.New(errors.ErrCodeInternal, "%s: no model type to materialize with", key)
	}

	m := t.New()
	if err := m.PopulateFromResource(doc); err != nil {
		return nil, false, fmt.Errorf("populate %s: %w", key, err)
	}
	// Register before wiring so cycles resolve to this instance.
	b.models.Set(key, m)
	b.work = append(b.work, pending{doc: doc, model: m})
	return m, true, nil
}

// wire resolves every relationship of a registered model.
func (b *Builder) wire(p pending) error {
	from := KeyOf(p.doc)
	for _, name := range slices.Sorted(maps.Keys(p.doc.Relationships)) {
		linkage := p.doc.Relationships[name].Data

		rel := p.model.Relation(name)
		if rel == nil {
			if b.skipUndeclared {
				b.logger.Debug("skipping undeclared relationship", "resource", from, "relation", name)
				continue
			}
			return &UnknownRelationKindError{Resource: from, Relation: name}
		}

		var err error
		switch rel.Kind() {
		case model.KindToOne:
			err = b.wireOne(p.model, from, name, rel, linkage)
		case model.KindToMany:
			err = b.wireMany(p.model, from, name, rel, linkage)
		default:
			return &UnknownRelationKindError{Resource: from, Relation: name, Kind: rel.Kind()}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) wireOne(m model.Model, from Key, name string, rel model.Relation, l jsonapi.Linkage) error {
	if l.IsMany {
		b.logger.Warn("to-one relation carries array linkage; leaving unset", "resource", from, "relation", name)
		return nil
	}
	stub := l.One
	if stub == nil {
		return nil
	}
	if !b.resources.HasType(stub.Type) {
		b.skip(from, name, stub)
		return nil
	}
	doc, ok := b.resources.Lookup(stub.Type, stub.ID)
	if !ok {
		b.skip(from, name, stub)
		return nil
	}

	target, err := b.resolve(doc, from, name, rel)
	if err != nil {
		return err
	}
	if err := m.SetRelation(name, target); err != nil {
		return fmt.Errorf("%s: set %s: %w", from, name, err)
	}
	b.links = append(b.links, Link{From: from, To: KeyOf(doc), Relation: name})
	return nil
}

func (b *Builder) wireMany(m model.Model, from Key, name string, rel model.Relation, l jsonapi.Linkage) error {
	if l.Present && !l.IsMany && l.One != nil {
		b.logger.Warn("to-many relation carries single linkage", "resource", from, "relation", name)
	}

	stubs := l.Stubs()
	related := make([]model.Model, 0, len(stubs))
	var links []Link
	for i := range stubs {
		doc, ok := b.resources.Lookup(stubs[i].Type, stubs[i].ID)
		if !ok {
			b.skip(from, name, &stubs[i])
			continue
		}
		target, err := b.resolve(doc, from, name, rel)
		if err != nil {
			return err
		}
		related = append(related, target)
		links = append(links, Link{From: from, To: KeyOf(doc), Relation: name})
	}

	if err := m.SetRelation(name, related); err != nil {
		return fmt.Errorf("%s: set %s: %w", from, name, err)
	}
	b.links = append(b.links, links...)
	return nil
}

// resolve returns the model for a related document.
func (b *Builder) resolve(doc *jsonapi.Resource, from Key, name string, rel model.Relation) (model.Model, error) {
	t := rel.Target()
	if t == nil {
		if m, ok := b.models.Get(KeyOf(doc)); ok {
			return m, nil
		}
		return nil, errors.New(errors.ErrCodeInternal, "%s: relation %q declares no target type", from, name)
	}
	m, _, err := b.instantiate(doc, t)
	return m, err
}

func (b *Builder) skip(from Key, name string, stub *jsonapi.ResourceStub) {
	b.skipped++
	b.logger.Debug("related resource not in response", "resource", from, "relation", name, "target", stub.Type+"/"+stub.ID)
}
