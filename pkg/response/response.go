package response

import (
	"time"

	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/graph"
	"github.com/matzehuels/apigraph/pkg/jsonapi"
	"github.com/matzehuels/apigraph/pkg/model"
	"github.com/matzehuels/apigraph/pkg/observability"
)

// Response kinds.
const (
	KindSingle     = "single"
	KindCollection = "collection"
)

// Response is the common view over both response shapes.
type Response interface {
	// Kind returns KindSingle or KindCollection.
	Kind() string
	// Primary returns the primary models in payload order.
	// A single response yields zero or one element.
	Primary() []model.Model
	// Included returns one model per included document, in payload order.
	Included() []model.Model
	// Graph exports the materialized graph.
	Graph() graph.Graph
	// Stats returns materialization counters.
	Stats() graph.Stats
	// Meta returns the top-level meta object.
	Meta() map[string]any
	// Links returns the top-level links object.
	Links() map[string]any
}

// base holds the state shared by both shapes.
type base struct {
	body     *jsonapi.Body
	docs     []jsonapi.Resource
	builder  *graph.Builder
	primary  []model.Model
	included []model.Model
}

func (r *base) Primary() []model.Model  { return r.primary }
func (r *base) Included() []model.Model { return r.included }
func (r *base) Graph() graph.Graph      { return graph.Export(r.builder, r.docs) }
func (r *base) Stats() graph.Stats      { return r.builder.Stats() }
func (r *base) Meta() map[string]any    { return r.body.Meta }
func (r *base) Links() map[string]any   { return r.body.Links }

// Single is a response whose primary data is one resource or null.
type Single struct {
	base
}

// NewSingle materializes a single-resource document with model type t.
// A null data member yields a response whose Data is nil.
func NewSingle(body *jsonapi.Body, t *model.Type, opts ...Option) (*Single, error) {
	if err := checkErrors(body); err != nil {
		return nil, err
	}
	doc, err := body.One()
	if err != nil {
		return nil, err
	}
	var docs []jsonapi.Resource
	if doc != nil {
		docs = []jsonapi.Resource{*doc}
	}
	b, err := build(KindSingle, body, docs, t, newOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Single{base: *b}, nil
}

// Kind implements Response.
func (s *Single) Kind() string { return KindSingle }

// Data returns the primary model, or nil for null data.
func (s *Single) Data() model.Model {
	if len(s.primary) == 0 {
		return nil
	}
	return s.primary[0]
}

// Collection is a response whose primary data is an array of resources.
type Collection struct {
	base
}

// NewCollection materializes a collection document with model type t.
// A null or absent data member yields an empty collection.
func NewCollection(body *jsonapi.Body, t *model.Type, opts ...Option) (*Collection, error) {
	if err := checkErrors(body); err != nil {
		return nil, err
	}
	docs, err := body.Many()
	if err != nil {
		return nil, err
	}
	b, err := build(KindCollection, body, docs, t, newOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Collection{base: *b}, nil
}

// Kind implements Response.
func (c *Collection) Kind() string { return KindCollection }

// Data returns the primary models in payload order.
func (c *Collection) Data() []model.Model { return c.primary }

// Decode parses raw and builds a Collection when the primary data is an
// array, or a Single otherwise.
func Decode(raw []byte, t *model.Type, opts ...Option) (Response, error) {
	body, err := jsonapi.Decode(raw)
	if err != nil {
		return nil, err
	}
	if body.IsCollection() {
		c, err := NewCollection(body, t, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	s, err := NewSingle(body, t, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// checkErrors turns an error document into an API_ERROR.
func checkErrors(body *jsonapi.Body) error {
	if len(body.Errors) > 0 && !body.HasData() {
		return errors.New(errors.ErrCodeAPI, "%s", body.ErrorSummary())
	}
	return nil
}

func build(kind string, body *jsonapi.Body, docs []jsonapi.Resource, t *model.Type, o *options) (r *base, err error) {
	hooks := observability.Graph()
	hooks.OnMaterializeStart(kind, len(docs)+len(body.Included))
	start := time.Now()
	defer func() {
		n := 0
		if r != nil {
			n = r.builder.Stats().Models
		}
		hooks.OnMaterializeComplete(kind, n, time.Since(start), err)
	}()

	if err := jsonapi.Validate(docs, body.Included); err != nil {
		return nil, err
	}

	resources := graph.BuildResourceIndex(body.Included, docs)
	b := graph.NewBuilder(resources, o.builderOptions()...)

	for i := range docs {
		typ, err := o.typeFor(&docs[i], t)
		if err != nil {
			return nil, err
		}
		doc, _ := resources.Lookup(docs[i].Type, docs[i].ID)
		if _, err := b.Materialize(doc, typ); err != nil {
			return nil, err
		}
	}

	primary, err := graph.AssemblePrimary(b.Models(), docs)
	if err != nil {
		return nil, err
	}
	if o.registry != nil {
		if err := b.MaterializeRegistered(body.Included, o.registry); err != nil {
			return nil, err
		}
	}
	included, err := graph.AssembleIncluded(b.Models(), body.Included)
	if err != nil {
		return nil, err
	}

	stats := b.Stats()
	o.logger.Debug("materialized response", "kind", kind,
		"primary", len(primary), "included", len(included),
		"models", stats.Models, "links", stats.Links, "skipped", stats.Skipped)

	return &base{
		body:     body,
		docs:     docs,
		builder:  b,
		primary:  primary,
		included: included,
	}, nil
}

// typeFor picks the model type for a primary document.
func (o *options) typeFor(doc *jsonapi.Resource, t *model.Type) (*model.Type, error) {
	if t != nil {
		return t, nil
	}
	if o.registry == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no model type given for %s and no registry configured", doc)
	}
	typ, ok := o.registry.Lookup(doc.Type)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no model type registered for %q", doc.Type)
	}
	return typ, nil
}
