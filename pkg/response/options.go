package response

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/apigraph/pkg/graph"
	"github.com/matzehuels/apigraph/pkg/model"
)

// Option configures response construction.
type Option func(*options)

type options struct {
	logger         *log.Logger
	registry       model.Registry
	skipUndeclared bool
}

func newOptions(opts []Option) *options {
	o := &options{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for construction diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegistry resolves model types by wire type name. It is consulted for
// primary documents when no explicit type is given, and for included
// documents that no relationship reaches.
func WithRegistry(r model.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithSkipUndeclared ignores relationships the model does not declare
// instead of failing with UNKNOWN_RELATION_KIND.
func WithSkipUndeclared() Option {
	return func(o *options) { o.skipUndeclared = true }
}

func (o *options) builderOptions() []graph.Option {
	opts := []graph.Option{graph.WithLogger(o.logger)}
	if o.skipUndeclared {
		opts = append(opts, graph.WithSkipUndeclared())
	}
	return opts
}
