package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/apigraph/internal/server"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve graph materialization over HTTP",
		Long: `Serve graph materialization over HTTP.

POST a JSON:API document to /v1/materialize to receive its object graph.
Graphs are cached with the configured cache backend. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from the config, or :8080)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	cfg := c.settings()
	if addr == "" {
		addr = cfg.Server.Addr
	}

	schema, err := cfg.Schema()
	if err != nil {
		return err
	}
	cc, err := c.openCache(ctx)
	if err != nil {
		return err
	}
	defer cc.Close()

	opts := []server.Option{
		server.WithLogger(loggerFromContext(ctx)),
		server.WithCache(cc, cfg.Cache.TTL.D(), cfg.SchemaHash()),
	}
	if !cfg.Strict {
		opts = append(opts, server.WithSkipUndeclared())
	}

	printInfo("Serving on %s", StyleLink.Render(addr))
	printDetail("cache: %s, types: %d", cfg.Cache.Backend, len(schema.Types()))
	return server.New(schema, opts...).ListenAndServe(ctx, addr)
}
