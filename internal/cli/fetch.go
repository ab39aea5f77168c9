package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/apigraph/pkg/cache"
	"github.com/matzehuels/apigraph/pkg/client"
	"github.com/matzehuels/apigraph/pkg/errors"
)

// fetchOpts holds the command-line flags for the fetch command.
type fetchOpts struct {
	materializeOpts
	baseURL string   // overrides base_url from the config
	headers []string // extra "Name: value" headers
	refresh bool     // bypass the cache
	raw     bool     // print the response body unchanged
	output  string   // write the exported graph as JSON to this file
	asJSON  bool     // print the exported graph as JSON
}

// fetchCommand creates the fetch command for remote documents.
func (c *CLI) fetchCommand() *cobra.Command {
	var opts fetchOpts

	cmd := &cobra.Command{
		Use:   "fetch <path>",
		Short: "Fetch a JSON:API document and show its object graph",
		Long: `Fetch a JSON:API document and show its object graph.

The path is resolved against base_url from the config or --base-url.
Absolute URLs are used as given. Responses are cached according to the
cache section of the config.`,
		Example: `  apigraph fetch --base-url https://api.example.com/v1 "articles/1?include=author,comments"
  apigraph fetch -H "Authorization: Bearer $TOKEN" /articles --refresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetch(cmd.Context(), args[0], &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "API base URL (overrides the config)")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, `extra request header, "Name: value" (repeatable)`)
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the cache")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the response body without materializing it")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the graph as JSON to this file")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the graph as JSON")

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, path string, opts *fetchOpts) error {
	logger := loggerFromContext(ctx)
	cfg := c.settings()

	headers := maps.Clone(cfg.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	for _, h := range opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return errors.New(errors.ErrCodeInvalidInput, "header %q: want \"Name: value\"", h)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	baseURL := cfg.BaseURL
	if opts.baseURL != "" {
		baseURL = opts.baseURL
	}

	cc, err := c.openCache(ctx)
	if err != nil {
		return err
	}
	defer cc.Close()

	cl, err := client.New(baseURL,
		client.WithCache(cc, cfg.Cache.TTL.D()),
		client.WithKeyer(cache.NewScopedKeyer(cache.NewDefaultKeyer(), headerScope(headers))),
		client.WithHeaders(headers),
		client.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Fetching "+path)
	spinner.Start()
	raw, err := cl.Fetch(ctx, path, opts.refresh)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	if opts.raw {
		_, err := out.Write(raw)
		return err
	}

	return c.runInspect(ctx, raw, path, &inspectOpts{
		materializeOpts: opts.materializeOpts,
		output:          opts.output,
		asJSON:          opts.asJSON,
	})
}

// headerScope keys cache entries by the request headers, so responses
// fetched with different credentials are never mixed.
func headerScope(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(headers)) {
		fmt.Fprintf(&b, "%s:%s\n", strings.ToLower(k), headers[k])
	}
	return cache.Hash([]byte(b.String()))[:16] + ":"
}
