package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/graph"
	"github.com/matzehuels/apigraph/pkg/render"
	"github.com/matzehuels/apigraph/pkg/response"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	materializeOpts
	output        string // output file; stdout when empty
	format        string // dot, svg or png
	fromGraph     bool   // input is an exported graph rather than a document
	detailed      bool   // show attributes in node labels
	hideRelations bool   // omit relation names on edges
	rankDir       string // Graphviz rankdir
}

// renderCommand creates the render command for node-link diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: render.FormatSVG}

	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render an object graph as a node-link diagram",
		Long: `Render an object graph as a node-link diagram.

The input is a JSON:API document, or a graph written by "inspect -o" when
--graph is set. Primary resources are drawn bold; included resources that
nothing points at are drawn dashed.`,
		Example: `  apigraph render article.json -o article.svg
  apigraph render --graph graph.json -f dot
  apigraph render --detailed -f png -o article.png article.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(render.Formats, opts.format) {
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want %s)", opts.format, strings.Join(render.Formats, ", "))
			}
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), raw, args[0], &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: "+strings.Join(render.Formats, ", "))
	cmd.Flags().BoolVar(&opts.fromGraph, "graph", false, "input is an exported graph JSON file")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show resource attributes in node labels")
	cmd.Flags().BoolVar(&opts.hideRelations, "hide-relations", false, "omit relation names on edges")
	cmd.Flags().StringVar(&opts.rankDir, "rankdir", "LR", "layout direction: LR, TB, RL or BT")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, raw []byte, source string, opts *renderOpts) error {
	g, err := c.loadGraph(ctx, raw, source, opts)
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx))
	dot := render.ToDOT(g, render.Options{
		Detailed:      opts.detailed,
		HideRelations: opts.hideRelations,
		RankDir:       opts.rankDir,
	})
	data, err := render.Render(ctx, dot, opts.format)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d nodes as %s", len(g.Nodes), opts.format))

	if opts.output == "" {
		_, err := out.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Rendered %s", source)
	printFile(opts.output)
	return nil
}

// loadGraph decodes an exported graph or materializes a document.
func (c *CLI) loadGraph(ctx context.Context, raw []byte, source string, opts *renderOpts) (graph.Graph, error) {
	if opts.fromGraph {
		g, err := graph.UnmarshalGraph(raw)
		if err != nil {
			return graph.Graph{}, fmt.Errorf("read graph %s: %w", source, err)
		}
		return g, nil
	}

	typ, ropts, err := c.responseOptions(ctx, &opts.materializeOpts)
	if err != nil {
		return graph.Graph{}, err
	}
	resp, err := response.Decode(raw, typ, ropts...)
	if err != nil {
		return graph.Graph{}, fmt.Errorf("materialize %s: %w", source, err)
	}
	return resp.Graph(), nil
}
