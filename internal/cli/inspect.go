package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/apigraph/pkg/graph"
	"github.com/matzehuels/apigraph/pkg/response"
)

// inspectOpts holds the command-line flags for the inspect command.
type inspectOpts struct {
	materializeOpts
	output string // write the exported graph as JSON to this file
	asJSON bool   // print the exported graph as JSON instead of a summary
}

// inspectCommand creates the inspect command for local documents.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "inspect [file|-]",
		Short: "Materialize a JSON:API document and show its object graph",
		Long: `Materialize a JSON:API document and show its object graph.

Reads the document from a file, or from stdin when the argument is "-".
Every resource becomes exactly one node no matter how often it is referenced.`,
		Example: `  apigraph inspect article.json
  curl -s https://api.example.com/articles/1?include=author | apigraph inspect -
  apigraph inspect --type articles -o graph.json article.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return c.runInspect(cmd.Context(), raw, args[0], &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the graph as JSON to this file")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the graph as JSON")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, raw []byte, source string, opts *inspectOpts) error {
	typ, ropts, err := c.responseOptions(ctx, &opts.materializeOpts)
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx))
	resp, err := response.Decode(raw, typ, ropts...)
	if err != nil {
		return fmt.Errorf("materialize %s: %w", source, err)
	}
	prog.done("Materialized " + source)

	return showResponse(resp, opts.output, opts.asJSON)
}

// showResponse prints or writes the materialized graph of resp.
func showResponse(resp response.Response, output string, asJSON bool) error {
	g := resp.Graph()
	if output != "" {
		if err := graph.WriteGraphFile(g, output); err != nil {
			return fmt.Errorf("write graph: %w", err)
		}
	}
	if asJSON {
		return graph.WriteGraph(g, out)
	}

	stats := resp.Stats()
	printSuccess("%s response: %d primary, %d included", resp.Kind(), len(resp.Primary()), len(resp.Included()))
	printStats(stats)
	if stats.Skipped > 0 {
		printWarning("%d related resources were not included in the document", stats.Skipped)
	}
	printNewline()
	printNodes(g)

	if output != "" {
		printNewline()
		printSuccess("Wrote graph")
		printFile(output)
		printNextStep("Render it", appName+" render --graph "+output)
	}
	return nil
}
