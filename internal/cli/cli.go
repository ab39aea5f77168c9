// Package cli implements the apigraph command-line interface.
//
// # Commands
//
//   - inspect: materialize a JSON:API document from a file or stdin
//   - fetch: fetch a document from an API and materialize it
//   - render: draw a document or an exported graph with Graphviz
//   - serve: run the materialization HTTP server
//   - cache: manage the response cache
//
// # Configuration
//
// Every command reads the config file given by --config, or the first of
// config.toml, config.yaml and config.yml under ~/.config/apigraph. Flags
// override file values.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. With debug
// logging the observability hooks are routed to the logger as well.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/apigraph/internal/config"
	"github.com/matzehuels/apigraph/pkg/buildinfo"
	"github.com/matzehuels/apigraph/pkg/cache"
	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/model"
	"github.com/matzehuels/apigraph/pkg/observability"
	"github.com/matzehuels/apigraph/pkg/response"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "apigraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level the observability
// hooks are installed so cache, HTTP and materialization events are logged.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		observability.NewLogHooks(c.Logger).Install()
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "apigraph turns JSON:API responses into linked object graphs",
		Long:         `apigraph materializes JSON:API compound documents into de-duplicated, cycle-safe object graphs and lets you inspect, render and serve them.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the response cache")

	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration once per invocation.
func (c *CLI) loadConfig() error {
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if c.noCache {
		cfg.Cache.Backend = config.BackendNone
	}
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	c.cfg = cfg
	return nil
}

// settings returns the loaded configuration, or the defaults when the root
// pre-run did not execute (as in tests calling runners directly).
func (c *CLI) settings() *config.Config {
	if c.cfg == nil {
		c.cfg = (&config.Config{}).WithDefaults()
	}
	return c.cfg
}

// =============================================================================
// Shared Helpers
// =============================================================================

// materializeOpts are the flags shared by commands that build a response.
type materializeOpts struct {
	typeName string // model type for the primary data
	strict   bool   // fail on undeclared relationships
}

func (o *materializeOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.typeName, "type", "t", "", "model type for the primary data (default: the document's own type)")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "fail on relationships the schema does not declare")
}

// responseOptions resolves the model type and builds the response options.
func (c *CLI) responseOptions(ctx context.Context, o *materializeOpts) (*model.Type, []response.Option, error) {
	cfg := c.settings()
	schema, err := cfg.Schema()
	if err != nil {
		return nil, nil, err
	}

	var typ *model.Type
	if o.typeName != "" {
		t, ok := schema.Lookup(o.typeName)
		if !ok {
			return nil, nil, errors.New(errors.ErrCodeInvalidInput, "unknown model type %q", o.typeName)
		}
		typ = t
	}

	opts := []response.Option{
		response.WithLogger(loggerFromContext(ctx)),
		response.WithRegistry(schema),
	}
	if !o.strict && !cfg.Strict {
		opts = append(opts, response.WithSkipUndeclared())
	}
	return typ, opts, nil
}

// openCache opens the configured cache backend.
func (c *CLI) openCache(ctx context.Context) (cache.Cache, error) {
	return c.settings().NewCache(ctx)
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
