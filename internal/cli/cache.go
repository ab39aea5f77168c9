package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/apigraph/internal/config"
	"github.com/matzehuels/apigraph/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatsCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached responses and graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCacheClear(cmd.Context())
		},
	}
}

func (c *CLI) runCacheClear(ctx context.Context) error {
	cfg := c.settings()
	if cfg.Cache.Backend == config.BackendNone {
		printInfo("Caching is disabled")
		return nil
	}

	cc, err := c.openCache(ctx)
	if err != nil {
		return err
	}
	defer cc.Close()

	var n int
	switch cc := cc.(type) {
	case *cache.FileCache:
		n, err = cc.Clear()
	case *cache.RedisCache:
		n, err = cc.Clear(ctx)
	default:
		return fmt.Errorf("cache backend %q cannot be cleared", cfg.Cache.Backend)
	}
	if err != nil {
		printError("Clear failed after %d entries", n)
		return err
	}

	if n == 0 {
		printInfo("Cache is empty")
		return nil
	}
	printSuccess("Cleared %d cached entries", n)
	printDetail("Backend: %s", cfg.Cache.Backend)
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(out, c.settings().Cache.Dir)
			return nil
		},
	}
}

// cacheStatsCommand creates the "cache stats" subcommand.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number and size of file cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.settings()
			if cfg.Cache.Backend != config.BackendFile {
				printInfo("Stats are only available for the file backend (current: %s)", cfg.Cache.Backend)
				return nil
			}
			fc, err := cache.NewFileCache(cfg.Cache.Dir)
			if err != nil {
				return err
			}
			entries, size, err := fc.Stats()
			if err != nil {
				return err
			}
			printKeyValue("Directory", fc.Dir())
			printKeyValue("Entries", fmt.Sprint(entries))
			printKeyValue("Size", fmt.Sprintf("%.1f KiB", float64(size)/1024))
			return nil
		},
	}
}
