package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drbmap/pkg/cache"
	"github.com/matzehuels/drbmap/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the mapping result cache",
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
		Short: "Remove all cached mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := c.cacheConfig()
			if err != nil {
				return err
			}

			switch cc.Backend {
			case cache.BackendFile:
				if _, err := os.Stat(cc.Dir); os.IsNotExist(err) {
					printInfo("Cache is empty")
					return nil
				}
				fc, err := cache.NewFileCache(cc.Dir)
				if err != nil {
					return err
				}
				n, err := fc.Clear()
				if err != nil {
					return err
				}
				printSuccess("Cleared %d cached entries", n)
			case cache.BackendBadger:
				if err := os.RemoveAll(cc.Dir); err != nil {
					return fmt.Errorf("remove cache dir: %w", err)
				}
				printSuccess("Removed badger cache")
			default:
				printWarning("The %s cache cannot be cleared from here", cc.Backend)
				return nil
			}
			printDetail("Directory: %s", cc.Dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := c.cacheConfig()
			if err != nil {
				return err
			}
			if cc.Dir == "" {
				return fmt.Errorf("the %s cache has no directory", cc.Backend)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cc.Dir)
			return nil
		},
	}
}

// cacheStatsCommand creates the "cache stats" subcommand.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the size of the file cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := c.cacheConfig()
			if err != nil {
				return err
			}
			if cc.Backend != cache.BackendFile {
				printWarning("Statistics are only kept for the file cache")
				return nil
			}
			fc, err := cache.NewFileCache(cc.Dir)
			if err != nil {
				return err
			}
			n, size, err := fc.Stats()
			if err != nil {
				return err
			}
			printKeyValue("entries", fmt.Sprint(n))
			printKeyValue("size", fmt.Sprintf("%.1f KiB", float64(size)/1024))
			printKeyValue("directory", fc.Dir())
			return nil
		},
	}
}

func (c *CLI) cacheConfig() (cache.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cache.Config{}, err
	}
	return cfg.Cache.CacheConfig(), nil
}
