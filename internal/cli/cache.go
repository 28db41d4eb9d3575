package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dshills/relnote/internal/cache"
	"github.com/dshills/relnote/internal/output"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the oracle response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded oracle responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := cache.New(true, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		n, err := c.Clear()
		if err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached response(s) from %s.\n", n, c.Dir())
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		w, err := output.GetWriter(flagFormat)
		if err != nil {
			return err
		}
		return showCache(c, w, cmd.OutOrStdout())
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheShowCmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text, json")
}

func showCache(c *cache.Cache, w output.Writer, out io.Writer) error {
	if !c.Enabled() {
		fmt.Fprintln(out, "Cache is disabled.")
		return nil
	}
	stats, err := c.GetStats()
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}
	if _, isJSON := w.(*output.JSONWriter); isJSON {
		return w.Write(out, stats)
	}
	return w.Write(out, output.Report{
		Title: "Response cache",
		Fields: []output.Field{
			{Label: "Dir", Value: stats.Dir},
			{Label: "Entries", Value: strconv.Itoa(stats.Entries)},
			{Label: "Expired", Value: strconv.Itoa(stats.Expired)},
			{Label: "Size", Value: fmt.Sprintf("%d bytes", stats.TotalBytes)},
		},
	})
}
