// Package cmd defines and implements the CLI commands for the crawler
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/config"
	"github.com/moviegraph/crawler/internal/fetch"
	"github.com/moviegraph/crawler/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawler",
		Short: "A cross-source movie catalog crawler.",
		Long: `crawler discovers titles from the primary source's listing API,
integrates each one with its secondary-source record, harvests reviews from
both sources and persists everything to Postgres.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus CRAWLER_* env)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadRuntime builds the pieces every subcommand needs.
func loadRuntime() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// egressNodes maps the configured node pool onto registry entries. Entries
// are proxy endpoints; a bare host gets the vendor scheme prepended. With no
// pool but a vendor URL, that URL is the single node; with neither, egress
// is direct.
func egressNodes(cfg config.ProxyConfig) []fetch.Node {
	if !cfg.Enabled {
		return nil
	}
	if len(cfg.Nodes) == 0 {
		if cfg.URL == "" {
			return nil
		}
		return []fetch.Node{{ID: "default", ProxyURL: cfg.URL}}
	}
	nodes := make([]fetch.Node, 0, len(cfg.Nodes))
	for _, entry := range cfg.Nodes {
		proxyURL := entry
		if !strings.Contains(proxyURL, "://") {
			proxyURL = "http://" + proxyURL
		}
		nodes = append(nodes, fetch.Node{ID: entry, ProxyURL: proxyURL})
	}
	return nodes
}
