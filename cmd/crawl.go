package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/api"
	"github.com/moviegraph/crawler/internal/fetch"
	"github.com/moviegraph/crawler/internal/logging"
	"github.com/moviegraph/crawler/internal/metrics"
	"github.com/moviegraph/crawler/internal/pipeline"
	"github.com/moviegraph/crawler/internal/store"
)

func newCrawlCmd() *cobra.Command {
	var skipListings, skipDetails, skipReviews bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs the crawl pipeline",
		Long: `Runs the three pipeline stages in order: listing discovery, detail
integration and review harvesting. Individual stages can be skipped, which is
how a previously interrupted run resumes from its staged briefs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), skipListings, skipDetails, skipReviews)
		},
	}

	cmd.Flags().BoolVar(&skipListings, "skip-listings", false, "skip listing discovery")
	cmd.Flags().BoolVar(&skipDetails, "skip-details", false, "skip detail integration")
	cmd.Flags().BoolVar(&skipReviews, "skip-reviews", false, "skip review harvesting")
	return cmd
}

func runCrawl(ctx context.Context, skipListings, skipDetails, skipReviews bool) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	metrics.Init()

	st, err := store.New(ctx, store.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetimeSec) * time.Second,
		MovieTxRetries:  cfg.DB.MovieTxRetries,
		ReviewTxRetries: cfg.DB.ReviewTxRetries,
	}, logging.Component(logger, "store"))
	if err != nil {
		// The database is the one dependency the crawl cannot degrade
		// around.
		return fmt.Errorf("connect store: %w", err)
	}
	defer st.Close()

	identity := fetch.NewIdentity(cfg.Proxy.OrderNo, cfg.Proxy.Secret, cfg.Sources.PrimaryBase+"/", time.Now())
	registry := fetch.NewNodeRegistry(egressNodes(cfg.Proxy))
	gateway := fetch.NewGateway(identity, registry, logging.Component(logger, "fetch"))
	driver := pipeline.New(cfg, gateway, st, logging.Component(logger, "pipeline"))

	// The control API runs alongside the crawl so operators can switch
	// egress nodes and read stats mid-run.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(registry, driver, logging.Component(logger, "api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("control server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	start := time.Now()
	if !skipListings {
		if err := driver.RunListings(ctx); err != nil {
			return fmt.Errorf("listing stage: %w", err)
		}
	}
	if !skipDetails {
		if err := driver.RunDetails(ctx); err != nil {
			return fmt.Errorf("detail stage: %w", err)
		}
	}
	if !skipReviews {
		if err := driver.RunReviews(ctx); err != nil {
			return fmt.Errorf("review stage: %w", err)
		}
	}

	stats := driver.Stats()
	logger.Info("crawl finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int64("pages", stats.PagesFetched),
		zap.Int64("briefs", stats.BriefsFound),
		zap.Int64("movies", stats.MoviesSaved),
		zap.Int64("reviews", stats.ReviewsSaved),
		zap.Int64("dropped", stats.TasksDropped),
		zap.Int64("invalid", stats.InvalidRecords),
	)
	return nil
}
