// Package pipeline drives the three crawl stages: listing discovery, detail
// integration and review harvesting. Each stage is a bounded worker queue
// over the fetch gateway, writing through the store.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/catalog"
	"github.com/moviegraph/crawler/internal/config"
	"github.com/moviegraph/crawler/internal/extract"
	"github.com/moviegraph/crawler/internal/metrics"
)

// Stage names used for logging and metric labels.
const (
	stageListings = "listings"
	stageDetails  = "details"
	stageReviews  = "reviews"
)

// Stats aggregates per-run counters across all workers.
type Stats struct {
	PagesFetched   atomic.Int64
	BriefsFound    atomic.Int64
	MoviesSaved    atomic.Int64
	ReviewsSaved   atomic.Int64
	TasksDropped   atomic.Int64
	InvalidRecords atomic.Int64
}

// Snapshot is a point-in-time copy of Stats for reporting.
type Snapshot struct {
	PagesFetched   int64
	BriefsFound    int64
	MoviesSaved    int64
	ReviewsSaved   int64
	TasksDropped   int64
	InvalidRecords int64
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		PagesFetched:   s.PagesFetched.Load(),
		BriefsFound:    s.BriefsFound.Load(),
		MoviesSaved:    s.MoviesSaved.Load(),
		ReviewsSaved:   s.ReviewsSaved.Load(),
		TasksDropped:   s.TasksDropped.Load(),
		InvalidRecords: s.InvalidRecords.Load(),
	}
}

// Driver owns the stage queues and their shared collaborators.
type Driver struct {
	cfg     config.Config
	fetcher catalog.Fetcher
	store   catalog.Store
	logger  *zap.Logger
	stats   Stats
}

// New constructs a Driver. The fetcher and store are injected so tests can
// substitute fakes.
func New(cfg config.Config, fetcher catalog.Fetcher, store catalog.Store, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Driver{cfg: cfg, fetcher: fetcher, store: store, logger: logger}
}

// Stats returns a snapshot of the run counters.
func (d *Driver) Stats() Snapshot {
	return d.stats.snapshot()
}

// Run executes the full pipeline: listings, then details, then reviews.
// Stage errors end the run; a drained stage flows into the next one.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.RunListings(ctx); err != nil {
		return err
	}
	if err := d.RunDetails(ctx); err != nil {
		return err
	}
	return d.RunReviews(ctx)
}

func (d *Driver) genres() []string {
	if len(d.cfg.Crawl.Genres) > 0 {
		return d.cfg.Crawl.Genres
	}
	return extract.DefaultGenres
}

func (d *Driver) timeout(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
