package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/catalog"
	"github.com/moviegraph/crawler/internal/extract"
	"github.com/moviegraph/crawler/internal/metrics"
	"github.com/moviegraph/crawler/internal/queue"
)

// RunListings walks every configured genre through the paginated listing API
// and stages the discovered briefs. Genres crawl in parallel; pages within a
// genre crawl serially so offsets stay strictly increasing.
func (d *Driver) RunListings(ctx context.Context) error {
	tags := queue.New(queue.Config{Workers: d.cfg.Crawl.TagConcurrency},
		func(ctx context.Context, genre string) queue.Result[string] {
			metrics.IncActiveWorkers(stageListings)
			defer metrics.DecActiveWorkers(stageListings)
			d.crawlGenre(ctx, genre)
			return queue.Done[string]()
		})
	if err := tags.Push(d.genres()...); err != nil {
		return err
	}
	err := tags.Run(ctx)
	d.logger.Info("listing stage drained",
		zap.Int64("pages", d.stats.PagesFetched.Load()),
		zap.Int64("briefs", d.stats.BriefsFound.Load()),
	)
	return err
}

// crawlGenre runs one genre's serial segment queue until an empty page, the
// per-genre cap, or retry exhaustion stops it.
func (d *Driver) crawlGenre(ctx context.Context, genre string) {
	delayMin, delayMax := d.cfg.DelayWindow()
	segments := queue.New(queue.Config{Workers: 1, DelayMin: delayMin, DelayMax: delayMax},
		func(ctx context.Context, task catalog.SegmentTask) queue.Result[catalog.SegmentTask] {
			return d.handleSegment(ctx, genre, task)
		})
	if err := segments.Push(catalog.SegmentTask{Limit: d.cfg.Crawl.PageSize}); err != nil {
		return
	}
	if err := segments.Run(ctx); err != nil {
		d.logger.Warn("genre crawl interrupted", zap.String("genre", genre), zap.Error(err))
	}
}

func (d *Driver) handleSegment(ctx context.Context, genre string, task catalog.SegmentTask) queue.Result[catalog.SegmentTask] {
	req := catalog.FetchRequest{
		URL:     listingURL(d.cfg.Sources.PrimaryBase, genre, task.Start, task.Limit),
		Timeout: d.timeout(d.cfg.Fetch.ListingTimeoutSec),
	}
	body, err := d.fetcher.Fetch(ctx, req)
	var briefs []catalog.BriefListing
	if err == nil {
		briefs, err = extract.Listing(body)
	}
	if err != nil {
		return retryOrDrop(d, stageListings, task.Retry, err, task.Retried(),
			zap.String("genre", genre), zap.Int("start", task.Start))
	}

	d.stats.PagesFetched.Add(1)
	metrics.ObserveTask(stageListings, "done")
	if len(briefs) == 0 {
		// Past the last page for this genre.
		return queue.Done[catalog.SegmentTask]()
	}

	d.store.InsertBriefs(ctx, briefs)
	d.stats.BriefsFound.Add(int64(len(briefs)))
	metrics.ObserveRecordsSaved("briefs", len(briefs))

	next := task.Next()
	if next.Start >= d.cfg.Crawl.MaxPerTag {
		return queue.Done[catalog.SegmentTask]()
	}
	return queue.PushBack(next)
}

// retryOrDrop applies the shared retry policy: retryable failures requeue the
// replacement task at the front of the backlog until the ceiling, everything
// else drops the task.
func retryOrDrop[T any](d *Driver, stage string, retries int, err error, replacement T,
	fields ...zap.Field,
) queue.Result[T] {
	kind := catalog.Classify(err)
	fields = append(fields, zap.String("stage", stage), zap.Int("retries", retries), zap.Error(kind))
	if catalog.Retryable(kind) && retries < d.cfg.Crawl.SegmentRetries {
		d.logger.Warn("task requeued", fields...)
		metrics.ObserveTaskRetry(stage)
		return queue.PushFront(replacement)
	}
	d.logger.Error("task dropped", fields...)
	d.stats.TasksDropped.Add(1)
	metrics.ObserveTask(stage, "dropped")
	return queue.Done[T]()
}
