package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/catalog"
	"github.com/moviegraph/crawler/internal/extract"
	"github.com/moviegraph/crawler/internal/integrate"
	"github.com/moviegraph/crawler/internal/metrics"
	"github.com/moviegraph/crawler/internal/queue"
)

// detailTask carries one staged brief through detail integration.
type detailTask struct {
	Brief catalog.BriefListing
	Retry int
}

func (t detailTask) retried() detailTask {
	t.Retry++
	return t
}

// RunDetails drains the brief staging table: for each brief it fetches the
// primary detail page, optionally enriches it from the secondary source, and
// persists the merged record.
func (d *Driver) RunDetails(ctx context.Context) error {
	briefs, err := d.store.UnprocessedBriefs(ctx)
	if err != nil {
		return fmt.Errorf("load briefs: %w", err)
	}
	if len(briefs) == 0 {
		d.logger.Info("detail stage has no pending briefs")
		return nil
	}

	delayMin, delayMax := d.cfg.DelayWindow()
	q := queue.New(queue.Config{
		Workers:  d.cfg.Crawl.DetailConcurrency,
		DelayMin: delayMin,
		DelayMax: delayMax,
	}, d.handleDetail)
	tasks := make([]detailTask, 0, len(briefs))
	for _, b := range briefs {
		tasks = append(tasks, detailTask{Brief: b})
	}
	if err := q.Push(tasks...); err != nil {
		return err
	}
	err = q.Run(ctx)
	d.logger.Info("detail stage drained",
		zap.Int("briefs", len(briefs)),
		zap.Int64("movies", d.stats.MoviesSaved.Load()),
	)
	return err
}

func (d *Driver) handleDetail(ctx context.Context, task detailTask) queue.Result[detailTask] {
	metrics.IncActiveWorkers(stageDetails)
	defer metrics.DecActiveWorkers(stageDetails)

	brief := task.Brief
	detail, err := d.fetchPrimaryDetail(ctx, brief)
	if err != nil {
		kind := catalog.Classify(err)
		switch {
		case errors.Is(kind, catalog.ErrNotFound), errors.Is(kind, catalog.ErrDataInvalid):
			// The source record is gone or structurally unusable; retrying
			// cannot help, so the brief must not seed the next run either.
			d.store.PurgeBrief(ctx, brief.ExternalID)
			d.stats.InvalidRecords.Add(1)
			metrics.ObserveTask(stageDetails, "invalid")
			d.logger.Warn("brief purged",
				zap.String("external_id", brief.ExternalID),
				zap.String("title", brief.Title),
				zap.Error(kind),
			)
			return queue.Done[detailTask]()
		default:
			return retryOrDrop(d, stageDetails, task.Retry, err, task.retried(),
				zap.String("external_id", brief.ExternalID))
		}
	}

	if detail.SecondaryID != "" {
		secondary, err := d.fetchSecondaryDetail(ctx, detail.SecondaryID)
		if err != nil {
			return retryOrDrop(d, stageDetails, task.Retry, err, task.retried(),
				zap.String("external_id", brief.ExternalID),
				zap.String("secondary_id", detail.SecondaryID))
		}
		detail = integrate.Merge(detail, secondary)
	}

	d.store.SaveMovie(ctx, detail)
	d.stats.MoviesSaved.Add(1)
	metrics.ObserveTask(stageDetails, "done")
	metrics.ObserveRecordsSaved("movies", 1)
	return queue.Done[detailTask]()
}

// fetchPrimaryDetail fetches and extracts the authoritative detail record.
// A blocked page and a record failing the validity gate both come back as
// classified errors.
func (d *Driver) fetchPrimaryDetail(ctx context.Context, brief catalog.BriefListing) (catalog.MovieDetail, error) {
	req := catalog.FetchRequest{
		URL:     brief.DetailURL,
		Timeout: d.timeout(d.cfg.Fetch.PrimaryDetailTimeoutSec),
	}
	body, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		return catalog.MovieDetail{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return catalog.MovieDetail{}, fmt.Errorf("parse detail page %s: %w", brief.ExternalID, err)
	}
	if extract.PrimaryBlocked(doc) {
		return catalog.MovieDetail{}, fmt.Errorf("detail page %s served blocked shell: %w", brief.ExternalID, catalog.ErrBanned)
	}
	detail := extract.PrimaryDetail(doc, d.genres())
	detail.ExternalID = brief.ExternalID
	if detail.Title == "" {
		detail.Title = brief.Title
	}
	if !integrate.Valid(detail) {
		return catalog.MovieDetail{}, fmt.Errorf("detail record %s has no summary: %w", brief.ExternalID, catalog.ErrDataInvalid)
	}
	return detail, nil
}

// fetchSecondaryDetail fetches the enrichment record. A missing secondary
// page degrades to an empty record rather than failing the movie.
func (d *Driver) fetchSecondaryDetail(ctx context.Context, secondaryID string) (catalog.MovieDetail, error) {
	req := catalog.FetchRequest{
		URL:     secondaryDetailURL(d.cfg.Sources.SecondaryBase, secondaryID),
		Timeout: d.timeout(d.cfg.Fetch.SecondaryDetailTimeoutSec),
	}
	body, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		if errors.Is(catalog.Classify(err), catalog.ErrNotFound) {
			return catalog.MovieDetail{}, nil
		}
		return catalog.MovieDetail{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return catalog.MovieDetail{}, fmt.Errorf("parse secondary page %s: %w", secondaryID, err)
	}
	return extract.SecondaryDetail(doc), nil
}
