package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/catalog"
	"github.com/moviegraph/crawler/internal/extract"
	"github.com/moviegraph/crawler/internal/metrics"
	"github.com/moviegraph/crawler/internal/queue"
)

// reviewTask harvests both sources' reviews for one persisted movie.
type reviewTask struct {
	Ref   catalog.MovieRef
	Retry int
}

func (t reviewTask) retried() reviewTask {
	t.Retry++
	return t
}

// RunReviews harvests reviews for every movie that has none yet. Candidates
// are shuffled so repeated runs do not hammer the same titles in the same
// order.
func (d *Driver) RunReviews(ctx context.Context) error {
	refs, err := d.store.MoviesMissingReviews(ctx)
	if err != nil {
		return fmt.Errorf("load review candidates: %w", err)
	}
	if len(refs) == 0 {
		d.logger.Info("review stage has no pending movies")
		return nil
	}
	rand.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })

	delayMin, delayMax := d.cfg.DelayWindow()
	q := queue.New(queue.Config{
		Workers:  d.cfg.Crawl.DetailConcurrency,
		DelayMin: delayMin,
		DelayMax: delayMax,
	}, d.handleReviews)
	tasks := make([]reviewTask, 0, len(refs))
	for _, ref := range refs {
		tasks = append(tasks, reviewTask{Ref: ref})
	}
	if err := q.Push(tasks...); err != nil {
		return err
	}
	err = q.Run(ctx)
	d.logger.Info("review stage drained",
		zap.Int("movies", len(refs)),
		zap.Int64("reviews", d.stats.ReviewsSaved.Load()),
	)
	return err
}

func (d *Driver) handleReviews(ctx context.Context, task reviewTask) queue.Result[reviewTask] {
	metrics.IncActiveWorkers(stageReviews)
	defer metrics.DecActiveWorkers(stageReviews)

	ref := task.Ref
	reviews, err := d.fetchPrimaryReviews(ctx, ref)
	if err != nil {
		return retryOrDrop(d, stageReviews, task.Retry, err, task.retried(),
			zap.String("external_id", ref.ExternalID))
	}

	if ref.SecondaryID != "" {
		secondary, err := d.fetchSecondaryReviews(ctx, ref)
		if err != nil {
			return retryOrDrop(d, stageReviews, task.Retry, err, task.retried(),
				zap.String("secondary_id", ref.SecondaryID))
		}
		reviews = append(reviews, secondary...)
	}

	if len(reviews) > 0 {
		d.store.SaveReviews(ctx, ref.Title, reviews)
		d.stats.ReviewsSaved.Add(int64(len(reviews)))
		metrics.ObserveRecordsSaved("reviews", len(reviews))
	}
	metrics.ObserveTask(stageReviews, "done")
	return queue.Done[reviewTask]()
}

// fetchPrimaryReviews pulls one movie's review page from the primary API. A
// missing subject degrades to no reviews.
func (d *Driver) fetchPrimaryReviews(ctx context.Context, ref catalog.MovieRef) ([]catalog.Review, error) {
	req := catalog.FetchRequest{
		URL:     primaryReviewURL(d.cfg.Sources.PrimaryAPIBase, d.cfg.Sources.PrimaryAPIKey, ref.ExternalID),
		Timeout: d.timeout(d.cfg.Fetch.PrimaryReviewTimeoutSec),
	}
	body, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		if errors.Is(catalog.Classify(err), catalog.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	reviews, err := extract.PrimaryReviews(body)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		reviews[i].SubjectID = ref.ID
	}
	return reviews, nil
}

// fetchSecondaryReviews pulls the secondary-source review page. As with
// detail enrichment, a missing page is not an error.
func (d *Driver) fetchSecondaryReviews(ctx context.Context, ref catalog.MovieRef) ([]catalog.Review, error) {
	req := catalog.FetchRequest{
		URL:     secondaryReviewURL(d.cfg.Sources.SecondaryBase, ref.SecondaryID),
		Timeout: d.timeout(d.cfg.Fetch.SecondaryReviewTimeoutSec),
	}
	body, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		if errors.Is(catalog.Classify(err), catalog.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse review page %s: %w", ref.SecondaryID, err)
	}
	reviews := extract.SecondaryReviews(doc)
	for i := range reviews {
		reviews[i].SubjectID = ref.ID
	}
	return reviews, nil
}
