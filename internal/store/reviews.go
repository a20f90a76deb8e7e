package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/catalog"
)

// MoviesMissingReviews returns persisted movies that have no review rows
// yet; these seed the review stage.
func (s *Store) MoviesMissingReviews(ctx context.Context) ([]catalog.MovieRef, error) {
	rows, err := s.db.Query(ctx, `
SELECT m.id, m.external_id, COALESCE(m.imdb_id, ''), m.title
FROM movies m
WHERE NOT EXISTS (SELECT 1 FROM reviews r WHERE r.subject_id = m.id)`)
	if err != nil {
		return nil, fmt.Errorf("query movies missing reviews: %w", err)
	}
	defer rows.Close()

	var refs []catalog.MovieRef
	for rows.Next() {
		var ref catalog.MovieRef
		if err := rows.Scan(&ref.ID, &ref.ExternalID, &ref.SecondaryID, &ref.Title); err != nil {
			return nil, fmt.Errorf("scan movie ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movie refs: %w", err)
	}
	return refs, nil
}

const insertReviewSQL = `
INSERT INTO reviews (subject_id, source, title, author, content, created_at, useful_count, rating)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

// SaveReviews writes one movie's review batch in a transaction with
// rollback-and-retry. Reviews are enrichment rather than core catalog data,
// so the ceiling is lower than for movies and an exhausted batch is simply
// dropped with a log line.
func (s *Store) SaveReviews(ctx context.Context, title string, reviews []catalog.Review) {
	if len(reviews) == 0 {
		return
	}
	for attempt := 1; attempt <= s.cfg.ReviewTxRetries; attempt++ {
		if err := s.saveReviewsTx(ctx, reviews); err != nil {
			s.logger.Warn("review transaction rolled back",
				zap.String("title", title),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		return
	}
	s.logger.Error("review batch dropped after retries",
		zap.String("title", title),
		zap.Int("reviews", len(reviews)),
	)
}

func (s *Store) saveReviewsTx(ctx context.Context, reviews []catalog.Review) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, r := range reviews {
		if _, err := tx.Exec(ctx, insertReviewSQL,
			r.SubjectID,
			r.Source,
			r.Title,
			r.Author,
			r.Body,
			nullIfEmpty(r.CreatedAt),
			r.UsefulCount,
			r.Rating,
		); err != nil {
			return fmt.Errorf("insert review for subject %d: %w", r.SubjectID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}
	return nil
}
