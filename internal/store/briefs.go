package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/catalog"
)

// InsertBriefs persists listing staging rows. Briefs are disposable,
// re-derivable data, so every error is logged and swallowed.
func (s *Store) InsertBriefs(ctx context.Context, briefs []catalog.BriefListing) {
	for _, b := range briefs {
		_, err := s.db.Exec(ctx,
			`INSERT INTO brief_movies (external_id, title, url) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`,
			b.ExternalID, b.Title, b.DetailURL,
		)
		if err != nil {
			s.logger.Warn("brief insert failed",
				zap.String("external_id", b.ExternalID),
				zap.Error(err),
			)
		}
	}
}

// PurgeBrief removes a staging row whose source record turned out to be
// structurally invalid, so the next run does not retry it. Best effort.
func (s *Store) PurgeBrief(ctx context.Context, externalID string) {
	if _, err := s.db.Exec(ctx, `DELETE FROM brief_movies WHERE external_id = $1`, externalID); err != nil {
		s.logger.Warn("brief purge failed",
			zap.String("external_id", externalID),
			zap.Error(err),
		)
	}
}

// UnprocessedBriefs returns staging rows that have no persisted movie yet;
// these seed the detail stage.
func (s *Store) UnprocessedBriefs(ctx context.Context) ([]catalog.BriefListing, error) {
	rows, err := s.db.Query(ctx, `
SELECT b.external_id, b.title, b.url
FROM brief_movies b
WHERE NOT EXISTS (SELECT 1 FROM movies m WHERE m.external_id = b.external_id)`)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed briefs: %w", err)
	}
	defer rows.Close()

	var briefs []catalog.BriefListing
	for rows.Next() {
		var b catalog.BriefListing
		if err := rows.Scan(&b.ExternalID, &b.Title, &b.DetailURL); err != nil {
			return nil, fmt.Errorf("scan brief: %w", err)
		}
		briefs = append(briefs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate briefs: %w", err)
	}
	return briefs, nil
}
