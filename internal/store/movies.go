package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/catalog"
)

const insertMovieSQL = `
INSERT INTO movies (
	external_id, imdb_id, title, original_title, alias, lang,
	pub_year, release_date, duration, cover,
	rating, rating_count, imdb_rating, imdb_rating_count,
	summary, imdb_summary
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (external_id) DO NOTHING`

const selectMovieIDSQL = `SELECT id FROM movies WHERE external_id = $1`

// dimension describes one named entity table plus its join table. People are
// split per role so the join relation carries the role itself.
type dimension struct {
	table      string
	joinTable  string
	joinColumn string
}

var dimensions = struct {
	directors, writers, actors, genres, regions dimension
}{
	directors: dimension{"directors", "movie_director", "director_id"},
	writers:   dimension{"writers", "movie_writer", "writer_id"},
	actors:    dimension{"actors", "movie_actor", "actor_id"},
	genres:    dimension{"genres", "movie_genre", "genre_id"},
	regions:   dimension{"regions", "movie_region", "region_id"},
}

// SaveMovie writes the movie row, its dimension rows and all join relations
// in a single transaction. Any mid-transaction failure rolls the whole write
// back and retries it from scratch; after the ceiling the movie lands in the
// failure ledger instead. A movie is either fully present with all relations
// or fully absent, never partially linked.
func (s *Store) SaveMovie(ctx context.Context, d catalog.MovieDetail) {
	retries := s.cfg.MovieTxRetries
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if err = s.saveMovieTx(ctx, d); err == nil {
			return
		}
		s.logger.Warn("movie transaction rolled back",
			zap.String("external_id", d.ExternalID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	s.logger.Error("movie write abandoned after retries",
		zap.String("external_id", d.ExternalID),
		zap.String("title", d.Title),
	)
	s.RecordFailure(ctx, d.ExternalID, "transaction retries exhausted: "+err.Error())
}

func (s *Store) saveMovieTx(ctx context.Context, d catalog.MovieDetail) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin movie tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertMovieSQL,
		d.ExternalID,
		nullIfEmpty(d.SecondaryID),
		d.Title,
		d.OriginalTitle,
		d.Alias,
		d.Language,
		nullIfEmpty(d.PublishYear),
		nullIfEmpty(d.ReleaseDate),
		d.Duration,
		d.CoverURL,
		d.PrimaryRating,
		d.PrimaryRatingCount,
		d.SecondaryRating,
		d.SecondaryRatingCount,
		d.SummaryPrimary,
		d.SummarySecondary,
	); err != nil {
		return fmt.Errorf("insert movie %s: %w", d.ExternalID, err)
	}

	var movieID int64
	if err := tx.QueryRow(ctx, selectMovieIDSQL, d.ExternalID).Scan(&movieID); err != nil {
		return fmt.Errorf("resolve movie id %s: %w", d.ExternalID, err)
	}

	for _, link := range []struct {
		dim   dimension
		names []string
	}{
		{dimensions.regions, d.Regions},
		{dimensions.directors, d.Directors},
		{dimensions.writers, d.Writers},
		{dimensions.actors, d.Actors},
		{dimensions.genres, d.Genres},
	} {
		if err := s.linkDimension(ctx, tx, link.dim, movieID, link.names); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit movie tx %s: %w", d.ExternalID, err)
	}
	return nil
}

// linkDimension resolves each name to its canonical row and inserts the join
// relation.
func (s *Store) linkDimension(ctx context.Context, tx pgx.Tx, dim dimension, movieID int64, names []string) error {
	for _, name := range names {
		dimID, err := upsertNamed(ctx, tx, dim.table, name)
		if err != nil {
			return err
		}
		joinSQL := fmt.Sprintf(
			`INSERT INTO %s (movie_id, %s) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			dim.joinTable, dim.joinColumn,
		)
		if _, err := tx.Exec(ctx, joinSQL, movieID, dimID); err != nil {
			return fmt.Errorf("link %s %q: %w", dim.table, name, err)
		}
	}
	return nil
}

// upsertNamed is the insert-then-select protocol for dimension rows: the
// uniqueness constraint on name arbitrates concurrent creators, a duplicate
// insert degrades to a no-op, and the select returns the canonical id either
// way.
func upsertNamed(ctx context.Context, tx pgx.Tx, table, name string) (int64, error) {
	insertSQL := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, table)
	if _, err := tx.Exec(ctx, insertSQL, name); err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", table, name, err)
	}
	var id int64
	selectSQL := fmt.Sprintf(`SELECT id FROM %s WHERE name = $1`, table)
	if err := tx.QueryRow(ctx, selectSQL, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select %s %q: %w", table, name, err)
	}
	return id, nil
}

// RecordFailure appends a ledger entry for a permanently abandoned movie.
// The ledger is best effort: an error here is logged and swallowed.
func (s *Store) RecordFailure(ctx context.Context, externalID, reason string) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO failures (external_id, reason) VALUES ($1,$2)`,
		externalID, reason,
	)
	if err != nil {
		s.logger.Error("failure ledger write failed",
			zap.String("external_id", externalID),
			zap.Error(err),
		)
	}
}
