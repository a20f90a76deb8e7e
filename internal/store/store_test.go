package store

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/moviegraph/crawler/internal/catalog"
)

func newMockStore(t *testing.T, cfg Config) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithDB(mock, cfg, nil), mock
}

func TestSaveMovieCommitsMovieAndRelations(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, Config{})
	detail := catalog.MovieDetail{
		ExternalID:     "1292052",
		SecondaryID:    "tt0111161",
		Title:          "肖申克的救赎",
		SummaryPrimary: "剧情简介",
		Regions:        []string{"美国"},
		Directors:      []string{"弗兰克·德拉邦特"},
		Writers:        []string{"斯蒂芬·金"},
		Actors:         []string{"蒂姆·罗宾斯"},
		Genres:         []string{"剧情"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO movies").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id FROM movies").
		WithArgs("1292052").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	for _, dim := range []struct {
		table string
		join  string
		id    int64
	}{
		{"regions", "movie_region", 11},
		{"directors", "movie_director", 12},
		{"writers", "movie_writer", 13},
		{"actors", "movie_actor", 14},
		{"genres", "movie_genre", 15},
	} {
		mock.ExpectExec("INSERT INTO " + dim.table).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectQuery("SELECT id FROM " + dim.table).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(dim.id))
		mock.ExpectExec("INSERT INTO " + dim.join).
			WithArgs(int64(7), dim.id).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	s.SaveMovie(context.Background(), detail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMovieDuplicateDimensionIsNoOp(t *testing.T) {
	t.Parallel()

	// A concurrent worker already created the genre: the insert affects zero
	// rows and the select must still return the canonical id.
	s, mock := newMockStore(t, Config{})
	detail := catalog.MovieDetail{
		ExternalID:     "3541415",
		Title:          "盗梦空间",
		SummaryPrimary: "简介",
		Genres:         []string{"科幻"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO movies").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id FROM movies").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO genres").
		WithArgs("科幻").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT id FROM genres").
		WithArgs("科幻").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO movie_genre").
		WithArgs(int64(3), int64(42)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s.SaveMovie(context.Background(), detail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMovieRollsBackAndRetriesFromScratch(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, Config{})
	detail := catalog.MovieDetail{ExternalID: "42", Title: "t", SummaryPrimary: "s"}

	// First attempt fails mid-transaction and rolls the whole write back.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO movies").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()
	// Second attempt restarts from scratch.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO movies").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id FROM movies").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	s.SaveMovie(context.Background(), detail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMovieExhaustionAppendsFailureLedger(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, Config{MovieTxRetries: 2})
	detail := catalog.MovieDetail{ExternalID: "86", Title: "t", SummaryPrimary: "s"}

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO movies").WillReturnError(errors.New("connection lost"))
		mock.ExpectRollback()
	}
	mock.ExpectExec("INSERT INTO failures").
		WithArgs("86", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s.SaveMovie(context.Background(), detail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReviewsCommitsBatch(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, Config{})
	reviews := []catalog.Review{
		{SubjectID: 7, Source: catalog.SourcePrimary, Title: "好片", Rating: 9},
		{SubjectID: 7, Source: catalog.SourceSecondary, Title: "great", Rating: 8},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reviews").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO reviews").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s.SaveReviews(context.Background(), "肖申克的救赎", reviews)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReviewsDropsBatchAfterRetries(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, Config{ReviewTxRetries: 3})
	reviews := []catalog.Review{{SubjectID: 1, Source: catalog.SourcePrimary}}

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO reviews").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()
	}
	// No ledger write for reviews: the batch is simply dropped.

	s.SaveReviews(context.Background(), "t", reviews)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReviewsEmptyBatchIsNoOp(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, Config{})
	s.SaveReviews(context.Background(), "t", nil)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBriefsSwallowsErrors(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, Config{})
	briefs := []catalog.BriefListing{
		{ExternalID: "1", Title: "a", DetailURL: "https://example.com/1"},
		{ExternalID: "2", Title: "b", DetailURL: "https://example.com/2"},
	}

	mock.ExpectExec("INSERT INTO brief_movies").
		WithArgs("1", "a", "https://example.com/1").
		WillReturnError(errors.New("constraint violated"))
	mock.ExpectExec("INSERT INTO brief_movies").
		WithArgs("2", "b", "https://example.com/2").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s.InsertBriefs(context.Background(), briefs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeBrief(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, Config{})
	mock.ExpectExec("DELETE FROM brief_movies").
		WithArgs("1292052").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	s.PurgeBrief(context.Background(), "1292052")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnprocessedBriefs(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, Config{})
	mock.ExpectQuery("FROM brief_movies b").
		WillReturnRows(pgxmock.NewRows([]string{"external_id", "title", "url"}).
			AddRow("1292052", "肖申克的救赎", "https://example.com/1292052").
			AddRow("1291546", "霸王别姬", "https://example.com/1291546"))

	briefs, err := s.UnprocessedBriefs(context.Background())
	require.NoError(t, err)
	require.Len(t, briefs, 2)
	require.Equal(t, "1291546", briefs[1].ExternalID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMoviesMissingReviews(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, Config{})
	mock.ExpectQuery("FROM movies m").
		WillReturnRows(pgxmock.NewRows([]string{"id", "external_id", "imdb_id", "title"}).
			AddRow(int64(7), "1292052", "tt0111161", "肖申克的救赎").
			AddRow(int64(8), "1291546", "", "霸王别姬"))

	refs, err := s.MoviesMissingReviews(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Equal(t, "tt0111161", refs[0].SecondaryID)
	require.Empty(t, refs[1].SecondaryID)
	require.NoError(t, mock.ExpectationsWereMet())
}
