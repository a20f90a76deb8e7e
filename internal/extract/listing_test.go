package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moviegraph/crawler/internal/catalog"
)

func TestListingDecodesBriefs(t *testing.T) {
	t.Parallel()

	body := []byte(`{"data":[
		{"id":"1292052","title":"肖申克的救赎","url":"https://movie.example.com/subject/1292052/"},
		{"id":"1291546","title":"霸王别姬","url":"https://movie.example.com/subject/1291546/"}
	]}`)
	briefs, err := Listing(body)
	require.NoError(t, err)
	require.Len(t, briefs, 2)
	require.Equal(t, "1292052", briefs[0].ExternalID)
	require.Equal(t, "霸王别姬", briefs[1].Title)
}

func TestListingEmptyDataIsEmptyPage(t *testing.T) {
	t.Parallel()

	briefs, err := Listing([]byte(`{}`))
	require.NoError(t, err)
	require.Empty(t, briefs)
}

func TestListingBanMarker(t *testing.T) {
	t.Parallel()

	_, err := Listing([]byte(`{"r":1}`))
	require.ErrorIs(t, err, catalog.ErrBanned)
}

func TestListingConcurrencyMarker(t *testing.T) {
	t.Parallel()

	_, err := Listing([]byte(`{"code":200}`))
	require.ErrorIs(t, err, catalog.ErrConcurrentLimit)
}

func TestListingMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := Listing([]byte(`<html>not json</html>`))
	require.Error(t, err)
	require.True(t, catalog.Retryable(catalog.Classify(err)))
}

func TestPrimaryReviews(t *testing.T) {
	t.Parallel()

	body := []byte(`{"reviews":[{
		"title":"十年后再看",
		"created_at":"2020-03-15 10:00:00",
		"content":"  第一段 \n\n 第二段 \n",
		"author":{"name":"影迷甲"},
		"useful_count":321,
		"rating":{"value":4.5,"max":5}
	}]}`)
	reviews, err := PrimaryReviews(body)
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	r := reviews[0]
	require.Equal(t, catalog.SourcePrimary, r.Source)
	require.Equal(t, "十年后再看", r.Title)
	require.Equal(t, "影迷甲", r.Author)
	require.Equal(t, "第一段\n\n第二段", r.Body)
	require.Equal(t, 321, r.UsefulCount)
	require.InDelta(t, 9.0, r.Rating, 1e-9)
}

func TestPrimaryReviewsBanMarker(t *testing.T) {
	t.Parallel()

	_, err := PrimaryReviews([]byte(`{"r":1}`))
	require.ErrorIs(t, err, catalog.ErrBanned)
}
