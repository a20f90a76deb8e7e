package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moviegraph/crawler/internal/catalog"
)

const secondaryDetailPage = `<html><head>
<script type="application/ld+json">
{"@type":"Movie","duration":"PT2H22M","aggregateRating":{"ratingValue":9.3,"ratingCount":2300000}}
</script>
</head><body>
<div id="title-overview-widget">
  <div class="poster"><img src="https://img.example.com/poster/tt0111161.jpg"/></div>
  <div class="summary_text">
    Two imprisoned men bond over a number of years. See full summary »
  </div>
</div>
<div id="titleDetails">
  <div class="txt-block"><h4>Official Sites:</h4> <a>Warner Bros</a></div>
  <div class="txt-block"><h4>Release Date:</h4> 14 October 1994 (USA)</div>
</div>
</body></html>`

func TestSecondaryDetail(t *testing.T) {
	t.Parallel()

	d := SecondaryDetail(parseDoc(t, secondaryDetailPage))

	require.InDelta(t, 9.3, d.SecondaryRating, 1e-9)
	require.Equal(t, 2300000, d.SecondaryRatingCount)
	require.Equal(t, 142, d.Duration)
	require.Equal(t, "Two imprisoned men bond over a number of years.", d.SummarySecondary)
	require.Equal(t, "https://img.example.com/poster/tt0111161.jpg", d.CoverURL)
	require.Equal(t, "1994-10-14", d.ReleaseDate)
}

func TestSecondaryDetailEmptyPage(t *testing.T) {
	t.Parallel()

	d := SecondaryDetail(parseDoc(t, `<html><body></body></html>`))
	require.Zero(t, d.SecondaryRating)
	require.Zero(t, d.Duration)
	require.Empty(t, d.SummarySecondary)
	require.Empty(t, d.ReleaseDate)
}

const secondaryReviewsPage = `<html><body><div id="main">
<div class="lister-list">
  <div class="imdb-user-review">
    <div class="rating-other-user-rating"><span>9</span><span class="point-scale">/10</span></div>
    <a class="title">An incredible movie</a>
    <div class="display-name-date">
      <span class="display-name-link"><a>moviefan42</a></span>
      <span class="review-date">14 October 2019</span>
    </div>
    <div class="content">
      <div class="text">First paragraph.<br/><br/>Second paragraph.</div>
      <div class="actions">2,150 out of 2,243 found this helpful.</div>
    </div>
  </div>
  <div class="imdb-user-review">
    <a class="title">No rating given</a>
    <div class="display-name-date">
      <span class="display-name-link"><a>anon</a></span>
      <span class="review-date">March 2018</span>
    </div>
    <div class="content"><div class="text">Short one.</div><div class="actions">3 out of 9</div></div>
  </div>
</div>
</div></body></html>`

func TestSecondaryReviews(t *testing.T) {
	t.Parallel()

	reviews := SecondaryReviews(parseDoc(t, secondaryReviewsPage))
	require.Len(t, reviews, 2)

	first := reviews[0]
	require.Equal(t, catalog.SourceSecondary, first.Source)
	require.Equal(t, "An incredible movie", first.Title)
	require.Equal(t, "moviefan42", first.Author)
	require.Equal(t, "First paragraph.\n\nSecond paragraph.", first.Body)
	require.Equal(t, "2019-10-14", first.CreatedAt)
	require.Equal(t, 2150, first.UsefulCount)
	require.InDelta(t, 9.0, first.Rating, 1e-9)

	second := reviews[1]
	require.Zero(t, second.Rating)
	require.Equal(t, "2018-03-01", second.CreatedAt)
	require.Equal(t, "Short one.", second.Body)
	require.Equal(t, 3, second.UsefulCount)
}

func TestSecondaryReviewsEmptyList(t *testing.T) {
	t.Parallel()

	require.Empty(t, SecondaryReviews(parseDoc(t, `<html><body><div id="main"></div></body></html>`)))
}
