package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/moviegraph/crawler/internal/catalog"
)

// linkedData is the subset of the secondary source's JSON-LD block we read.
type linkedData struct {
	Duration        string `json:"duration"`
	AggregateRating struct {
		RatingValue float64 `json:"ratingValue"`
		RatingCount int     `json:"ratingCount"`
	} `json:"aggregateRating"`
}

// SecondaryDetail extracts the secondary-source detail record: rating and
// duration from the page's JSON-LD block, summary, cover and release date
// from the overview markup. Missing blocks yield zero values.
func SecondaryDetail(doc *goquery.Document) catalog.MovieDetail {
	var d catalog.MovieDetail

	var ld linkedData
	raw := doc.Find("script[type='application/ld+json']").First().Text()
	if raw != "" && json.Unmarshal([]byte(raw), &ld) == nil {
		d.SecondaryRating = ld.AggregateRating.RatingValue
		d.SecondaryRatingCount = ld.AggregateRating.RatingCount
		d.Duration = DurationMinutes(ld.Duration)
	}

	summary := doc.Find("#title-overview-widget .summary_text").Text()
	d.SummarySecondary = strings.TrimSpace(strings.ReplaceAll(summary, "See full summary »", ""))
	d.CoverURL, _ = doc.Find("#title-overview-widget .poster img").Attr("src")
	d.ReleaseDate = secondaryReleaseDate(doc)
	return d
}

func secondaryReleaseDate(doc *goquery.Document) string {
	var date string
	doc.Find("#titleDetails h4").EachWithBreak(func(_ int, label *goquery.Selection) bool {
		caption := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(label.Text()), ":"))
		if caption != "release date" {
			return true
		}
		date = NormalizeDate(labelSiblingText(label))
		return false
	})
	return date
}

// SecondaryReviews extracts the review list from the secondary source's
// reviews page. Ratings there are already on the common 0-10 scale.
func SecondaryReviews(doc *goquery.Document) []catalog.Review {
	var reviews []catalog.Review
	doc.Find("#main .lister-list .imdb-user-review").Each(func(_ int, item *goquery.Selection) {
		body, _ := item.Find(".content .text").First().Html()
		reviews = append(reviews, catalog.Review{
			Source:      catalog.SourceSecondary,
			Title:       strings.TrimSpace(item.Find("a.title").First().Text()),
			Author:      strings.TrimSpace(item.Find(".display-name-link a").First().Text()),
			Body:        joinBreaks(body),
			CreatedAt:   NormalizeDate(item.Find(".display-name-date .review-date").First().Text()),
			UsefulCount: parseCount(strings.SplitN(strings.TrimSpace(item.Find(".actions").First().Text()), " ", 2)[0]),
			Rating:      float64(firstNumber(item.Find(".rating-other-user-rating .point-scale").First().Prev().Text())),
		})
	})
	return reviews
}

// joinBreaks reflows <br>-separated review markup into blank-line separated
// paragraphs.
func joinBreaks(markup string) string {
	var parts []string
	for _, part := range strings.Split(markup, "<br") {
		part = strings.TrimPrefix(part, ">")
		part = strings.TrimPrefix(part, "/>")
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n\n")
}
