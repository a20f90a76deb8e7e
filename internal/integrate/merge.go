// Package integrate merges the primary- and secondary-source views of one
// title into a single canonical record.
package integrate

import "github.com/moviegraph/crawler/internal/catalog"

// PlaceholderCover is the primary source's default poster, served when a
// title has no artwork. It signals that the secondary cover should win.
const PlaceholderCover = "https://img3.doubanio.com/f/movie/30c6263b6db26d055cbbe73fe653e29014142ea3/pics/movie/movie_default_large.png"

// Valid is the minimal validity predicate for a primary detail record. A
// record without a primary summary is structurally incompatible with the
// catalog, which is a data error rather than a transport one.
func Valid(d catalog.MovieDetail) bool {
	return d.SummaryPrimary != ""
}

// Merge overlays secondary-source data onto a primary record. Secondary
// values fill only empty primary fields (publish year, release date,
// duration), supply the secondary-only rating and summary, and replace the
// cover when the primary one is the default placeholder.
func Merge(primary, secondary catalog.MovieDetail) catalog.MovieDetail {
	merged := primary
	if merged.PublishYear == "" {
		merged.PublishYear = secondary.PublishYear
	}
	if merged.ReleaseDate == "" {
		merged.ReleaseDate = secondary.ReleaseDate
	}
	if merged.Duration == 0 {
		merged.Duration = secondary.Duration
	}
	if merged.CoverURL == PlaceholderCover {
		merged.CoverURL = secondary.CoverURL
	}
	merged.SecondaryRating = secondary.SecondaryRating
	merged.SecondaryRatingCount = secondary.SecondaryRatingCount
	merged.SummarySecondary = secondary.SummarySecondary
	return merged
}
