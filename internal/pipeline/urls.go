package pipeline

import (
	"fmt"
	"net/url"
	"strings"
)

// primaryReviewPageSize matches the largest count the review API serves per
// request; one page per movie is the whole harvest.
const primaryReviewPageSize = 75

// listingURL builds one paginated listing API request for a genre. The tags
// parameter pins the search to feature films.
func listingURL(base, genre string, start, limit int) string {
	return fmt.Sprintf(
		"%s/j/new_search_subjects?sort=T&range=1,10&start=%d&limit=%d&tags=%s&genres=%s",
		strings.TrimSuffix(base, "/"),
		start, limit,
		url.QueryEscape("电影"),
		url.QueryEscape(genre),
	)
}

// primaryReviewURL builds the review API request for one title.
func primaryReviewURL(apiBase, apiKey, externalID string) string {
	return fmt.Sprintf(
		"%s/v2/movie/subject/%s/reviews?apikey=%s&start=0&count=%d",
		strings.TrimSuffix(apiBase, "/"),
		externalID, apiKey, primaryReviewPageSize,
	)
}

// secondaryDetailURL builds the secondary-source title page request.
func secondaryDetailURL(base, secondaryID string) string {
	return fmt.Sprintf("%s/title/%s/", strings.TrimSuffix(base, "/"), secondaryID)
}

// secondaryReviewURL builds the secondary-source review page request.
func secondaryReviewURL(base, secondaryID string) string {
	return fmt.Sprintf("%s/title/%s/reviews", strings.TrimSuffix(base, "/"), secondaryID)
}
