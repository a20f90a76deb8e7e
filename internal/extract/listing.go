package extract

import (
	"encoding/json"
	"fmt"

	"github.com/moviegraph/crawler/internal/catalog"
)

// concurrentRejectCode is the status embedded in an otherwise-200 body when
// the source rejects a request for exceeding its concurrency policy. The
// discriminant piggybacks on a generic error-body shape upstream, so it is a
// constant to revisit rather than a guarantee.
const concurrentRejectCode = 200

// listingEnvelope is the primary-source listing API response. The r flag is
// the explicit rate-limit marker.
type listingEnvelope struct {
	R    int                    `json:"r"`
	Code int                    `json:"code"`
	Data []catalog.BriefListing `json:"data"`
}

// Listing decodes one listing API page into brief records, surfacing the
// payload-level ban and concurrency markers as classified errors. A missing
// data field is an empty page, not a failure.
func Listing(body []byte) ([]catalog.BriefListing, error) {
	var env listingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode listing payload: %w", err)
	}
	if env.R == 1 {
		return nil, fmt.Errorf("listing payload rate-limit marker: %w", catalog.ErrBanned)
	}
	if env.Code == concurrentRejectCode {
		return nil, fmt.Errorf("listing payload code %d: %w", env.Code, catalog.ErrConcurrentLimit)
	}
	return env.Data, nil
}

type reviewEnvelope struct {
	R       int `json:"r"`
	Code    int `json:"code"`
	Reviews []struct {
		Title     string `json:"title"`
		CreatedAt string `json:"created_at"`
		Content   string `json:"content"`
		Author    struct {
			Name string `json:"name"`
		} `json:"author"`
		UsefulCount int `json:"useful_count"`
		Rating      struct {
			Value float64 `json:"value"`
			Max   float64 `json:"max"`
		} `json:"rating"`
	} `json:"reviews"`
}

// PrimaryReviews decodes the primary-source review API response. Ratings
// arrive on a 0-5 scale and are normalized to 0-10; review bodies are
// re-flowed into blank-line separated paragraphs.
func PrimaryReviews(body []byte) ([]catalog.Review, error) {
	var env reviewEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode review payload: %w", err)
	}
	if env.R == 1 {
		return nil, fmt.Errorf("review payload rate-limit marker: %w", catalog.ErrBanned)
	}
	if env.Code == concurrentRejectCode {
		return nil, fmt.Errorf("review payload code %d: %w", env.Code, catalog.ErrConcurrentLimit)
	}
	reviews := make([]catalog.Review, 0, len(env.Reviews))
	for _, r := range env.Reviews {
		scale := r.Rating.Max
		if scale == 0 {
			scale = 5
		}
		reviews = append(reviews, catalog.Review{
			Source:      catalog.SourcePrimary,
			Title:       r.Title,
			Author:      r.Author.Name,
			Body:        JoinParagraphs(r.Content, "\n\n"),
			CreatedAt:   r.CreatedAt,
			UsefulCount: r.UsefulCount,
			Rating:      NormalizeRating(r.Rating.Value, scale),
		})
	}
	return reviews, nil
}
