// Package catalog defines core types shared across subsystems.
package catalog

import "time"

// BriefListing is the minimal record discovered by the listing stage. It is
// staging data only; a persisted MovieDetail for the same ExternalID
// supersedes it.
type BriefListing struct {
	ExternalID string `json:"id"`
	Title      string `json:"title"`
	DetailURL  string `json:"url"`
}

// MovieDetail is the merged per-movie record handed to the persistence layer.
// Primary-source fields are authoritative; secondary-source fields either fill
// gaps or carry secondary-only data.
type MovieDetail struct {
	ExternalID    string
	Title         string
	OriginalTitle string
	Alias         string
	Language      string
	PublishYear   string
	ReleaseDate   string // YYYY-MM-DD, possibly degraded precision
	Duration      int    // minutes
	CoverURL      string

	PrimaryRating        float64
	PrimaryRatingCount   int
	SecondaryRating      float64
	SecondaryRatingCount int
	SummaryPrimary       string
	SummarySecondary     string
	SecondaryID          string

	Directors []string
	Writers   []string
	Actors    []string
	Genres    []string
	Regions   []string
}

// Review source tags.
const (
	SourcePrimary   = "douban"
	SourceSecondary = "imdb"
)

// Review is one critic or audience review, rating normalized to 0-10.
type Review struct {
	SubjectID   int64
	Source      string
	Title       string
	Author      string
	Body        string
	CreatedAt   string
	UsefulCount int
	Rating      float64
}

// MovieRef identifies a persisted movie for the review stage.
type MovieRef struct {
	ID          int64
	ExternalID  string
	SecondaryID string
	Title       string
}

// SegmentTask describes one paginated listing request. Tasks are immutable;
// retries requeue a new value with Retry incremented.
type SegmentTask struct {
	Start int
	Limit int
	Retry int
}

// Next returns the follow-up segment for the page after this one.
func (t SegmentTask) Next() SegmentTask {
	return SegmentTask{Start: t.Start + t.Limit, Limit: t.Limit}
}

// Retried returns a copy with the retry counter incremented.
func (t SegmentTask) Retried() SegmentTask {
	t.Retry++
	return t
}

// FetchRequest captures everything needed to fetch one document. Identity
// headers are supplied by the gateway per call; callers never set them.
type FetchRequest struct {
	URL     string
	Method  string // defaults to GET
	Timeout time.Duration
}
