package catalog

import "context"

// Fetcher issues one outbound request through the egress gateway and returns
// the raw body. Transport failures come back as errors suitable for Classify.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) ([]byte, error)
}

// Store is the sole writer of durable state. Best-effort operations
// (brief inserts, purges, the failure ledger) log and continue instead of
// returning errors; they cannot fail the caller by contract.
type Store interface {
	// InsertBriefs persists listing staging rows, best effort.
	InsertBriefs(ctx context.Context, briefs []BriefListing)
	// PurgeBrief removes a stale staging row so it is not retried on the
	// next run, best effort.
	PurgeBrief(ctx context.Context, externalID string)
	// UnprocessedBriefs returns staging rows with no corresponding movie.
	UnprocessedBriefs(ctx context.Context) ([]BriefListing, error)

	// SaveMovie writes the movie and all its relations in one transaction,
	// retrying from scratch on failure. Exhaustion appends a failure ledger
	// entry; the error is never surfaced.
	SaveMovie(ctx context.Context, detail MovieDetail)

	// MoviesMissingReviews returns persisted movies with no review rows.
	MoviesMissingReviews(ctx context.Context) ([]MovieRef, error)
	// SaveReviews writes a review batch transactionally, dropping the batch
	// after the retry ceiling.
	SaveReviews(ctx context.Context, title string, reviews []Review)
}
