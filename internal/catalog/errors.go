package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds every stage handler must honor. Banned, ErrConcurrentLimit and
// unclassified transport errors are retryable at the queue level; DataInvalid
// purges the owning brief instead of retrying; NotFound means "proceed with an
// empty record".
var (
	ErrBanned          = errors.New("source banned the session")
	ErrConcurrentLimit = errors.New("source concurrency limit exceeded")
	ErrDataInvalid     = errors.New("record fails validity check")
	ErrNotFound        = errors.New("document not found")
)

// bannedMarkers are message substrings that signal a soft ban at the
// transport level. The login-redirect marker shows up when the source
// bounces a blocked session to its sign-in page.
var bannedMarkers = []string{
	"403",
	"502",
	"503",
	"504",
	"reset",
	"refuse",
	"timed out",
	"timedout",
	"登录",
}

// Classify maps a raw transport or parse failure onto the error taxonomy.
// Errors already carrying a kind pass through unchanged; anything
// unrecognized stays as-is and is treated like Banned by retry policy.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBanned) || errors.Is(err, ErrConcurrentLimit) ||
		errors.Is(err, ErrDataInvalid) || errors.Is(err, ErrNotFound) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "404") {
		return fmt.Errorf("%s: %w", truncateReason(err.Error()), ErrNotFound)
	}
	for _, marker := range bannedMarkers {
		if strings.Contains(msg, strings.ToLower(marker)) {
			return fmt.Errorf("%s: %w", truncateReason(err.Error()), ErrBanned)
		}
	}
	return err
}

// Retryable reports whether the queue should requeue the owning task.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrDataInvalid) && !errors.Is(err, ErrNotFound)
}

func truncateReason(msg string) string {
	const max = 80
	if len(msg) > max {
		return msg[:max]
	}
	return msg
}
