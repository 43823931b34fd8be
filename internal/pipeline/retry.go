package pipeline

import (
	"errors"
	"math/rand"
	"time"

	"github.com/zhongyd/addrnorm/internal/llmtag"
	"github.com/zhongyd/addrnorm/internal/tagger"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var taggerErr *tagger.RetryableError
	if errors.As(err, &taggerErr) {
		return true
	}
	var llmErr *llmtag.RetryableError
	return errors.As(err, &llmErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3
