package ratelimit

import (
	"fmt"
	"time"

	"github.com/fsdevblog/groph-credits/internal/domain"
)

// ExceededError несет окно, в котором превышен лимит, и время до его сброса.
// Разворачивается в domain.ErrRateLimitExceeded.
type ExceededError struct {
	Granularity Granularity
	RetryAfter  time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf(
		"rate limit exceeded for %s window, retry after %s",
		e.Granularity, e.RetryAfter,
	)
}

func (e *ExceededError) Unwrap() error {
	return domain.ErrRateLimitExceeded
}
