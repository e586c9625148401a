package dispatch

import (
	"errors"
	"time"

	"github.com/lowfloat/catalystrun/internal/errs"
)

// classifyRetry inspects err and reports the wait duration and whether a
// retry is warranted. Transient failures honor Retry-After when the
// provider supplied one, falling back to the caller's current backoff.
func classifyRetry(err error, backoff time.Duration) (wait time.Duration, retryable bool) {
	var transient *errs.DispatchTransient
	if errors.As(err, &transient) {
		if transient.RetryAfter > 0 {
			return transient.RetryAfter, true
		}
		return backoff, true
	}

	var permanent *errs.DispatchPermanent
	if errors.As(err, &permanent) {
		return 0, false
	}

	return backoff, true
}
