// Package errs defines the pipeline's error taxonomy as distinct named
// types rather than sentinel values, so callers can errors.As to branch
// on kind while %w wrapping chains still carry context.
package errs

import (
	"fmt"
	"time"
)

// ConfigError is terminal at startup: missing required environment
// variables, invalid price band, etc.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// FeedError is per-source and recoverable: the cycle continues with the
// remaining healthy sources.
type FeedError struct {
	SourceID string
	Err      error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.SourceID, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

// ProviderError is per-provider and triggers fallback to the next provider
// in the chain.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimited signals a provider's token bucket or daily budget is
// exhausted; the caller should wait or swap providers.
type RateLimited struct {
	Provider string
	RetryAfter time.Duration
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("rate limited by %s, retry after %s", e.Provider, e.RetryAfter)
}

// CacheCorruption signals the disk or dedup store failed integrity checks;
// the system switches to an in-memory fallback and continues.
type CacheCorruption struct {
	Path string
	Err  error
}

func (e *CacheCorruption) Error() string {
	return fmt.Sprintf("cache corruption at %s: %v", e.Path, e.Err)
}

func (e *CacheCorruption) Unwrap() error { return e.Err }

// DedupStoreError mirrors CacheCorruption for the dedup store specifically.
type DedupStoreError struct {
	Err error
}

func (e *DedupStoreError) Error() string {
	return fmt.Sprintf("dedup store error: %v", e.Err)
}

func (e *DedupStoreError) Unwrap() error { return e.Err }

// DispatchTransient covers retryable delivery failures (connection reset,
// 5xx, 429 with Retry-After).
type DispatchTransient struct {
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *DispatchTransient) Error() string {
	return fmt.Sprintf("transient dispatch failure (status %d): %v", e.StatusCode, e.Err)
}

func (e *DispatchTransient) Unwrap() error { return e.Err }

// DispatchPermanent covers terminal delivery failures (4xx other than 429).
type DispatchPermanent struct {
	StatusCode int
	Err        error
}

func (e *DispatchPermanent) Error() string {
	return fmt.Sprintf("permanent dispatch failure (status %d): %v", e.StatusCode, e.Err)
}

func (e *DispatchPermanent) Unwrap() error { return e.Err }

// ClassifierError wraps an unexpected classification failure; the item is
// treated as rejected with reason classifier_error.
type ClassifierError struct {
	Err error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier error: %v", e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// ErrNoData indicates no tier in the market data cache could produce a
// result for the requested key.
type ErrNoData struct {
	Ticker string
}

func (e *ErrNoData) Error() string {
	return fmt.Sprintf("no data for %s", e.Ticker)
}
