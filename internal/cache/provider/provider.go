// Package provider defines the market-data provider contract (§6) and the
// concrete providers in the fallback chain (Tiingo, Stooq, SEC XBRL).
package provider

import (
	"context"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// Provider is the capability set every market-data variant implements —
// an interface, not an inheritance hierarchy, registered by name in a chain.
type Provider interface {
	Name() string
	FetchBars(ctx context.Context, ticker string, interval model.Interval, start, end time.Time) ([]model.Bar, error)
	FetchLastPrice(ctx context.Context, ticker string) (price float64, currency string, err error)
}

// RateLimitSpec describes a provider's token-bucket parameters. Nothing in
// this repository constructs or reports it; the limits in use come from
// the providers config.
type RateLimitSpec struct {
	RPS         float64
	Burst       int
	DailyBudget int64
}
