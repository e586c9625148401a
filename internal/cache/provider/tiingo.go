package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	segjson "github.com/segmentio/encoding/json"

	"github.com/lowfloat/catalystrun/internal/model"
)

// Tiingo is the primary intraday/EOD bar provider. Bar decoding is the
// cache's hot path, so it uses the faster segmentio JSON codec rather
// than encoding/json.
type Tiingo struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewTiingo builds a Tiingo client against baseURL (e.g.
// https://api.tiingo.com) authenticated with apiKey.
func NewTiingo(baseURL, apiKey string, timeout time.Duration) *Tiingo {
	return &Tiingo{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

func (t *Tiingo) Name() string { return "tiingo" }

type tiingoBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

func (t *Tiingo) FetchBars(ctx context.Context, ticker string, interval model.Interval, start, end time.Time) ([]model.Bar, error) {
	resampleFreq, err := tiingoResampleFreq(interval)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/tiingo/daily/%s/prices?startDate=%s&endDate=%s&resampleFreq=%s&token=%s",
		t.baseURL, url.PathEscape(ticker), start.Format("2006-01-02"), end.Format("2006-01-02"), resampleFreq, t.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tiingo: status %d", resp.StatusCode)
	}

	var raw []tiingoBar
	if err := segjson.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("tiingo: decode: %w", err)
	}

	bars := make([]model.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, model.Bar{
			TSUTC: b.Date.UTC(), Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		})
	}
	return bars, nil
}

func (t *Tiingo) FetchLastPrice(ctx context.Context, ticker string) (float64, string, error) {
	now := time.Now().UTC()
	bars, err := t.FetchBars(ctx, ticker, model.Interval1d, now.AddDate(0, 0, -5), now)
	if err != nil {
		return 0, "", err
	}
	if len(bars) == 0 {
		return 0, "", fmt.Errorf("tiingo: no recent bars for %s", ticker)
	}
	return bars[len(bars)-1].Close, "USD", nil
}

func tiingoResampleFreq(interval model.Interval) (string, error) {
	switch interval {
	case model.Interval1d:
		return "daily", nil
	case model.Interval1h:
		return "60min", nil
	case model.Interval15m:
		return "15min", nil
	case model.Interval5m:
		return "5min", nil
	case model.Interval1m:
		return "1min", nil
	default:
		return "", fmt.Errorf("tiingo: unsupported interval %s", interval)
	}
}
