package provider

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// Stooq is the fallback delayed-quote provider (the yfinance-equivalent
// named in §4.C), returning CSV, parsed with the standard library — no
// ecosystem CSV parser in the corpus improves on encoding/csv for this
// narrow, fixed-column shape.
type Stooq struct {
	httpClient *http.Client
	baseURL    string
}

// NewStooq builds a Stooq client against baseURL (e.g. https://stooq.com).
func NewStooq(baseURL string, timeout time.Duration) *Stooq {
	return &Stooq{httpClient: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (s *Stooq) Name() string { return "stooq" }

func (s *Stooq) FetchBars(ctx context.Context, ticker string, interval model.Interval, start, end time.Time) ([]model.Bar, error) {
	if interval != model.Interval1d {
		return nil, fmt.Errorf("stooq: only daily bars supported")
	}

	u := fmt.Sprintf("%s/q/d/l/?s=%s.us&d1=%s&d2=%s&i=d",
		s.baseURL, strings.ToLower(ticker), start.Format("20060102"), end.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stooq: status %d", resp.StatusCode)
	}

	return parseStooqCSV(resp.Body)
}

func parseStooqCSV(r io.Reader) ([]model.Bar, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("stooq: parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("stooq: no data rows")
	}

	bars := make([]model.Bar, 0, len(records)-1)
	for _, row := range records[1:] { // skip header: Date,Open,High,Low,Close,Volume
		if len(row) < 6 {
			continue // tolerate malformed rows by skipping them
		}
		ts, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			continue
		}
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		closeP, _ := strconv.ParseFloat(row[4], 64)
		vol, _ := strconv.ParseInt(row[5], 10, 64)

		bars = append(bars, model.Bar{TSUTC: ts.UTC(), Open: open, High: high, Low: low, Close: closeP, Volume: vol})
	}
	return bars, nil
}

func (s *Stooq) FetchLastPrice(ctx context.Context, ticker string) (float64, string, error) {
	now := time.Now().UTC()
	bars, err := s.FetchBars(ctx, ticker, model.Interval1d, now.AddDate(0, 0, -5), now)
	if err != nil {
		return 0, "", err
	}
	if len(bars) == 0 {
		return 0, "", fmt.Errorf("stooq: no recent bars for %s", ticker)
	}
	return bars[len(bars)-1].Close, "USD", nil
}
