package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// SECFinancial wraps SEC EDGAR's free XBRL company-facts API. It does not
// serve OHLCV bars (FetchBars/FetchLastPrice are unsupported and exist
// only to satisfy the Provider interface so it can share the cache's
// rate-limit/circuit-breaker/budget infrastructure); its real role is
// supplying shares-outstanding data to the float enrichment provider.
type SECFinancial struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewSECFinancial builds a client against baseURL (https://data.sec.gov).
// A descriptive User-Agent with a contact email is mandatory — SEC
// rejects anonymous traffic.
func NewSECFinancial(baseURL, userAgent string, timeout time.Duration) *SECFinancial {
	return &SECFinancial{httpClient: &http.Client{Timeout: timeout}, baseURL: baseURL, userAgent: userAgent}
}

func (s *SECFinancial) Name() string { return "secfinancial" }

func (s *SECFinancial) FetchBars(ctx context.Context, ticker string, interval model.Interval, start, end time.Time) ([]model.Bar, error) {
	return nil, fmt.Errorf("secfinancial: bars not supported")
}

func (s *SECFinancial) FetchLastPrice(ctx context.Context, ticker string) (float64, string, error) {
	return 0, "", fmt.Errorf("secfinancial: price not supported")
}

// CompanyFacts is the subset of SEC's companyfacts payload the float
// enrichment provider needs.
type CompanyFacts struct {
	CIK          int64  `json:"cik"`
	EntityName   string `json:"entityName"`
	SharesOutstanding int64
}

// FetchCompanyFacts retrieves shares-outstanding data for a CIK.
func (s *SECFinancial) FetchCompanyFacts(ctx context.Context, cik int64) (*CompanyFacts, error) {
	u := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%010d.json", s.baseURL, cik)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("secfinancial: status %d", resp.StatusCode)
	}

	var payload struct {
		CIK        int64  `json:"cik"`
		EntityName string `json:"entityName"`
		Facts      struct {
			DEI map[string]struct {
				Units map[string][]struct {
					Val int64     `json:"val"`
					End time.Time `json:"end"`
				} `json:"units"`
			} `json:"dei"`
		} `json:"facts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("secfinancial: decode: %w", err)
	}

	facts := &CompanyFacts{CIK: payload.CIK, EntityName: payload.EntityName}
	if outstanding, ok := payload.Facts.DEI["EntityCommonStockSharesOutstanding"]; ok {
		if units, ok := outstanding.Units["shares"]; ok && len(units) > 0 {
			facts.SharesOutstanding = units[len(units)-1].Val
		}
	}
	return facts, nil
}
