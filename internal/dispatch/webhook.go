package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/errs"
	"github.com/lowfloat/catalystrun/internal/model"
)

// embedColor picks a Discord embed side color by regime, matching the
// teacher's per-state color convention in its own embed builder.
var embedColor = map[model.Regime]int{
	model.RegimeBull:    0x2ecc71,
	model.RegimeBear:    0xe74c3c,
	model.RegimeHighVol: 0xf39c12,
	model.RegimeNeutral: 0x95a5a6,
	model.RegimeCrash:   0x8e44ad,
}

// webhookPayload is a Discord-compatible embed payload.
type webhookPayload struct {
	Username string          `json:"username,omitempty"`
	Embeds   []webhookEmbed  `json:"embeds,omitempty"`
}

type webhookEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []webhookEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type webhookEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// WebhookProvider renders a ScoredItem as a Discord-compatible embed and
// POSTs it to a configured webhook URL.
type WebhookProvider struct {
	name       string
	url        string
	username   string
	client     *http.Client
}

// NewWebhookProvider builds a WebhookProvider targeting url, identified by
// name in logs.
func NewWebhookProvider(name, url, username string) *WebhookProvider {
	return &WebhookProvider{
		name:     name,
		url:      url,
		username: username,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *WebhookProvider) Name() string { return p.name }

// Send renders item and POSTs it, classifying the HTTP outcome into
// errs.DispatchTransient (retryable) or errs.DispatchPermanent (terminal).
// The caller's retry loop decides whether and how to retry.
func (p *WebhookProvider) Send(ctx context.Context, item model.ScoredItem) error {
	payload := renderEmbed(p.username, item)

	body, err := json.Marshal(payload)
	if err != nil {
		return &errs.DispatchPermanent{Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return &errs.DispatchPermanent{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &errs.DispatchTransient{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		log.Debug().Str("provider", p.name).Strs("tickers", item.Tickers).Msg("alert dispatched")
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &errs.DispatchTransient{StatusCode: resp.StatusCode, RetryAfter: retryAfter(resp), Err: fmt.Errorf("rate limited")}
	case resp.StatusCode >= 500:
		return &errs.DispatchTransient{StatusCode: resp.StatusCode, Err: fmt.Errorf("server error")}
	default:
		return &errs.DispatchPermanent{StatusCode: resp.StatusCode, Err: fmt.Errorf("webhook rejected payload")}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func renderEmbed(username string, item model.ScoredItem) webhookPayload {
	fields := []webhookEmbedField{
		{Name: "Score", Value: fmt.Sprintf("%.2f", item.SourceWeight), Inline: true},
		{Name: "Confidence", Value: fmt.Sprintf("%.2f", item.Confidence), Inline: true},
		{Name: "Price", Value: fmt.Sprintf("%s %.2f", item.Currency, item.LastPrice), Inline: true},
		{Name: "Regime", Value: string(item.Regime), Inline: true},
		{Name: "RVol", Value: fmt.Sprintf("%.2fx", item.RVolMultiplier), Inline: true},
	}
	if item.OfferingPenalty != 0 {
		fields = append(fields, webhookEmbedField{Name: "Offering Penalty", Value: fmt.Sprintf("%.2f", item.OfferingPenalty), Inline: true})
	}

	return webhookPayload{
		Username: username,
		Embeds: []webhookEmbed{{
			Title:       fmt.Sprintf("%s — %s", joinTickers(item.Tickers), item.Title),
			Description: item.BodySnippet,
			URL:         item.Link,
			Color:       embedColor[item.Regime],
			Fields:      fields,
			Timestamp:   item.TSPublished.UTC().Format(time.RFC3339),
		}},
	}
}

func joinTickers(tickers []string) string {
	out := ""
	for i, t := range tickers {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}
