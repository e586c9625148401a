package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/errs"
	"github.com/lowfloat/catalystrun/internal/model"
)

// slackPayload is a minimal Slack incoming-webhook message: plain text plus
// a attachments-free field summary, matching Slack's "blocks" convention
// closely enough for operator consumption without depending on the full
// Block Kit schema.
type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

type slackBlock struct {
	Type string      `json:"type"`
	Text *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackProvider is a second outbound destination behind the same
// AlertProvider interface as WebhookProvider, for operators who route
// alerts to Slack-compatible incoming webhooks instead of (or alongside)
// Discord.
type SlackProvider struct {
	name   string
	url    string
	client *http.Client
}

func NewSlackProvider(name, url string) *SlackProvider {
	return &SlackProvider{name: name, url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

func (p *SlackProvider) Name() string { return p.name }

func (p *SlackProvider) Send(ctx context.Context, item model.ScoredItem) error {
	payload := slackPayload{
		Text: fmt.Sprintf("*%s* — %s", joinTickers(item.Tickers), item.Title),
		Blocks: []slackBlock{
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: item.Title}},
			{Type: "section", Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Score:*\n%.2f", item.SourceWeight)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Confidence:*\n%.2f", item.Confidence)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Price:*\n%s %.2f", item.Currency, item.LastPrice)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Regime:*\n%s", item.Regime)},
			}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &errs.DispatchPermanent{Err: fmt.Errorf("marshal slack payload: %w", err)}
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
