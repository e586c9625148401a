package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/metrics"
	"github.com/lowfloat/catalystrun/internal/model"
)

// adminPayload is a Discord-compatible embed, mirroring the shape the
// dispatch package posts for accepted items but built independently here
// since the beacon is not a ScoredItem alert.
type adminPayload struct {
	Username string        `json:"username,omitempty"`
	Embeds   []adminEmbed  `json:"embeds,omitempty"`
}

type adminEmbed struct {
	Title     string             `json:"title,omitempty"`
	Fields    []adminEmbedField  `json:"fields,omitempty"`
	Timestamp string             `json:"timestamp,omitempty"`
}

type adminEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Beacon periodically posts a Counters snapshot to an admin webhook and
// mirrors the same values onto the Prometheus registry.
type Beacon struct {
	counters   *Counters
	registry   *metrics.Registry
	webhookURL string
	username   string
	client     *http.Client

	everyCycles int
	cycleCount  int
}

// NewBeacon builds a Beacon posting to webhookURL every everyCycles
// cycles. A zero or negative everyCycles disables the admin webhook post
// (Prometheus gauges still update on every Fire call).
func NewBeacon(counters *Counters, registry *metrics.Registry, webhookURL string, everyCycles int) *Beacon {
	return &Beacon{
		counters:    counters,
		registry:    registry,
		webhookURL:  webhookURL,
		username:    "catalystrun-admin",
		client:      &http.Client{Timeout: 10 * time.Second},
		everyCycles: everyCycles,
	}
}

// Fire should be called once per cycle. It always mirrors current
// counters onto Prometheus; it posts the admin webhook only every
// everyCycles calls, per §4.K's "every N cycles" cadence. A failure to
// post never returns an error to the caller — it is logged and
// swallowed so the main loop's liveness is unaffected.
func (b *Beacon) Fire(ctx context.Context, now time.Time) {
	summary := b.counters.Snapshot(now)
	b.updatePrometheus(summary)

	b.cycleCount++
	if b.everyCycles <= 0 || b.cycleCount < b.everyCycles {
		return
	}
	b.cycleCount = 0

	if b.webhookURL == "" {
		b.counters.Reset()
		return
	}

	if err := b.post(ctx, summary); err != nil {
		log.Warn().Err(err).Msg("heartbeat: admin webhook post failed")
	}
	b.counters.Reset()
}

func (b *Beacon) updatePrometheus(s Summary) {
	if b.registry == nil {
		return
	}
	for reason, count := range s.Rejections {
		b.registry.ItemsRejected.WithLabelValues(string(reason)).Add(float64(count))
	}
	for provider, count := range s.ProviderErrors {
		b.registry.ProviderErrors.WithLabelValues(provider).Add(float64(count))
	}
	if !s.LastErrorTime.IsZero() {
		b.registry.LastErrorUnix.Set(float64(s.LastErrorTime.Unix()))
	}
}

func (b *Beacon) post(ctx context.Context, s Summary) error {
	payload := renderSummary(b.username, s)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal heartbeat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("admin webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func renderSummary(username string, s Summary) adminPayload {
	fields := []adminEmbedField{
		{Name: "Cycles", Value: fmt.Sprintf("%d", s.Cycles), Inline: true},
		{Name: "Items/Cycle", Value: fmt.Sprintf("%.1f", s.ItemsPerCycleMean), Inline: true},
		{Name: "Dispatched", Value: fmt.Sprintf("%d", s.Dispatched), Inline: true},
		{Name: "Dispatch Errors", Value: fmt.Sprintf("%d", s.DispatchErrors), Inline: true},
	}

	if len(s.Rejections) > 0 {
		fields = append(fields, adminEmbedField{Name: "Rejections", Value: formatReasonCounts(s.Rejections)})
	}
	if len(s.CacheHitRate) > 0 {
		fields = append(fields, adminEmbedField{Name: "Cache Hit Rate", Value: formatRateMap(s.CacheHitRate)})
	}
	if len(s.ProviderErrors) > 0 {
		fields = append(fields, adminEmbedField{Name: "Provider Errors", Value: formatCountMap(s.ProviderErrors)})
	}
	if s.LastError != "" {
		fields = append(fields, adminEmbedField{
			Name:  "Last Error",
			Value: fmt.Sprintf("%s (%s)", s.LastError, s.LastErrorTime.UTC().Format(time.RFC3339)),
		})
	}

	return adminPayload{
		Username: username,
		Embeds: []adminEmbed{{
			Title:     "catalystrun heartbeat",
			Fields:    fields,
			Timestamp: s.At.UTC().Format(time.RFC3339),
		}},
	}
}

func formatReasonCounts(m map[model.RejectionReason]int64) string {
	keys := make([]string, 0, len(m))
	byKey := make(map[string]int64, len(m))
	for reason, count := range m {
		key := string(reason)
		keys = append(keys, key)
		byKey[key] = count
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %d", k, byKey[k])
	}
	return out
}

func formatRateMap(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %.0f%%", k, m[k]*100)
	}
	return out
}

func formatCountMap(m map[string]int64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %d", k, m[k])
	}
	return out
}
