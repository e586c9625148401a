package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/admin"
	"github.com/lowfloat/catalystrun/internal/analyzer"
	"github.com/lowfloat/catalystrun/internal/cache"
	"github.com/lowfloat/catalystrun/internal/cache/provider"
	"github.com/lowfloat/catalystrun/internal/classify"
	"github.com/lowfloat/catalystrun/internal/clock"
	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/dedup"
	"github.com/lowfloat/catalystrun/internal/dispatch"
	"github.com/lowfloat/catalystrun/internal/enrich"
	"github.com/lowfloat/catalystrun/internal/fetch"
	"github.com/lowfloat/catalystrun/internal/filter"
	"github.com/lowfloat/catalystrun/internal/heartbeat"
	"github.com/lowfloat/catalystrun/internal/journal"
	"github.com/lowfloat/catalystrun/internal/metrics"
)

// Pipeline bundles every A-K component (spec.md §2) constructed from a
// single Settings handle, ready to run the cycle loop or be driven one
// cycle at a time by tests and the bootstrap/analyze CLI paths.
type Pipeline struct {
	Settings *config.Settings

	Clock      *clock.Clock
	Dedup      *dedup.Store
	Cache      *cache.Cache
	Enricher   *enrich.Enricher
	Classifier *classify.Classifier
	Admission  *filter.Admission
	Fetchers   *fetch.Pool
	Dispatcher *dispatch.Dispatcher
	Journals   *journal.Journals
	Counters   *heartbeat.Counters
	Beacon     *heartbeat.Beacon
	Metrics    *metrics.Registry
	Admin      *admin.Server

	Analyzer     *analyzer.Analyzer
	OutcomeStore analyzer.OutcomeStore
}

// Build wires every component from settings, following the acyclic
// dependency graph Design Notes §9 specifies: cache depends on providers,
// enrichment depends on cache, classifier depends on enrichment, filter
// depends on classifier output only, dispatcher depends on none of the
// above except ScoredItem.
func Build(settings *config.Settings) (*Pipeline, error) {
	clk, err := clock.New(settings)
	if err != nil {
		return nil, fmt.Errorf("build clock: %w", err)
	}

	dedupStore, err := dedup.Open(settings.DedupPath, settings.DedupRetention)
	if err != nil {
		return nil, fmt.Errorf("build dedup store: %w", err)
	}

	providersCfg, err := loadProvidersConfig(settings.ProvidersConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load providers config: %w", err)
	}

	marketCache, providers, secClient, err := buildCache(settings, providersCfg)
	if err != nil {
		return nil, fmt.Errorf("build market data cache: %w", err)
	}

	cikTable, err := loadTickerCIKTable(settings.TickerCIKPath)
	if err != nil {
		return nil, fmt.Errorf("load ticker CIK table: %w", err)
	}
	resolver := newTickerCIKResolver(cikTable)

	sectorTaxonomy, err := loadSectorTaxonomy(settings.SectorTaxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("load sector taxonomy: %w", err)
	}

	enricher := buildEnricher(settings, marketCache, secClient, resolver, sectorTaxonomy)

	keywords, err := loadKeywordTable(settings.KeywordTablePath)
	if err != nil {
		return nil, fmt.Errorf("load keyword table: %w", err)
	}

	var sentiment classify.SentimentSource = classify.LexiconSentiment{}
	if !settings.EnableSentiment {
		sentiment = classify.DisabledSentiment{}
	}
	classifier := classify.NewClassifier(keywords, sentiment, settings.SentimentAlpha, settings.MaxAge)

	admission := filter.New(settings, dedupStore)

	fetcherPool := buildFetchers(settings)

	alertProviders, err := buildAlertProviders(settings)
	if err != nil {
		return nil, fmt.Errorf("build alert providers: %w", err)
	}
	dispatcher := dispatch.New(settings, alertProviders)

	journals, err := journal.OpenJournals(settings)
	if err != nil {
		return nil, fmt.Errorf("open journals: %w", err)
	}

	counters := heartbeat.NewCounters()
	promReg := prometheus.NewRegistry()
	registry := metrics.NewRegistry(promReg)
	beacon := heartbeat.NewBeacon(counters, registry, settings.AdminWebhookURL, settings.HeartbeatEveryCycles)

	checkers := []admin.HealthChecker{
		admin.NewCacheHealthChecker(marketCache),
		admin.NewDedupHealthChecker(dedupStore),
	}
	adminServer := admin.New(settings.AdminHTTPAddr, promReg, checkers)

	outcomeStore, err := buildOutcomeStore(settings)
	if err != nil {
		return nil, fmt.Errorf("build outcome store: %w", err)
	}
	hist := analyzer.New(settings, marketCache, outcomeStore)

	return &Pipeline{
		Settings:   settings,
		Clock:      clk,
		Dedup:      dedupStore,
		Cache:      marketCache,
		Enricher:   enricher,
		Classifier: classifier,
		Admission:  admission,
		Fetchers:   fetcherPool,
		Dispatcher: dispatcher,
		Journals:   journals,
		Counters:   counters,
		Beacon:     beacon,
		Metrics:    registry,
		Admin:        adminServer,
		Analyzer:     hist,
		OutcomeStore: outcomeStore,
	}, nil
}

// Close releases every component holding a file handle, network
// connection, or background goroutine.
func (p *Pipeline) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Admin.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("admin server shutdown failed")
	}
	if err := p.Journals.Close(); err != nil {
		log.Warn().Err(err).Msg("journal close failed")
	}
	if err := p.Cache.Close(); err != nil {
		log.Warn().Err(err).Msg("cache close failed")
	}
	if err := p.Dedup.Close(); err != nil {
		log.Warn().Err(err).Msg("dedup store close failed")
	}
}

func loadProvidersConfig(path string) (*config.ProvidersConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("providers config not found, using built-in default chain")
		return config.DefaultProvidersConfig(), nil
	}
	return config.LoadProvidersConfig(path)
}

func loadKeywordTable(path string) (*classify.KeywordTable, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("keyword table not found, using built-in default table")
		return classify.DefaultKeywordTable(), nil
	}
	return classify.LoadKeywordTable(path)
}

// buildCache constructs the provider chain and wraps it in the multi-tier
// cache (§4.C). It returns the SECFinancial client separately since the
// float and offering enrichment providers need it directly, not just
// through the Provider interface's bars/price contract.
func buildCache(settings *config.Settings, providersCfg *config.ProvidersConfig) (*cache.Cache, []provider.Provider, *provider.SECFinancial, error) {
	var providers []provider.Provider
	var secClient *provider.SECFinancial

	if cfg, ok := providersCfg.GetProvider("tiingo"); ok && cfg.Enabled {
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey != "" {
			providers = append(providers, provider.NewTiingo(cfg.BaseURL, apiKey, cfg.RequestTimeout()))
		} else {
			log.Warn().Msg("tiingo enabled in providers config but TIINGO_API_KEY is unset, skipping")
		}
	}

	if cfg, ok := providersCfg.GetProvider("stooq"); ok && cfg.Enabled {
		providers = append(providers, provider.NewStooq(cfg.BaseURL, cfg.RequestTimeout()))
	}

	if cfg, ok := providersCfg.GetProvider("secfinancial"); ok && cfg.Enabled {
		secClient = provider.NewSECFinancial(cfg.BaseURL, settings.SECUserAgent, cfg.RequestTimeout())
		providers = append(providers, secClient)
	} else {
		secClient = provider.NewSECFinancial("https://data.sec.gov", settings.SECUserAgent, 10*time.Second)
	}

	c, err := cache.New(settings, providersCfg, providers)
	if err != nil {
		return nil, nil, nil, err
	}
	return c, providers, secClient, nil
}

// buildEnricher wires the five enrichment providers (§4.D) against the
// cache and SEC EDGAR, each gated by its own settings enable flag inside
// enrich.Enricher.Snapshot.
func buildEnricher(settings *config.Settings, c *cache.Cache, secClient *provider.SECFinancial, resolver *tickerCIKResolver, sectorTaxonomy map[string]enrich.SectorInfo) *enrich.Enricher {
	regime := enrich.NewRegimeProvider(marketSnapshotFunc(c))
	sector := enrich.NewSectorProvider(sectorLookupFunc(sectorTaxonomy))
	rvol := enrich.NewRVolProvider(volumeSnapshotFunc(c))
	float := enrich.NewFloatProvider(floatSharesFunc(secClient, resolver))

	offeringFinder := newOfferingFilingFinder(
		"https://data.sec.gov",
		settings.SECUserAgent,
		10*time.Second,
		secClient,
	)
	offering := enrich.NewOfferingProvider(offeringLookupFunc(offeringFinder, resolver))

	return enrich.NewEnricher(settings, regime, sector, rvol, float, offering, c.PriceAt)
}

// buildFetchers registers one fetcher per configured feed source (§4.E):
// SEC EDGAR, each configured PR wire, and each configured generic RSS feed.
func buildFetchers(settings *config.Settings) *fetch.Pool {
	var fetchers []fetch.Fetcher

	if settings.SECFeedURL != "" {
		fetchers = append(fetchers, fetch.NewSECFetcher(settings.SECFeedURL, settings.SECUserAgent, settings.FetcherTimeout))
	}
	for name, url := range settings.PRWireFeeds {
		fetchers = append(fetchers, fetch.NewPRWireFetcher(name, url, settings.FetcherTimeout))
	}
	for name, url := range settings.RSSFeeds {
		fetchers = append(fetchers, fetch.NewRSSFetcher(name, url, settings.FetcherTimeout))
	}

	return fetch.NewPool(settings.FetcherTimeout, fetchers...)
}

// buildAlertProviders registers the primary webhook destination and,
// when configured, a secondary Slack-compatible destination, behind the
// shared AlertProvider interface (§4.H).
func buildAlertProviders(settings *config.Settings) ([]dispatch.AlertProvider, error) {
	if settings.WebhookURL == "" {
		return nil, fmt.Errorf("ALERT_WEBHOOK_URL is required")
	}
	providers := []dispatch.AlertProvider{
		dispatch.NewWebhookProvider("primary", settings.WebhookURL, "catalystrun"),
	}
	if slackURL := os.Getenv("SLACK_WEBHOOK_URL"); slackURL != "" {
		providers = append(providers, dispatch.NewSlackProvider("slack", slackURL))
	}
	return providers, nil
}

// buildOutcomeStore selects the analyzer's outcome persistence backend:
// Postgres when ANALYZER_DB_DSN is set, otherwise a disk-JSON snapshot so
// repeated runs still avoid refetching already-scored bars across
// restarts (§4.J, "enrich from the rest of the pack").
func buildOutcomeStore(settings *config.Settings) (analyzer.OutcomeStore, error) {
	if settings.AnalyzerDBDSN != "" {
		store, err := analyzer.NewPostgresOutcomeStore(settings.AnalyzerDBDSN, 5*time.Second)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return analyzer.NewDiskOutcomeStore("data/analysis/outcomes.json")
}
