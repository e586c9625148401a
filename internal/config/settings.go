package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings is the single explicit handle passed to every component
// constructor. No component reads process globals except the logger.
type Settings struct {
	WebhookURL     string
	AdminWebhookURL string
	SECUserAgent   string

	PriceBandLower float64
	PriceBandUpper float64

	MinScore      float64
	MinConfidence float64
	MaxAge        time.Duration
	SentimentAlpha float64

	DedupRetention time.Duration
	DedupPath      string

	CacheDir       string
	CacheRedisAddr string

	EventsPath         string
	RejectedEventsPath string
	RecommendationsPath string

	AnalyzerLookback      time.Duration
	AnalyzerDBDSN         string
	AnalyzerTradeability  bool
	AnalyzerMinVolume     int64
	AnalyzerMaxSpreadPct  float64

	HeartbeatEveryCycles int
	AdminHTTPAddr        string

	EnableRegime   bool
	EnableSector   bool
	EnableRVol     bool
	EnableFloat    bool
	EnableOffering bool
	EnableSentiment bool

	DispatchBucketCapacity int
	DispatchBucketWindow   time.Duration
	DispatchHourlyCap      int
	DispatchQueueCapacity  int

	CycleIntervalRegular   time.Duration
	CycleIntervalExtended  time.Duration
	CycleIntervalClosed    time.Duration

	FetcherTimeout time.Duration

	KeywordTablePath string

	ProvidersConfigPath string

	SECFeedURL  string
	PRWireFeeds map[string]string
	RSSFeeds    map[string]string

	SectorTaxonomyPath string
	TickerCIKPath      string
}

// Load reads Settings from the environment (optionally layering a local
// .env file for development convenience) and applies defaults for every
// optional flag. Required: webhook URL, SEC user agent, and at least one
// provider credential.
func Load() (*Settings, error) {
	_ = godotenv.Load() // best-effort; production deployments need no dotfile

	s := &Settings{
		WebhookURL:      os.Getenv("ALERT_WEBHOOK_URL"),
		AdminWebhookURL: getenvDefault("ADMIN_WEBHOOK_URL", ""),
		SECUserAgent:    os.Getenv("SEC_USER_AGENT"),

		PriceBandLower: getenvFloat("PRICE_BAND_LOWER", 0.10),
		PriceBandUpper: getenvFloat("PRICE_BAND_UPPER", 10.00),

		MinScore:       getenvFloat("MIN_SCORE", 0.25),
		MinConfidence:  getenvFloat("MIN_CONFIDENCE", 0.4),
		MaxAge:         getenvDuration("MAX_AGE", 60*time.Minute),
		SentimentAlpha: getenvFloat("SENTIMENT_ALPHA", 0.3),

		DedupRetention: getenvDuration("DEDUP_RETENTION", 14*24*time.Hour),
		DedupPath:      getenvDefault("DEDUP_DB_PATH", "data/dedup.db"),

		CacheDir:       getenvDefault("CACHE_DIR", "data/cache"),
		CacheRedisAddr: getenvDefault("CACHE_REDIS_ADDR", ""),

		EventsPath:           getenvDefault("EVENTS_PATH", "data/events.jsonl"),
		RejectedEventsPath:   getenvDefault("REJECTED_EVENTS_PATH", "data/rejected_items.jsonl"),
		RecommendationsPath:  getenvDefault("RECOMMENDATIONS_PATH", "data/analysis/recommendations.json"),

		AnalyzerLookback:     getenvDuration("ANALYZER_LOOKBACK", 30*24*time.Hour),
		AnalyzerDBDSN:        os.Getenv("ANALYZER_DB_DSN"),
		AnalyzerTradeability: getenvBool("ANALYZER_TRADEABILITY_FILTER", true),
		AnalyzerMinVolume:    getenvInt64("ANALYZER_MIN_VOLUME", 100_000),
		AnalyzerMaxSpreadPct: getenvFloat("ANALYZER_MAX_SPREAD_PCT", 0.05),

		HeartbeatEveryCycles: int(getenvInt64("HEARTBEAT_EVERY_CYCLES", 30)),
		AdminHTTPAddr:        getenvDefault("ADMIN_HTTP_ADDR", ":9090"),

		EnableRegime:    getenvBool("ENABLE_REGIME", true),
		EnableSector:    getenvBool("ENABLE_SECTOR", true),
		EnableRVol:      getenvBool("ENABLE_RVOL", true),
		EnableFloat:     getenvBool("ENABLE_FLOAT", true),
		EnableOffering:  getenvBool("ENABLE_OFFERING", true),
		EnableSentiment: getenvBool("ENABLE_SENTIMENT", true),

		DispatchBucketCapacity: int(getenvInt64("DISPATCH_BUCKET_CAPACITY", 5)),
		DispatchBucketWindow:   getenvDuration("DISPATCH_BUCKET_WINDOW", 2*time.Second),
		DispatchHourlyCap:      int(getenvInt64("DISPATCH_HOURLY_CAP", 200)),
		DispatchQueueCapacity:  int(getenvInt64("DISPATCH_QUEUE_CAPACITY", 50)),

		CycleIntervalRegular:  getenvDuration("CYCLE_INTERVAL_REGULAR", 20*time.Second),
		CycleIntervalExtended: getenvDuration("CYCLE_INTERVAL_EXTENDED", 30*time.Second),
		CycleIntervalClosed:   getenvDuration("CYCLE_INTERVAL_CLOSED", 120*time.Second),

		FetcherTimeout: getenvDuration("FETCHER_TIMEOUT", 8*time.Second),

		KeywordTablePath:    getenvDefault("KEYWORD_TABLE_PATH", "config/keywords.yaml"),
		ProvidersConfigPath: getenvDefault("PROVIDERS_CONFIG_PATH", "config/providers.yaml"),

		SECFeedURL:  getenvDefault("SEC_FEED_URL", "https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&type=8-K&output=atom&count=100"),
		PRWireFeeds: getenvFeedMap("PRWIRE_FEEDS", "prnewswire=https://www.prnewswire.com/rss/news-releases-list.rss,globenewswire=https://www.globenewswire.com/RssFeed/orgclass/1/feedTitle/GlobeNewswire%20-%20News%20Releases.rss"),
		RSSFeeds:    getenvFeedMap("RSS_FEEDS", "businesswire=https://feed.businesswire.com/rss/home/?rss=G1QFDKkebzo"),

		SectorTaxonomyPath: getenvDefault("SECTOR_TAXONOMY_PATH", "config/sector_taxonomy.yaml"),
		TickerCIKPath:      getenvDefault("TICKER_CIK_PATH", "config/ticker_ciks.yaml"),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate enforces the required-at-startup fields named in §6: webhook
// URL, SEC user agent email, and at least one provider credential.
func (s *Settings) Validate() error {
	if s.WebhookURL == "" {
		return fmt.Errorf("ALERT_WEBHOOK_URL is required")
	}
	if s.SECUserAgent == "" {
		return fmt.Errorf("SEC_USER_AGENT is required (SEC EDGAR rejects requests without a descriptive User-Agent)")
	}
	if !strings.Contains(s.SECUserAgent, "@") {
		return fmt.Errorf("SEC_USER_AGENT must include a contact email")
	}
	if s.PriceBandLower <= 0 || s.PriceBandUpper <= s.PriceBandLower {
		return fmt.Errorf("invalid price band [%f, %f]", s.PriceBandLower, s.PriceBandUpper)
	}
	hasCred := os.Getenv("TIINGO_API_KEY") != "" || os.Getenv("STOOQ_API_KEY") != ""
	if !hasCred {
		return fmt.Errorf("at least one market data provider credential is required (TIINGO_API_KEY or STOOQ_API_KEY)")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvFeedMap parses a comma-separated "name=url,name=url" list from
// env key, falling back to def (in the same syntax) when unset. Each
// entry becomes one registered fetcher (§4.E); operators add sources by
// extending the env var, not by redeploying code.
func getenvFeedMap(key, def string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	out := make(map[string]string)
	if v == "" {
		return out
	}
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
