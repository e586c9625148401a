package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProvidersConfig is the provider-chain configuration for the market data
// cache's third tier: rate limits, daily budgets, circuit thresholds, and
// backoff per provider, loaded from YAML.
type ProvidersConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Budget    BudgetConfig              `yaml:"budget"`
	Global    GlobalConfig              `yaml:"global"`
}

// ProviderConfig configures a single market-data provider in the chain.
type ProviderConfig struct {
	Host        string        `yaml:"host"`
	RPS         int           `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	DailyBudget int64         `yaml:"daily_budget"`
	TTLSecs     int           `yaml:"ttl_secs"`
	BackoffMS   BackoffConfig `yaml:"backoff_ms"`
	Circuit     CircuitConfig `yaml:"circuit"`
	Enabled     bool          `yaml:"enabled"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
}

// BackoffConfig configures exponential backoff for a provider's retries.
type BackoffConfig struct {
	Base   int  `yaml:"base"`
	Max    int  `yaml:"max"`
	Jitter bool `yaml:"jitter"`
}

// CircuitConfig configures the provider's circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	SuccessThreshold int `yaml:"success_threshold"`
	TimeoutMS        int `yaml:"timeout_ms"`
}

// BudgetConfig configures daily-budget warning and reset behavior shared
// across providers.
type BudgetConfig struct {
	WarnThreshold float64 `yaml:"warn_threshold"`
	ResetHour     int     `yaml:"reset_hour"`
}

// GlobalConfig configures provider-chain-wide settings.
type GlobalConfig struct {
	MaxConcurrentPrefetch int    `yaml:"max_concurrent_prefetch"`
	UserAgent             string `yaml:"user_agent"`
}

// LoadProvidersConfig loads and validates a provider-chain config file.
func LoadProvidersConfig(path string) (*ProvidersConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers config: %w", err)
	}

	var cfg ProvidersConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse providers config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid providers config: %w", err)
	}

	return &cfg, nil
}

// Validate ensures the configuration is internally consistent.
func (c *ProvidersConfig) Validate() error {
	if c.Budget.WarnThreshold <= 0 || c.Budget.WarnThreshold > 1 {
		return fmt.Errorf("budget warn_threshold must be in (0,1], got %f", c.Budget.WarnThreshold)
	}
	if c.Budget.ResetHour < 0 || c.Budget.ResetHour > 23 {
		return fmt.Errorf("budget reset_hour must be 0-23, got %d", c.Budget.ResetHour)
	}
	if c.Global.MaxConcurrentPrefetch <= 0 {
		return fmt.Errorf("global max_concurrent_prefetch must be positive")
	}
	if c.Global.UserAgent == "" {
		return fmt.Errorf("global user_agent cannot be empty")
	}
	for name, p := range c.Providers {
		if err := p.Validate(name); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
	}
	return nil
}

// Validate ensures a single provider's configuration is valid.
func (p *ProviderConfig) Validate(name string) error {
	if p.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if p.RPS <= 0 {
		return fmt.Errorf("rps must be positive, got %d", p.RPS)
	}
	if p.Burst < p.RPS {
		return fmt.Errorf("burst (%d) must be >= rps (%d)", p.Burst, p.RPS)
	}
	if p.DailyBudget <= 0 {
		return fmt.Errorf("daily_budget must be positive, got %d", p.DailyBudget)
	}
	if p.TTLSecs < 0 {
		return fmt.Errorf("ttl_secs cannot be negative")
	}
	if err := p.BackoffMS.Validate(); err != nil {
		return fmt.Errorf("backoff_ms: %w", err)
	}
	if err := p.Circuit.Validate(); err != nil {
		return fmt.Errorf("circuit: %w", err)
	}
	return nil
}

func (b *BackoffConfig) Validate() error {
	if b.Base <= 0 {
		return fmt.Errorf("base must be positive")
	}
	if b.Max <= b.Base {
		return fmt.Errorf("max (%d) must be > base (%d)", b.Max, b.Base)
	}
	return nil
}

func (c *CircuitConfig) Validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure_threshold must be positive")
	}
	if c.SuccessThreshold <= 0 {
		return fmt.Errorf("success_threshold must be positive")
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("timeout_ms must be positive")
	}
	return nil
}

func (p *ProviderConfig) CacheTTL() time.Duration       { return time.Duration(p.TTLSecs) * time.Second }
func (p *ProviderConfig) RequestTimeout() time.Duration { return time.Duration(p.Circuit.TimeoutMS) * time.Millisecond }
func (p *ProviderConfig) BaseBackoff() time.Duration    { return time.Duration(p.BackoffMS.Base) * time.Millisecond }
func (p *ProviderConfig) MaxBackoff() time.Duration     { return time.Duration(p.BackoffMS.Max) * time.Millisecond }

// GetProvider returns the configuration for a named provider.
func (c *ProvidersConfig) GetProvider(name string) (ProviderConfig, bool) {
	p, ok := c.Providers[name]
	return p, ok
}

// IsEnabled reports whether the named provider is enabled.
func (c *ProvidersConfig) IsEnabled(name string) bool {
	p, ok := c.Providers[name]
	return ok && p.Enabled
}

// DefaultProvidersConfig returns a hardcoded fallback chain (Tiingo, then
// Stooq, then SEC's free XBRL API) used when no providers.yaml is supplied.
func DefaultProvidersConfig() *ProvidersConfig {
	return &ProvidersConfig{
		Budget: BudgetConfig{WarnThreshold: 0.8, ResetHour: 0},
		Global: GlobalConfig{MaxConcurrentPrefetch: 10, UserAgent: "catalystrun/1.0"},
		Providers: map[string]ProviderConfig{
			"tiingo": {
				Host: "api.tiingo.com", BaseURL: "https://api.tiingo.com",
				RPS: 1, Burst: 5, DailyBudget: 1000, TTLSecs: 300,
				BackoffMS: BackoffConfig{Base: 250, Max: 5000, Jitter: true},
				Circuit:   CircuitConfig{FailureThreshold: 5, SuccessThreshold: 2, TimeoutMS: 5000},
				Enabled:   true, APIKeyEnv: "TIINGO_API_KEY",
			},
			"stooq": {
				Host: "stooq.com", BaseURL: "https://stooq.com",
				RPS: 2, Burst: 4, DailyBudget: 5000, TTLSecs: 300,
				BackoffMS: BackoffConfig{Base: 250, Max: 5000, Jitter: true},
				Circuit:   CircuitConfig{FailureThreshold: 5, SuccessThreshold: 2, TimeoutMS: 5000},
				Enabled:   true,
			},
			"secfinancial": {
				Host: "data.sec.gov", BaseURL: "https://data.sec.gov",
				RPS: 10, Burst: 10, DailyBudget: 50000, TTLSecs: 300,
				BackoffMS: BackoffConfig{Base: 200, Max: 3000, Jitter: true},
				Circuit:   CircuitConfig{FailureThreshold: 5, SuccessThreshold: 2, TimeoutMS: 5000},
				Enabled:   true,
			},
		},
	}
}

// ProviderOrder is the fallback order the cache walks on a miss.
func (c *ProvidersConfig) ProviderOrder() []string {
	order := []string{"tiingo", "stooq", "secfinancial"}
	out := make([]string, 0, len(order))
	for _, name := range order {
		if c.IsEnabled(name) {
			out = append(out, name)
		}
	}
	return out
}
