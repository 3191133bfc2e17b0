package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Strategy struct {
	Symbol         string  `yaml:"symbol"`
	Quantity       int     `yaml:"quantity"`
	RangeMinutes   int     `yaml:"range_minutes"`
	BufferPct      float64 `yaml:"buffer_pct"`
	TakeProfitPct  float64 `yaml:"take_profit_pct"`
	StopLossPct    float64 `yaml:"stop_loss_pct"`
	TradeDirection string  `yaml:"trade_direction"` // both | long_only | short_only
}

type Filters struct {
	Regime bool `yaml:"regime"`
	VWAP   bool `yaml:"vwap"`
	Volume bool `yaml:"volume"`
}

type CatchUp struct {
	Enabled           bool `yaml:"enabled"`
	LateWindowMinutes int  `yaml:"late_window_minutes"`
	HybridBackfill    bool `yaml:"hybrid_backfill"`
}

type Okami struct {
	BaseURL            string `yaml:"base_url"`
	TokenEnv           string `yaml:"token_env"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	MaxRetries         int    `yaml:"max_retries"`
	BackoffBaseMs      int    `yaml:"backoff_base_ms"`
}

type History struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Data struct {
	Source  string  `yaml:"source"` // okami | history | mock
	Okami   Okami   `yaml:"okami"`
	History History `yaml:"history"`
}

type Broker struct {
	Mode             string `yaml:"mode"` // paper
	OutboxPath       string `yaml:"outbox_path"`
	DedupeWindowSecs int    `yaml:"dedupe_window_seconds"`
}

type Events struct {
	JSONLPath       string `yaml:"jsonl_path"`
	PostgresEnabled bool   `yaml:"postgres_enabled"`
	PostgresDSNEnv  string `yaml:"postgres_dsn_env"`
}

type Session struct {
	Timezone   string `yaml:"timezone"`
	OpenHour   int    `yaml:"open_hour"`
	OpenMinute int    `yaml:"open_minute"`
}

type Indicators struct {
	VolumeSMAPeriod int `yaml:"volume_sma_period"`
	RegimeEMAPeriod int `yaml:"regime_ema_period"`
	RegimeDays      int `yaml:"regime_days"`
}

type Ops struct {
	Addr string `yaml:"addr"`
}

type Root struct {
	Strategy            Strategy   `yaml:"strategy"`
	Filters             Filters    `yaml:"filters"`
	CatchUp             CatchUp    `yaml:"catch_up"`
	Data                Data       `yaml:"data"`
	Broker              Broker     `yaml:"broker"`
	Events              Events     `yaml:"events"`
	Session             Session    `yaml:"session"`
	Indicators          Indicators `yaml:"indicators"`
	Ops                 Ops        `yaml:"ops"`
	PollIntervalSeconds int        `yaml:"poll_interval_seconds"`
	LogLevel            string     `yaml:"log_level"`
}

// Load reads and validates the YAML config, applying defaults for anything
// omitted.
func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Root) applyDefaults() {
	if c.Strategy.Symbol == "" {
		c.Strategy.Symbol = "VIXY"
	}
	if c.Strategy.Quantity == 0 {
		c.Strategy.Quantity = 1
	}
	if c.Strategy.RangeMinutes == 0 {
		c.Strategy.RangeMinutes = 15
	}
	if c.Strategy.TakeProfitPct == 0 {
		c.Strategy.TakeProfitPct = 2.0
	}
	if c.Strategy.StopLossPct == 0 {
		c.Strategy.StopLossPct = 0.5
	}
	if c.Strategy.TradeDirection == "" {
		c.Strategy.TradeDirection = "both"
	}
	if c.CatchUp.LateWindowMinutes == 0 {
		c.CatchUp.LateWindowMinutes = 30
	}
	if c.Data.Source == "" {
		c.Data.Source = "okami"
	}
	if c.Data.Okami.BaseURL == "" {
		c.Data.Okami.BaseURL = "https://okamistocks.io/api"
	}
	if c.Data.Okami.TokenEnv == "" {
		c.Data.Okami.TokenEnv = "OKAMI_TOKEN"
	}
	if c.Data.History.BaseURL == "" {
		c.Data.History.BaseURL = "http://localhost:8091"
	}
	if c.Broker.Mode == "" {
		c.Broker.Mode = "paper"
	}
	if c.Broker.OutboxPath == "" {
		c.Broker.OutboxPath = "data/orders.jsonl"
	}
	if c.Broker.DedupeWindowSecs == 0 {
		c.Broker.DedupeWindowSecs = 90
	}
	if c.Events.JSONLPath == "" {
		c.Events.JSONLPath = "data/events.jsonl"
	}
	if c.Events.PostgresDSNEnv == "" {
		c.Events.PostgresDSNEnv = "EVENTS_PG_DSN"
	}
	if c.Session.Timezone == "" {
		c.Session.Timezone = "America/New_York"
	}
	if c.Session.OpenHour == 0 && c.Session.OpenMinute == 0 {
		c.Session.OpenHour = 9
		c.Session.OpenMinute = 30
	}
	if c.Indicators.VolumeSMAPeriod == 0 {
		c.Indicators.VolumeSMAPeriod = 20
	}
	if c.Indicators.RegimeEMAPeriod == 0 {
		c.Indicators.RegimeEMAPeriod = 50
	}
	if c.Indicators.RegimeDays == 0 {
		c.Indicators.RegimeDays = 250
	}
	if c.Ops.Addr == "" {
		c.Ops.Addr = ":8090"
	}
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = 5
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Root) validate() error {
	if c.Strategy.Quantity < 0 {
		return fmt.Errorf("strategy.quantity must be positive, got %d", c.Strategy.Quantity)
	}
	if c.Strategy.RangeMinutes < 1 {
		return fmt.Errorf("strategy.range_minutes must be at least 1, got %d", c.Strategy.RangeMinutes)
	}
	switch c.Strategy.TradeDirection {
	case "both", "long_only", "short_only":
	default:
		return fmt.Errorf("strategy.trade_direction %q not one of both, long_only, short_only", c.Strategy.TradeDirection)
	}
	if c.Strategy.StopLossPct < 0 || c.Strategy.TakeProfitPct < 0 || c.Strategy.BufferPct < 0 {
		return fmt.Errorf("percent parameters must not be negative")
	}
	return nil
}
