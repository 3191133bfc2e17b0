package adapters

import (
	"fmt"
	"os"
	"strings"

	"github.com/openrange/orbbot/internal/observ"
)

// DataSourceConfig selects and configures the market data provider.
type DataSourceConfig struct {
	Source  string // "okami" | "history" | "mock"
	Okami   OkamiConfig
	History HistoryConfig
}

// NewMarketData builds the configured MarketDataPort. The DATA environment
// variable overrides the configured source, the same escape hatch the rest
// of our tooling uses for local runs.
func NewMarketData(cfg DataSourceConfig) (MarketDataPort, error) {
	source := strings.ToLower(strings.TrimSpace(cfg.Source))
	if env := os.Getenv("DATA"); env != "" {
		source = strings.ToLower(strings.TrimSpace(env))
		observ.Log("data_source_override", map[string]any{
			"config_source": cfg.Source,
			"env_override":  source,
		})
	}

	switch source {
	case "okami":
		observ.Log("data_source_created", map[string]any{"type": "okami"})
		return NewOkamiAdapter(cfg.Okami)
	case "history":
		observ.Log("data_source_created", map[string]any{"type": "history"})
		return NewHistoryAdapter(cfg.History)
	case "mock":
		observ.Log("data_source_created", map[string]any{"type": "mock"})
		return &MockMarketData{}, nil
	default:
		return nil, fmt.Errorf("unknown data source %q (want okami, history, or mock)", source)
	}
}
