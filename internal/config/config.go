package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Data       DataConfig      `yaml:"data"`
	Indicators IndicatorConfig `yaml:"indicators"`
	Sentiment  SentimentConfig `yaml:"sentiment"`
	Fusion     FusionConfig    `yaml:"fusion"`
	Backtest   BacktestConfig  `yaml:"backtest"`
	Optimize   OptimizeConfig  `yaml:"optimize"`
	Store      StoreConfig     `yaml:"store"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Log        LogConfig       `yaml:"log"`
}

// DataConfig holds input and output locations
type DataConfig struct {
	Dir             string `yaml:"dir"`
	PricesFile      string `yaml:"prices_file"`    // ticker,date,open,high,low,close
	NewsFile        string `yaml:"news_file"`      // ticker,date,sentiment_score
	FeaturesFile    string `yaml:"features_file"`  // written by the features stage
	SentimentFile   string `yaml:"sentiment_file"` // written by the sentiment stage
	SignalsFile     string `yaml:"signals_file"`   // published signal feed
	SweepReportFile string `yaml:"sweep_report_file"`
	EventsFile      string `yaml:"events_file"`
}

// IndicatorConfig holds window lengths for the indicator engine
type IndicatorConfig struct {
	Fast          int `yaml:"fast"`
	Slow          int `yaml:"slow"`
	Volatility    int `yaml:"volatility"`
	RSI           int `yaml:"rsi"`
	ATR           int `yaml:"atr"`
	Annualization int `yaml:"annualization"` // periods per year
}

// SentimentConfig holds the smoothing settings
type SentimentConfig struct {
	Window int `yaml:"window"` // trailing days
}

// FusionConfig holds the sentiment impact weights per run mode
type FusionConfig struct {
	ImpactWeight     float64 `yaml:"impact_weight"`      // backtest mode
	LiveImpactWeight float64 `yaml:"live_impact_weight"` // signal feed mode
}

// BacktestConfig holds simulator settings
type BacktestConfig struct {
	InitialCash    float64 `yaml:"initial_cash"`
	Fee            float64 `yaml:"fee"`      // proportional, e.g. 0.001 = 0.1%
	Slippage       float64 `yaml:"slippage"` // proportional, always against the trader
	MonteCarloRuns int     `yaml:"montecarlo_runs"`
	Seed           uint64  `yaml:"seed"`
}

// OptimizeConfig holds the impact weight grid and worker settings
type OptimizeConfig struct {
	Start   float64 `yaml:"start"`
	Stop    float64 `yaml:"stop"`
	Step    float64 `yaml:"step"`
	Workers int     `yaml:"workers"`
	TopN    int     `yaml:"top_n"`
}

// StoreConfig holds the sqlite location for sweep summaries
type StoreConfig struct {
	Path string `yaml:"path"` // empty disables persistence
}

// MetricsConfig holds the prometheus listener
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:             "data",
			PricesFile:      "prices.csv",
			NewsFile:        "news_scored.csv",
			FeaturesFile:    "features_technical.csv",
			SentimentFile:   "features_sentiment.csv",
			SignalsFile:     "latest_signals.json",
			SweepReportFile: "sweep_report.json",
			EventsFile:      "signal_events.json",
		},
		Indicators: IndicatorConfig{
			Fast:          20,
			Slow:          50,
			Volatility:    21,
			RSI:           14,
			ATR:           14,
			Annualization: 252,
		},
		Sentiment: SentimentConfig{
			Window: 7,
		},
		Fusion: FusionConfig{
			ImpactWeight:     0.2,
			LiveImpactWeight: 0.7,
		},
		Backtest: BacktestConfig{
			InitialCash:    10000,
			Fee:            0.001,
			Slippage:       0.001,
			MonteCarloRuns: 0,
			Seed:           1,
		},
		Optimize: OptimizeConfig{
			Start:   0.0,
			Stop:    2.0,
			Step:    0.1,
			Workers: 4,
			TopN:    5,
		},
		Store: StoreConfig{
			Path: "data/sweeps.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Override with environment variables if set
	if dir := os.Getenv("ALPHAFUSION_DATA_DIR"); dir != "" {
		cfg.Data.Dir = dir
	}
	if lvl := os.Getenv("ALPHAFUSION_LOG_LEVEL"); lvl != "" {
		cfg.Log.Level = lvl
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	ind := c.Indicators
	if ind.Fast < 1 || ind.Slow < 1 || ind.Volatility < 2 || ind.RSI < 1 || ind.ATR < 1 {
		return fmt.Errorf("indicator windows must be positive (volatility at least 2)")
	}
	if ind.Fast >= ind.Slow {
		return fmt.Errorf("fast span (%d) must be shorter than slow span (%d)", ind.Fast, ind.Slow)
	}
	if ind.Annualization < 1 {
		return fmt.Errorf("annualization must be at least 1")
	}
	if c.Sentiment.Window < 1 {
		return fmt.Errorf("sentiment window must be at least 1")
	}
	for _, w := range []float64{c.Fusion.ImpactWeight, c.Fusion.LiveImpactWeight, c.Optimize.Start, c.Optimize.Stop} {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("impact weights must be finite")
		}
	}
	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("initial_cash must be positive")
	}
	if c.Backtest.Fee < 0 || c.Backtest.Fee >= 1 || c.Backtest.Slippage < 0 || c.Backtest.Slippage >= 1 {
		return fmt.Errorf("fee and slippage must be in [0, 1)")
	}
	if c.Backtest.MonteCarloRuns < 0 {
		return fmt.Errorf("montecarlo_runs must not be negative")
	}
	if c.Optimize.Step <= 0 || c.Optimize.Stop < c.Optimize.Start {
		return fmt.Errorf("optimize grid must have a positive step and stop >= start")
	}
	if c.Optimize.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}

// Path resolves a data file name against the data directory
func (c *Config) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}
