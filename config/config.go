package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

var validate = validator.New()

// Config is the complete strategy configuration. It is loaded once at
// startup and treated as immutable thereafter.
type Config struct {
	Session    SessionConfig    `yaml:"session"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Volatility VolatilityConfig `yaml:"volatility"`
	Signal     SignalConfig     `yaml:"signal"`
	Orders     OrdersConfig     `yaml:"orders"`
	Trailing   TrailingConfig   `yaml:"trailing"`
	TimeLimit  TimeLimitConfig  `yaml:"time_limit"`
	Journal    JournalConfig    `yaml:"journal"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Oanda      OandaConfig      `yaml:"oanda"`
}

// SessionConfig identifies the instrument, the strategy tag carried on every
// order, and the eligibility gates.
type SessionConfig struct {
	Instrument string `yaml:"instrument" default:"EUR_USD" validate:"required"`

	// StrategyID tags orders so the venue position list can be filtered
	// back to this strategy (the "magic number").
	StrategyID int64 `yaml:"strategy_id" default:"220401" validate:"gt=0"`

	TradeStart string `yaml:"trade_start" default:"07:00"`
	TradeEnd   string `yaml:"trade_end" default:"20:00"`

	MaxOpenTrades  int `yaml:"max_open_trades" default:"1" validate:"gte=1"`
	MaxDailyTrades int `yaml:"max_daily_trades" default:"5" validate:"gte=1"`

	// Seed drives all randomness (schedule jitter, random direction,
	// backoff jitter). 0 seeds from the wall clock.
	Seed int64 `yaml:"seed"`
}

type ScheduleConfig struct {
	Randomized    bool `yaml:"randomized" default:"true"`
	MinMinutes    int  `yaml:"min_minutes" default:"15" validate:"gte=1"`
	MaxMinutes    int  `yaml:"max_minutes" default:"45" validate:"gte=1"`
	ChecksPerHour int  `yaml:"checks_per_hour" default:"2" validate:"gte=1,lte=60"`
}

type VolatilityConfig struct {
	Enabled            bool    `yaml:"enabled" default:"true"`
	PeriodMinutes      int     `yaml:"period_minutes" default:"60" validate:"gte=5"`
	RangeThresholdPips float64 `yaml:"range_threshold_pips" default:"15" validate:"gt=0"`
	MarginFraction     float64 `yaml:"margin_fraction" default:"0.2" validate:"gte=0,lt=0.5"`
}

type SignalConfig struct {
	// Mode selects the decision source: random, trend, or hybrid
	// (trend with random fallback).
	Mode string `yaml:"mode" default:"hybrid" validate:"oneof=random trend hybrid"`

	MAPeriod    int    `yaml:"ma_period" default:"50" validate:"gte=2"`
	MAMethod    string `yaml:"ma_method" default:"ema"`
	MATimeframe string `yaml:"ma_timeframe" default:"M1"`

	PollAttempts     int `yaml:"poll_attempts" default:"8" validate:"gte=1,lte=20"`
	PollBackoffMinMS int `yaml:"poll_backoff_min_ms" default:"100" validate:"gte=0"`
	PollBackoffMaxMS int `yaml:"poll_backoff_max_ms" default:"500" validate:"gte=0"`
}

type OrdersConfig struct {
	StopLossPips   float64 `yaml:"stop_loss_pips" default:"10" validate:"gt=0"`
	TakeProfitPips float64 `yaml:"take_profit_pips" default:"10" validate:"gt=0"`

	// MinStopMultiple is the safety multiplier K applied to the broker
	// minimum when the configured stop is tighter than the venue allows.
	MinStopMultiple float64 `yaml:"min_stop_multiple" default:"2" validate:"gte=1,lte=5"`

	Sizing      string  `yaml:"sizing" default:"fixed" validate:"oneof=fixed risk"`
	FixedLots   float64 `yaml:"fixed_lots" default:"0.1"`
	RiskPercent float64 `yaml:"risk_percent" default:"1.0"`
}

type TrailingConfig struct {
	Enabled         bool    `yaml:"enabled" default:"true"`
	ActivationPips  float64 `yaml:"activation_pips" default:"2" validate:"gt=0"`
	Percent         float64 `yaml:"percent" default:"50" validate:"gt=0,lte=100"`
	MinDistancePips float64 `yaml:"min_distance_pips" default:"1" validate:"gt=0"`
}

type TimeLimitConfig struct {
	Enabled        bool `yaml:"enabled" default:"true"`
	MaxLossSeconds int  `yaml:"max_loss_seconds" default:"300" validate:"gte=1"`
}

type JournalConfig struct {
	Type       string `yaml:"type" default:"csv" validate:"oneof=csv sqlite none"`
	TradesFile string `yaml:"trades_file" default:"./trades.csv"`
	EventsFile string `yaml:"events_file" default:"./events.csv"`
	DBPath     string `yaml:"db_path" default:"./scalper.db"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`

	// File enables rotated file output when non-empty.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" default:"50"`
	MaxBackups int    `yaml:"max_backups" default:"5"`
	MaxAgeDays int    `yaml:"max_age_days" default:"14"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:":9190"`
}

type OandaConfig struct {
	Token     string `yaml:"token"`
	AccountID string `yaml:"account_id"`
	Practice  bool   `yaml:"practice" default:"true"`
}

// LoadFromFile loads, defaults and validates a YAML configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks tag rules plus the cross-field constraints the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if _, ok := market.Instruments[c.Session.Instrument]; !ok {
		return fmt.Errorf("unknown instrument: %s", c.Session.Instrument)
	}
	if _, err := ParseHHMM(c.Session.TradeStart); err != nil {
		return fmt.Errorf("session.trade_start: %w", err)
	}
	if _, err := ParseHHMM(c.Session.TradeEnd); err != nil {
		return fmt.Errorf("session.trade_end: %w", err)
	}
	if c.Schedule.MinMinutes > c.Schedule.MaxMinutes {
		return fmt.Errorf("schedule.min_minutes %d exceeds max_minutes %d",
			c.Schedule.MinMinutes, c.Schedule.MaxMinutes)
	}
	if c.Signal.PollBackoffMinMS > c.Signal.PollBackoffMaxMS {
		return fmt.Errorf("signal.poll_backoff_min_ms %d exceeds poll_backoff_max_ms %d",
			c.Signal.PollBackoffMinMS, c.Signal.PollBackoffMaxMS)
	}
	if c.Orders.Sizing == "fixed" && c.Orders.FixedLots <= 0 {
		return fmt.Errorf("orders.fixed_lots must be positive for fixed sizing")
	}
	if c.Orders.Sizing == "risk" && (c.Orders.RiskPercent <= 0 || c.Orders.RiskPercent > 10) {
		return fmt.Errorf("orders.risk_percent must be in (0, 10] for risk sizing")
	}
	if c.Journal.Type == "csv" && (c.Journal.TradesFile == "" || c.Journal.EventsFile == "") {
		return fmt.Errorf("journal trades_file and events_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	return nil
}

// ParseHHMM parses an "HH:MM" wall-clock string into minutes after midnight.
func ParseHHMM(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}
