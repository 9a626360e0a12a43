// Package config loads the json configuration shared by the command line and the http
// server.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-watercast/forecast"
	"github.com/aouyang1/go-watercast/pricing"
	"github.com/goccy/go-json"
)

// Environment variables overriding the loaded configuration
const (
	EnvModelPath   = "WATERCAST_MODEL_PATH"
	EnvHistoryPath = "WATERCAST_HISTORY_PATH"
	EnvAddr        = "WATERCAST_ADDR"
	EnvLogLevel    = "WATERCAST_LOG_LEVEL"
	EnvLogFormat   = "WATERCAST_LOG_FORMAT"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var (
	ErrNoAddr            = errors.New("server address cannot be empty")
	ErrInvalidRateLimit  = errors.New("rate limit must not be negative")
	ErrInvalidBurst      = errors.New("burst must be positive when rate limited")
	ErrInvalidTimeout    = errors.New("timeout must be positive")
	ErrInvalidLogLevel   = errors.New("unknown log level")
	ErrInvalidLogFormat  = errors.New("unknown log format")
	ErrInvalidCacheSize  = errors.New("model cache size must be positive")
	ErrInvalidSourceDays = errors.New("source split windows must be positive")
)

// Duration wraps time.Duration to read and write "30s" style json strings
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = duration
	return nil
}

// Config is the complete configuration
type Config struct {
	ModelPath   string `json:"model_path"`
	HistoryPath string `json:"history_path"`

	// ModelCacheSize is the number of decoded model artifacts kept in memory
	ModelCacheSize int `json:"model_cache_size"`

	// SourceSplitDays are the trailing windows summarized by the source split report
	SourceSplitDays []int `json:"source_split_days"`

	Forecast *forecast.Options `json:"forecast"`
	Pricing  *pricing.Options  `json:"pricing"`
	Server   ServerConfig      `json:"server"`
	Log      LogConfig         `json:"log"`
}

// ServerConfig contains http server settings
type ServerConfig struct {
	Addr         string   `json:"addr"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`

	// RateLimit is the number of requests per second allowed across all clients. 0 turns
	// off rate limiting.
	RateLimit float64 `json:"rate_limit"`
	Burst     int     `json:"burst"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		ModelPath:       "model.json",
		HistoryPath:     "history.csv",
		ModelCacheSize:  8,
		SourceSplitDays: []int{7, 30, 90},
		Forecast:        forecast.NewDefaultOptions(),
		Pricing:         pricing.NewDefaultOptions(),
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration{30 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
			RateLimit:    10,
			Burst:        20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

// Decode reads json on top of the defaults
func Decode(r io.Reader) (*Config, error) {
	c := Default()
	if err := json.NewDecoder(r).Decode(c); err != nil {
		return nil, fmt.Errorf("unable to decode config, %w", err)
	}
	return c, nil
}

// Load reads the json file at path on top of the defaults, applies environment overrides and
// validates the result. An empty path only uses the defaults and the environment.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open config file %s, %w", path, err)
		}
		defer f.Close()

		c, err = Decode(f)
		if err != nil {
			return nil, fmt.Errorf("unable to load config file %s, %w", path, err)
		}
	}
	c.ApplyEnv(os.LookupEnv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration, %w", err)
	}
	return c, nil
}

// ApplyEnv overrides paths, server address and logging from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvModelPath); ok && v != "" {
		c.ModelPath = v
	}
	if v, ok := lookup(EnvHistoryPath); ok && v != "" {
		c.HistoryPath = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Log.Format = v
	}
}

// Save writes the configuration as indented json
func (c *Config) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("unable to encode config, %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Forecast == nil {
		c.Forecast = forecast.NewDefaultOptions()
	}
	if c.Pricing == nil {
		c.Pricing = pricing.NewDefaultOptions()
	}
	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("forecast, %w", err)
	}
	if err := c.Pricing.Validate(); err != nil {
		return fmt.Errorf("pricing, %w", err)
	}
	if c.ModelCacheSize <= 0 {
		return fmt.Errorf("got %d, %w", c.ModelCacheSize, ErrInvalidCacheSize)
	}
	for _, days := range c.SourceSplitDays {
		if days <= 0 {
			return fmt.Errorf("got %d, %w", days, ErrInvalidSourceDays)
		}
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server, %w", err)
	}
	if _, err := c.Log.Handler(io.Discard); err != nil {
		return fmt.Errorf("log, %w", err)
	}
	return nil
}

func (s ServerConfig) Validate() error {
	if s.Addr == "" {
		return ErrNoAddr
	}
	if s.ReadTimeout.Duration <= 0 {
		return fmt.Errorf("read timeout %s, %w", s.ReadTimeout, ErrInvalidTimeout)
	}
	if s.WriteTimeout.Duration <= 0 {
		return fmt.Errorf("write timeout %s, %w", s.WriteTimeout, ErrInvalidTimeout)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("got %v, %w", s.RateLimit, ErrInvalidRateLimit)
	}
	if s.RateLimit > 0 && s.Burst <= 0 {
		return fmt.Errorf("got %d, %w", s.Burst, ErrInvalidBurst)
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%s, %w", strconv.Quote(level), ErrInvalidLogLevel)
}

// Handler builds the slog handler writing to w
func (l LogConfig) Handler(w io.Writer) (slog.Handler, error) {
	level, err := ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch l.Format {
	case "", LogFormatText:
		return slog.NewTextHandler(w, opts), nil
	case LogFormatJSON:
		return slog.NewJSONHandler(w, opts), nil
	}
	return nil, fmt.Errorf("%s, %w", strconv.Quote(l.Format), ErrInvalidLogFormat)
}

// SetDefaultLogger installs the configured handler as the slog default
func (l LogConfig) SetDefaultLogger(w io.Writer) error {
	h, err := l.Handler(w)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(h))
	return nil
}
