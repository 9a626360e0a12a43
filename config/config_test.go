package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-watercast/forecast"
	"github.com/aouyang1/go-watercast/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Nil(t, c.Validate())
	assert.Equal(t, []int{7, 30}, c.Forecast.Horizons)
	assert.Equal(t, pricing.DefaultBasePrice, c.Pricing.BasePrice)
	assert.Equal(t, 30*time.Second, c.Server.ReadTimeout.Duration)
}

func TestDecode(t *testing.T) {
	in := `{
  "model_path": "models/hybrid.json",
  "forecast": {"horizons": [7], "max_horizon": 90, "window": 30, "parallel_models": true},
  "pricing": {"base_price": 0.2, "weekend_multiplier": 1.1, "shortage_multiplier": 1.2,
    "shortage_threshold": 0.9, "supply_window": 5, "reference_price": 0.18,
    "tanker_capacity": 10000, "holidays": ["republic_day"]},
  "server": {"addr": ":9090", "read_timeout": "5s", "write_timeout": "1m"},
  "log": {"level": "debug", "format": "json"}
}`
	c, err := Decode(strings.NewReader(in))
	require.Nil(t, err)
	require.Nil(t, c.Validate())

	assert.Equal(t, "models/hybrid.json", c.ModelPath)
	assert.Equal(t, "history.csv", c.HistoryPath, "unset fields keep defaults")
	assert.Equal(t, &forecast.Options{Horizons: []int{7}, MaxHorizon: 90, Window: 30, ParallelModels: true}, c.Forecast)
	assert.Equal(t, 0.2, c.Pricing.BasePrice)
	assert.Equal(t, []string{"republic_day"}, c.Pricing.Holidays)
	assert.Equal(t, 5*time.Second, c.Server.ReadTimeout.Duration)
	assert.Equal(t, time.Minute, c.Server.WriteTimeout.Duration)
	assert.Equal(t, 10.0, c.Server.RateLimit)

	var buf bytes.Buffer
	require.Nil(t, c.Save(&buf))
	assert.Contains(t, buf.String(), `"read_timeout": "5s"`)

	_, err = Decode(strings.NewReader(`{"server": {"read_timeout": "soon"}}`))
	assert.NotNil(t, err)
}

func TestValidate(t *testing.T) {
	testData := map[string]struct {
		mutate func(c *Config)
		err    error
	}{
		"no addr":            {func(c *Config) { c.Server.Addr = "" }, ErrNoAddr},
		"negative rate":      {func(c *Config) { c.Server.RateLimit = -1 }, ErrInvalidRateLimit},
		"rate without burst": {func(c *Config) { c.Server.Burst = 0 }, ErrInvalidBurst},
		"zero timeout":       {func(c *Config) { c.Server.ReadTimeout = Duration{} }, ErrInvalidTimeout},
		"bad level":          {func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
		"bad format":         {func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
		"zero cache":         {func(c *Config) { c.ModelCacheSize = 0 }, ErrInvalidCacheSize},
		"zero split window":  {func(c *Config) { c.SourceSplitDays = []int{7, 0} }, ErrInvalidSourceDays},
		"bad horizon":        {func(c *Config) { c.Forecast.Horizons = []int{400} }, forecast.ErrInvalidHorizon},
		"bad capacity":       {func(c *Config) { c.Pricing.TankerCapacity = -1 }, pricing.ErrNonPositiveCapacity},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			c := Default()
			td.mutate(c)
			assert.ErrorIs(t, c.Validate(), td.err)
		})
	}

	c := Default()
	c.Forecast = nil
	c.Pricing = nil
	require.Nil(t, c.Validate())
	assert.NotNil(t, c.Forecast)
	assert.NotNil(t, c.Pricing)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.Nil(t, os.WriteFile(path, []byte(`{"history_path": "data/usage.csv"}`), 0o644))

	t.Setenv(EnvAddr, ":7070")
	c, err := Load(path)
	require.Nil(t, err)
	assert.Equal(t, "data/usage.csv", c.HistoryPath)
	assert.Equal(t, ":7070", c.Server.Addr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.NotNil(t, err)

	require.Nil(t, os.WriteFile(path, []byte(`{"log": {"level": "loud"}}`), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvModelPath:   "m.json",
		EnvHistoryPath: "h.csv",
		EnvLogLevel:    "warn",
		EnvLogFormat:   "",
	}
	c := Default()
	c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, "m.json", c.ModelPath)
	assert.Equal(t, "h.csv", c.HistoryPath)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, LogFormatText, c.Log.Format)
	assert.Equal(t, ":8080", c.Server.Addr)
}

func TestLogHandler(t *testing.T) {
	testData := map[string]struct {
		level    string
		expected slog.Level
	}{
		"debug":   {"debug", slog.LevelDebug},
		"empty":   {"", slog.LevelInfo},
		"upper":   {"WARN", slog.LevelWarn},
		"warning": {"warning", slog.LevelWarn},
		"error":   {"error", slog.LevelError},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			level, err := ParseLevel(td.level)
			require.Nil(t, err)
			assert.Equal(t, td.expected, level)
		})
	}

	var buf bytes.Buffer
	h, err := LogConfig{Level: "info", Format: LogFormatJSON}.Handler(&buf)
	require.Nil(t, err)
	slog.New(h).Info("loaded", "days", 30)
	slog.New(h).Debug("hidden")
	assert.Contains(t, buf.String(), `"days":30`)
	assert.NotContains(t, buf.String(), "hidden")
}
