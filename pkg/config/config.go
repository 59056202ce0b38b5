// Package config loads client settings from a YAML file, a .env file and
// SYNCANO_* environment variables, in increasing order of precedence.
package config

import (
	"crypto/tls"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/connection/retry"
	"github.com/syncano/syncano.go/pkg/logger"
	"github.com/syncano/syncano.go/pkg/marshal"
)

// Environment variables overriding the file.
const (
	EnvURL       = "SYNCANO_URL"
	EnvAPIKey    = "SYNCANO_API_KEY"
	EnvInstance  = "SYNCANO_INSTANCE"
	EnvCodec     = "SYNCANO_CODEC"
	EnvWebSocket = "SYNCANO_WEBSOCKET"
	EnvTimeout   = "SYNCANO_TIMEOUT"
	EnvRateLimit = "SYNCANO_RATE_LIMIT"
	EnvLogLevel  = "SYNCANO_LOG_LEVEL"
)

// Config is the client configuration.
type Config struct {
	File string `yaml:"-"`

	// URL picks the transport by scheme: http(s), tcp/tls or ws(s).
	URL      string `yaml:"url" default:"https://api.syncano.com"`
	APIKey   string `yaml:"api-key"`
	Instance string `yaml:"instance"`
	// Codec of sync connections, json or cbor. REST always uses json.
	Codec string `yaml:"codec" default:"json"`
	// WebSocket client library of ws endpoints, gorilla or gws.
	WebSocket string `yaml:"websocket" default:"gorilla"`

	// Timeout bounds a single call, e.g. "10s".
	Timeout      string `yaml:"timeout" default:"10s"`
	PingInterval string `yaml:"ping-interval" default:"30s"`
	// InsecureSkipVerify disables certificate checks on tls and wss endpoints.
	InsecureSkipVerify bool `yaml:"insecure-skip-verify"`

	RateLimit RateLimitConfig `yaml:"rate-limit"`
	Retry     RetryConfig     `yaml:"retry"`
	Log       LogConfig       `yaml:"log"`
}

// RateLimitConfig throttles REST calls. A Rate of 0 disables throttling.
type RateLimitConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int64   `yaml:"burst" default:"1"`
}

// RetryConfig controls reconnects of sync connections.
type RetryConfig struct {
	Disabled     bool   `yaml:"disabled"`
	InitialDelay string `yaml:"initial-delay" default:"500ms"`
	MaxDelay     string `yaml:"max-delay" default:"30s"`
	// MaxRetries of 0 retries forever.
	MaxRetries int `yaml:"max-retries" default:"0"`
}

type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level" default:"warn"`
	// Production switches the CLI logger to JSON output.
	Production bool `yaml:"production"`
}

// Default returns a Config holding only default values.
func Default() (*Config, error) {
	c := new(Config)
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "set default config failed")
	}
	return c, nil
}

// Load reads the YAML file at path, then applies a .env file next to the
// working directory and the environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := new(Config)
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "set default config failed")
	}

	if path != "" {
		realpath, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		c.File = filepath.Clean(realpath)

		file, err := os.ReadFile(c.File)
		if err != nil {
			return nil, errors.Wrap(err, "read config file failed")
		}
		if err := yaml.Unmarshal(file, c); err != nil {
			return nil, errors.Wrap(err, "parse config file failed")
		}
		// Fill fields present in the file but left empty.
		if err := defaults.Set(c); err != nil {
			return nil, errors.Wrap(err, "re-set default config failed")
		}
	}

	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&c.URL, EnvURL)
	setString(&c.APIKey, EnvAPIKey)
	setString(&c.Instance, EnvInstance)
	setString(&c.Codec, EnvCodec)
	setString(&c.WebSocket, EnvWebSocket)
	setString(&c.Timeout, EnvTimeout)
	setString(&c.Log.Level, EnvLogLevel)

	if v := os.Getenv(EnvRateLimit); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvRateLimit)
		}
		c.RateLimit.Rate = rate
	}
	return nil
}

// Save writes c as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o600), "write config file failed")
}

// ConnectionConfig turns c into the settings of a connection. log may be
// nil, in which case a text logger on stderr at c.Log.Level is used.
func (c *Config) ConnectionConfig(log logger.Logger) (*connection.Config, error) {
	if c.APIKey == "" {
		return nil, errors.Errorf("api key is not set, use the api-key setting or %s", EnvAPIKey)
	}

	u, err := url.ParseRequestURI(c.URL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid url")
	}

	timeout, err := parseDuration("timeout", c.Timeout)
	if err != nil {
		return nil, err
	}
	ping, err := parseDuration("ping-interval", c.PingInterval)
	if err != nil {
		return nil, err
	}

	conf := connection.NewConfig(u)
	conf.APIKey = c.APIKey
	conf.Instance = c.Instance
	conf.Timeout = timeout
	conf.PingInterval = ping
	conf.RateLimit = c.RateLimit.Rate
	conf.RateBurst = c.RateLimit.Burst
	conf.WebSocket = c.WebSocket

	if conf.Codec, err = marshal.ByName(c.Codec); err != nil {
		return nil, errors.WithStack(err)
	}

	if c.InsecureSkipVerify {
		//nolint:gosec // explicitly requested
		conf.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if !c.Retry.Disabled {
		r := retry.NewExponentialBackoffRetryer()
		if r.InitialDelay, err = parseDuration("retry.initial-delay", c.Retry.InitialDelay); err != nil {
			return nil, err
		}
		if r.MaxDelay, err = parseDuration("retry.max-delay", c.Retry.MaxDelay); err != nil {
			return nil, err
		}
		r.MaxRetries = c.Retry.MaxRetries
		conf.Retryer = r
	}

	if log == nil {
		log = logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: SlogLevel(c.Log.Level)}))
	}
	conf.Logger = log
	return conf, nil
}

// SlogLevel parses level, falling back to warn.
func SlogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelWarn
	}
	return l
}

func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", name)
	}
	return d, nil
}
