package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	DefaultPort       = 3001
	DefaultHost       = "0.0.0.0"
	DefaultBackendURL = "http://localhost:8000"
)

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"server.host":             "HOST",
	"server.port":             "PORT",
	"server.environment":      "ENVIRONMENT",
	"server.shutdown_timeout": "SHUTDOWN_TIMEOUT",
	"upstream.url":            "AI_BACKEND_URL",
	"upstream.probe_interval": "UPSTREAM_PROBE_INTERVAL",
	"static.dirs":             "STATIC_DIRS",
	"static.entry_page":       "ENTRY_PAGE",
	"cors.enabled":            "CORS_ENABLED",
	"logging.level":           "LOG_LEVEL",
	"metrics.address":         "METRICS_ADDR",
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type UpstreamConfig struct {
	URL string `mapstructure:"url"`
	// ProbeInterval of zero disables the reachability probe.
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

type StaticConfig struct {
	// Dirs are searched in order; the first root holding a file serves it.
	Dirs      []string `mapstructure:"dirs"`
	EntryPage string   `mapstructure:"entry_page"`
}

type CORSConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	// Address of the admin listener. Empty disables it.
	Address string `mapstructure:"address"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Static   StaticConfig   `mapstructure:"static"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// Load builds the configuration from the working directory and environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Debug("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	if err := mergeDotEnv(v, DotEnvFile); err != nil {
		slog.Error("failed to read .env file", slog.String("error", err.Error()))
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("upstream.url", DefaultBackendURL)
	v.SetDefault("upstream.probe_interval", "0s")
	v.SetDefault("static.dirs", []string{"static", "templates"})
	v.SetDefault("static.entry_page", "templates/base.html")
	v.SetDefault("cors.enabled", true)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("metrics.address", "")
}

// mergeDotEnv copies variables from a dotenv file into v. Variables already
// present in the process environment are left alone.
func mergeDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	dotenv := viper.New()
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for key, env := range envBindings {
		if _, set := os.LookupEnv(env); set {
			continue
		}
		name := strings.ToLower(env)
		if dotenv.IsSet(name) {
			v.Set(key, dotenv.Get(name))
		}
	}

	slog.Info("loaded env file", slog.String("file", path))
	return nil
}

// ListenAddress is the host:port the gateway binds to.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// UpstreamURL parses the configured backend base URL.
func (c *Config) UpstreamURL() (*url.URL, error) {
	return url.Parse(c.Upstream.URL)
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Upstream),
		validation.Field(&c.Static),
		validation.Field(&c.Logging),
		validation.Field(&c.Metrics),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Host, validation.Required, is.Host),
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&s.ShutdownTimeout, validation.Required),
	)
}

func (u UpstreamConfig) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.URL, validation.Required, validation.By(validateUpstreamURL)),
		validation.Field(&u.ProbeInterval, validation.Min(time.Duration(0))),
	)
}

func (s StaticConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Dirs, validation.Required, validation.Each(validation.Required)),
		validation.Field(&s.EntryPage, validation.Required),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func (m MetricsConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Address, validation.When(m.Address != "", validation.By(validateHostPort))),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateUpstreamURL(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
