package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/pflag"
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
	DefaultBackendURL = "http://localhost:8000"

	EnvBackendURL       = "BACKEND_URL"
	EnvPublicBackendURL = "NEXT_PUBLIC_BACKEND_URL"
)

// Where the backend URL came from.
const (
	SourceDefault = "default"
	SourceConfig  = "config"
	SourceDotenv  = "dotenv"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Flag names registered by RegisterFlags.
const (
	FlagConfig      = "config"
	FlagBackendURL  = "backend-url"
	FlagAddress     = "address"
	FlagEnvironment = "environment"
	FlagLogLevel    = "log-level"
)

var flagKeys = map[string]string{
	FlagBackendURL:  "backend.url",
	FlagAddress:     "server.address",
	FlagEnvironment: "server.environment",
	FlagLogLevel:    "logging.level",
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type BreakerConfig struct {
	Threshold    int    `mapstructure:"threshold"`
	ResetTimeout string `mapstructure:"reset_timeout"`
}

type BackendConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout string        `mapstructure:"request_timeout"`
	StatusTimeout  string        `mapstructure:"status_timeout"`
	InfoTimeout    string        `mapstructure:"info_timeout"`
	CheckTimeout   string        `mapstructure:"check_timeout"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type NetworkConfig struct {
	Origin string `mapstructure:"origin"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type LauncherConfig struct {
	EnvFile         string `mapstructure:"env_file"`
	FrontendDir     string `mapstructure:"frontend_dir"`
	InstallCommand  string `mapstructure:"install_command"`
	FrontendCommand string `mapstructure:"frontend_command"`
	BackendCommand  string `mapstructure:"backend_command"`
	BackendDir      string `mapstructure:"backend_dir"`
	StartupWait     string `mapstructure:"startup_wait"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Backend     BackendConfig     `mapstructure:"backend"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Network     NetworkConfig     `mapstructure:"network"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Launcher    LauncherConfig    `mapstructure:"launcher"`
	Logging     LoggingConfig     `mapstructure:"logging"`

	// BackendURLSource is one of the Source constants.
	BackendURLSource string `mapstructure:"-"`
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "path to a config file")
	fs.String(FlagBackendURL, "", "backend base URL")
	fs.String(FlagAddress, "", "debug server listen address")
	fs.String(FlagEnvironment, "", "environment (dev, staging, prod)")
	fs.String(FlagLogLevel, "", "log level (debug, info, warn, error)")
}

// Load resolves the configuration. Precedence, highest first: flags set on
// fs, environment variables, the frontend dotenv file, config.yaml, defaults.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := flagValue(fs, FlagConfig); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.BindEnv("backend.url", EnvBackendURL, EnvPublicBackendURL); err != nil {
		return nil, fmt.Errorf("bind backend url env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		slog.Debug("config file not found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	if fs != nil {
		for name, key := range flagKeys {
			if flag := fs.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	source, err := resolveBackendURL(v, fs)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Backend.URL = strings.TrimSpace(cfg.Backend.URL)
	cfg.BackendURLSource = source

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", "127.0.0.1:8090")
	v.SetDefault("logging.level", LogLevelInfo)

	v.SetDefault("backend.url", DefaultBackendURL)
	v.SetDefault("backend.request_timeout", "30s")
	v.SetDefault("backend.status_timeout", "10s")
	v.SetDefault("backend.info_timeout", "5s")
	v.SetDefault("backend.check_timeout", "3s")
	v.SetDefault("backend.breaker.threshold", 5)
	v.SetDefault("backend.breaker.reset_timeout", "30s")

	v.SetDefault("health_check.interval", "10s")
	v.SetDefault("network.origin", "http://localhost:3000")
	v.SetDefault("metrics.buffer_size", 1000)

	v.SetDefault("launcher.env_file", ".env.local")
	v.SetDefault("launcher.frontend_dir", "frontend")
	v.SetDefault("launcher.install_command", "npm install")
	v.SetDefault("launcher.frontend_command", "npm run dev")
	v.SetDefault("launcher.backend_command", "python run_backend.py")
	v.SetDefault("launcher.backend_dir", ".")
	v.SetDefault("launcher.startup_wait", "3s")
}

// resolveBackendURL layers the dotenv file between the environment and the
// config file, which viper has no slot for, and reports the winning source.
func resolveBackendURL(v *viper.Viper, fs *pflag.FlagSet) (string, error) {
	if fs != nil {
		if flag := fs.Lookup(FlagBackendURL); flag != nil && flag.Changed {
			return SourceFlag, nil
		}
	}

	for _, name := range []string{EnvBackendURL, EnvPublicBackendURL} {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			return SourceEnv, nil
		}
	}

	path := filepath.Join(v.GetString("launcher.frontend_dir"), v.GetString("launcher.env_file"))
	value, err := ReadDotenv(path, EnvPublicBackendURL)
	if err != nil {
		return "", err
	}
	if value != "" {
		v.Set("backend.url", value)
		return SourceDotenv, nil
	}

	if v.InConfig("backend.url") {
		return SourceConfig, nil
	}

	return SourceDefault, nil
}

// ReadDotenv returns the value of key in the dotenv file at path. A missing
// file yields an empty value and no error.
func ReadDotenv(path, key string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read dotenv %s: %w", path, err)
	}

	return strings.TrimSpace(dv.GetString(key)), nil
}

func flagValue(fs *pflag.FlagSet, name string) string {
	if fs == nil {
		return ""
	}
	flag := fs.Lookup(name)
	if flag == nil {
		return ""
	}
	return flag.Value.String()
}

// ReportedBackendURL is what diagnostics show as the configured backend URL:
// the explicit value, or a marker when the default is in use.
func (c *Config) ReportedBackendURL() string {
	if c.BackendURLSource == SourceDefault {
		return "not set (using default)"
	}
	return c.Backend.URL
}

func (c *Config) RequestTimeout() time.Duration { return mustDuration(c.Backend.RequestTimeout) }
func (c *Config) StatusTimeout() time.Duration  { return mustDuration(c.Backend.StatusTimeout) }
func (c *Config) InfoTimeout() time.Duration    { return mustDuration(c.Backend.InfoTimeout) }
func (c *Config) CheckTimeout() time.Duration   { return mustDuration(c.Backend.CheckTimeout) }

func (c *Config) BreakerResetTimeout() time.Duration {
	return mustDuration(c.Backend.Breaker.ResetTimeout)
}

func (c *Config) HealthCheckInterval() time.Duration {
	return mustDuration(c.HealthCheck.Interval)
}

func (c *Config) StartupWait() time.Duration {
	return mustDuration(c.Launcher.StartupWait)
}

// mustDuration parses a duration that Validate already accepted.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("config: unvalidated duration %q", s))
	}
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Backend,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BackendConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BackendConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.URL, validation.Required, validation.By(validateServerURL)),
					validation.Field(&bc.RequestTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&bc.StatusTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&bc.InfoTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&bc.CheckTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&bc.Breaker, validation.By(validateBreaker)),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Network,
			validation.By(func(value interface{}) error {
				nc, ok := value.(NetworkConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a NetworkConfig")
				}
				return validation.ValidateStruct(&nc,
					validation.Field(&nc.Origin, validation.Required, is.RequestURL),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Launcher,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LauncherConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LauncherConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.EnvFile, validation.Required),
					validation.Field(&lc.FrontendDir, validation.Required),
					validation.Field(&lc.FrontendCommand, validation.Required),
					validation.Field(&lc.BackendCommand, validation.Required),
					validation.Field(&lc.StartupWait, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
	)
}

func validateBreaker(value interface{}) error {
	bc, ok := value.(BreakerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
	}
	return validation.ValidateStruct(&bc,
		validation.Field(&bc.Threshold, validation.Min(0)),
		validation.Field(&bc.ResetTimeout, validation.Required, validation.By(validateDuration)),
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

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(serverURL)
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
