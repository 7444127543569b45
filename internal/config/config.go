package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBusyTimeout      = 5 * time.Second
	defaultDashboardName    = "My Dashboard"
	defaultDatabaseFileName = "dashboards.db"
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
	defaultLogMaxSizeMB     = 10
	defaultLogMaxFiles      = 5
	maxBusyTimeout          = 5 * time.Minute
	configFileName          = "config.toml"
	appDirName              = "dashkeep"
	appDirNameDarwin        = "Dashkeep"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Store   StoreConfig   `toml:"store"`
	Logging LoggingConfig `toml:"logging"`
}

type StoreConfig struct {
	Path                 string        `toml:"path" env:"DASHKEEP_STORE_PATH"`
	BusyTimeout          time.Duration `toml:"busy_timeout" env:"DASHKEEP_STORE_BUSY_TIMEOUT"`
	DefaultDashboardName string        `toml:"default_dashboard_name" env:"DASHKEEP_DEFAULT_DASHBOARD_NAME"`
}

type LoggingConfig struct {
	Level     string `toml:"level" env:"DASHKEEP_LOG_LEVEL"`
	Format    string `toml:"format" env:"DASHKEEP_LOG_FORMAT"`
	File      string `toml:"file" env:"DASHKEEP_LOG_FILE"`
	MaxSizeMB int    `toml:"max_size_mb" env:"DASHKEEP_LOG_MAX_SIZE_MB"`
	MaxFiles  int    `toml:"max_files" env:"DASHKEEP_LOG_MAX_FILES"`
}

type LoadOptions struct {
	ConfigPath string
	Env        map[string]string
	Flags      FlagOverrides
}

type FlagOverrides struct {
	StorePath *string
	LogLevel  *string
}

func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Path:                 "",
			BusyTimeout:          defaultBusyTimeout,
			DefaultDashboardName: defaultDashboardName,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			Format:    defaultLogFormat,
			File:      "",
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

// Load resolves configuration with precedence flags > env > file > defaults.
// A missing config file is not an error.
func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	configPath, err := resolveConfigPath(opts)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	if err := loadAndApplyFile(configPath, &cfg); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg, opts); err != nil {
		return Config{}, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if cfg.Store.Path == "" {
		dataDir, err := dataHome(opts)
		if err != nil {
			return Config{}, err
		}
		cfg.Store.Path = filepath.Join(dataDir, defaultDatabaseFileName)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	Store   *rawStore   `toml:"store"`
	Logging *rawLogging `toml:"logging"`
}

type rawStore struct {
	Path                 *string `toml:"path"`
	BusyTimeout          *string `toml:"busy_timeout"`
	DefaultDashboardName *string `toml:"default_dashboard_name"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	Format    *string `toml:"format"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

func loadAndApplyFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}
	return applyRawConfig(cfg, raw)
}

func applyRawConfig(cfg *Config, raw rawConfig) error {
	if raw.Store != nil {
		setString(raw.Store.Path, &cfg.Store.Path)
		setString(raw.Store.DefaultDashboardName, &cfg.Store.DefaultDashboardName)
		if err := setDuration("store.busy_timeout", raw.Store.BusyTimeout, &cfg.Store.BusyTimeout); err != nil {
			return err
		}
	}

	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
		setString(raw.Logging.Format, &cfg.Logging.Format)
		setString(raw.Logging.File, &cfg.Logging.File)
		setInt(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setInt(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}
	return nil
}

// applyEnvOverrides overlays DASHKEEP_* variables onto cfg. Variables that
// are unset leave the current value alone.
func applyEnvOverrides(cfg *Config, opts LoadOptions) error {
	err := env.ParseWithOptions(cfg, env.Options{Environment: environment(opts)})
	if err != nil {
		return fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}
	return nil
}

// environment merges opts.Env over the process environment.
func environment(opts LoadOptions) map[string]string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		merged[key] = value
	}
	for key, value := range opts.Env {
		merged[key] = value
	}
	return merged
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	if flags.StorePath != nil && *flags.StorePath != "" {
		cfg.Store.Path = *flags.StorePath
	}
	if flags.LogLevel != nil && *flags.LogLevel != "" {
		cfg.Logging.Level = *flags.LogLevel
	}
}

func validate(cfg Config) error {
	if cfg.Store.BusyTimeout <= 0 || cfg.Store.BusyTimeout > maxBusyTimeout {
		return fmt.Errorf("%w: store.busy_timeout must be > 0 and <= %s", ErrInvalidConfig, maxBusyTimeout)
	}
	if strings.TrimSpace(cfg.Store.DefaultDashboardName) == "" {
		return fmt.Errorf("%w: store.default_dashboard_name must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be one of debug, info, warn, error", ErrInvalidConfig)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json", ErrInvalidConfig)
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxFiles < 0 {
		return fmt.Errorf("%w: logging rotation limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

func setDuration(field string, raw *string, target *time.Duration) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	*target = d
	return nil
}

func setString(raw *string, target *string) {
	if raw == nil {
		return
	}
	*target = *raw
}

func setInt(raw *int, target *int) {
	if raw == nil {
		return
	}
	*target = *raw
}

func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := lookupEnv(opts, "DASHKEEP_CONFIG_PATH"); ok {
		return value, nil
	}
	return defaultConfigPath(opts)
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		if value, ok := opts.Env[key]; ok {
			return value, true
		}
	}
	return os.LookupEnv(key)
}

func dataHome(opts LoadOptions) (string, error) {
	if value, ok := lookupEnv(opts, "DASHKEEP_HOME"); ok && value != "" {
		return value, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", appDirNameDarwin), nil
	}

	dataDir := filepath.Join(home, ".local", "share")
	if xdgDataHome, ok := lookupEnv(opts, "XDG_DATA_HOME"); ok && xdgDataHome != "" {
		dataDir = xdgDataHome
	}
	return filepath.Join(dataDir, appDirName), nil
}

func defaultConfigPath(opts LoadOptions) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", appDirNameDarwin, configFileName), nil
	}

	configHome := filepath.Join(home, ".config")
	if xdgConfigHome, ok := lookupEnv(opts, "XDG_CONFIG_HOME"); ok && xdgConfigHome != "" {
		configHome = xdgConfigHome
	}
	return filepath.Join(configHome, appDirName, configFileName), nil
}
