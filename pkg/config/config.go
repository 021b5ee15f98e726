package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DashboardConfig drives the terminal dashboard.
type DashboardConfig struct {
	APIBaseURL      string
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	SnapshotDir     string // badger warm-start cache; empty disables it
	MetricsListen   string // expvar/pprof listener; empty disables it
}

// ServerConfig drives the backend API server.
type ServerConfig struct {
	Listen         string
	FreqtradeBin   string
	StrategiesDir  string
	TradesExport   string
	BaseConfig     string
	StopArgs       []string
	DBPath         string
	DataDir        string
	LogsDir        string
	CORSOrigin     string
	StatusCacheTTL time.Duration
	StopTimeout    time.Duration
	CommandRate    float64 // commands per second
	CommandBurst   int
}

// LogConfig mirrors logger.Config without importing it.
type LogConfig struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Config is the resolved application configuration.
type Config struct {
	Dashboard DashboardConfig
	Server    ServerConfig
	Log       LogConfig
}

// ConfigFile is the on-disk shape (YAML or JSON).
type ConfigFile struct {
	Dashboard struct {
		APIBaseURL      string `yaml:"api_base_url" json:"api_base_url"`
		RefreshInterval string `yaml:"refresh_interval" json:"refresh_interval"`
		RequestTimeout  string `yaml:"request_timeout" json:"request_timeout"`
		SnapshotDir     string `yaml:"snapshot_dir" json:"snapshot_dir"`
		MetricsListen   string `yaml:"metrics_listen" json:"metrics_listen"`
	} `yaml:"dashboard" json:"dashboard"`
	Server struct {
		Listen         string   `yaml:"listen" json:"listen"`
		FreqtradeBin   string   `yaml:"freqtrade_bin" json:"freqtrade_bin"`
		StrategiesDir  string   `yaml:"strategies_dir" json:"strategies_dir"`
		TradesExport   string   `yaml:"trades_export" json:"trades_export"`
		BaseConfig     string   `yaml:"base_config" json:"base_config"`
		StopArgs       []string `yaml:"stop_args" json:"stop_args"`
		DBPath         string   `yaml:"db_path" json:"db_path"`
		DataDir        string   `yaml:"data_dir" json:"data_dir"`
		LogsDir        string   `yaml:"logs_dir" json:"logs_dir"`
		CORSOrigin     string   `yaml:"cors_origin" json:"cors_origin"`
		StatusCacheTTL string   `yaml:"status_cache_ttl" json:"status_cache_ttl"`
		StopTimeout    string   `yaml:"stop_timeout" json:"stop_timeout"`
		CommandRate    float64  `yaml:"command_rate" json:"command_rate"`
		CommandBurst   int      `yaml:"command_burst" json:"command_burst"`
	} `yaml:"server" json:"server"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
	LogFile       string `yaml:"log_file" json:"log_file"`
	LogMaxSize    int    `yaml:"log_max_size" json:"log_max_size"`
	LogMaxBackups int    `yaml:"log_max_backups" json:"log_max_backups"`
	LogMaxAge     int    `yaml:"log_max_age" json:"log_max_age"`
	LogCompress   *bool  `yaml:"log_compress" json:"log_compress"`
}

const (
	DefaultAPIBaseURL      = "http://localhost:8000"
	DefaultRefreshInterval = 30 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
)

// Load reads .env (best-effort), then the optional config file, then applies env
// overrides. Priority: env > file > defaults.
func Load(filePath string) (*Config, error) {
	_ = godotenv.Load()

	var cf *ConfigFile
	if strings.TrimSpace(filePath) != "" {
		var err error
		cf, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", filePath, err)
		}
	} else {
		cf = &ConfigFile{}
	}

	refresh, err := pickDuration("FREQDASH_REFRESH_INTERVAL", cf.Dashboard.RefreshInterval, DefaultRefreshInterval)
	if err != nil {
		return nil, err
	}
	timeout, err := pickDuration("FREQDASH_REQUEST_TIMEOUT", cf.Dashboard.RequestTimeout, DefaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	statusTTL, err := pickDuration("FREQDASH_STATUS_CACHE_TTL", cf.Server.StatusCacheTTL, 2*time.Second)
	if err != nil {
		return nil, err
	}
	stopTimeout, err := pickDuration("FREQDASH_STOP_TIMEOUT", cf.Server.StopTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}

	stopArgs := cf.Server.StopArgs
	if v := strings.TrimSpace(os.Getenv("FREQDASH_STOP_ARGS")); v != "" {
		stopArgs = strings.Fields(v)
	}
	if len(stopArgs) == 0 {
		stopArgs = []string{"stop"}
	}

	compress := true
	if cf.LogCompress != nil {
		compress = *cf.LogCompress
	}

	cfg := &Config{
		Dashboard: DashboardConfig{
			APIBaseURL:      pick("FREQDASH_API_URL", cf.Dashboard.APIBaseURL, DefaultAPIBaseURL),
			RefreshInterval: refresh,
			RequestTimeout:  timeout,
			SnapshotDir:     pick("FREQDASH_SNAPSHOT_DIR", cf.Dashboard.SnapshotDir, ""),
			MetricsListen:   pick("FREQDASH_METRICS_LISTEN", cf.Dashboard.MetricsListen, ""),
		},
		Server: ServerConfig{
			Listen:         pick("FREQDASH_SERVER_LISTEN", cf.Server.Listen, ":8000"),
			FreqtradeBin:   pick("FREQDASH_FREQTRADE_BIN", cf.Server.FreqtradeBin, "freqtrade"),
			StrategiesDir:  pick("FREQDASH_STRATEGIES_DIR", cf.Server.StrategiesDir, "user_data/strategies"),
			TradesExport:   pick("FREQDASH_TRADES_EXPORT", cf.Server.TradesExport, "trades.json"),
			BaseConfig:     pick("FREQDASH_BASE_CONFIG", cf.Server.BaseConfig, "config.json"),
			StopArgs:       stopArgs,
			DBPath:         pick("FREQDASH_DB", cf.Server.DBPath, "data/freqdash.db"),
			DataDir:        pick("FREQDASH_DATA_DIR", cf.Server.DataDir, "data"),
			LogsDir:        pick("FREQDASH_LOGS_DIR", cf.Server.LogsDir, "logs"),
			CORSOrigin:     pick("FREQDASH_CORS_ORIGIN", cf.Server.CORSOrigin, "http://localhost:3000"),
			StatusCacheTTL: statusTTL,
			StopTimeout:    stopTimeout,
			CommandRate:    parseFloatEnv("FREQDASH_COMMAND_RATE", orFloat(cf.Server.CommandRate, 1)),
			CommandBurst:   parseIntEnv("FREQDASH_COMMAND_BURST", orInt(cf.Server.CommandBurst, 3)),
		},
		Log: LogConfig{
			Level:      pick("LOG_LEVEL", cf.LogLevel, "info"),
			File:       pick("LOG_FILE", cf.LogFile, ""),
			MaxSize:    parseIntEnv("LOG_MAX_SIZE", orInt(cf.LogMaxSize, 100)),
			MaxBackups: parseIntEnv("LOG_MAX_BACKUPS", orInt(cf.LogMaxBackups, 3)),
			MaxAge:     parseIntEnv("LOG_MAX_AGE", orInt(cf.LogMaxAge, 7)),
			Compress:   parseBoolEnv("LOG_COMPRESS", compress),
		},
	}
	cfg.Dashboard.APIBaseURL = strings.TrimRight(cfg.Dashboard.APIBaseURL, "/")
	return cfg, nil
}

// Validate checks the dashboard settings.
func (c *DashboardConfig) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("api_base_url is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_base_url %q is not an absolute URL", c.APIBaseURL)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0")
	}
	return nil
}

// Validate checks the server settings.
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("listen is required")
	}
	if strings.TrimSpace(c.FreqtradeBin) == "" {
		return fmt.Errorf("freqtrade_bin is required")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.CommandRate <= 0 {
		return fmt.Errorf("command_rate must be > 0")
	}
	if c.CommandBurst <= 0 {
		return fmt.Errorf("command_burst must be > 0")
	}
	return nil
}

func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var configFile ConfigFile
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s (want .yaml, .yml, .json)", filepath.Ext(filePath))
	}
	return &configFile, nil
}

func pick(envKey, fileValue, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if v := strings.TrimSpace(fileValue); v != "" {
		return v
	}
	return def
}

func pickDuration(envKey, fileValue string, def time.Duration) (time.Duration, error) {
	raw := pick(envKey, fileValue, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", envKey, raw, err)
	}
	return d, nil
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolEnv(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
