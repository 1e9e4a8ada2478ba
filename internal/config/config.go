package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/gmsas95/healthrisk/internal/errors"
)

const envPrefix = "HEALTHRISK"

// Config holds all configuration for healthrisk
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Security SecurityConfig `mapstructure:"security"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// AIConfig holds the generative model endpoint and generation settings
type AIConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           int           `mapstructure:"timeout"` // seconds
	Temperature       float64       `mapstructure:"temperature"`
	TopK              int           `mapstructure:"top_k"`
	TopP              float64       `mapstructure:"top_p"`
	MaxOutputTokens   int           `mapstructure:"max_output_tokens"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	Breaker           BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the model endpoint
type BreakerConfig struct {
	MaxFailures      uint32 `mapstructure:"max_failures"`
	OpenTimeout      int    `mapstructure:"open_timeout"` // seconds
	HalfOpenRequests uint32 `mapstructure:"half_open_requests"`
}

// ScoringConfig holds rule-based scoring settings
type ScoringConfig struct {
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
}

// ThresholdsConfig holds the prediction inclusion thresholds
type ThresholdsConfig struct {
	Cardiovascular float64 `mapstructure:"cardiovascular"`
	Diabetes       float64 `mapstructure:"diabetes"`
	MentalHealth   float64 `mapstructure:"mental_health"`
	SleepDisorder  float64 `mapstructure:"sleep_disorder"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	CachePath  string `mapstructure:"cache_path"`
	CacheTTL   int    `mapstructure:"cache_ttl"` // hours, 0 keeps entries until overwritten
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	AdminPassword string   `mapstructure:"admin_password"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
	TokenTTL      int      `mapstructure:"token_ttl"` // hours
}

// BatchConfig holds batch prediction settings
type BatchConfig struct {
	Concurrency       int     `mapstructure:"concurrency"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	ItemTimeout       int     `mapstructure:"item_timeout"` // seconds
}

// RefreshConfig schedules periodic re-scoring of stored patients
type RefreshConfig struct {
	Schedule      string `mapstructure:"schedule"` // cron spec, empty disables
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	RulesOnly     bool   `mapstructure:"rules_only"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads configuration from defaults, an optional YAML file and the
// environment, in increasing precedence. An empty configPath looks for
// healthrisk.yaml in the data directory.
func Load(configPath, dataDir string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, "failed to load .env files")
	}

	v := viper.New()
	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, "failed to create data directory")
	}
	v.SetDefault("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "healthrisk.db"))
	v.SetDefault("storage.cache_path", filepath.Join(dataDir, "cache"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "healthrisk.yaml")
		if _, err := os.Stat(configPath); err != nil {
			configPath = ""
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, apperrors.Wrap(err, apperrors.ErrConfigNotFound.Code, fmt.Sprintf("config file %s not found", configPath))
			}
			return nil, apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, "failed to read config")
		}
	}

	// HEALTHRISK_SERVER_PORT, HEALTHRISK_AI_API_KEY, ...
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, "failed to unmarshal config")
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ai.model", "gemini-3-flash-preview")
	v.SetDefault("ai.timeout", 60)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.top_k", 40)
	v.SetDefault("ai.top_p", 0.95)
	v.SetDefault("ai.max_output_tokens", 4096)
	v.SetDefault("ai.requests_per_minute", 60)
	v.SetDefault("ai.burst", 5)
	v.SetDefault("ai.breaker.max_failures", 5)
	v.SetDefault("ai.breaker.open_timeout", 30)
	v.SetDefault("ai.breaker.half_open_requests", 1)

	v.SetDefault("scoring.thresholds.cardiovascular", 50)
	v.SetDefault("scoring.thresholds.diabetes", 40)
	v.SetDefault("scoring.thresholds.mental_health", 60)
	v.SetDefault("scoring.thresholds.sleep_disorder", 50)

	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.admin_password", "")
	v.SetDefault("security.allow_origins", []string{"*"})
	v.SetDefault("security.token_ttl", 24)

	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.requests_per_minute", 0)
	v.SetDefault("batch.item_timeout", 90)

	v.SetDefault("storage.cache_ttl", 168)

	v.SetDefault("refresh.schedule", "")
	v.SetDefault("refresh.max_concurrent", 2)
	v.SetDefault("refresh.rules_only", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "healthrisk")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "healthrisk")
}

// loadEnvOverrides resolves values that have well-known aliases outside the
// HEALTHRISK_ namespace.
func loadEnvOverrides(cfg *Config) {
	if key := ResolveEnvWithAliases(envPrefix + "_AI_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}
	if model := ResolveEnvWithAliases(envPrefix + "_AI_MODEL"); model != "" {
		cfg.AI.Model = model
	}
	if secret := ResolveEnvWithAliases(envPrefix + "_SECURITY_JWT_SECRET"); secret != "" {
		cfg.Security.JWTSecret = secret
	}
	if password := ResolveEnvWithAliases(envPrefix + "_SECURITY_ADMIN_PASSWORD"); password != "" {
		cfg.Security.AdminPassword = password
	}
	if level := ResolveEnvWithAliases(envPrefix + "_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return apperrors.New(apperrors.ErrConfigInvalid.Code, fmt.Sprintf("server.port %d out of range", cfg.Server.Port))
	}

	// No key means the rule-based path only.
	if cfg.AI.APIKey == "" {
		cfg.AI.Enabled = false
	}
	if cfg.AI.Enabled && cfg.AI.BaseURL == "" {
		return apperrors.New(apperrors.ErrConfigInvalid.Code, "ai.base_url is required when ai is enabled")
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		return apperrors.New(apperrors.ErrConfigInvalid.Code, "ai.max_output_tokens must be positive")
	}
	if cfg.AI.Temperature < 0 || cfg.AI.TopP < 0 || cfg.AI.TopP > 1 {
		return apperrors.New(apperrors.ErrConfigInvalid.Code, "ai generation parameters out of range")
	}

	for name, v := range map[string]float64{
		"cardiovascular": cfg.Scoring.Thresholds.Cardiovascular,
		"diabetes":       cfg.Scoring.Thresholds.Diabetes,
		"mental_health":  cfg.Scoring.Thresholds.MentalHealth,
		"sleep_disorder": cfg.Scoring.Thresholds.SleepDisorder,
	} {
		if v < 0 || v > 100 {
			return apperrors.New(apperrors.ErrConfigInvalid.Code, fmt.Sprintf("scoring.thresholds.%s must be within [0,100]", name))
		}
	}

	if cfg.Batch.Concurrency <= 0 {
		cfg.Batch.Concurrency = 1
	}
	if cfg.Refresh.MaxConcurrent <= 0 {
		cfg.Refresh.MaxConcurrent = 1
	}
	if cfg.Storage.CacheTTL < 0 {
		return apperrors.New(apperrors.ErrConfigInvalid.Code, "storage.cache_ttl must not be negative")
	}

	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = generateRandomString(32)
	}

	return nil
}

func generateRandomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strings.Repeat("x", n*2)
	}
	return hex.EncodeToString(b)
}

// AITimeout returns the model request timeout.
func (c *Config) AITimeout() time.Duration {
	if c.AI.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.AI.Timeout) * time.Second
}

// CacheTTL returns how long cached bundles live; zero means no expiry.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Storage.CacheTTL) * time.Hour
}

// ItemTimeout returns the per-item batch timeout.
func (c *Config) ItemTimeout() time.Duration {
	if c.Batch.ItemTimeout <= 0 {
		return 90 * time.Second
	}
	return time.Duration(c.Batch.ItemTimeout) * time.Second
}
