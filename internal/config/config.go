package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"worklog-summary/internal/logger"
)

const (
	appName        = "worklog-summary"
	defaultLogFile = "worklog-summary.log"
)

type Config struct {
	AI       AIConfig       `mapstructure:"ai"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type AIConfig struct {
	Provider      string   `mapstructure:"provider" validate:"oneof=gemini groq mock"`
	GeminiAPIKey  string   `mapstructure:"gemini_api_key"`
	GeminiBaseURL string   `mapstructure:"gemini_base_url" validate:"omitempty,url"`
	GeminiModels  []string `mapstructure:"gemini_models" validate:"dive,required"`
	GroqAPIKey    string   `mapstructure:"groq_api_key"`
	GroqBaseURL   string   `mapstructure:"groq_base_url" validate:"omitempty,url"`
	GroqModel     string   `mapstructure:"groq_model"`
	Timeout       string   `mapstructure:"timeout"`     // 单次模型调用超时，如 "2m"
	Temperature   float64  `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens     int      `mapstructure:"max_tokens" validate:"gte=0"`
}

// ApplyDefaults 应用默认配置值
func (c *AIConfig) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "gemini"
	}
	c.Provider = strings.ToLower(c.Provider)
	if c.Timeout == "" {
		c.Timeout = "2m"
	}
	if c.GroqModel == "" {
		c.GroqModel = "llama-3.3-70b-versatile"
	}
}

// Validate 验证 AI 配置
func (c *AIConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid ai config: %w", err)
	}
	d, err := c.GetTimeoutDuration()
	if err != nil {
		return fmt.Errorf("invalid ai.timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("ai.timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

func (c *AIConfig) GetTimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, fmt.Errorf("timeout not configured")
	}
	return time.ParseDuration(c.Timeout)
}

type StorageConfig struct {
	DBPath      string    `mapstructure:"db_path" validate:"required"`
	ReportsPath string    `mapstructure:"reports_path"` // 为空时不写 markdown 报告文件
	LogPath     string    `mapstructure:"log_path"`
	Log         LogConfig `mapstructure:"log"`
}

type LogConfig struct {
	Level        string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn warning error"` // "debug", "info", "warn", "error"
	RotationTime string `mapstructure:"rotation_time"`                                                          // Time-based rotation interval (e.g., "1h", "24h")
	MaxSize      int    `mapstructure:"max_size" validate:"gte=0"`                                              // Maximum size in megabytes before rotation
	MaxBackups   int    `mapstructure:"max_backups" validate:"gte=0"`                                           // Maximum number of old log files to retain
	MaxAge       int    `mapstructure:"max_age" validate:"gte=0"`                                               // Maximum number of days to retain old log files
	Compress     bool   `mapstructure:"compress"`                                                               // Whether to compress rotated log files
}

// Validate 验证存储配置的有效性
func (c *StorageConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}
	if c.Log.RotationTime != "" {
		if _, err := time.ParseDuration(c.Log.RotationTime); err != nil {
			return fmt.Errorf("invalid storage.log.rotation_time: %w", err)
		}
	}
	return nil
}

// ApplyDefaults 应用默认配置值
func (c *StorageConfig) ApplyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "./data/db/worklog-summary.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// DispatchConfig sizes the worker pool that runs triggered generation.
type DispatchConfig struct {
	Workers   int `mapstructure:"workers" validate:"gte=1,lte=32"`
	QueueSize int `mapstructure:"queue_size" validate:"gte=1"`
}

// ApplyDefaults 应用默认配置值
func (c *DispatchConfig) ApplyDefaults() {
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.QueueSize == 0 {
		c.QueueSize = 64
	}
}

func (c *DispatchConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid dispatch config: %w", err)
	}
	return nil
}

// ScheduleConfig controls the catch-up sweep. Cron takes precedence over Interval.
type ScheduleConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
	Cron     string `mapstructure:"cron"`
	DaysBack int    `mapstructure:"days_back" validate:"gte=1,lte=366"`
}

// ApplyDefaults 应用默认配置值
func (c *ScheduleConfig) ApplyDefaults() {
	if c.Interval == "" && c.Cron == "" {
		c.Interval = "6h"
	}
	if c.DaysBack == 0 {
		c.DaysBack = 7
	}
}

func (c *ScheduleConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid schedule config: %w", err)
	}
	if c.Cron != "" {
		if _, err := cron.ParseStandard(c.Cron); err != nil {
			return fmt.Errorf("invalid schedule.cron %q: %w", c.Cron, err)
		}
		return nil
	}
	d, err := c.GetIntervalDuration()
	if err != nil {
		return fmt.Errorf("invalid schedule.interval: %w", err)
	}
	if d < time.Minute {
		return fmt.Errorf("schedule.interval must be at least 1m, got %s", c.Interval)
	}
	return nil
}

func (c *ScheduleConfig) GetIntervalDuration() (time.Duration, error) {
	if c.Interval == "" {
		return 0, fmt.Errorf("interval not configured")
	}
	return time.ParseDuration(c.Interval)
}

type ServerConfig struct {
	Address     string   `mapstructure:"address" validate:"required"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ApplyDefaults 应用默认配置值
func (c *ServerConfig) ApplyDefaults() {
	if c.Address == "" {
		c.Address = ":5000"
	}
}

func (c *ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	return nil
}

// RedisConfig is optional; when disabled the sweep runs unguarded and insights are not cached.
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address" validate:"required_if=Enabled true"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db" validate:"gte=0,lte=15"`
	InsightTTL string `mapstructure:"insight_ttl"`
}

// ApplyDefaults 应用默认配置值
func (c *RedisConfig) ApplyDefaults() {
	if c.InsightTTL == "" {
		c.InsightTTL = "1h"
	}
}

func (c *RedisConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid redis config: %w", err)
	}
	if _, err := c.GetInsightTTLDuration(); err != nil {
		return fmt.Errorf("invalid redis.insight_ttl: %w", err)
	}
	return nil
}

func (c *RedisConfig) GetInsightTTLDuration() (time.Duration, error) {
	if c.InsightTTL == "" {
		return 0, fmt.Errorf("insight ttl not configured")
	}
	return time.ParseDuration(c.InsightTTL)
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.AI.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Dispatch.ApplyDefaults()
	c.Schedule.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Redis.ApplyDefaults()
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	return errors.Join(
		c.AI.Validate(),
		c.Storage.Validate(),
		c.Dispatch.Validate(),
		c.Schedule.Validate(),
		c.Server.Validate(),
		c.Redis.Validate(),
	)
}

var (
	globalConfig *Config
	validate     = validator.New()
)

func Load(configPath string) (*Config, error) {
	// .env 只补充环境变量，不覆盖已有值
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")

		// Get executable directory for default config location
		execPath, err := os.Executable()
		if err == nil {
			execDir := filepath.Dir(execPath)
			v.AddConfigPath(filepath.Join(execDir, "config"))
			v.AddConfigPath(execDir)
		}

		// Also check current working directory (for development)
		v.AddConfigPath("./config")
		v.AddConfigPath(".")

		// Check user home directory (for user-specific config)
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, "."+appName))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnv(&cfg)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := normalizePaths(&cfg); err != nil {
		return nil, fmt.Errorf("failed to normalize paths: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini_base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ai.groq_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("ai.groq_model", "llama-3.3-70b-versatile")
	v.SetDefault("ai.timeout", "2m")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.max_tokens", 2048)

	v.SetDefault("storage.db_path", "./data/db/worklog-summary.db")
	v.SetDefault("storage.reports_path", "./data/reports")
	v.SetDefault("storage.log_path", "")
	v.SetDefault("storage.log.level", "info")
	v.SetDefault("storage.log.rotation_time", "24h") // Rotate logs daily
	v.SetDefault("storage.log.max_size", 100)        // 100MB
	v.SetDefault("storage.log.max_backups", 3)       // Keep 3 old log files
	v.SetDefault("storage.log.max_age", 28)          // Keep logs for 28 days
	v.SetDefault("storage.log.compress", true)       // Compress rotated logs

	v.SetDefault("dispatch.workers", 1)
	v.SetDefault("dispatch.queue_size", 64)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.interval", "6h")
	v.SetDefault("schedule.cron", "") // Default: use interval instead of cron
	v.SetDefault("schedule.days_back", 7)

	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.insight_ttl", "1h")
}

// applyEnv fills secrets and switches from the environment when the file leaves them empty.
func applyEnv(cfg *Config) {
	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.AI.GroqAPIKey == "" {
		cfg.AI.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		cfg.Redis.Address = addr
		cfg.Redis.Enabled = true
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" && cfg.Redis.Password == "" {
		cfg.Redis.Password = pw
	}
}

func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

func (c *StorageConfig) EnsureDBPath() error {
	dir := filepath.Dir(c.DBPath)
	if dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func (c *StorageConfig) EnsureReportsPath() error {
	if c.ReportsPath != "" {
		return os.MkdirAll(c.ReportsPath, 0755)
	}
	return nil
}

func normalizePaths(cfg *Config) error {
	// Use executable directory as base for relative paths, fallback to working directory
	baseDir, err := getBaseDirectory()
	if err != nil {
		baseDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get base directory: %w", err)
		}
	}

	if cfg.Storage.LogPath == "" {
		cfg.Storage.LogPath = filepath.Join(baseDir, defaultLogFile)
	} else if !filepath.IsAbs(cfg.Storage.LogPath) {
		cfg.Storage.LogPath = filepath.Join(baseDir, cfg.Storage.LogPath)
	}

	// If LogPath is a directory, append default filename
	info, err := os.Stat(cfg.Storage.LogPath)
	if err == nil && info.IsDir() {
		cfg.Storage.LogPath = filepath.Join(cfg.Storage.LogPath, defaultLogFile)
	} else if err != nil && os.IsNotExist(err) && filepath.Ext(cfg.Storage.LogPath) == "" {
		cfg.Storage.LogPath = filepath.Join(cfg.Storage.LogPath, defaultLogFile)
	}

	if cfg.Storage.DBPath != "" && cfg.Storage.DBPath != ":memory:" && !filepath.IsAbs(cfg.Storage.DBPath) {
		cfg.Storage.DBPath = filepath.Join(baseDir, cfg.Storage.DBPath)
	}

	if cfg.Storage.ReportsPath != "" && !filepath.IsAbs(cfg.Storage.ReportsPath) {
		cfg.Storage.ReportsPath = filepath.Join(baseDir, cfg.Storage.ReportsPath)
	}

	// Initialize logger after config is loaded
	if err := initLogger(&cfg.Storage); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// getBaseDirectory returns the base directory for resolving relative paths
// It tries to use the executable directory, falling back to working directory
// If executable is in bin/ directory, it walks up to find project root
func getBaseDirectory() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return os.Getwd()
	}

	// Resolve symlinks to get the actual executable path
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		realPath = execPath
	}

	execDir := filepath.Dir(realPath)

	// If executable is in bin/ directory, try to find project root
	if filepath.Base(execDir) == "bin" {
		// Project root is identified by presence of config/ directory
		currentDir := execDir
		for {
			parentDir := filepath.Dir(currentDir)
			if parentDir == currentDir {
				break
			}

			configDirPath := filepath.Join(currentDir, "config")
			if info, err := os.Stat(configDirPath); err == nil && info.IsDir() {
				return currentDir, nil
			}

			currentDir = parentDir
		}
	}

	return execDir, nil
}

// initLogger initializes the logger with storage config
func initLogger(storage *StorageConfig) error {
	return logger.Init(logger.LogConfig{
		Level:        storage.Log.Level,
		FilePath:     storage.LogPath,
		RotationTime: storage.Log.RotationTime,
		MaxSize:      storage.Log.MaxSize,
		MaxBackups:   storage.Log.MaxBackups,
		MaxAge:       storage.Log.MaxAge,
		Compress:     storage.Log.Compress,
	})
}
