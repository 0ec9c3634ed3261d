package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "WELLNESS"

	DefaultModel            = "gemini-2.5-flash"
	DefaultBaseURL          = "https://generativelanguage.googleapis.com"
	DefaultHost             = "127.0.0.1"
	DefaultPort             = 8011
	DefaultCalorieGoal      = 2000
	DefaultWaterGoalMl      = 2500
	DefaultChatHistoryLimit = 40
)

// Config is read from WELLNESS_* environment variables, e.g. WELLNESS_HTTP_PORT.
type Config struct {
	HTTPHost string `envconfig:"HTTP_HOST" default:"127.0.0.1"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8011"`
	DBPath   string `envconfig:"DB_PATH"`

	GeminiAPIKey   string        `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL  string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	Model          string        `envconfig:"MODEL" default:"gemini-2.5-flash"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	DailyCalorieGoal float64 `envconfig:"DAILY_CALORIE_GOAL" default:"2000"`
	DailyWaterGoalMl int     `envconfig:"DAILY_WATER_GOAL_ML" default:"2500"`
	ChatHistoryLimit int     `envconfig:"CHAT_HISTORY_LIMIT" default:"40"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return New()
}

func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	// Unprefixed keys the browser build used.
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("API_KEY")
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveDefaults fills derived values and rejects unusable ones.
func (c *Config) ResolveDefaults() error {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(DataDir(), "wellness.db")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.DailyCalorieGoal <= 0 {
		return fmt.Errorf("invalid DAILY_CALORIE_GOAL: %v", c.DailyCalorieGoal)
	}
	if c.DailyWaterGoalMl <= 0 {
		return fmt.Errorf("invalid DAILY_WATER_GOAL_ML: %d", c.DailyWaterGoalMl)
	}
	if c.ChatHistoryLimit < 0 {
		c.ChatHistoryLimit = 0
	}
	return nil
}

// NewForTesting returns a config with defaults and no API key.
func NewForTesting() *Config {
	return &Config{
		HTTPHost:         DefaultHost,
		HTTPPort:         DefaultPort,
		DBPath:           ":memory:",
		GeminiBaseURL:    DefaultBaseURL,
		Model:            DefaultModel,
		RequestTimeout:   5 * time.Second,
		DailyCalorieGoal: DefaultCalorieGoal,
		DailyWaterGoalMl: DefaultWaterGoalMl,
		ChatHistoryLimit: DefaultChatHistoryLimit,
		LogLevel:         "debug",
	}
}

func DataDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".wellness")
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}
