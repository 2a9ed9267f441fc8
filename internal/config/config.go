package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBConnectAttempts int           `mapstructure:"DB_CONNECT_ATTEMPTS"`
	GeminiAPIKey      string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel       string        `mapstructure:"GEMINI_MODEL"`
	AITimeout         time.Duration `mapstructure:"AI_TIMEOUT"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	TelegramBotToken  string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	DoctorChatID      int64         `mapstructure:"DOCTOR_CHAT_ID"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	MaxUploadMB       int64         `mapstructure:"MAX_UPLOAD_MB"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_CONNECT_ATTEMPTS", "GEMINI_API_KEY",
	"GEMINI_MODEL", "AI_TIMEOUT", "JWT_SECRET", "REDIS_URL",
	"TELEGRAM_BOT_TOKEN", "DOCTOR_CHAT_ID", "CORS_ORIGINS", "MAX_UPLOAD_MB",
}

// Load reads the environment and an optional .env in the working directory.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_CONNECT_ATTEMPTS", 10)
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("AI_TIMEOUT", "30s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("MAX_UPLOAD_MB", 20)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// the file is optional, but a broken one is an error
	if err := v.ReadInConfig(); err != nil && !missingFile(err) {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitOrigins(v.GetString("CORS_ORIGINS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if !cfg.IsDev() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when ENV=%s", cfg.Env)
	}
	if cfg.AITimeout <= 0 {
		return nil, fmt.Errorf("AI_TIMEOUT must be positive")
	}
	return cfg, nil
}

func missingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// AIEnabled reports whether an LLM key is configured. Without one every AI
// endpoint answers from its fallback payload.
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

// splitOrigins trims entries, drops quotes, brackets and trailing slashes,
// and removes duplicates.
func splitOrigins(raw string) []string {
	seen := map[string]bool{}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		o := strings.Trim(strings.TrimSpace(item), "[]\"' ")
		o = strings.TrimRight(o, "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}
