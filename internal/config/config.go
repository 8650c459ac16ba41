// Package config は環境変数からサーバー設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config はサーバーの設定です。
type Config struct {
	Port               string        `env:"PORT" envDefault:"8080"`
	AppEnv             string        `env:"APP_ENV" envDefault:"development"`
	JWTSecret          string        `env:"JWT_SECRET"`
	BypassAuth         bool          `env:"BYPASS_AUTH" envDefault:"false"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	FrameInterval      time.Duration `env:"FRAME_INTERVAL" envDefault:"16ms"`
	GravityInterval    time.Duration `env:"GRAVITY_INTERVAL" envDefault:"500ms"`
	LegacySkew         bool          `env:"RANDOMIZER_LEGACY_SKEW" envDefault:"false"`
	InputBuffer        int           `env:"INPUT_BUFFER" envDefault:"64"`
	CatalogFile        string        `env:"CATALOG_FILE"`
	WaitingSessionTTL  time.Duration `env:"WAITING_SESSION_TTL" envDefault:"5m"`
}

// IsProduction は APP_ENV が "production" かどうかを返します。
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate は型だけでは保証できない値を検証します。
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if !c.BypassAuth && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required unless BYPASS_AUTH is set")
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL must be positive, got %s", c.FrameInterval)
	}
	if c.GravityInterval <= 0 {
		return fmt.Errorf("GRAVITY_INTERVAL must be positive, got %s", c.GravityInterval)
	}
	if c.InputBuffer <= 0 {
		return fmt.Errorf("INPUT_BUFFER must be positive, got %d", c.InputBuffer)
	}
	if c.WaitingSessionTTL <= 0 {
		return fmt.Errorf("WAITING_SESSION_TTL must be positive, got %s", c.WaitingSessionTTL)
	}
	return nil
}

// ParseEnv は環境変数を target に読み込みます。
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load は本番以外では .env を読み込み、環境変数を解析して検証します。
//
// Returns:
//
//	*Config: 検証済みの設定
//	error  : 解析または検証に失敗した場合
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("warning: Error loading .env file (this is fine in production): %v", err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
