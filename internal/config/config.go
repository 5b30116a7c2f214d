package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// History backends.
const (
	BackendNone   = "none"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format" validate:"omitempty,oneof=console json"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gte=0"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret" validate:"required_if=JWTRequired true"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTRequired bool   `mapstructure:"jwt_required" yaml:"jwt_required"`

	DefaultMaxParticipants int           `mapstructure:"default_max_participants" yaml:"default_max_participants" validate:"gte=1"`
	ClientBufferSize       int           `mapstructure:"client_buffer_size" yaml:"client_buffer_size" validate:"gte=1"`
	SendTimeout            time.Duration `mapstructure:"send_timeout" yaml:"send_timeout" validate:"gte=0"`
	WriteTimeout           time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	InboxSize              int           `mapstructure:"inbox_size" yaml:"inbox_size" validate:"gte=1"`

	HistoryBackend string `mapstructure:"history_backend" yaml:"history_backend" validate:"oneof=none sqlite redis"`
	DatabasePath   string `mapstructure:"database_path" yaml:"database_path" validate:"required_if=HistoryBackend sqlite"`
	RedisAddr      string `mapstructure:"redis_addr" yaml:"redis_addr" validate:"required_if=HistoryBackend redis"`
	RedisPassword  string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db" yaml:"redis_db" validate:"gte=0"`
	RedisRetention int    `mapstructure:"redis_retention" yaml:"redis_retention" validate:"gte=0"`

	IdleRoomTTL       time.Duration `mapstructure:"idle_room_ttl" yaml:"idle_room_ttl" validate:"gte=0"`
	IdleSweepInterval time.Duration `mapstructure:"idle_sweep_interval" yaml:"idle_sweep_interval" validate:"gte=0"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                   ":8080",
		ReadHeaderTimeout:      5 * time.Second,
		ShutdownTimeout:        5 * time.Second,
		LogLevel:               "info",
		LogFormat:              "console",
		MaxMessageBytes:        64 << 10,
		JWTSecret:              "change-me",
		JWTIssuer:              "wirecollab",
		JWTAudience:            "wirecollab-clients",
		JWTRequired:            false,
		DefaultMaxParticipants: 10,
		ClientBufferSize:       64,
		SendTimeout:            0,
		WriteTimeout:           5 * time.Second,
		InboxSize:              256,
		HistoryBackend:         BackendNone,
		DatabasePath:           "wirecollab.db",
		RedisAddr:              "localhost:6379",
		RedisRetention:         5000,
		IdleRoomTTL:            0,
		IdleSweepInterval:      time.Minute,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.HistoryBackend != "" {
		c.HistoryBackend = other.HistoryBackend
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
	}
	if other.DefaultMaxParticipants != 0 {
		c.DefaultMaxParticipants = other.DefaultMaxParticipants
	}
	if other.JWTRequired {
		c.JWTRequired = true
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("config: %s failed %q", fe.Field(), fe.Tag())
	}
	return fmt.Errorf("config: %w", err)
}
