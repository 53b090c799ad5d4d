package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig описывает необязательный TOML файл (SKLAD_CONFIG)
type fileConfig struct {
	Port                  string `toml:"port"`
	Environment           string `toml:"environment"`
	DatabaseURL           string `toml:"database_url"`
	RedisURL              string `toml:"redis_url"`
	KafkaBrokers          string `toml:"kafka_brokers"`
	KafkaMovementsTopic   string `toml:"kafka_movements_topic"`
	TokenTTL              string `toml:"token_ttl"`
	AutoMigrate           bool   `toml:"auto_migrate"`
	PageSize              int    `toml:"page_size"`
	LowStockCheckInterval string `toml:"low_stock_check_interval"`
	LoginMaxAttempts      int    `toml:"login_max_attempts"`
	LoginWindow           string `toml:"login_window"`
}

// applyFile переопределяет только те ключи, что есть в файле
func applyFile(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load sklad config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.ServerPort = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("environment") {
		cfg.Environment = strings.TrimSpace(raw.Environment)
	}
	if meta.IsDefined("database_url") {
		cfg.DatabaseURL = strings.TrimSpace(raw.DatabaseURL)
	}
	if meta.IsDefined("redis_url") {
		cfg.RedisURL = strings.TrimSpace(raw.RedisURL)
	}
	if meta.IsDefined("kafka_brokers") {
		cfg.KafkaBrokers = strings.TrimSpace(raw.KafkaBrokers)
	}
	if meta.IsDefined("kafka_movements_topic") {
		cfg.KafkaMovementsTopic = strings.TrimSpace(raw.KafkaMovementsTopic)
	}
	if meta.IsDefined("token_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.TokenTTL))
		if err != nil {
			return fmt.Errorf("parse token_ttl: %w", err)
		}
		cfg.TokenTTL = d
	}
	if meta.IsDefined("auto_migrate") {
		cfg.AutoMigrate = raw.AutoMigrate
	}
	if meta.IsDefined("page_size") {
		if raw.PageSize <= 0 {
			return fmt.Errorf("page_size must be positive, got %d", raw.PageSize)
		}
		cfg.PageSize = raw.PageSize
	}
	if meta.IsDefined("low_stock_check_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.LowStockCheckInterval))
		if err != nil {
			return fmt.Errorf("parse low_stock_check_interval: %w", err)
		}
		cfg.LowStockCheckInterval = d
	}
	if meta.IsDefined("login_max_attempts") {
		cfg.LoginMaxAttempts = raw.LoginMaxAttempts
	}
	if meta.IsDefined("login_window") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.LoginWindow))
		if err != nil {
			return fmt.Errorf("parse login_window: %w", err)
		}
		cfg.LoginWindow = d
	}
	return nil
}
