package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr     string `mapstructure:"addr"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"server"`

	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`

	Listener struct {
		Channel          string `mapstructure:"channel"`
		ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
	} `mapstructure:"listener"`

	Translator struct {
		BaseURL         string `mapstructure:"base_url"`
		Model           string `mapstructure:"model"`
		APIKey          string `mapstructure:"api_key"`
		TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
		CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
	} `mapstructure:"translator"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
}

func Load() Config {
	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}
	validate(&cfg)
	return cfg
}

func validate(c *Config) {
	if c.Server.Addr == "" { c.Server.Addr = ":8080" }
	if c.Postgres.Port == 0 { c.Postgres.Port = 5432 }
	if c.Postgres.SSLMode == "" { c.Postgres.SSLMode = "disable" }
	if c.Postgres.MaxOpenConns == 0 { c.Postgres.MaxOpenConns = 10 }
	if c.Postgres.MaxIdleConns == 0 { c.Postgres.MaxIdleConns = 10 }
	if c.Listener.ReconnectSeconds <= 0 { c.Listener.ReconnectSeconds = 5 }
	if c.Translator.BaseURL == "" { c.Translator.BaseURL = "https://generativelanguage.googleapis.com" }
	if c.Translator.Model == "" { c.Translator.Model = "gemini-2.0-flash" }
	if c.Translator.TimeoutSeconds <= 0 { c.Translator.TimeoutSeconds = 20 }
	if c.Translator.CacheTTLSeconds <= 0 { c.Translator.CacheTTLSeconds = 600 }
	if c.Redis.Addr == "" { c.Redis.Addr = "localhost:6379" }
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

func (c Config) Backoff() time.Duration { return time.Duration(c.Listener.ReconnectSeconds) * time.Second }

func (c Config) TranslatorTimeout() time.Duration {
	return time.Duration(c.Translator.TimeoutSeconds) * time.Second
}

func (c Config) TranslationCacheTTL() time.Duration {
	return time.Duration(c.Translator.CacheTTLSeconds) * time.Second
}
