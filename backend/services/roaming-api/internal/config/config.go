package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/libs/config"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/libs/db"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/libs/redis"
)

const (
	defaultPort       = "3004"
	defaultServerName = "Open Charging Cloud API"
)

// Config defines roaming api configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      struct {
		Secret string `yaml:"secret" env:"ROAMING_API_JWT_SECRET"`
	} `yaml:"jwt"`
	DebugLog DebugLogConfig `yaml:"debugLog"`
	Seed     struct {
		File string `yaml:"file" env:"ROAMING_API_SEED_FILE"`
	} `yaml:"seed"`
}

type HTTPConfig struct {
	Port       string `yaml:"port" env:"ROAMING_API_HTTP_PORT"`
	URLPrefix  string `yaml:"urlPrefix" env:"ROAMING_API_URL_PREFIX"`
	ServerName string `yaml:"serverName" env:"ROAMING_API_SERVER_NAME"`
	// Hostname receives seeded networks that name no host.
	Hostname string `yaml:"hostname" env:"ROAMING_API_HOSTNAME"`
}

// DatabaseConfig enables persistent charge detail records when DSN is set.
type DatabaseConfig struct {
	DSN  string        `yaml:"dsn" env:"ROAMING_API_POSTGRES_DSN"`
	Pool db.PoolConfig `yaml:"pool"`
}

// RedisConfig enables publishing debug log events when Addr is set.
type RedisConfig struct {
	redis.Options `yaml:",inline"`
	Channel       string `yaml:"channel" env:"ROAMING_API_REDIS_CHANNEL"`
}

type DebugLogConfig struct {
	Buffer       int           `yaml:"buffer" env:"ROAMING_API_DEBUGLOG_BUFFER"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"ROAMING_API_DEBUGLOG_WRITE_TIMEOUT"`
	PingInterval time.Duration `yaml:"pingInterval" env:"ROAMING_API_DEBUGLOG_PING_INTERVAL"`
}

// Load configuration from file/env.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Port:       defaultPort,
			ServerName: defaultServerName,
		},
		Redis: RedisConfig{
			Channel: "roaming:debuglog",
		},
		DebugLog: DebugLogConfig{
			Buffer:       256,
			WriteTimeout: 10 * time.Second,
			PingInterval: 30 * time.Second,
		},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the service cannot start without.
func (c *Config) Validate() error {
	prefix := strings.TrimSpace(c.HTTP.URLPrefix)
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		return errors.New("config: url prefix must start with '/'")
	}
	if c.DebugLog.Buffer < 0 {
		return errors.New("config: debug log buffer must not be negative")
	}
	return nil
}

// HTTPAddress returns :port style string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// URLPrefix returns the configured prefix without a trailing slash.
func (c *Config) URLPrefix() string {
	return strings.TrimRight(strings.TrimSpace(c.HTTP.URLPrefix), "/")
}
