package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
	} `yaml:"redis"`
	JWT struct {
		Secret           string `yaml:"secret" env:"JWT_SECRET"`
		ExpiresInMinutes int    `yaml:"expiresInMinutes" env:"JWT_EXPIRES_MINUTES"`
	} `yaml:"jwt"`
	Session struct {
		TTLDays int `yaml:"ttlDays" env:"SESSION_TTL_DAYS"`
	} `yaml:"session"`
	SensorCloud struct {
		APIKey         string `yaml:"apiKey" env:"SENSOR_API_KEY"`
		OrganizationID string `yaml:"organizationId" env:"SENSOR_ORGANIZATION_ID"`
		Serials        string `yaml:"serials" env:"SENSOR_SERIALS"`
		SyncIntervalMS int    `yaml:"syncIntervalMs" env:"SENSOR_SYNC_INTERVAL"`
		BaseURL        string `yaml:"baseUrl" env:"SENSOR_API_BASE_URL"`
		AutoStart      bool   `yaml:"autoStart" env:"SENSOR_SYNC_AUTOSTART"`
	} `yaml:"sensorCloud"`
}

// Load reads configuration from YAML file and environment.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.JWT.ExpiresInMinutes = 60
	cfg.Session.TTLDays = 7
	cfg.SensorCloud.SyncIntervalMS = 120000
	cfg.SensorCloud.BaseURL = "https://api.meraki.com/api/v1"

	if err := loadInto(cfg); err != nil {
		return nil, err
	}

	if cfg.Database.DSN == "" {
		return nil, errors.New("config: database DSN is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("config: jwt secret is required")
	}
	if cfg.JWT.ExpiresInMinutes <= 0 {
		cfg.JWT.ExpiresInMinutes = 60
	}
	if cfg.Session.TTLDays <= 0 {
		cfg.Session.TTLDays = 7
	}
	if cfg.SensorCloud.SyncIntervalMS <= 0 {
		cfg.SensorCloud.SyncIntervalMS = 120000
	}

	return cfg, nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// JWTExpiration converts configured expiry to duration.
func (c *Config) JWTExpiration() time.Duration {
	if c.JWT.ExpiresInMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWT.ExpiresInMinutes) * time.Minute
}

// SessionTTL returns the refresh-session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLDays) * 24 * time.Hour
}

// SyncInterval returns the sensor sync period.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SensorCloud.SyncIntervalMS) * time.Millisecond
}

// SensorSerials splits the configured comma-separated serial list.
func (c *Config) SensorSerials() []string {
	raw := strings.Split(c.SensorCloud.Serials, ",")
	serials := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			serials = append(serials, s)
		}
	}
	return serials
}
