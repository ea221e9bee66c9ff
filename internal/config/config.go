// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package config loads layered configuration for all Beacon binaries using
// koanf: struct defaults, then an optional YAML file, then environment
// variables. Precedence is ENV > file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "BEACON_CONFIG"

// DefaultConfigPaths are searched in order for an optional config file.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config/config.yaml",
	"/etc/beacon/config.yaml",
}

// Config is the root configuration shared by producer, worker, and server.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Broker    BrokerConfig    `koanf:"broker"`
	Store     StoreConfig     `koanf:"store"`
	Producer  ProducerConfig  `koanf:"producer"`
	Worker    WorkerConfig    `koanf:"worker"`
	Server    ServerConfig    `koanf:"server"`
	Auth      AuthConfig      `koanf:"auth"`
	Websocket WebsocketConfig `koanf:"websocket"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// BrokerConfig holds the NATS connection settings.
type BrokerConfig struct {
	URL string `koanf:"url"`
}

// StoreConfig holds the Postgres connection settings.
type StoreConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// ProducerConfig controls the scheduling cycle.
type ProducerConfig struct {
	// TickInterval is the cadence of probe-job enumeration.
	TickInterval time.Duration `koanf:"tick_interval"`

	// RetentionDays is how long ticks are kept before the sweep prunes them.
	RetentionDays int `koanf:"retention_days"`

	// SweepEveryCycles is how many cycles pass between retention sweeps.
	SweepEveryCycles int `koanf:"sweep_every_cycles"`
}

// WorkerConfig identifies a regional worker and tunes its probe loop.
type WorkerConfig struct {
	// Region is the geographic identity of this worker. Required.
	Region string `koanf:"region"`

	// ID distinguishes workers sharing a region. Required.
	ID string `koanf:"id"`

	// HealthPort serves the local health endpoint.
	HealthPort int `koanf:"health_port"`

	// BatchSize is the maximum jobs claimed per loop iteration.
	BatchSize int `koanf:"batch_size"`

	// ProbeTimeout bounds one HTTP probe end to end.
	ProbeTimeout time.Duration `koanf:"probe_timeout"`

	// ProbeRatePerSecond caps outbound probes; 0 disables the cap.
	ProbeRatePerSecond float64 `koanf:"probe_rate_per_second"`
}

// ServerConfig tunes the API server.
type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	RateLimit      int           `koanf:"rate_limit"`
	RatePeriod     time.Duration `koanf:"rate_period"`
	CORSOrigins    []string      `koanf:"cors_origins"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	// JWTSecret signs session tokens (HS256). Required for the server.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the issued token lifetime.
	TokenTTL time.Duration `koanf:"token_ttl"`
}

// WebsocketConfig tunes the realtime gateway.
type WebsocketConfig struct {
	PingInterval time.Duration `koanf:"ping_interval"`
	PongWait     time.Duration `koanf:"pong_wait"`
	WriteWait    time.Duration `koanf:"write_wait"`
	SendBuffer   int           `koanf:"send_buffer"`
	URLCacheTTL  time.Duration `koanf:"url_cache_ttl"`
}

// defaultConfig returns built-in defaults for every setting.
func defaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Broker: BrokerConfig{
			URL: "nats://localhost:4222",
		},
		Store: StoreConfig{
			URL:             "",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Producer: ProducerConfig{
			TickInterval:     30 * time.Second,
			RetentionDays:    30,
			SweepEveryCycles: 120,
		},
		Worker: WorkerConfig{
			HealthPort:         3002,
			BatchSize:          10,
			ProbeTimeout:       10 * time.Second,
			ProbeRatePerSecond: 50,
		},
		Server: ServerConfig{
			Port:           3001,
			RequestTimeout: 30 * time.Second,
			RateLimit:      100,
			RatePeriod:     time.Minute,
			CORSOrigins:    []string{"*"},
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Websocket: WebsocketConfig{
			PingInterval: 25 * time.Second,
			PongWait:     60 * time.Second,
			WriteWait:    10 * time.Second,
			SendBuffer:   64,
			URLCacheTTL:  5 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, in ascending precedence.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := normalizeCORSOrigins(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envAliases maps flat deployment environment variables to config paths.
var envAliases = map[string]string{
	"region_name":    "worker.region",
	"worker_id":      "worker.id",
	"health_port":    "worker.health_port",
	"broker_url":     "broker.url",
	"store_url":      "store.url",
	"api_port":       "server.port",
	"jwt_secret":     "auth.jwt_secret",
	"log_level":      "log.level",
	"log_format":     "log.format",
	"tick_interval":  "producer.tick_interval",
	"retention_days": "producer.retention_days",
	"cors_origins":   "server.cors_origins",
}

// envTransformFunc maps environment variable names to koanf paths.
// Known flat names go through envAliases; BEACON_-prefixed names map
// section by section (BEACON_WORKER_BATCH_SIZE -> worker.batch_size).
func envTransformFunc(key string) string {
	lower := strings.ToLower(key)

	if path, ok := envAliases[lower]; ok {
		return path
	}

	if rest, ok := strings.CutPrefix(lower, "beacon_"); ok {
		if section, remainder, found := strings.Cut(rest, "_"); found {
			return section + "." + remainder
		}
	}

	// Unknown variables are dropped rather than polluting the tree.
	return ""
}

// normalizeCORSOrigins converts a comma-separated env value to a slice.
func normalizeCORSOrigins(k *koanf.Koanf) error {
	const path = "server.cors_origins"
	val := k.Get(path)
	strVal, ok := val.(string)
	if !ok || strVal == "" {
		return nil
	}
	parts := strings.Split(strVal, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	if err := k.Set(path, origins); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// ValidateWorker checks the settings the worker binary cannot run without.
func (c *Config) ValidateWorker() error {
	if c.Worker.Region == "" {
		return fmt.Errorf("worker region is required (set REGION_NAME)")
	}
	if c.Worker.ID == "" {
		return fmt.Errorf("worker id is required (set WORKER_ID)")
	}
	if c.Store.URL == "" {
		return fmt.Errorf("store URL is required (set STORE_URL)")
	}
	return nil
}

// ValidateProducer checks the settings the producer binary cannot run without.
func (c *Config) ValidateProducer() error {
	if c.Store.URL == "" {
		return fmt.Errorf("store URL is required (set STORE_URL)")
	}
	if c.Producer.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.Producer.TickInterval)
	}
	return nil
}

// ValidateServer checks the settings the API server cannot run without.
func (c *Config) ValidateServer() error {
	if c.Store.URL == "" {
		return fmt.Errorf("store URL is required (set STORE_URL)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (set JWT_SECRET)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
