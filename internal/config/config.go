package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	wbfconfig "github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Storage   Storage   `mapstructure:"storage"`
	Processor Processor `mapstructure:"processor"`
	Reaper    Reaper    `mapstructure:"reaper"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Retry     Retry     `mapstructure:"retry"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	Port            string        `mapstructure:"port"`             // port to listen on, overridden by PORT
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`     // max time to read a request
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`    // max time to write a response
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // grace period on SIGTERM
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"` // request body cap for uploads
	RateLimit       int           `mapstructure:"rate_limit"`       // requests per minute per client IP, 0 disables
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`  // CORS origins
}

// Storage holds configuration for the artifact store backend.
type Storage struct {
	Backend    string `mapstructure:"backend"`  // "file" or "minio"
	BaseDir    string `mapstructure:"base_dir"` // directory for the file backend
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	Prefix     string `mapstructure:"prefix"` // object key prefix inside the bucket
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Processor holds encoder settings.
type Processor struct {
	WebPQuality float32 `mapstructure:"webp_quality"`
	JPEGQuality int     `mapstructure:"jpeg_quality"`
}

// Reaper holds the schedule of the orphaned archive sweep.
type Reaper struct {
	Interval time.Duration `mapstructure:"interval"` // time between sweeps
	Grace    time.Duration `mapstructure:"grace"`    // max age of an undownloaded archive
}

// Kafka holds configuration for the lifecycle event topic.
type Kafka struct {
	Enabled bool     `mapstructure:"enabled"` // publish lifecycle events
	Topic   string   `mapstructure:"topic"`   // Kafka topic name
	Brokers []string `mapstructure:"brokers"` // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Addr returns the listen address for the HTTP server.
func (s Server) Addr() string {
	return ":" + s.Port
}

// defaults are applied before the configuration file is read.
var defaults = map[string]interface{}{
	"server.port":             "3000",
	"server.read_timeout":     30 * time.Second,
	"server.write_timeout":    2 * time.Minute,
	"server.shutdown_timeout": 10 * time.Second,
	"server.max_upload_bytes": 20 << 20,
	"server.rate_limit":       60,
	"server.allowed_origins":  []string{"*"},

	"storage.backend":  "file",
	"storage.base_dir": "./files",

	"processor.webp_quality": 80,
	"processor.jpeg_quality": 85,

	"reaper.interval": 10 * time.Minute,
	"reaper.grace":    15 * time.Minute,

	"kafka.enabled": false,
	"kafka.topic":   "archive-events",

	"retry.attempts": 3,
	"retry.delay":    100 * time.Millisecond,
	"retry.backoff":  2.0,
}

// Load reads the configuration file at path, if it exists, on top of the
// built-in defaults, then applies environment overrides. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	c := wbfconfig.New()
	for key, value := range defaults {
		c.SetDefault(key, value)
	}

	if _, err := os.Stat(path); err == nil {
		if err := c.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	var cfg Config
	if err := c.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyEnv()

	return &cfg, nil
}

// applyEnv overrides settings that are usually injected by the environment.
// Empty variables are ignored.
func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		"PORT":               &c.Server.Port,
		"STORAGE_ACCESS_KEY": &c.Storage.AccessKey,
		"STORAGE_SECRET_KEY": &c.Storage.SecretKey,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

// MustLoad loads .env (if present) and the configuration from the specified file path.
// It panics if the configuration cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	if err := godotenv.Load(); err != nil {
		zlog.Logger.Info().Msg("no .env file found, reading from environment")
	}

	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}
