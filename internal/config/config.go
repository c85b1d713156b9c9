// Package config provides configuration management for the ReelForge Agent.
// Configuration is loaded from an optional YAML file and environment
// variables, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort     = 8585
	DefaultLogLevel = "info"
	DefaultDataDir  = ".reelforge"

	// Environment variable names
	EnvPort       = "REELFORGE_PORT"
	EnvLogLevel   = "REELFORGE_LOG_LEVEL"
	EnvDataDir    = "REELFORGE_DATA_DIR"
	EnvConfigFile = "REELFORGE_CONFIG_FILE"

	// Remote service environment variable names
	EnvServiceURL   = "REELFORGE_SERVICE_URL"
	EnvServiceToken = "REELFORGE_SERVICE_TOKEN"

	// Artifact archive environment variable names
	EnvArtifactBackend = "REELFORGE_ARTIFACT_BACKEND"
	EnvMinIOEndpoint   = "REELFORGE_MINIO_ENDPOINT"
	EnvMinIOAccessKey  = "REELFORGE_MINIO_ACCESS_KEY"
	EnvMinIOSecretKey  = "REELFORGE_MINIO_SECRET_KEY"
	EnvMinIOBucket     = "REELFORGE_MINIO_BUCKET"
	EnvMinIOUseSSL     = "REELFORGE_MINIO_USE_SSL"

	// Database filename
	DBFilename = "reelforge.db"

	// Polling defaults. Generation status is checked every 2 seconds until
	// terminal; training status every 10 seconds for at most 30 attempts.
	DefaultJobPollInterval      = 2 * time.Second
	DefaultTrainingPollInterval = 10 * time.Second
	DefaultTrainingMaxAttempts  = 30

	DefaultMinIOBucket = "reelforge-artifacts"

	// DefaultServiceURL points at a generation service running locally.
	DefaultServiceURL = "http://127.0.0.1:5000"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ArtifactsDir() string
	ServiceBaseURL() string
	ServiceToken() string
	JobPollInterval() time.Duration
	TrainingPollInterval() time.Duration
	TrainingMaxAttempts() int
	ArtifactBackend() string
	MinIOEndpoint() string
	MinIOAccessKey() string
	MinIOSecretKey() string
	MinIOBucket() string
	MinIOUseSSL() bool
	Headless() bool
}

// fileConfig mirrors the optional YAML config file layout.
type fileConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
	Service  struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"service"`
	Artifacts struct {
		Backend   string `yaml:"backend"`
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"artifacts"`
	Headless bool `yaml:"headless"`
}

// EnvConfig reads configuration from an optional YAML file plus environment
// variable overrides.
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string

	serviceBaseURL string
	serviceToken   string

	artifactBackend string
	minioEndpoint   string
	minioAccessKey  string
	minioSecretKey  string
	minioBucket     string
	minioUseSSL     bool

	headless bool
}

// New creates a new EnvConfig with defaults, YAML file values, and
// environment variable overrides applied in that order.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		minioBucket:    DefaultMinIOBucket,
		serviceBaseURL: DefaultServiceURL,
	}

	if err := cfg.applyFile(); err != nil {
		return nil, err
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	if u := os.Getenv(EnvServiceURL); u != "" {
		cfg.serviceBaseURL = u
	}
	if t := os.Getenv(EnvServiceToken); t != "" {
		cfg.serviceToken = t
	}
	if b := os.Getenv(EnvArtifactBackend); b != "" {
		cfg.artifactBackend = b
	}
	if e := os.Getenv(EnvMinIOEndpoint); e != "" {
		cfg.minioEndpoint = e
	}
	if k := os.Getenv(EnvMinIOAccessKey); k != "" {
		cfg.minioAccessKey = k
	}
	if s := os.Getenv(EnvMinIOSecretKey); s != "" {
		cfg.minioSecretKey = s
	}
	if b := os.Getenv(EnvMinIOBucket); b != "" {
		cfg.minioBucket = b
	}
	if ssl := os.Getenv(EnvMinIOUseSSL); ssl != "" {
		cfg.minioUseSSL = ssl == "1" || ssl == "true"
	}
	if h := os.Getenv("REELFORGE_HEADLESS"); h != "" {
		cfg.headless = h == "1" || h == "true"
	}

	return cfg, nil
}

// applyFile overlays values from the YAML config file when one exists.
// The file path comes from REELFORGE_CONFIG_FILE, falling back to
// <data_dir>/config.yaml.
func (c *EnvConfig) applyFile() error {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = filepath.Join(c.dataDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		if fc.Port < 1 || fc.Port > 65535 {
			return fmt.Errorf("config file: port must be between 1 and 65535")
		}
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.Service.URL != "" {
		c.serviceBaseURL = fc.Service.URL
	}
	if fc.Service.Token != "" {
		c.serviceToken = fc.Service.Token
	}
	if fc.Artifacts.Backend != "" {
		c.artifactBackend = fc.Artifacts.Backend
	}
	if fc.Artifacts.Endpoint != "" {
		c.minioEndpoint = fc.Artifacts.Endpoint
	}
	if fc.Artifacts.AccessKey != "" {
		c.minioAccessKey = fc.Artifacts.AccessKey
	}
	if fc.Artifacts.SecretKey != "" {
		c.minioSecretKey = fc.Artifacts.SecretKey
	}
	if fc.Artifacts.Bucket != "" {
		c.minioBucket = fc.Artifacts.Bucket
	}
	if fc.Artifacts.UseSSL {
		c.minioUseSSL = true
	}
	if fc.Headless {
		c.headless = true
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ArtifactsDir returns the directory where downloaded artifacts are kept
func (c *EnvConfig) ArtifactsDir() string {
	return filepath.Join(c.dataDir, "artifacts")
}

// ServiceBaseURL returns the base URL of the ReelForge generation service
func (c *EnvConfig) ServiceBaseURL() string {
	return c.serviceBaseURL
}

// ServiceToken returns the bearer token for the generation service
func (c *EnvConfig) ServiceToken() string {
	return c.serviceToken
}

func (c *EnvConfig) JobPollInterval() time.Duration {
	return DefaultJobPollInterval
}

func (c *EnvConfig) TrainingPollInterval() time.Duration {
	return DefaultTrainingPollInterval
}

func (c *EnvConfig) TrainingMaxAttempts() int {
	return DefaultTrainingMaxAttempts
}

func (c *EnvConfig) ArtifactBackend() string {
	return c.artifactBackend
}

func (c *EnvConfig) MinIOEndpoint() string {
	return c.minioEndpoint
}

func (c *EnvConfig) MinIOAccessKey() string {
	return c.minioAccessKey
}

func (c *EnvConfig) MinIOSecretKey() string {
	return c.minioSecretKey
}

func (c *EnvConfig) MinIOBucket() string {
	return c.minioBucket
}

func (c *EnvConfig) MinIOUseSSL() bool {
	return c.minioUseSSL
}

// Headless reports whether the tray UI should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
