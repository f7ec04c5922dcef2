package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v2"

	"github.com/dnstrail/dnstrail/log"
)

// Config is the central configuration of the application
type Config struct {
	Upstreams    []string         `yaml:"upstreams" default:"[\"8.8.8.8:53\", \"1.1.1.1:53\"]"`
	HTTPPort     uint16           `yaml:"httpPort" default:"4000"`
	QueryTimeout Duration         `yaml:"queryTimeout" default:"3s"`
	Caching      CachingConfig    `yaml:"caching"`
	Blocking     BlockingConfig   `yaml:"blocking"`
	QueryLog     QueryLogConfig   `yaml:"queryLog"`
	Prometheus   PrometheusConfig `yaml:"prometheus"`
	LogLevel     string           `yaml:"logLevel" default:"info"`
	LogFormat    string           `yaml:"logFormat" default:"text"`
	LogTimestamp bool             `yaml:"logTimestamp" default:"true"`
}

// CachingConfig configures the TTL result cache
type CachingConfig struct {
	// DefaultTTL is used for positive entries whose answer carries no usable TTL
	DefaultTTL Duration `yaml:"defaultTTL" default:"1h"`

	// NegativeTTL is used for remembered NXDOMAIN answers, materially shorter
	// than the positive default so a domain that starts existing is rediscovered soon
	NegativeTTL Duration `yaml:"negativeTTL" default:"5m"`

	MaxItemsCount int    `yaml:"maxItemsCount" default:"10000"`
	File          string `yaml:"file" default:"./data/cache.json"`
}

// BlockingConfig configures the access gate
type BlockingConfig struct {
	// DenyFile persists runtime block/unblock mutations
	DenyFile string `yaml:"denyFile" default:"./data/denylist.txt"`

	// DenySources / AllowSources are additional read-only list sources (files or http(s) URLs)
	DenySources  []string `yaml:"denySources"`
	AllowSources []string `yaml:"allowSources"`

	RefreshPeriod    Duration `yaml:"refreshPeriod" default:"4h"`
	DownloadTimeout  Duration `yaml:"downloadTimeout" default:"60s"`
	DownloadAttempts uint     `yaml:"downloadAttempts" default:"3"`
}

const (
	QueryLogTypeNone     = "none"
	QueryLogTypeLogger   = "logger"
	QueryLogTypeDatabase = "database"
)

// QueryLogConfig configures the per-resolution query log
type QueryLogConfig struct {
	// Type is one of: none, logger, database
	Type string `yaml:"type" default:"none"`

	// Target is the sqlite file for the database type
	Target           string `yaml:"target" default:"./data/querylog.db"`
	LogRetentionDays uint64 `yaml:"logRetentionDays" default:"7"`
}

// PrometheusConfig configures the optional metrics endpoint
type PrometheusConfig struct {
	Enable bool   `yaml:"enable" default:"false"`
	Path   string `yaml:"path" default:"/metrics"`
}

// NewConfig reads the config from the passed file. A missing file is not an
// error, the application starts with defaults in that case.
func NewConfig(path string) (Config, error) {
	cfg := Config{}
	if err := defaults.Set(&cfg); err != nil {
		return cfg, fmt.Errorf("can't apply default values: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Log().Infof("no config file found at '%s', using defaults", path)

			return cfg, nil
		}

		return cfg, fmt.Errorf("can't read config file '%s': %w", path, err)
	}

	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("wrong file structure: %w", err)
	}

	return cfg, nil
}
