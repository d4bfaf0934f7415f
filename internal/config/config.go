package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"sentiboard/internal/classifier"
	"sentiboard/internal/models"
)

// EnvPrefix is prepended to every environment override, e.g.
// SENTIBOARD_BACKEND_URL.
const EnvPrefix = "SENTIBOARD"

type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Fetch     FetchConfig     `yaml:"fetch"`
	CSV       CSVConfig       `yaml:"csv"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Log       LogConfig       `yaml:"log"`
}

// BackendConfig locates the crawl/analysis service and the host serving
// the CSV exports it writes.
type BackendConfig struct {
	URL        string        `yaml:"url" envconfig:"URL"`
	DataBase   string        `yaml:"data_base" envconfig:"DATA_BASE"`
	TrimPrefix string        `yaml:"trim_prefix" envconfig:"TRIM_PREFIX"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	QPS        float64       `yaml:"qps" envconfig:"QPS"`
	Burst      int           `yaml:"burst" envconfig:"BURST"`
	Retries    int           `yaml:"retries" envconfig:"RETRIES"`
	Backoff    time.Duration `yaml:"backoff" envconfig:"BACKOFF"`
}

type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	DialTimeout time.Duration `yaml:"dial_timeout" envconfig:"DIAL_TIMEOUT"`
	SizeCap     int64         `yaml:"size_cap" envconfig:"SIZE_CAP"`
}

type CSVConfig struct {
	// Encoding forces a charset label such as "euc-kr"; empty detects.
	Encoding      string `yaml:"encoding" envconfig:"ENCODING"`
	StripMarkup   bool   `yaml:"strip_markup" envconfig:"STRIP_MARKUP"`
	UnknownPolicy string `yaml:"unknown_policy" envconfig:"UNKNOWN_POLICY"`
}

type DashboardConfig struct {
	PageSize      int    `yaml:"page_size" envconfig:"PAGE_SIZE"`
	TopK          int    `yaml:"top_k" envconfig:"TOP_K"`
	PerOccurrence int    `yaml:"per_occurrence" envconfig:"PER_OCCURRENCE"`
	MaxWeight     int    `yaml:"max_weight" envconfig:"MAX_WEIGHT"`
	CloudLabel    string `yaml:"cloud_label" envconfig:"CLOUD_LABEL"`
	CloudWidth    int    `yaml:"cloud_width" envconfig:"CLOUD_WIDTH"`
	CloudHeight   int    `yaml:"cloud_height" envconfig:"CLOUD_HEIGHT"`
}

type LogConfig struct {
	Level string `yaml:"level" envconfig:"LEVEL"`
	File  string `yaml:"file" envconfig:"FILE"`
}

func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:        "http://127.0.0.1:8000",
			TrimPrefix: "./front/public/",
			Timeout:    10 * time.Minute,
			QPS:        1,
			Burst:      1,
			Retries:    3,
			Backoff:    2 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:     30 * time.Second,
			DialTimeout: 5 * time.Second,
			SizeCap:     32 << 20,
		},
		CSV: CSVConfig{
			StripMarkup:   true,
			UnknownPolicy: string(classifier.DropUnknown),
		},
		Dashboard: DashboardConfig{
			PageSize:      7,
			TopK:          5,
			PerOccurrence: 10,
			MaxWeight:     100,
			CloudLabel:    "positive",
			CloudWidth:    600,
			CloudHeight:   400,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load layers, lowest first: defaults, the YAML file at path (skipped when
// path is empty), variables from envFiles (".env" when none are given;
// missing files are ignored), then SENTIBOARD_* environment variables.
// Variables already present in the environment win over .env entries.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Backend.Retries < 0 {
		errs = append(errs, fmt.Errorf("backend.retries must be >= 0"))
	}
	if c.Backend.QPS < 0 {
		errs = append(errs, fmt.Errorf("backend.qps must be >= 0"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive"))
	}
	if c.Fetch.SizeCap < 0 {
		errs = append(errs, fmt.Errorf("fetch.size_cap must be >= 0"))
	}
	if _, err := classifier.ParseUnknownPolicy(c.CSV.UnknownPolicy); err != nil {
		errs = append(errs, fmt.Errorf("csv.unknown_policy: %w", err))
	}
	if c.Dashboard.PageSize < 1 {
		errs = append(errs, fmt.Errorf("dashboard.page_size must be >= 1"))
	}
	if c.Dashboard.TopK < 1 {
		errs = append(errs, fmt.Errorf("dashboard.top_k must be >= 1"))
	}
	if c.Dashboard.PerOccurrence < 1 || c.Dashboard.MaxWeight < 1 {
		errs = append(errs, fmt.Errorf("dashboard weights must be >= 1"))
	}
	if _, err := c.CloudLabel(); err != nil {
		errs = append(errs, fmt.Errorf("dashboard.cloud_label: %w", err))
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		errs = append(errs, fmt.Errorf("log.level is empty"))
	}
	return errors.Join(errs...)
}

// UnknownPolicy returns the parsed csv.unknown_policy.
func (c *Config) UnknownPolicy() classifier.UnknownPolicy {
	p, _ := classifier.ParseUnknownPolicy(c.CSV.UnknownPolicy)
	return p
}

// CloudLabel returns the bucket shown in the word cloud first.
func (c *Config) CloudLabel() (models.Sentiment, error) {
	return models.ParseSentiment(c.Dashboard.CloudLabel)
}
