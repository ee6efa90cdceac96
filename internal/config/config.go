// Package config loads the harvester run configuration.
//
// Values are layered: Default() < YAML file < HARVEST_* environment <
// command-line flags.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go-history-harvester/internal/alert"
	"go-history-harvester/internal/model"
	"go-history-harvester/internal/sink"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HARVEST_"

// Config holds all configuration for one harvester process.
type Config struct {
	CheckpointBackend string `yaml:"checkpoint_backend"` // "file", "sqlite"
	CheckpointFile    string `yaml:"checkpoint_file"`
	DBPath            string `yaml:"db_path"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	Threads         int           `yaml:"threads"`
	MaxDocuments    int           `yaml:"max_documents"` // per source, 0 = unlimited
	BatchSize       int           `yaml:"batch_size"`
	SourceTimeout   time.Duration `yaml:"source_timeout"` // 0 = global deadline only
	GlobalTimeout   time.Duration `yaml:"global_timeout"`
	Grace           time.Duration `yaml:"grace"`
	InitialLookback time.Duration `yaml:"initial_lookback"`

	ReadOnly bool `yaml:"read_only"`
	DryRun   bool `yaml:"dry_run"`

	IndexTemplate string `yaml:"index_template"`
	MappingsDir   string `yaml:"mappings_dir"`

	EmailAlerts []string         `yaml:"email_alerts"`
	SMTP        alert.SMTPConfig `yaml:"smtp"`

	Source SourceConfig `yaml:"source"`
	Sink   SinkConfig   `yaml:"sink"`
	API    APIConfig    `yaml:"api"`
}

// SourceConfig selects and configures the source connector.
type SourceConfig struct {
	Type      string   `yaml:"type"` // "file", "http"
	Dir       string   `yaml:"dir"`
	URL       string   `yaml:"url"`
	Names     []string `yaml:"names"` // empty = all sources
	Shuffle   bool     `yaml:"shuffle"`
	RateLimit float64  `yaml:"rate_limit"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
}

// SinkConfig selects and configures the document sink.
type SinkConfig struct {
	Type    string            `yaml:"type"` // "elastic", "sql", "minio", "file", "none"
	Elastic ElasticConfig     `yaml:"elastic"`
	SQL     SQLConfig         `yaml:"sql"`
	MinIO   sink.MinIOConfig  `yaml:"minio"`
	File    FileConfig        `yaml:"file"`
	Retry   model.RetryConfig `yaml:"retry"`
}

type ElasticConfig struct {
	Host         string        `yaml:"host"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	PasswordFile string        `yaml:"password_file"`
	UseHTTPS     bool          `yaml:"use_https"`
	Timeout      time.Duration `yaml:"timeout"`
}

type SQLConfig struct {
	Dialect string `yaml:"dialect"` // "sqlite3", "postgres"
	DSN     string `yaml:"dsn"`
}

// FileConfig configures the JSON lines export sink.
type FileConfig struct {
	Dir string `yaml:"dir"`
}

type APIConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CheckpointBackend: "file",
		CheckpointFile:    "harvest_checkpoint.json",
		DBPath:            "harvester.db",
		LogLevel:          "WARN",
		Threads:           1,
		MaxDocuments:      10000,
		BatchSize:         250,
		SourceTimeout:     2 * time.Minute,
		GlobalTimeout:     11 * time.Minute,
		Grace:             10 * time.Second,
		InitialLookback:   12 * time.Hour,
		IndexTemplate:     "htcondor-%{2006-01}",
		MappingsDir:       ".",
		Source: SourceConfig{
			Type:      "file",
			Dir:       "history",
			RateLimit: 10,
		},
		Sink: SinkConfig{
			Type: "elastic",
			Elastic: ElasticConfig{
				Host:    "localhost:9200",
				Timeout: 2 * time.Minute,
			},
			SQL:   SQLConfig{Dialect: sink.DialectSQLite, DSN: "documents.db"},
			File:  FileConfig{Dir: "export"},
			Retry: model.DefaultRetryConfig,
		},
		API: APIConfig{Listen: ":8080"},
	}
}

// Load builds the configuration from args (without the program name) and
// the environment. The YAML file is named by -config or HARVEST_CONFIG.
func Load(args []string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	fs := flag.NewFlagSet("harvester", flag.ContinueOnError)
	path := fs.String("config", getenv(EnvPrefix+"CONFIG"), "path to YAML configuration file")
	pending := make(map[string]string)
	for _, b := range bindings {
		b := b
		record := func(v string) error {
			pending[b.name] = v
			return nil
		}
		if b.isBool {
			fs.BoolFunc(b.name, b.usage, record)
		} else {
			fs.Func(b.name, b.usage, record)
		}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *path != "" {
		if err := cfg.LoadFile(*path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	for _, b := range bindings {
		if v, ok := pending[b.name]; ok {
			if err := b.set(cfg, v); err != nil {
				return nil, fmt.Errorf("flag -%s: %w", b.name, err)
			}
		}
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	for _, b := range bindings {
		key := EnvPrefix + strings.ToUpper(b.name)
		v := getenv(key)
		if v == "" {
			continue
		}
		if err := b.set(c, v); err != nil {
			return fmt.Errorf("environment %s: %w", key, err)
		}
	}
	return nil
}

// resolveSecrets reads the Elasticsearch password from its file; only the
// first line is used.
func (c *Config) resolveSecrets() error {
	if c.Sink.Elastic.PasswordFile == "" || c.Sink.Elastic.Password != "" {
		return nil
	}
	f, err := os.Open(c.Sink.Elastic.PasswordFile)
	if err != nil {
		return fmt.Errorf("reading password file: %w", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if sc.Scan() {
		c.Sink.Elastic.Password = strings.TrimSpace(sc.Text())
	}
	return sc.Err()
}

// Validate fills derived settings and rejects inconsistent ones.
func (c *Config) Validate() error {
	// dry_run implies read_only
	c.ReadOnly = c.ReadOnly || c.DryRun

	if c.Threads <= 0 {
		return fmt.Errorf("threads must be positive (got %d)", c.Threads)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive (got %d)", c.BatchSize)
	}
	if c.MaxDocuments < 0 {
		return fmt.Errorf("max_documents must not be negative")
	}
	if c.GlobalTimeout <= 0 {
		return fmt.Errorf("global_timeout must be positive")
	}
	if c.Grace < 0 || c.SourceTimeout < 0 {
		return fmt.Errorf("grace and source_timeout must not be negative")
	}
	if c.InitialLookback <= 0 {
		c.InitialLookback = 12 * time.Hour
	}
	if c.IndexTemplate == "" {
		return fmt.Errorf("index_template is required")
	}

	switch c.CheckpointBackend {
	case "file":
		if c.CheckpointFile == "" {
			return fmt.Errorf("checkpoint_file is required for the file backend")
		}
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("db_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown checkpoint_backend %q", c.CheckpointBackend)
	}

	switch c.Source.Type {
	case "file":
		if c.Source.Dir == "" {
			return fmt.Errorf("source.dir is required for file sources")
		}
	case "http":
		if c.Source.URL == "" {
			return fmt.Errorf("source.url is required for http sources")
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Source.Type)
	}

	switch c.Sink.Type {
	case "elastic":
		if c.Sink.Elastic.Host == "" {
			return fmt.Errorf("sink.elastic.host is required")
		}
		if (c.Sink.Elastic.Username == "") != (c.Sink.Elastic.Password == "") {
			return fmt.Errorf("sink.elastic username and password must be set together")
		}
	case "sql":
		if c.Sink.SQL.Dialect != sink.DialectSQLite && c.Sink.SQL.Dialect != sink.DialectPostgres {
			return fmt.Errorf("unknown sink.sql.dialect %q", c.Sink.SQL.Dialect)
		}
		if c.Sink.SQL.DSN == "" {
			return fmt.Errorf("sink.sql.dsn is required")
		}
	case "minio":
		if c.Sink.MinIO.Endpoint == "" || c.Sink.MinIO.Bucket == "" {
			return fmt.Errorf("sink.minio endpoint and bucket are required")
		}
	case "file":
		if c.Sink.File.Dir == "" {
			return fmt.Errorf("sink.file.dir is required")
		}
	case "none":
	default:
		return fmt.Errorf("unknown sink type %q", c.Sink.Type)
	}

	if len(c.EmailAlerts) > 0 && c.SMTP.Addr == "" {
		return fmt.Errorf("smtp.addr is required when email_alerts is set")
	}
	return nil
}

// ElasticURL returns the base URL of the Elasticsearch endpoint.
func (c *Config) ElasticURL() string {
	host := c.Sink.Elastic.Host
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	if c.Sink.Elastic.UseHTTPS {
		return "https://" + host
	}
	return "http://" + host
}
