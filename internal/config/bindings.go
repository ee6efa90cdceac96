package config

import (
	"time"

	"github.com/spf13/cast"

	"go-history-harvester/pkg/utils"
)

// binding ties one setting to its flag name. The environment variable is
// EnvPrefix + upper-cased name.
type binding struct {
	name   string
	usage  string
	isBool bool
	set    func(c *Config, v string) error
}

func str(name, usage string, field func(c *Config) *string) binding {
	return binding{name: name, usage: usage, set: func(c *Config, v string) error {
		*field(c) = v
		return nil
	}}
}

func integer(name, usage string, field func(c *Config) *int) binding {
	return binding{name: name, usage: usage, set: func(c *Config, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}}
}

func boolean(name, usage string, field func(c *Config) *bool) binding {
	return binding{name: name, usage: usage, isBool: true, set: func(c *Config, v string) error {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}}
}

func duration(name, usage string, field func(c *Config) *time.Duration) binding {
	return binding{name: name, usage: usage, set: func(c *Config, v string) error {
		d, err := parseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}}
}

func list(name, usage string, field func(c *Config) *[]string) binding {
	return binding{name: name, usage: usage, set: func(c *Config, v string) error {
		items := utils.SplitList(v)
		// "*" selects everything
		if len(items) == 1 && items[0] == "*" {
			items = nil
		}
		*field(c) = items
		return nil
	}}
}

// parseDuration accepts Go durations ("90s", "2m") and bare integers, which
// are taken as seconds.
func parseDuration(v string) (time.Duration, error) {
	if n, err := cast.ToInt64E(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return cast.ToDurationE(v)
}

var bindings = []binding{
	str("checkpoint_backend", "checkpoint backend: file or sqlite", func(c *Config) *string { return &c.CheckpointBackend }),
	str("checkpoint_file", "location of the checkpoint file (created if missing)", func(c *Config) *string { return &c.CheckpointFile }),
	str("db_path", "SQLite database for run tracking and the sqlite checkpoint backend", func(c *Config) *string { return &c.DBPath }),
	str("log_file", "log file location (appended)", func(c *Config) *string { return &c.LogFile }),
	str("log_level", "log level (DEBUG/INFO/WARN/ERROR/OFF)", func(c *Config) *string { return &c.LogLevel }),
	integer("threads", "number of sources harvested in parallel", func(c *Config) *int { return &c.Threads }),
	integer("max_documents", "stop a source after this many records (0 = unlimited)", func(c *Config) *int { return &c.MaxDocuments }),
	integer("batch_size", "documents per bulk write", func(c *Config) *int { return &c.BatchSize }),
	duration("source_timeout", "per-source time limit (0 = global deadline only)", func(c *Config) *time.Duration { return &c.SourceTimeout }),
	duration("global_timeout", "time limit for the whole run", func(c *Config) *time.Duration { return &c.GlobalTimeout }),
	duration("grace", "extra wait after the global deadline before abandoning sources", func(c *Config) *time.Duration { return &c.Grace }),
	duration("initial_lookback", "history window for sources without a checkpoint", func(c *Config) *time.Duration { return &c.InitialLookback }),
	boolean("read_only", "query sources but do not write to the sink", func(c *Config) *bool { return &c.ReadOnly }),
	boolean("dry_run", "do not query sources (implies -read_only)", func(c *Config) *bool { return &c.DryRun }),
	str("index_template", "destination index name; %{layout} is replaced by the job's queue date", func(c *Config) *string { return &c.IndexTemplate }),
	str("mappings_dir", "directory receiving the last index mappings", func(c *Config) *string { return &c.MappingsDir }),
	list("email_alerts", "comma separated alert recipients", func(c *Config) *[]string { return &c.EmailAlerts }),
	str("smtp_addr", "SMTP server host:port", func(c *Config) *string { return &c.SMTP.Addr }),
	str("smtp_from", "alert sender address", func(c *Config) *string { return &c.SMTP.From }),
	str("source_type", "source connector: file or http", func(c *Config) *string { return &c.Source.Type }),
	str("source_dir", "directory of <source>.jsonl history files", func(c *Config) *string { return &c.Source.Dir }),
	str("source_url", "base URL of the history service", func(c *Config) *string { return &c.Source.URL }),
	list("sources", "comma separated source names to process (* = all)", func(c *Config) *[]string { return &c.Source.Names }),
	boolean("source_shuffle", "shuffle the source order", func(c *Config) *bool { return &c.Source.Shuffle }),
	{name: "source_rate_limit", usage: "requests per second against the history service", set: func(c *Config, v string) error {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return err
		}
		c.Source.RateLimit = f
		return nil
	}},
	str("sink_type", "document sink: elastic, sql, minio, file or none", func(c *Config) *string { return &c.Sink.Type }),
	str("es_host", "Elasticsearch host:port", func(c *Config) *string { return &c.Sink.Elastic.Host }),
	str("es_username", "Elasticsearch user", func(c *Config) *string { return &c.Sink.Elastic.Username }),
	str("es_password", "Elasticsearch password", func(c *Config) *string { return &c.Sink.Elastic.Password }),
	str("es_password_file", "file holding the Elasticsearch password", func(c *Config) *string { return &c.Sink.Elastic.PasswordFile }),
	boolean("es_use_https", "connect to Elasticsearch over HTTPS", func(c *Config) *bool { return &c.Sink.Elastic.UseHTTPS }),
	duration("es_timeout", "Elasticsearch request timeout", func(c *Config) *time.Duration { return &c.Sink.Elastic.Timeout }),
	str("sql_dialect", "SQL sink dialect: sqlite3 or postgres", func(c *Config) *string { return &c.Sink.SQL.Dialect }),
	str("sql_dsn", "SQL sink data source name", func(c *Config) *string { return &c.Sink.SQL.DSN }),
	str("minio_endpoint", "MinIO/S3 endpoint", func(c *Config) *string { return &c.Sink.MinIO.Endpoint }),
	str("minio_bucket", "MinIO/S3 bucket", func(c *Config) *string { return &c.Sink.MinIO.Bucket }),
	str("minio_prefix", "object key prefix", func(c *Config) *string { return &c.Sink.MinIO.Prefix }),
	str("minio_access_key_id", "MinIO/S3 access key", func(c *Config) *string { return &c.Sink.MinIO.AccessKeyID }),
	str("minio_secret_access_key", "MinIO/S3 secret key", func(c *Config) *string { return &c.Sink.MinIO.SecretAccessKey }),
	str("export_dir", "directory of the file sink's <index>.jsonl exports", func(c *Config) *string { return &c.Sink.File.Dir }),
	str("api_listen", "status API listen address", func(c *Config) *string { return &c.API.Listen }),
}
