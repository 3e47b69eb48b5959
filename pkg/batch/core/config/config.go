package config

import (
	"runtime"
)

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
// This is used when loading configuration from an embedded source (e.g., a compiled binary).
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelTrace LogLevel = "TRACE"
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
	// LogLevelSilent disables output; only meaningful for the gorm logger.
	LogLevelSilent LogLevel = "SILENT"
)

// Dedup policies for dimension tables.
const (
	// DedupFullTuple keeps one row per distinct combination of all output columns.
	DedupFullTuple = "full_tuple"
	// DedupNaturalKey keeps one row per natural key; the last record in input order wins.
	DedupNaturalKey = "natural_key"
)

// Join policies for the songplay fact.
const (
	// JoinFanout emits one songplay row per matching song.
	JoinFanout = "fanout"
	// JoinLowestSongID reduces candidate songs to the lowest song_id before joining.
	JoinLowestSongID = "lowest_song_id"
)

// BatchConfig holds configuration specific to the batch processing engine.
type BatchConfig struct {
	// JobName is the name of the job to launch.
	JobName string `yaml:"job_name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG", "TRACE").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the IANA zone used to interpret event timestamps (e.g., "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// AdapterConfig holds the raw, named connection blocks of every adapter kind.
// Each block is decoded by its provider with mapstructure.
type AdapterConfig struct {
	// Storage maps a connection name (e.g., "input", "output") to its raw storage settings.
	Storage map[string]interface{} `yaml:"storage"`
}

// SurfinConfig holds all configuration under the "surfin" top-level key.
type SurfinConfig struct {
	Batch   BatchConfig   `yaml:"batch"`
	System  SystemConfig  `yaml:"system"`
	Adapter AdapterConfig `yaml:"adapter"`
}

// DedupConfig selects how dimension rows are deduplicated.
type DedupConfig struct {
	Policy string `yaml:"policy"` // "full_tuple" or "natural_key".
}

// JoinConfig selects how an event matching several songs is handled.
type JoinConfig struct {
	Policy string `yaml:"policy"` // "fanout" or "lowest_song_id".
}

// EngineConfig tunes the in-process dataset engine.
type EngineConfig struct {
	// Parallelism bounds the per-partition worker pool. Zero means runtime.NumCPU().
	Parallelism int `yaml:"parallelism"`
}

// DatalakeConfig holds the settings of the song-play ETL job.
type DatalakeConfig struct {
	InputRef    string       `yaml:"input_ref"`   // Storage connection holding the raw JSON.
	OutputRef   string       `yaml:"output_ref"`  // Storage connection receiving the Parquet tables.
	InputRoot   string       `yaml:"input_root"`  // Object prefix of the raw data inside InputRef.
	OutputRoot  string       `yaml:"output_root"` // Object prefix of the tables inside OutputRef.
	SongGlob    string       `yaml:"song_glob"`   // Glob, relative to InputRoot, of song metadata files.
	LogGlob     string       `yaml:"log_glob"`    // Glob, relative to InputRoot, of play event files.
	Compression string       `yaml:"compression"` // Parquet codec: "snappy", "gzip" or "uncompressed".
	Dedup       DedupConfig  `yaml:"dedup"`
	Join        JoinConfig   `yaml:"join"`
	Engine      EngineConfig `yaml:"engine"`
}

// MetricsConfig configures the Prometheus recorder.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// PushGatewayURL, when set, receives the collected metrics once the job finishes.
	PushGatewayURL string `yaml:"push_gateway_url"`
	// JobLabel is the "job" grouping label used on push.
	JobLabel string `yaml:"job_label"`
}

// TracingConfig configures the OpenTelemetry tracer.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"` // "otlp_http" or "otlp_grpc".
	Endpoint    string `yaml:"endpoint"` // host:port of the collector.
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// AMQPConfig holds the RabbitMQ settings of the AMQP notifier.
type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// NotificationConfig selects where run summaries are sent.
type NotificationConfig struct {
	Type string     `yaml:"type"` // "log", "amqp" or "none".
	AMQP AMQPConfig `yaml:"amqp"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// RepositoryConfig selects the job metadata store.
type RepositoryConfig struct {
	// Type is "inmemory" (default), "sqlite", "postgres" or "mysql".
	Type string `yaml:"type"`
	// DSN is handed to the gorm dialector as is. For sqlite it is the database file path.
	DSN      string     `yaml:"dsn"`
	LogLevel LogLevel   `yaml:"log_level"`
	Pool     PoolConfig `yaml:"pool"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Surfin       SurfinConfig       `yaml:"surfin"`
	Datalake     DatalakeConfig     `yaml:"datalake"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Notification NotificationConfig `yaml:"notification"`
	Repository   RepositoryConfig   `yaml:"repository"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Surfin: SurfinConfig{
			Batch: BatchConfig{JobName: "datalakeJob"},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Adapter: AdapterConfig{Storage: map[string]interface{}{}},
		},
		Datalake: DatalakeConfig{
			InputRef:    "input",
			OutputRef:   "output",
			SongGlob:    "song_data/*/*/*/*.json",
			LogGlob:     "log_data/*/*/*.json",
			Compression: "snappy",
			Dedup:       DedupConfig{Policy: DedupFullTuple},
			Join:        JoinConfig{Policy: JoinFanout},
		},
		Metrics: MetricsConfig{JobLabel: "datalake"},
		Tracing: TracingConfig{
			Exporter:    "otlp_http",
			ServiceName: "datalake",
		},
		Notification: NotificationConfig{Type: "log"},
		Repository:   RepositoryConfig{Type: "inmemory"},
	}
}

// EffectiveParallelism returns the worker pool size, falling back to the CPU count.
func (c *Config) EffectiveParallelism() int {
	if c.Datalake.Engine.Parallelism > 0 {
		return c.Datalake.Engine.Parallelism
	}
	return runtime.NumCPU()
}

// Overrides carries values supplied on the command line. Empty fields leave the config unchanged.
type Overrides struct {
	InputRoot  string
	OutputRoot string
	Timezone   string
	LogLevel   string
}

// Apply copies the non-empty override values into cfg.
func (o Overrides) Apply(cfg *Config) {
	if o.InputRoot != "" {
		cfg.Datalake.InputRoot = o.InputRoot
	}
	if o.OutputRoot != "" {
		cfg.Datalake.OutputRoot = o.OutputRoot
	}
	if o.Timezone != "" {
		cfg.Surfin.System.Timezone = o.Timezone
	}
	if o.LogLevel != "" {
		cfg.Surfin.System.Logging.Level = o.LogLevel
	}
}
