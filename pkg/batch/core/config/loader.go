package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// Package config provides utilities for loading and managing application configuration
// from various sources, including YAML files and environment variables.

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig // EmbeddedConfig contains the raw bytes of the configuration file.
	EnvFilePath    string         `name:"envFilePath" optional:"true"`    // EnvFilePath is the path to the .env file, if any.
	ConfigFilePath string         `name:"configFilePath" optional:"true"` // ConfigFilePath is an external YAML file layered over the embedded one.
	Overrides      Overrides      `optional:"true"`
	Expander       EnvironmentExpander
}

// loadConfig loads configuration from the embedded YAML, an optional external YAML file and
// environment variables, in that order. Later sources win.
func loadConfig(envFilePath, configFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	// 1. Defaults.
	cfg := NewConfig()

	// 2. Embedded YAML.
	if len(embeddedConfig) > 0 {
		if err := mergeYAML(cfg, embeddedConfig, expander); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
		}
	}

	// 3. External YAML.
	if configFilePath != "" {
		data, err := os.ReadFile(configFilePath)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read config file '%s'", configFilePath), err, false, false)
		}
		if err := mergeYAML(cfg, data, expander); err != nil {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to unmarshal config file '%s'", configFilePath), err, false, false)
		}
	}

	// 4. Environment variables.
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	return cfg, nil
}

func mergeYAML(cfg *Config, data []byte, expander EnvironmentExpander) error {
	expanded, err := expander.Expand(data)
	if err != nil {
		return err
	}
	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return err
	}
	mergeConfig(cfg, &yamlConfig)
	return nil
}

// NewConfigProvider is an Fx provider that loads, overrides and validates *Config.
// It also sets the global logger level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.ConfigFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}
	params.Overrides.Apply(cfg)
	cfg.EmbeddedConfig = params.EmbeddedConfig

	logger.SetLogLevel(cfg.Surfin.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Surfin.System.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return nil, exception.NewBatchError(moduleName, "invalid configuration", err, false, false)
	}
	return cfg, nil
}

// LoadConfig loads configuration from the embedded bytes, an optional YAML file and the environment.
func LoadConfig(envFilePath, configFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, configFilePath, embeddedConfig, nil)
}

// Validate checks the values the job cannot run without. All problems are reported together.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := time.LoadLocation(c.Surfin.System.Timezone); err != nil {
		result = multierror.Append(result, fmt.Errorf("surfin.system.timezone '%s' is not a valid IANA zone: %w", c.Surfin.System.Timezone, err))
	}
	switch c.Datalake.Dedup.Policy {
	case DedupFullTuple, DedupNaturalKey:
	default:
		result = multierror.Append(result, fmt.Errorf("datalake.dedup.policy must be '%s' or '%s', got '%s'", DedupFullTuple, DedupNaturalKey, c.Datalake.Dedup.Policy))
	}
	switch c.Datalake.Join.Policy {
	case JoinFanout, JoinLowestSongID:
	default:
		result = multierror.Append(result, fmt.Errorf("datalake.join.policy must be '%s' or '%s', got '%s'", JoinFanout, JoinLowestSongID, c.Datalake.Join.Policy))
	}
	switch strings.ToLower(c.Datalake.Compression) {
	case "snappy", "gzip", "uncompressed":
	default:
		result = multierror.Append(result, fmt.Errorf("datalake.compression '%s' is not supported", c.Datalake.Compression))
	}
	if c.Datalake.Engine.Parallelism < 0 {
		result = multierror.Append(result, fmt.Errorf("datalake.engine.parallelism must not be negative, got %d", c.Datalake.Engine.Parallelism))
	}
	for _, ref := range []string{c.Datalake.InputRef, c.Datalake.OutputRef} {
		if _, ok := c.Surfin.Adapter.Storage[ref]; !ok {
			result = multierror.Append(result, fmt.Errorf("storage connection '%s' is not configured under surfin.adapter.storage", ref))
		}
	}
	switch c.Repository.Type {
	case "inmemory":
	case "sqlite", "postgres", "mysql":
		if c.Repository.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("repository.dsn is required for repository type '%s'", c.Repository.Type))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("repository.type '%s' is not supported", c.Repository.Type))
	}
	return result.ErrorOrNil()
}

// mergeConfig performs a deep merge from source into dest.
// Values in source overwrite dest only when they are not zero values for their type.
func mergeConfig(dest, source *Config) {
	mergeSurfinConfig(&dest.Surfin, &source.Surfin)
	mergeDatalakeConfig(&dest.Datalake, &source.Datalake)

	if source.Metrics.Enabled {
		dest.Metrics.Enabled = true
	}
	if source.Metrics.PushGatewayURL != "" {
		dest.Metrics.PushGatewayURL = source.Metrics.PushGatewayURL
	}
	if source.Metrics.JobLabel != "" {
		dest.Metrics.JobLabel = source.Metrics.JobLabel
	}

	if source.Tracing.Enabled {
		dest.Tracing.Enabled = true
	}
	if source.Tracing.Insecure {
		dest.Tracing.Insecure = true
	}
	if source.Tracing.Exporter != "" {
		dest.Tracing.Exporter = source.Tracing.Exporter
	}
	if source.Tracing.Endpoint != "" {
		dest.Tracing.Endpoint = source.Tracing.Endpoint
	}
	if source.Tracing.ServiceName != "" {
		dest.Tracing.ServiceName = source.Tracing.ServiceName
	}

	if source.Notification.Type != "" {
		dest.Notification.Type = source.Notification.Type
	}
	if source.Notification.AMQP.URL != "" {
		dest.Notification.AMQP.URL = source.Notification.AMQP.URL
	}
	if source.Notification.AMQP.Exchange != "" {
		dest.Notification.AMQP.Exchange = source.Notification.AMQP.Exchange
	}
	if source.Notification.AMQP.RoutingKey != "" {
		dest.Notification.AMQP.RoutingKey = source.Notification.AMQP.RoutingKey
	}

	if source.Repository.Type != "" {
		dest.Repository.Type = source.Repository.Type
	}
	if source.Repository.DSN != "" {
		dest.Repository.DSN = source.Repository.DSN
	}
	if source.Repository.LogLevel != "" {
		dest.Repository.LogLevel = source.Repository.LogLevel
	}
	if source.Repository.Pool != (PoolConfig{}) {
		dest.Repository.Pool = source.Repository.Pool
	}
}

func mergeSurfinConfig(dest, source *SurfinConfig) {
	if source.Batch.JobName != "" {
		dest.Batch.JobName = source.Batch.JobName
	}
	if source.System.Timezone != "" {
		dest.System.Timezone = source.System.Timezone
	}
	if source.System.Logging.Level != "" {
		dest.System.Logging.Level = source.System.Logging.Level
	}
	if source.Adapter.Storage != nil {
		if dest.Adapter.Storage == nil {
			dest.Adapter.Storage = make(map[string]interface{})
		}
		for name, value := range source.Adapter.Storage {
			dest.Adapter.Storage[name] = value
		}
	}
}

func mergeDatalakeConfig(dest, source *DatalakeConfig) {
	if source.InputRef != "" {
		dest.InputRef = source.InputRef
	}
	if source.OutputRef != "" {
		dest.OutputRef = source.OutputRef
	}
	if source.InputRoot != "" {
		dest.InputRoot = source.InputRoot
	}
	if source.OutputRoot != "" {
		dest.OutputRoot = source.OutputRoot
	}
	if source.SongGlob != "" {
		dest.SongGlob = source.SongGlob
	}
	if source.LogGlob != "" {
		dest.LogGlob = source.LogGlob
	}
	if source.Compression != "" {
		dest.Compression = source.Compression
	}
	if source.Dedup.Policy != "" {
		dest.Dedup.Policy = source.Dedup.Policy
	}
	if source.Join.Policy != "" {
		dest.Join.Policy = source.Join.Policy
	}
	if source.Engine.Parallelism != 0 {
		dest.Engine.Parallelism = source.Engine.Parallelism
	}
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag to determine the environment variable name
// (e.g., Config.Datalake.OutputRoot -> DATALAKE_OUTPUT_ROOT).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Interface {
				loadRawMapFromEnv(field, envVarName+"_")
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadRawMapFromEnv overlays environment variables onto a map of named raw connection blocks.
//
// Example: SURFIN_ADAPTER_STORAGE_OUTPUT_SECRET_ACCESS_KEY=xyz sets key "secret_access_key"
// of the block named "output". The first segment after the prefix is the block name.
// Values stay strings; providers decode them with weakly typed mapstructure.
func loadRawMapFromEnv(mapField reflect.Value, prefix string) {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 || keyAndField[1] == "" {
			continue
		}
		name := strings.ToLower(keyAndField[0])
		fieldName := strings.ToLower(keyAndField[1])

		block := map[string]interface{}{}
		if existing := mapField.MapIndex(reflect.ValueOf(name)); existing.IsValid() {
			if m, ok := existing.Interface().(map[string]interface{}); ok {
				for k, v := range m {
					block[k] = v
				}
			}
		}
		block[fieldName] = parts[1]
		mapField.SetMapIndex(reflect.ValueOf(name), reflect.ValueOf(block))
	}
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, and bool types.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
