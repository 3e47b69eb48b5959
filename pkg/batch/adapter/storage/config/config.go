// Package config holds the settings of a single named storage connection.
package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`              // Type of storage ("local", "s3", "gcs").
	BucketName      string `yaml:"bucket_name"`       // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"`  // Path to credentials file (service account key for GCS).
	BaseDir         string `yaml:"base_dir"`          // Base directory for local file system operations.
	Endpoint        string `yaml:"endpoint"`          // S3-compatible endpoint host[:port].
	AccessKeyID     string `yaml:"access_key_id"`     // S3 static credentials.
	SecretAccessKey string `yaml:"secret_access_key"` // S3 static credentials.
	SessionToken    string `yaml:"session_token"`     // Optional S3 session token.
	UseSSL          bool   `yaml:"use_ssl"`
	Region          string `yaml:"region"`
}

// DatasourcesConfig holds a map of named storage configurations.
type DatasourcesConfig map[string]StorageConfig

// Decode converts one raw connection block (as found under surfin.adapter.storage) into a StorageConfig.
// Values are weakly typed so environment overrides such as use_ssl: "true" decode.
func Decode(raw interface{}) (StorageConfig, error) {
	var cfg StorageConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to create storage config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode storage config: %w", err)
	}
	return cfg, nil
}

// Lookup finds and decodes the connection block called name.
func Lookup(blocks map[string]interface{}, name string) (StorageConfig, error) {
	raw, ok := blocks[name]
	if !ok {
		return StorageConfig{}, fmt.Errorf("storage connection '%s' not found in configuration", name)
	}
	cfg, err := Decode(raw)
	if err != nil {
		return cfg, fmt.Errorf("storage connection '%s': %w", name, err)
	}
	return cfg, nil
}
