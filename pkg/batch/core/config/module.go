// Package config provides core configuration structures and utilities for the batch framework.
// This module defines Fx providers for configuration-related components.
package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config so components
// can depend on the logging settings alone.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Surfin.System.Logging
}

// NewDatalakeConfigProvider extracts *DatalakeConfig from *Config.
func NewDatalakeConfigProvider(cfg *Config) *DatalakeConfig {
	return &cfg.Datalake
}

// Module provides the loaded *Config and its sub-sections to Fx.
// The application supplies EmbeddedConfig and, optionally, the named file paths and Overrides.
var Module = fx.Options(
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewDatalakeConfigProvider),
)
