// Package config provides configuration loading and validation for the
// directory core: partitions, administrative identities, limits, schema
// extensions, and logging.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the complete directory configuration.
type Config struct {
	Directory  DirectoryConfig   `yaml:"directory"`
	Partitions []PartitionConfig `yaml:"partitions"`
	Limits     LimitsConfig      `yaml:"limits"`
	Schema     SchemaConfig      `yaml:"schema"`
	Logging    LogConfig         `yaml:"logging"`
}

// DirectoryConfig holds the administrative identities and read-path
// options.
type DirectoryConfig struct {
	// AdminDn is the administrator entry.
	AdminDn string `yaml:"adminDn"`
	// AdminPassword seeds the administrator's userPassword at bootstrap.
	AdminPassword string `yaml:"adminPassword"`
	// DenormalizeOpAttrs re-renders DN-valued operational attributes
	// with short names on read.
	DenormalizeOpAttrs bool `yaml:"denormalizeOpAttrs"`
	// AccessControlEnabled turns off the default authorization policy.
	// The core has no rule-based access control to take its place.
	AccessControlEnabled bool `yaml:"accessControlEnabled"`
}

// PartitionConfig describes one partition.
type PartitionConfig struct {
	// Suffix is the partition's suffix DN.
	Suffix string `yaml:"suffix"`
	// Indexes lists the user attributes to maintain indices for.
	Indexes []string `yaml:"indexes"`
}

// LimitsConfig bounds search work.
type LimitsConfig struct {
	// SizeLimit is the default maximum number of returned entries;
	// zero is unlimited.
	SizeLimit int `yaml:"sizeLimit"`
	// TimeLimit is the default search time limit in seconds; zero is
	// unlimited.
	TimeLimit int `yaml:"timeLimit"`
}

// SchemaConfig carries RFC 4512 definitions added on top of the
// built-in schema.
type SchemaConfig struct {
	AttributeTypes []string `yaml:"attributeTypes"`
	ObjectClasses  []string `yaml:"objectClasses"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Configuration errors.
var (
	ErrNoPartitions  = errors.New("config: at least one partition is required")
	ErrEmptySuffix   = errors.New("config: partition suffix cannot be empty")
	ErrBadSizeLimit  = errors.New("config: sizeLimit cannot be negative")
	ErrBadTimeLimit  = errors.New("config: timeLimit cannot be negative")
	ErrUnknownLevel  = errors.New("config: unknown log level")
	ErrUnknownFormat = errors.New("config: unknown log format")
)

// Default returns the standard configuration: the ou=system partition,
// the uid=admin administrator, and console logging.
func Default() *Config {
	return &Config{
		Directory: DirectoryConfig{
			AdminDn:       "uid=admin,ou=system",
			AdminPassword: "secret",
		},
		Partitions: []PartitionConfig{
			{Suffix: "ou=system", Indexes: []string{"objectClass", "ou", "uid", "cn"}},
		},
		Logging: LogConfig{Level: "info", Format: "text", Output: "stderr"},
	}
}

// Load reads and validates a YAML configuration file. Unset fields
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals and validates YAML configuration data.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Partitions) == 0 {
		return ErrNoPartitions
	}
	for _, p := range c.Partitions {
		if p.Suffix == "" {
			return ErrEmptySuffix
		}
	}
	if c.Limits.SizeLimit < 0 {
		return ErrBadSizeLimit
	}
	if c.Limits.TimeLimit < 0 {
		return ErrBadTimeLimit
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %s", ErrUnknownLevel, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, c.Logging.Format)
	}
	return nil
}
