// Package configuration loads the daemon configuration.
package configuration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
)

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Server   ServerConfig   `mapstructure:"server"`
	Subjects SubjectsConfig `mapstructure:"subjects"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// LoggerConfig defines logging settings.
type LoggerConfig struct {
	// Level is one of debug, info, warn, warning, error (case-insensitive).
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File, when set, receives logs through a rotating writer.
	File string `mapstructure:"file"`
}

// ServerConfig contains HTTP server parameters.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	// APIKey protects write endpoints; empty disables the check.
	APIKey string `mapstructure:"api_key"`
	CORS   bool   `mapstructure:"cors"`
}

// SubjectsConfig locates subject profiles and sizes batch runs.
type SubjectsConfig struct {
	ProfilesDir string `mapstructure:"profiles_dir"`
	Workers     int    `mapstructure:"workers"`
	ChunkSize   int    `mapstructure:"chunk_size"`
}

// DatabaseConfig is optional: without a URL, run endpoints are disabled.
type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// StorageConfig selects where generated series files are kept.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// KafkaConfig enables record publication when brokers are listed.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// CacheConfig sizes the in-memory series cache.
type CacheConfig struct {
	Size int `mapstructure:"size"`
}

// Validate checks every section and returns the first error.
func (c *AppConfig) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Subjects.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Kafka.Validate(); err != nil {
		return err
	}
	return c.Cache.Validate()
}

func (l *LoggerConfig) Validate() error {
	if l.Level == "" {
		return errors.New("logger.level: must be specified")
	}
	valid := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !valid[strings.ToLower(l.Level)] {
		return fmt.Errorf("logger.level: unsupported level '%s'", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logger.format: must be text or json, got '%s'", l.Format)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Address == "" {
		return errors.New("server.address: must be specified")
	}
	return nil
}

func (s *SubjectsConfig) Validate() error {
	if s.ProfilesDir == "" {
		return errors.New("subjects.profiles_dir: must be specified")
	}
	if s.Workers < 0 || s.ChunkSize < 0 {
		return errors.New("subjects: workers and chunk_size must not be negative")
	}
	return nil
}

func (s *StorageConfig) Validate() error {
	switch s.Backend {
	case StorageLocal:
		if s.Path == "" {
			return errors.New("storage.path: must be specified for local storage")
		}
	case StorageS3, StorageGCS:
		if s.Bucket == "" {
			return fmt.Errorf("storage.bucket: must be specified for %s storage", s.Backend)
		}
	default:
		return fmt.Errorf("storage.backend: unsupported backend '%s'", s.Backend)
	}
	return nil
}

func (k *KafkaConfig) Validate() error {
	if len(k.Brokers) > 0 && k.Topic == "" {
		return errors.New("kafka.topic: must be specified when brokers are set")
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	if c.Size < 0 {
		return errors.New("cache.size: must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.file", "")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.cors", true)
	v.SetDefault("subjects.profiles_dir", "profiles")
	v.SetDefault("subjects.workers", 0)
	v.SetDefault("subjects.chunk_size", 0)
	v.SetDefault("database.url", "")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.path", "/tmp/destinyclock-data")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "destinyclock.records")
	v.SetDefault("cache.size", 32)
}

// LoadConfig reads configuration from a YAML file, if configPath is set,
// layered over defaults. Environment variables override both: the key
// storage.bucket is read from DESTINYCLOCK_STORAGE_BUCKET.
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("destinyclock")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
