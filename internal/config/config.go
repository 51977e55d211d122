// Package config handles runtime configuration: defaults, an optional JSON or
// YAML file, and command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
)

// Storage backends understood by the app.
const (
	BackendDisk     = "disk"
	BackendMemory   = "memory"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds runtime settings for the shared file store.
//
// Fields:
//   - StorageBackend: one of disk, memory, s3, postgres, sqlite.
//   - StorageRoot: directory for the disk backend, key prefix for s3.
//   - CapacityBytes: hard quota over the sum of all file sizes.
//   - MaxUsers / MaxOpenFiles: registration cap and per-user open-handle cap.
//   - AdminUser / AdminPassword: account created at startup with the admin role.
//   - DatabaseDSN: DSN for the postgres (pgx) or sqlite backend.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint:
//     S3-compatible object storage settings.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	StorageBackend string
	StorageRoot    string
	CapacityBytes  int64
	MaxUsers       int
	MaxOpenFiles   int
	AdminUser      string
	AdminPassword  string
	DatabaseDSN    string
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	LogLevel       string
}

// LoadDefaults populates Config with the values the system was designed
// around: a 10 KiB disk store, ten users, five open files per user.
// NOTE: the admin password is a development default and should be overridden.
func (c *Config) LoadDefaults() {
	c.StorageBackend = BackendDisk
	c.StorageRoot = "file_storage"
	c.CapacityBytes = 10240
	c.MaxUsers = 10
	c.MaxOpenFiles = 5
	c.AdminUser = "admin"
	c.AdminPassword = "admin123"
	c.DatabaseDSN = "file:sharedfs.db"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "sharedfs"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
}

// Validate reports settings the store cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case BackendDisk, BackendMemory, BackendS3, BackendPostgres, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	if c.CapacityBytes <= 0 {
		errs = append(errs, fmt.Errorf("capacity must be positive, got %d", c.CapacityBytes))
	}
	if c.MaxUsers <= 0 {
		errs = append(errs, fmt.Errorf("max users must be positive, got %d", c.MaxUsers))
	}
	if c.MaxOpenFiles <= 0 {
		errs = append(errs, fmt.Errorf("max open files must be positive, got %d", c.MaxOpenFiles))
	}
	if c.AdminUser == "" {
		errs = append(errs, errors.New("admin user must not be empty"))
	}

	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
