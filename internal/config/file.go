package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/sharedfs/internal/flagx"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of the config file. Keys absent from the
// file leave the corresponding setting untouched.
type fileConfig struct {
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`
	StorageRoot    string `json:"storage_root" yaml:"storage_root"`
	CapacityBytes  int64  `json:"capacity_bytes" yaml:"capacity_bytes"`
	MaxUsers       int    `json:"max_users" yaml:"max_users"`
	MaxOpenFiles   int    `json:"max_open_files" yaml:"max_open_files"`
	AdminUser      string `json:"admin_user" yaml:"admin_user"`
	AdminPassword  string `json:"admin_password" yaml:"admin_password"`
	DatabaseDSN    string `json:"database_dsn" yaml:"database_dsn"`
	S3RootUser     string `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogLevel       string `json:"log_level" yaml:"log_level"`
}

// parseFile overlays the file named by -c/-config onto config. Files ending
// in .yaml or .yml are decoded as YAML, everything else as JSON. A file that
// cannot be read or decoded panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := toFileConfig(config)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}

func toFileConfig(c *Config) *fileConfig {
	return &fileConfig{
		StorageBackend: c.StorageBackend,
		StorageRoot:    c.StorageRoot,
		CapacityBytes:  c.CapacityBytes,
		MaxUsers:       c.MaxUsers,
		MaxOpenFiles:   c.MaxOpenFiles,
		AdminUser:      c.AdminUser,
		AdminPassword:  c.AdminPassword,
		DatabaseDSN:    c.DatabaseDSN,
		S3RootUser:     c.S3RootUser,
		S3RootPassword: c.S3RootPassword,
		S3Bucket:       c.S3Bucket,
		S3Region:       c.S3Region,
		S3BaseEndpoint: c.S3BaseEndpoint,
		LogLevel:       c.LogLevel,
	}
}

func (fc *fileConfig) apply(c *Config) {
	c.StorageBackend = fc.StorageBackend
	c.StorageRoot = fc.StorageRoot
	c.CapacityBytes = fc.CapacityBytes
	c.MaxUsers = fc.MaxUsers
	c.MaxOpenFiles = fc.MaxOpenFiles
	c.AdminUser = fc.AdminUser
	c.AdminPassword = fc.AdminPassword
	c.DatabaseDSN = fc.DatabaseDSN
	c.S3RootUser = fc.S3RootUser
	c.S3RootPassword = fc.S3RootPassword
	c.S3Bucket = fc.S3Bucket
	c.S3Region = fc.S3Region
	c.S3BaseEndpoint = fc.S3BaseEndpoint
	c.LogLevel = fc.LogLevel
}
