package config

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-k", "sqlite", "-r", "root", "-q", "2048", "-m", "4", "-o", "3", "-d", "file:x.db",
			"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint", "-l", "warn",
		}, expected: &Config{
			StorageBackend: "sqlite",
			StorageRoot:    "root",
			CapacityBytes:  2048,
			MaxUsers:       4,
			MaxOpenFiles:   3,
			DatabaseDSN:    "file:x.db",
			S3RootUser:     "user",
			S3RootPassword: "password",
			S3Bucket:       "bucket",
			S3Region:       "us-west-1",
			S3BaseEndpoint: "http://endpoint",
			LogLevel:       "warn",
		}},
		{name: "config flag ignored", args: []string{"cmd", "-c", "cfg.json", "-q", "100"},
			expected: &Config{CapacityBytes: 100}},
		{name: "bad integer", args: []string{"cmd", "-q", "lots"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
