package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/sharedfs/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-k string   storage backend: disk, memory, s3, postgres, sqlite
//	-r string   storage root (directory, or key prefix for s3)
//	-q int      capacity in bytes
//	-m int      maximum number of registered users
//	-o int      maximum open files per user
//	-d string   database DSN (postgres or sqlite backend)
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   log level
//
// os.Args is filtered with flagx.FilterArgs first, so -c/-config and other
// components' flags do not make parsing fail.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-k", "-r", "-q", "-m", "-o", "-d", "-u", "-p", "-b", "-g", "-e", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.StorageBackend, "k", config.StorageBackend, "storage backend")
	fs.StringVar(&config.StorageRoot, "r", config.StorageRoot, "storage root")
	fs.Int64Var(&config.CapacityBytes, "q", config.CapacityBytes, "capacity in bytes")
	fs.IntVar(&config.MaxUsers, "m", config.MaxUsers, "maximum number of users")
	fs.IntVar(&config.MaxOpenFiles, "o", config.MaxOpenFiles, "maximum open files per user")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
