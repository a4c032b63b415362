package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/carvault/internal/flagx"
)

var serverFlags = []string{"-a", "-w", "-d", "-s", "-i", "-k", "-t", "-m", "-u", "-p", "-b", "-g", "-e", "-l"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":4943")
//	-w string     HTTP bind address (e.g., ":4944")
//	-d string     PostgreSQL DSN
//	-s string     delegation HMAC secret key
//	-i string     delegation issuer
//	-k string     hex ed25519 root key seed
//	-t duration   delegation max ttl (e.g., "24h")
//	-m int        max asset size, bytes
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string     log level
//
// The function first filters args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port to run server")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "delegation issuer")
	fs.StringVar(&config.RootKeySeed, "k", config.RootKeySeed, "root key seed (hex)")
	fs.DurationVar(&config.DelegationMaxTTL, "t", config.DelegationMaxTTL, "delegation max ttl")
	fs.Int64Var(&config.MaxAssetSize, "m", config.MaxAssetSize, "max asset size in bytes")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, serverFlags))
}
