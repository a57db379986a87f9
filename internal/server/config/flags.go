package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/flagx"
)

var knownFlags = []string{"-a", "-m", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-log-level"}

// parseFlags overlays cfg with command-line flags:
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   HTTP bind address for metrics and health (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-log-level  debug, info, warn or error
//
// Arguments it does not know are ignored.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("dropsync-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrGRPC, "a", cfg.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&cfg.EndpointAddrHTTP, "m", cfg.EndpointAddrHTTP, "address and port for metrics")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(cfg.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidity := fs.Int("r", int(cfg.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&cfg.S3RootUser, "u", cfg.S3RootUser, "S3 root user")
	fs.StringVar(&cfg.S3RootPassword, "p", cfg.S3RootPassword, "S3 root password")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	cfg.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	cfg.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * time.Minute
	return nil
}
