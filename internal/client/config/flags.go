package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/flagx"
)

var knownFlags = []string{"-a", "-d", "-i", "-t", "-r", "-auto-drain", "-log-level"}

// parseFlags overlays cfg with command-line flags:
//
//	-a string          address:port of the backend
//	-d string          path of the local database
//	-i int             online check interval (seconds)
//	-t duration        per-request timeout
//	-r int             retries for transient failures
//	-auto-drain        drain the queue on reconnect
//	-log-level string  debug, info, warn or error
//
// Arguments it does not know are ignored.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("dropsync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "per-request timeout")
	fs.Uint64Var(&cfg.RetryMaxRetries, "r", cfg.RetryMaxRetries, "retries for transient failures")
	fs.BoolVar(&cfg.AutoDrainOnReconnect, "auto-drain", cfg.AutoDrainOnReconnect, "drain pending operations on reconnect")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	return nil
}
