package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/flagx"
)

// Config holds runtime settings for the field client.
type Config struct {
	ServerEndpointAddr  string
	DatabasePath        string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration

	RetryMaxRetries uint64
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration

	// AutoDrainOnReconnect drains the pending queue as soon as the backend
	// becomes reachable again.
	AutoDrainOnReconnect bool

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "dropsync.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.RetryMaxRetries = client.DefaultRetryPolicy.MaxRetries
	c.RetryBaseDelay = client.DefaultRetryPolicy.Base
	c.RetryMaxDelay = client.DefaultRetryPolicy.Cap
	c.AutoDrainOnReconnect = false
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// RetryPolicy is the backoff the remote client applies.
func (c *Config) RetryPolicy() client.RetryPolicy {
	return client.RetryPolicy{MaxRetries: c.RetryMaxRetries, Base: c.RetryBaseDelay, Cap: c.RetryMaxDelay}
}

// LoadConfig builds a Config from defaults, then the file named by -c or
// -config, then the remaining flags in args. Later sources take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigFileFlag(args); path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.ServerEndpointAddr == "":
		return errors.New("server endpoint address is empty")
	case c.DatabasePath == "":
		return errors.New("database path is empty")
	case c.OnlineCheckInterval <= 0:
		return fmt.Errorf("online check interval must be positive, got %s", c.OnlineCheckInterval)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
