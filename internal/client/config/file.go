package config

import (
	"github.com/dmitrijs2005/dropsync/internal/configx"
	"github.com/dmitrijs2005/dropsync/internal/timex"
)

// fileConfig mirrors Config for JSON and YAML files. Absent keys leave the
// current value untouched.
type fileConfig struct {
	ServerEndpointAddr   *string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	DatabasePath         *string         `json:"database_path" yaml:"database_path"`
	OnlineCheckInterval  *timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	RequestTimeout       *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	RetryMaxRetries      *uint64         `json:"retry_max_retries" yaml:"retry_max_retries"`
	RetryBaseDelay       *timex.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`
	RetryMaxDelay        *timex.Duration `json:"retry_max_delay" yaml:"retry_max_delay"`
	AutoDrainOnReconnect *bool           `json:"auto_drain_on_reconnect" yaml:"auto_drain_on_reconnect"`
	LogLevel             *string         `json:"log_level" yaml:"log_level"`
	LogFormat            *string         `json:"log_format" yaml:"log_format"`
}

func parseFile(cfg *Config, path string) error {
	var fc fileConfig
	if err := configx.DecodeFile(path, &fc); err != nil {
		return err
	}

	if fc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *fc.ServerEndpointAddr
	}
	if fc.DatabasePath != nil {
		cfg.DatabasePath = *fc.DatabasePath
	}
	if fc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.RetryMaxRetries != nil {
		cfg.RetryMaxRetries = *fc.RetryMaxRetries
	}
	if fc.RetryBaseDelay != nil {
		cfg.RetryBaseDelay = fc.RetryBaseDelay.Duration
	}
	if fc.RetryMaxDelay != nil {
		cfg.RetryMaxDelay = fc.RetryMaxDelay.Duration
	}
	if fc.AutoDrainOnReconnect != nil {
		cfg.AutoDrainOnReconnect = *fc.AutoDrainOnReconnect
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
	}
	return nil
}
