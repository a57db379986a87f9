// Package config loads runtime configuration for the field client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected with -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Durations in files are either strings like "3s" or integer nanoseconds:
//
//	server_endpoint_addr: 127.0.0.1:50051
//	database_path: /data/dropsync.db
//	online_check_interval: 3s
//	auto_drain_on_reconnect: true
package config
