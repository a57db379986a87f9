package config

import (
	"github.com/dmitrijs2005/dropsync/internal/configx"
	"github.com/dmitrijs2005/dropsync/internal/timex"
)

// fileConfig mirrors Config for JSON and YAML files. Absent keys leave the
// current value untouched.
type fileConfig struct {
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN                  *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    *string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	S3RootUser                   *string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     *string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	PhotoUploadExpiry            *timex.Duration `json:"photo_upload_expiry" yaml:"photo_upload_expiry"`
	LogLevel                     *string         `json:"log_level" yaml:"log_level"`
	LogFormat                    *string         `json:"log_format" yaml:"log_format"`
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func parseFile(cfg *Config, path string) error {
	var fc fileConfig
	if err := configx.DecodeFile(path, &fc); err != nil {
		return err
	}

	setString(&cfg.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&cfg.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.SecretKey, fc.SecretKey)
	setString(&cfg.S3RootUser, fc.S3RootUser)
	setString(&cfg.S3RootPassword, fc.S3RootPassword)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)

	if fc.AccessTokenValidityDuration != nil {
		cfg.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.RefreshTokenValidityDuration != nil {
		cfg.RefreshTokenValidityDuration = fc.RefreshTokenValidityDuration.Duration
	}
	if fc.PhotoUploadExpiry != nil {
		cfg.PhotoUploadExpiry = fc.PhotoUploadExpiry.Duration
	}
	return nil
}
