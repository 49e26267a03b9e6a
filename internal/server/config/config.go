// Package config handles configuration for the development gateway,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"time"

	"github.com/dmitrijs2005/masaclient/internal/common"
)

// Storage backends for uploaded avatars.
const (
	StorageMemory = "memory"
	StorageS3     = "s3"
)

// Config holds runtime settings for the development gateway.
//
// Fields:
//   - ListenAddr: bind address of the HTTP listener.
//   - PublicURL: externally visible root, used to build download URLs.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration: access and bucket token lifetime.
//   - TestMode: echo issued verification codes in responses.
//   - CodeValidityDuration / CodeResendInterval: verification code lifetime and
//     the minimum wait between two codes for the same target.
//   - RequestsPerSecond / Burst: per-client request limit; zero disables it.
//   - PasswordHashCost: bcrypt cost.
//   - BucketID: the only bucket uploads are accepted for.
//   - Storage: "memory" or "s3".
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - LogLevel / Production: zap logger settings.
type Config struct {
	ListenAddr                  string
	PublicURL                   string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	TestMode                    bool
	CodeValidityDuration        time.Duration
	CodeResendInterval          time.Duration
	RequestsPerSecond           float64
	Burst                       int
	PasswordHashCost            int
	BucketID                    string
	Storage                     string
	S3RootUser                  string
	S3RootPassword              string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
	LogLevel                    string
	Production                  bool
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":3000"
	c.PublicURL = "http://localhost:3000"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 60 * time.Minute
	c.TestMode = true
	c.CodeValidityDuration = 5 * time.Minute
	c.CodeResendInterval = common.DefaultVerificationCooldown
	c.RequestsPerSecond = 20
	c.Burst = 40
	c.PasswordHashCost = 10
	c.BucketID = "public-user-bucket"
	c.Storage = StorageMemory
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "avatars"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
