package config

import (
	"time"

	"github.com/dmitrijs2005/masaclient/internal/common"
)

// Environments maps deployment codes onto gateway base URLs.
var Environments = map[string]string{
	"local": "http://localhost:3000",
	"prw":   "https://masaapp.prw.mindbricks.com",
	"stage": "https://masaapp-stage.mindbricks.co",
	"prd":   "https://masaapp.mindbricks.co",
}

// DefaultEnv is used when neither an environment nor a base URL is given.
const DefaultEnv = "prd"

// Config holds runtime settings for the Masa CLI.
//
// Fields:
//   - BaseURL: deployment root; service prefixes (/auth-api, /bucket, ...) are appended.
//   - BucketID: target bucket for avatar uploads.
//   - VerificationCooldown: minimum wait between verification code sends.
//   - RequestTimeout: per-request deadline for gateway calls.
//   - NationalNumberLength / PasswordMinLength: client-side validation policy.
//   - SessionDB: path of the SQLite file that keeps the session credential.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	BaseURL              string
	BucketID             string
	VerificationCooldown time.Duration
	RequestTimeout       time.Duration
	NationalNumberLength int
	PasswordMinLength    int
	SessionDB            string
	LogLevel             string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = Environments[DefaultEnv]
	c.BucketID = "public-user-bucket"
	c.VerificationCooldown = common.DefaultVerificationCooldown
	c.RequestTimeout = 15 * time.Second
	c.NationalNumberLength = common.DefaultNationalNumberLength
	c.PasswordMinLength = common.DefaultPasswordMinLength
	c.SessionDB = "session.db"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
