package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/flagx"
	"github.com/dmitrijs2005/masaclient/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// Pointer fields distinguish "absent" from a zero value, so a file only
// overrides what it names.
type JsonConfig struct {
	ListenAddr                  *string         `json:"listen_addr"`
	PublicURL                   *string         `json:"public_url"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity"`
	TestMode                    *bool           `json:"test_mode"`
	CodeValidityDuration        *timex.Duration `json:"code_validity"`
	CodeResendInterval          *timex.Duration `json:"code_resend_interval"`
	RequestsPerSecond           *float64        `json:"requests_per_second"`
	Burst                       *int            `json:"burst"`
	PasswordHashCost            *int            `json:"password_hash_cost"`
	BucketID                    *string         `json:"bucket_id"`
	Storage                     *string         `json:"storage"`
	S3RootUser                  *string         `json:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
	LogLevel                    *string         `json:"log_level"`
	Production                  *bool           `json:"production"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags, or from
// $MASA_CONFIG. If neither is set, no JSON file is loaded. If the file
// cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}

func (c *JsonConfig) apply(config *Config) {
	set(&config.ListenAddr, c.ListenAddr)
	set(&config.PublicURL, c.PublicURL)
	set(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	set(&config.TestMode, c.TestMode)
	setDuration(&config.CodeValidityDuration, c.CodeValidityDuration)
	setDuration(&config.CodeResendInterval, c.CodeResendInterval)
	set(&config.RequestsPerSecond, c.RequestsPerSecond)
	set(&config.Burst, c.Burst)
	set(&config.PasswordHashCost, c.PasswordHashCost)
	set(&config.BucketID, c.BucketID)
	set(&config.Storage, c.Storage)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.LogLevel, c.LogLevel)
	set(&config.Production, c.Production)
}
