package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/masaclient/internal/flagx"
	"github.com/dmitrijs2005/masaclient/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero-valued fields mean "not set" and leave the current value untouched.
type JsonConfig struct {
	Env                  string          `json:"env"`
	BaseURL              string          `json:"base_url"`
	BucketID             string          `json:"bucket_id"`
	VerificationCooldown *timex.Duration `json:"verification_cooldown"`
	RequestTimeout       *timex.Duration `json:"request_timeout"`
	NationalNumberLength int             `json:"national_number_length"`
	PasswordMinLength    int             `json:"password_min_length"`
	SessionDB            string          `json:"session_db"`
	LogLevel             string          `json:"log_level"`
}

// parseJson overlays cfg with values from the JSON file named by -c/-config
// or $MASA_CONFIG. It panics on read or decode errors.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	if url, ok := Environments[jc.Env]; ok {
		cfg.BaseURL = url
	}
	if jc.BaseURL != "" {
		cfg.BaseURL = jc.BaseURL
	}
	if jc.BucketID != "" {
		cfg.BucketID = jc.BucketID
	}
	if jc.VerificationCooldown != nil {
		cfg.VerificationCooldown = jc.VerificationCooldown.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.NationalNumberLength > 0 {
		cfg.NationalNumberLength = jc.NationalNumberLength
	}
	if jc.PasswordMinLength > 0 {
		cfg.PasswordMinLength = jc.PasswordMinLength
	}
	if jc.SessionDB != "" {
		cfg.SessionDB = jc.SessionDB
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
