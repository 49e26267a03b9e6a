// Package config loads runtime configuration for the Masa CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c / -config or $MASA_CONFIG.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-e string   deployment environment (local, prw, stage, prd)
//	-u string   gateway base URL
//	-t int      request timeout (seconds)
//	-s string   session database path
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "60s" or
// integer nanoseconds:
//
//	{
//	  "env": "stage",
//	  "base_url": "http://127.0.0.1:8085",
//	  "bucket_id": "public-user-bucket",
//	  "verification_cooldown": "60s",
//	  "request_timeout": "15s",
//	  "national_number_length": 10,
//	  "password_min_length": 6,
//	  "session_db": "session.db",
//	  "log_level": "debug"
//	}
package config
