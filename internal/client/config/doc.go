// Package config loads runtime configuration for the regflow CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. REGFLOW_* environment variables, read through viper.
//  4. Command-line flags, which override everything above.
//
// # JSON schema
//
// Durations accept Go duration strings or integer nanoseconds:
//
//	{
//	  "otp_base_url": "https://otp.example.com",
//	  "request_timeout": "15s",
//	  "health_check_interval": "30s",
//	  "directory_dsn": "postgres://...",
//	  "strict_duplicate_check": false
//	}
//
// Supported flags
//
//	-u string   OTP API base URL
//	-t int      OTP request timeout (seconds)
//	-i int      health check interval (seconds)
//	-d string   directory PostgreSQL DSN
//	-l string   local SQLite path
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-strict     fail closed when duplicate checks error
//	-log-level  debug|info|warn|error
package config
