package config

import (
	"github.com/spf13/viper"
)

const envPrefix = "REGFLOW"

// parseEnv overlays cfg with REGFLOW_* environment variables, e.g.
// REGFLOW_OTP_BASE_URL or REGFLOW_REQUEST_TIMEOUT=20s. Unset variables leave
// the current value alone.
func parseEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	strs := map[string]*string{
		"otp_base_url":              &cfg.OTPBaseURL,
		"directory_dsn":             &cfg.DirectoryDSN,
		"local_db_path":             &cfg.LocalDBPath,
		"s3_bucket":                 &cfg.S3Bucket,
		"s3_region":                 &cfg.S3Region,
		"s3_base_endpoint":          &cfg.S3BaseEndpoint,
		"s3_access_key":             &cfg.S3AccessKey,
		"s3_secret_key":             &cfg.S3SecretKey,
		"s3_public_base_url":        &cfg.S3PublicBaseURL,
		"federated_issuer":          &cfg.FederatedIssuer,
		"federated_audience":        &cfg.FederatedAudience,
		"federated_hmac_secret":     &cfg.FederatedHMACSecret,
		"federated_public_key_file": &cfg.FederatedPublicKeyFile,
		"log_level":                 &cfg.LogLevel,
		"log_format":                &cfg.LogFormat,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	if v.IsSet("request_timeout") {
		cfg.RequestTimeout = v.GetDuration("request_timeout")
	}
	if v.IsSet("health_check_interval") {
		cfg.HealthCheckInterval = v.GetDuration("health_check_interval")
	}
	if v.IsSet("strict_duplicate_check") {
		cfg.StrictDuplicateCheck = v.GetBool("strict_duplicate_check")
	}
}
