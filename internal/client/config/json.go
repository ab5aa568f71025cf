package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/regflow/internal/flagx"
	"github.com/dmitrijs2005/regflow/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Pointer fields let an
// absent key keep the value from defaults.
type JsonConfig struct {
	OTPBaseURL             *string         `json:"otp_base_url"`
	RequestTimeout         *timex.Duration `json:"request_timeout"`
	HealthCheckInterval    *timex.Duration `json:"health_check_interval"`
	DirectoryDSN           *string         `json:"directory_dsn"`
	LocalDBPath            *string         `json:"local_db_path"`
	S3Bucket               *string         `json:"s3_bucket"`
	S3Region               *string         `json:"s3_region"`
	S3BaseEndpoint         *string         `json:"s3_base_endpoint"`
	S3AccessKey            *string         `json:"s3_access_key"`
	S3SecretKey            *string         `json:"s3_secret_key"`
	S3PublicBaseURL        *string         `json:"s3_public_base_url"`
	StrictDuplicateCheck   *bool           `json:"strict_duplicate_check"`
	FederatedIssuer        *string         `json:"federated_issuer"`
	FederatedAudience      *string         `json:"federated_audience"`
	FederatedHMACSecret    *string         `json:"federated_hmac_secret"`
	FederatedPublicKeyFile *string         `json:"federated_public_key_file"`
	LogLevel               *string         `json:"log_level"`
	LogFormat              *string         `json:"log_format"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// It panics on read or unmarshal errors, like the flag layer does.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFile(args)
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

	setString(&cfg.OTPBaseURL, jc.OTPBaseURL)
	setString(&cfg.DirectoryDSN, jc.DirectoryDSN)
	setString(&cfg.LocalDBPath, jc.LocalDBPath)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.S3PublicBaseURL, jc.S3PublicBaseURL)
	setString(&cfg.FederatedIssuer, jc.FederatedIssuer)
	setString(&cfg.FederatedAudience, jc.FederatedAudience)
	setString(&cfg.FederatedHMACSecret, jc.FederatedHMACSecret)
	setString(&cfg.FederatedPublicKeyFile, jc.FederatedPublicKeyFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.HealthCheckInterval != nil {
		cfg.HealthCheckInterval = jc.HealthCheckInterval.Duration
	}
	if jc.StrictDuplicateCheck != nil {
		cfg.StrictDuplicateCheck = *jc.StrictDuplicateCheck
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
