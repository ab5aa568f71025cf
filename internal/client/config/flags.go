package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/regflow/internal/flagx"
)

// parseFlags overlays cfg with command-line flags. Only the flags listed in
// the package doc are considered; anything else in args is ignored. Timeouts
// and intervals are given in whole seconds.
func parseFlags(cfg *Config, args []string) {
	filtered := flagx.FilterArgs(args, []string{"-u", "-t", "-i", "-d", "-l", "-b", "-g", "-e", "-strict", "-log-level"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.OTPBaseURL, "u", cfg.OTPBaseURL, "OTP API base URL")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "OTP request timeout (in seconds)")
	healthInterval := fs.Int("i", int(cfg.HealthCheckInterval.Seconds()), "health check interval (in seconds)")
	fs.StringVar(&cfg.DirectoryDSN, "d", cfg.DirectoryDSN, "directory database DSN")
	fs.StringVar(&cfg.LocalDBPath, "l", cfg.LocalDBPath, "local database path")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket for profile images")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&cfg.StrictDuplicateCheck, "strict", cfg.StrictDuplicateCheck, "fail closed when duplicate checks error")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(filtered); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.HealthCheckInterval = time.Duration(*healthInterval) * time.Second
}
