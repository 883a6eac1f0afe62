package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// fileConfig is the shape of the optional YAML config file.
type fileConfig struct {
	APIKey              string  `mapstructure:"api_key"`
	TeamID              string  `mapstructure:"team_id"`
	BaseURL             string  `mapstructure:"base_url"`
	TimeoutSeconds      int     `mapstructure:"timeout_seconds"`
	RetryCount          *int    `mapstructure:"retry_count"`
	RetryWaitMillis     int     `mapstructure:"retry_wait_ms"`
	RequestsPerSecond   float64 `mapstructure:"requests_per_second"`
	RateBurst           int     `mapstructure:"rate_burst"`
	UserAgent           string  `mapstructure:"user_agent"`
	UploadCachePath     string  `mapstructure:"upload_cache_path"`
	UploadCacheTTLHours int     `mapstructure:"upload_cache_ttl_hours"`
}

// Load resolves unset fields from the config file and process environment,
// then applies defaults. Precedence, highest first: explicit options,
// environment variables, config file, defaults.
//
// A dotenv file named in Options.EnvFile is loaded into the process
// environment first; existing variables are never overridden.
func Load(o *Options) error {
	if o.EnvFile != "" {
		if err := godotenv.Load(o.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", o.EnvFile, err)
		}
	}

	var fc fileConfig

	path := o.ConfigFile
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}

		if err := v.Unmarshal(&fc); err != nil {
			return fmt.Errorf("unmarshal config file %s: %w", path, err)
		}
	}

	if o.APIKey == "" {
		o.APIKey = firstNonEmpty(os.Getenv(EnvAPIKey), fc.APIKey)
	}

	if o.TeamID == "" {
		o.TeamID = firstNonEmpty(os.Getenv(EnvTeamID), fc.TeamID)
	}

	if o.BaseURL == "" {
		o.BaseURL = firstNonEmpty(os.Getenv(EnvBaseURL), fc.BaseURL)
	}

	if o.Timeout == 0 && fc.TimeoutSeconds > 0 {
		o.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}

	if o.RetryCount == nil && fc.RetryCount != nil {
		o.RetryCount = fc.RetryCount
	}

	if o.RetryWaitTime == 0 && fc.RetryWaitMillis > 0 {
		o.RetryWaitTime = time.Duration(fc.RetryWaitMillis) * time.Millisecond
	}

	if o.RequestsPerSecond == 0 {
		o.RequestsPerSecond = fc.RequestsPerSecond
	}

	if o.RateBurst == 0 {
		o.RateBurst = fc.RateBurst
	}

	if o.UserAgent == "" {
		o.UserAgent = fc.UserAgent
	}

	if o.UploadCachePath == "" {
		o.UploadCachePath = fc.UploadCachePath
	}

	if o.UploadCacheTTL == 0 && fc.UploadCacheTTLHours > 0 {
		o.UploadCacheTTL = time.Duration(fc.UploadCacheTTLHours) * time.Hour
	}

	o.ApplyDefaults()

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
