// Package config loads runtime settings: a .env file if present, then
// environment variables with the VRCWATCH_ prefix, then an optional
// config.toml in the app data directory. Environment always wins.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
)

const (
	envPrefix        = "VRCWATCH"
	defaultUserAgent = "vrcwatch/1.0 your-contact@example.com"
)

type Settings struct {
	Username       string
	Password       string
	UserAgent      string
	TOTPSecret     string
	TwoFAPreferred string
	AllowStdinOTP  bool
	// RateTokensPerMin is the sustained outbound request budget;
	// RateBurst caps instantaneous bursts.
	RateTokensPerMin float64
	RateBurst        int
	Debug            bool
}

// Load reads settings into a fresh viper instance. configDir may be empty to
// skip the config file lookup entirely (tests do this).
func Load(configDir string) (Settings, error) {
	// Best-effort: a missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("user_agent", defaultUserAgent)
	v.SetDefault("totp_secret", "")
	v.SetDefault("twofa_preferred", "AUTO")
	v.SetDefault("allow_stdin_otp", false)
	v.SetDefault("rate_tokens_per_min", 60.0)
	v.SetDefault("rate_burst", 10)
	v.SetDefault("debug", false)

	if configDir != "" {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	return Settings{
		Username:         v.GetString("username"),
		Password:         v.GetString("password"),
		UserAgent:        v.GetString("user_agent"),
		TOTPSecret:       v.GetString("totp_secret"),
		TwoFAPreferred:   v.GetString("twofa_preferred"),
		AllowStdinOTP:    v.GetBool("allow_stdin_otp"),
		RateTokensPerMin: v.GetFloat64("rate_tokens_per_min"),
		RateBurst:        v.GetInt("rate_burst"),
		Debug:            v.GetBool("debug"),
	}, nil
}

// Validate checks the mandatory credential surface before any network call.
func (s Settings) Validate() error {
	if s.Username == "" {
		return &domain.ConfigError{Field: "VRCWATCH_USERNAME", Reason: "must be set (.env supported)"}
	}
	if s.Password == "" {
		return &domain.ConfigError{Field: "VRCWATCH_PASSWORD", Reason: "must be set (.env supported)"}
	}
	if s.RateTokensPerMin <= 0 {
		return &domain.ConfigError{Field: "VRCWATCH_RATE_TOKENS_PER_MIN", Reason: "must be positive"}
	}
	if s.RateBurst <= 0 {
		return &domain.ConfigError{Field: "VRCWATCH_RATE_BURST", Reason: "must be positive"}
	}
	return nil
}

// Credentials maps settings onto the immutable credential value the session
// layer consumes.
func (s Settings) Credentials() domain.Credentials {
	return domain.Credentials{
		Username:        s.Username,
		Password:        s.Password,
		UserAgent:       s.UserAgent,
		TOTPSecret:      s.TOTPSecret,
		PreferredMethod: domain.ParseTwoFactorMethod(s.TwoFAPreferred),
		AllowStdinOTP:   s.AllowStdinOTP,
	}
}

// RefillPerSecond converts the per-minute budget to the limiter's unit.
func (s Settings) RefillPerSecond() float64 {
	return s.RateTokensPerMin / 60.0
}
