package domain

import (
	"regexp"
	"strings"
)

type TwoFactorMethod string

const (
	TwoFactorAuto  TwoFactorMethod = "AUTO"
	TwoFactorEmail TwoFactorMethod = "EMAIL"
	TwoFactorTOTP  TwoFactorMethod = "TOTP"
)

// ParseTwoFactorMethod normalizes a configured method string, defaulting to AUTO.
func ParseTwoFactorMethod(raw string) TwoFactorMethod {
	switch TwoFactorMethod(strings.ToUpper(strings.TrimSpace(raw))) {
	case TwoFactorEmail:
		return TwoFactorEmail
	case TwoFactorTOTP:
		return TwoFactorTOTP
	default:
		return TwoFactorAuto
	}
}

// Credentials holds everything needed to authenticate against the platform.
// Immutable for the process lifetime.
type Credentials struct {
	Username        string
	Password        string
	UserAgent       string
	TOTPSecret      string
	PreferredMethod TwoFactorMethod
	// AllowStdinOTP permits prompting for an email one-time code on the
	// terminal. Email verification is impossible without it.
	AllowStdinOTP bool
}

var nonBase32 = regexp.MustCompile(`[^A-Z2-7=]`)

// NormalizedTOTPSecret strips whitespace and uppercases the configured seed.
// An empty result means TOTP is not configured. The second return reports
// whether the seed contains characters outside the Base32 alphabet, which
// callers should surface as a warning.
func (c Credentials) NormalizedTOTPSecret() (string, bool) {
	secret := strings.ToUpper(strings.Join(strings.Fields(c.TOTPSecret), ""))
	if secret == "" {
		return "", false
	}
	return secret, nonBase32.MatchString(secret)
}
