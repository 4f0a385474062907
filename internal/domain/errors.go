package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthTokenMissing means a login attempt completed without the
	// platform setting an auth cookie; usually bad credentials or a
	// rejected user agent.
	ErrAuthTokenMissing = errors.New("auth cookie not found; check credentials and user agent")

	// ErrInteractiveInputUnavailable means email OTP verification was
	// requested without a terminal to prompt on.
	ErrInteractiveInputUnavailable = errors.New("no interactive terminal for email OTP; configure a TOTP secret or run on a console")

	// ErrTwoFactorUnavailable means verification is required but neither
	// path is configured.
	ErrTwoFactorUnavailable = errors.New("two-factor auth required: set VRCWATCH_TOTP_SECRET for TOTP or VRCWATCH_ALLOW_STDIN_OTP=1 for email codes")

	// ErrTOTPExhausted means all three TOTP time slots were rejected.
	ErrTOTPExhausted = errors.New("totp verification failed for all time windows (now/-30s/+30s)")
)

// ConfigError reports an unusable configuration, surfaced before any network
// activity.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// TwoFactorError wraps a failure of one verification path.
type TwoFactorError struct {
	Method TwoFactorMethod
	Err    error
}

func (e *TwoFactorError) Error() string {
	return fmt.Sprintf("%s verification failed: %v", e.Method, e.Err)
}

func (e *TwoFactorError) Unwrap() error { return e.Err }

// CompoundTwoFactorError carries the failures of both verification paths
// after primary and fallback were each attempted.
type CompoundTwoFactorError struct {
	Primary  error
	Fallback error
}

func (e *CompoundTwoFactorError) Error() string {
	return fmt.Sprintf("both two-factor paths failed: %v / %v", e.Primary, e.Fallback)
}

func (e *CompoundTwoFactorError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}
