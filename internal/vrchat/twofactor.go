package vrchat

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
)

const (
	totpVerifyPath  = "auth/twofactorauth/totp/verify"
	emailVerifyPath = "auth/twofactorauth/emailotp/verify"

	emailOTPAttempts   = 3
	emailRetrySpacing  = time.Second
	pathSwitchCooldown = time.Second
)

// resolveTwoFactor runs the verification state machine. Permitted stdin
// input forces the email path first, with TOTP as fallback when a seed is
// configured; otherwise TOTP runs alone. Each path's failure is a value;
// only the terminal outcome is an error.
func (s *Session) resolveTwoFactor(ctx context.Context) error {
	secret, suspicious := s.creds.NormalizedTOTPSecret()
	if suspicious {
		s.logger.Warn("totp secret contains characters outside the Base32 alphabet")
	}

	// Permitting stdin input selects the email path first: an operator who
	// enabled prompting wants to type a mailed code, whatever the
	// configured preference says.
	emailFirst := s.creds.AllowStdinOTP

	if emailFirst {
		// Another process may have burned through the 2FA budget; ease in.
		sleepCtx(ctx, 500*time.Millisecond)
		emailErr := s.verifyEmailOTP(ctx)
		if emailErr == nil {
			return nil
		}
		if secret == "" {
			return &domain.TwoFactorError{Method: domain.TwoFactorEmail, Err: emailErr}
		}
		s.logger.Warn("email otp failed, trying totp fallback", "error", emailErr)
		sleepCtx(ctx, pathSwitchCooldown)
		if totpErr := s.verifyTOTP(ctx, secret); totpErr != nil {
			return &domain.CompoundTwoFactorError{
				Primary:  &domain.TwoFactorError{Method: domain.TwoFactorEmail, Err: emailErr},
				Fallback: &domain.TwoFactorError{Method: domain.TwoFactorTOTP, Err: totpErr},
			}
		}
		return nil
	}

	if secret != "" {
		if totpErr := s.verifyTOTP(ctx, secret); totpErr != nil {
			return &domain.TwoFactorError{Method: domain.TwoFactorTOTP, Err: totpErr}
		}
		return nil
	}

	return domain.ErrTwoFactorUnavailable
}

// verifyTOTP tries the current, previous and next 30-second slots in turn.
// A 400 for one slot just means a wrong code; anything else aborts.
func (s *Session) verifyTOTP(ctx context.Context, secret string) error {
	for _, offset := range []time.Duration{0, -30 * time.Second, 30 * time.Second} {
		code, err := totp.GenerateCode(secret, time.Now().Add(offset))
		if err != nil {
			return fmt.Errorf("generate totp code: %w", err)
		}

		resp, err := s.do(ctx, request{
			method: http.MethodPost,
			path:   totpVerifyPath,
			body:   map[string]string{"code": code},
		})
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusBadRequest {
			s.logger.Debug("totp slot rejected", "offset", offset)
			drain(resp)
			continue
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			drain(resp)
			return fmt.Errorf("totp verify: status %d", resp.StatusCode)
		}

		payload, err := decodeObject(resp)
		if err != nil {
			return err
		}
		if verified, ok := payload["verified"].(bool); ok && verified {
			s.logger.Info("two-factor verified via totp", "offset", offset)
			return nil
		}
		s.logger.Debug("totp verify accepted but not verified", "offset", offset)
	}
	return domain.ErrTOTPExhausted
}

// verifyEmailOTP prompts for a mailed code and submits it, up to three
// attempts with a second between them. Requires an interactive terminal.
func (s *Session) verifyEmailOTP(ctx context.Context) error {
	if !s.interactive() {
		return domain.ErrInteractiveInputUnavailable
	}

	var lastErr error
	for attempt := 0; attempt < emailOTPAttempts; attempt++ {
		if attempt > 0 {
			if !sleepCtx(ctx, emailRetrySpacing) {
				return ctx.Err()
			}
		}

		code, err := s.promptCode()
		if err != nil {
			return err
		}

		resp, err := s.do(ctx, request{
			method: http.MethodPost,
			path:   emailVerifyPath,
			body:   map[string]string{"code": code},
		})
		if err != nil {
			return err
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			drain(resp)
			lastErr = fmt.Errorf("email otp verify: status %d", resp.StatusCode)
			s.logger.Warn("email otp rejected", "attempt", attempt+1, "max", emailOTPAttempts, "status", resp.StatusCode)
			continue
		}

		payload, err := decodeObject(resp)
		if err != nil {
			return err
		}
		// The endpoint historically omitted "verified" on success.
		if verified, ok := payload["verified"].(bool); ok && !verified {
			lastErr = fmt.Errorf("email otp not verified")
			s.logger.Warn("email otp not verified", "attempt", attempt+1, "max", emailOTPAttempts)
			continue
		}
		s.logger.Info("two-factor verified via email otp")
		return nil
	}
	return fmt.Errorf("email otp verification failed after %d attempts: %w", emailOTPAttempts, lastErr)
}
