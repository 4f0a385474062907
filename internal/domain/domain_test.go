package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTwoFactorMethod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TwoFactorEmail, ParseTwoFactorMethod("email"))
	assert.Equal(t, TwoFactorTOTP, ParseTwoFactorMethod(" TOTP "))
	assert.Equal(t, TwoFactorAuto, ParseTwoFactorMethod("AUTO"))
	assert.Equal(t, TwoFactorAuto, ParseTwoFactorMethod(""))
	assert.Equal(t, TwoFactorAuto, ParseTwoFactorMethod("sms"))
}

func TestNormalizedTOTPSecret(t *testing.T) {
	t.Parallel()

	creds := Credentials{TOTPSecret: " jbsw y3dp\nEHPK3PXP "}
	secret, suspicious := creds.NormalizedTOTPSecret()
	assert.Equal(t, "JBSWY3DPEHPK3PXP", secret)
	assert.False(t, suspicious)

	creds.TOTPSecret = "abc123!@#"
	secret, suspicious = creds.NormalizedTOTPSecret()
	assert.Equal(t, "ABC123!@#", secret)
	assert.True(t, suspicious, "0, 1 and symbols are outside Base32")

	creds.TOTPSecret = "   \n\t "
	secret, suspicious = creds.NormalizedTOTPSecret()
	assert.Empty(t, secret)
	assert.False(t, suspicious)
}

func TestExtractUserID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "usr_1", ExtractUserID(map[string]any{"id": "usr_1"}))
	assert.Equal(t, "usr_2", ExtractUserID(map[string]any{"userId": "usr_2"}))
	assert.Equal(t, "usr_3", ExtractUserID(map[string]any{"userID": "usr_3"}))
	assert.Equal(t, "usr_4", ExtractUserID(map[string]any{"user": map[string]any{"id": "usr_4"}}))
	assert.Empty(t, ExtractUserID(map[string]any{"name": "nobody"}))
	assert.Empty(t, ExtractUserID(nil))
}

func TestTargetSet(t *testing.T) {
	t.Parallel()

	set := NewTargetSet([]UserID{"usr_1", "usr_2", "", "usr_1"})
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Wants("usr_1"))
	assert.False(t, set.Wants("usr_9"))

	empty := NewTargetSet(nil)
	assert.True(t, empty.Wants("anyone"), "empty set matches everything")
}

func TestParseWorldID(t *testing.T) {
	t.Parallel()

	id, ok := ParseWorldID("wrld_ABCDEF-0001:12345~private")
	assert.True(t, ok)
	assert.Equal(t, "wrld_ABCDEF-0001", id)

	id, ok = ParseWorldID("wrld_deadbeef")
	assert.True(t, ok)
	assert.Equal(t, "wrld_deadbeef", id)

	_, ok = ParseWorldID("private")
	assert.False(t, ok)
	_, ok = ParseWorldID("traveling")
	assert.False(t, ok)
	_, ok = ParseWorldID("")
	assert.False(t, ok)
}

func TestCategorizeStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CategoryOnline, CategorizeStatus("active"))
	assert.Equal(t, CategoryOnline, CategorizeStatus("Online"))
	assert.Equal(t, CategoryBusy, CategorizeStatus("busy"))
	assert.Equal(t, CategoryJoinMe, CategorizeStatus("join me"))
	assert.Equal(t, CategoryJoinMe, CategorizeStatus("joinme"))
	assert.Equal(t, CategoryAway, CategorizeStatus("ask me"))
	assert.Equal(t, CategoryAway, CategorizeStatus("away"))
	assert.Equal(t, CategoryUnknown, CategorizeStatus("offline"))
	assert.Equal(t, CategoryUnknown, CategorizeStatus(""))
}

func TestCompoundTwoFactorErrorUnwrapsBothPaths(t *testing.T) {
	t.Parallel()

	totpErr := &TwoFactorError{Method: TwoFactorTOTP, Err: ErrTOTPExhausted}
	emailErr := &TwoFactorError{Method: TwoFactorEmail, Err: ErrInteractiveInputUnavailable}
	compound := &CompoundTwoFactorError{Primary: totpErr, Fallback: emailErr}

	assert.True(t, errors.Is(compound, ErrTOTPExhausted))
	assert.True(t, errors.Is(compound, ErrInteractiveInputUnavailable))
	assert.Contains(t, compound.Error(), "both two-factor paths failed")
}
