package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSensitiveDetectorDefaults(t *testing.T) {
	d := NewSensitiveDetector(nil)

	sensitive := []string{
		"password",
		"PASSWORD",
		"passwd",
		"user_password",
		"api_key",
		"apikey",
		"api-key",
		"access_token",
		"auth_token",
		"client_secret",
		"ssn",
		"credit_card",
		"card_number",
		"cvv",
		"password_salt",
		"hash",
	}
	for _, name := range sensitive {
		if !d.IsSensitive(name) {
			t.Errorf("IsSensitive(%q) = false, expected true", name)
		}
	}

	benign := []string{
		"email",
		"username",
		"created_at",
		"hashtag",
		"card_holder",
		"amount",
	}
	for _, name := range benign {
		if d.IsSensitive(name) {
			t.Errorf("IsSensitive(%q) = true, expected false", name)
		}
	}
}

func TestSensitiveDetectorCustomPatterns(t *testing.T) {
	d := NewSensitiveDetector([]string{`(?i)^dob$`})

	assert.True(t, d.IsSensitive("DOB"))
	// Custom patterns replace the defaults entirely.
	assert.False(t, d.IsSensitive("password"))
}

func TestSensitiveDetectorSkipsInvalidPatterns(t *testing.T) {
	d := NewSensitiveDetector([]string{`[invalid`, `(?i)secret`})

	assert.True(t, d.IsSensitive("client_secret"))
	assert.False(t, d.IsSensitive("password"))
}

func TestDetectColumnsPreservesOrder(t *testing.T) {
	d := NewSensitiveDetector(nil)

	flagged := d.DetectColumns([]string{"id", "password", "email", "api_key"})
	assert.Equal(t, []string{"password", "api_key"}, flagged)

	assert.Nil(t, d.DetectColumns([]string{"id", "email"}))
}
