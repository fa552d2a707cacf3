package totp

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	pquerna "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	key, err := Generate("CoreVAI", "user@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, key.Secret)
	assert.True(t, strings.HasPrefix(key.ProvisioningURI, "otpauth://totp/"))
	assert.Contains(t, key.ProvisioningURI, "CoreVAI")

	// QR payload must be a decodable PNG
	png, err := base64.StdEncoding.DecodeString(key.QRCodeBase64)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestVerify(t *testing.T) {
	key, err := Generate("CoreVAI", "user@example.com")
	require.NoError(t, err)

	code, err := pquerna.GenerateCode(key.Secret, time.Now())
	require.NoError(t, err)
	assert.True(t, Verify(code, key.Secret))

	// A code from well outside the skew window must not verify
	stale, err := pquerna.GenerateCode(key.Secret, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	assert.False(t, Verify(stale, key.Secret))
}

func TestVerifyMalformedInput(t *testing.T) {
	key, err := Generate("CoreVAI", "user@example.com")
	require.NoError(t, err)

	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"too short", "123"},
		{"letters", "abcdef"},
		{"too long", "12345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(tt.code, key.Secret))
		})
	}
}
