package totp

import (
	"encoding/base64"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// Key bundles everything the client needs to finish enrollment: the
// base32 secret for manual entry, the otpauth URI, and a scannable QR.
type Key struct {
	Secret          string
	ProvisioningURI string
	QRCodeBase64    string
}

// Generate creates a fresh TOTP secret for the given account and renders
// the provisioning QR code as a base64 PNG data payload.
func Generate(issuer, accountName string) (*Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, err
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}

	return &Key{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		QRCodeBase64:    base64.StdEncoding.EncodeToString(qrPNG),
	}, nil
}

// Verify checks a 6-digit code against the secret. One time-step of skew
// is tolerated in each direction so codes entered right at the 30s
// boundary still pass.
func Verify(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
