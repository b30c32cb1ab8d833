package security

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	OTPSecretSize = 21
	OTPPeriod     = 30
	OTPSkew       = 1
	OTPDigits     = otp.DigitsSix
)

var otpOpts = totp.ValidateOpts{
	Period:    OTPPeriod,
	Skew:      OTPSkew,
	Digits:    OTPDigits,
	Algorithm: otp.AlgorithmSHA1,
}

type OTPKey struct {
	Secret  string // RFC 4648 base32, no padding
	AuthURL string
}

// GenerateOTPKey draws a fresh shared secret for account and builds its
// provisioning URI.
func GenerateOTPKey(issuer, account string) (*OTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      OTPPeriod,
		SecretSize:  OTPSecretSize,
		Digits:      OTPDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	secret := key.Secret()
	return &OTPKey{Secret: secret, AuthURL: OTPAuthURL(issuer, account, secret)}, nil
}

// OTPAuthURL builds the provisioning URI. The label is path-escaped and the
// issuer parameter query-escaped.
func OTPAuthURL(issuer, account, secret string) string {
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s",
		url.PathEscape(issuer), url.PathEscape(account), url.QueryEscape(secret), url.QueryEscape(issuer))
}

// ValidateOTP checks code against the time step containing t, allowing one
// step of clock skew either way.
func ValidateOTP(code, secret string, t time.Time) bool {
	if !isOTPCode(code) || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, t, otpOpts)
	return err == nil && ok
}

func GenerateOTPCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, otpOpts)
}

// OTPQRCode renders a provisioning URI as a PNG.
func OTPQRCode(authURL string, size int) ([]byte, error) {
	png, err := qrcode.Encode(authURL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

func isOTPCode(code string) bool {
	if len(code) != int(OTPDigits) {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
