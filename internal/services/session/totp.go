package session

import (
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp/totp"

	"plsync/internal/entity"
)

// GenerateTOTP derives the 6-digit one-time code valid at the given time
// from a normalized base32 shared secret.
func GenerateTOTP(secret entity.Secret, at time.Time) (string, error) {
	if secret.IsZero() {
		return "", errors.New("no MFA secret configured")
	}

	code, err := totp.GenerateCode(secret.Reveal(), at)
	if err != nil {
		return "", errors.Wrap(err, "generate one-time code")
	}

	return code, nil
}
