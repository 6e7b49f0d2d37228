// Package otp issues and checks the one-time codes used for phone login.
// Codes are stored bcrypt-hashed; delivery happens out of process via the
// otp_events topic.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/daroosa/pharmacy_shop/internal/shoperr"
)

const (
	CodeLength = 6
	TTL        = 5 * time.Minute
)

var phonePattern = regexp.MustCompile(`^09\d{9}$`)

// ValidatePhone accepts Iranian mobile numbers in 09xxxxxxxxx form.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("%w: invalid phone number", shoperr.ErrValidation)
	}
	return nil
}

// GenerateCode returns a zero-padded numeric code from crypto/rand.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}

func HashCode(code string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

func CheckCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
