package helpers

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// OTP helpers for the backup verification channel. Codes are never stored in
// clear; only a bcrypt hash lives in Redis until the TTL expires.

// KeySignupOTP is the Redis key for the backup signup verification code
func KeySignupOTP(email string) string {
	return "signup:otp:" + email
}

// KeySignupCooldown is the Redis key for the resend cooldown per email
func KeySignupCooldown(email string) string {
	return "signup:cooldown:" + email
}

// GenOTPCode generates a secure random 6-digit code as a zero-padded string
func GenOTPCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// 6 digits: map random bytes to 000000-999999
	n := int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	if n < 0 {
		n = -n
	}
	code := n % 1000000
	return fmt.Sprintf("%06d", code), nil
}

// HashOTP hashes an OTP code for storage using bcrypt
func HashOTP(code string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareOTP compares a stored bcrypt hash with a submitted code
func CompareOTP(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
