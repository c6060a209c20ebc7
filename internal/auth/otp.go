package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// GenerateOTP generates a cryptographically secure 6-digit OTP
func GenerateOTP() (string, error) {
	// Random number in [0, 900000), shifted to [100000, 999999]
	max := big.NewInt(900000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// HashOTP hashes a plaintext code with bcrypt. Only the hash is ever
// persisted.
func HashOTP(code string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckOTP compares a submitted code against the stored hash
func CheckOTP(code, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	return err == nil
}
