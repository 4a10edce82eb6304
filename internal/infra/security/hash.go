package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/arklim/accounts-service/internal/core/domain"
)

// PBKDF2-SHA256 parameters. The iteration count is a versioned constant: bump
// it (and re-hash on next login) when hardware catches up.
const (
	saltLength       = 32
	keyLength        = 32
	pbkdf2Iterations = 100_000
)

// HashPassword derives a PBKDF2-SHA256 key from the password under a fresh
// random salt. Hash and salt are returned base64-encoded for storage.
func HashPassword(password string) (hash string, salt string, err error) {
	saltBytes := make([]byte, saltLength)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", fmt.Errorf("generate salt: %v: %w", err, domain.ErrCrypto)
	}

	sum := pbkdf2.Key([]byte(password), saltBytes, pbkdf2Iterations, keyLength, sha256.New)

	return base64.StdEncoding.EncodeToString(sum), base64.StdEncoding.EncodeToString(saltBytes), nil
}

// VerifyPassword recomputes the derivation with the stored salt and compares
// the result against the stored hash in constant time. Values that decode but
// do not match yield false; undecodable stored values are a crypto failure.
func VerifyPassword(password, hash, salt string) (bool, error) {
	if password == "" || hash == "" || salt == "" {
		return false, nil
	}

	saltBytes, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("decode salt: %v: %w", err, domain.ErrCrypto)
	}

	storedHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false, fmt.Errorf("decode hash: %v: %w", err, domain.ErrCrypto)
	}
	if len(storedHash) == 0 {
		return false, nil
	}

	computed := pbkdf2.Key([]byte(password), saltBytes, pbkdf2Iterations, len(storedHash), sha256.New)

	return subtle.ConstantTimeCompare(computed, storedHash) == 1, nil
}
