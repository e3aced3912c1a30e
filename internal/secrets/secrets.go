// Package secrets generates the credentials seeded into a fresh
// install: the web application's session secret and admin password
// hash, and the daemon's connection password digest.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordRequired is returned when an empty password is hashed.
var ErrPasswordRequired = errors.New("password is required")

// secretKeyLength is the byte length of generated session secrets.
const secretKeyLength = 32

// GenerateSecretKey returns a hex-encoded random session secret.
func GenerateSecretKey() (string, error) {
	buf := make([]byte, secretKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword returns the bcrypt hash stored for the web
// application's admin account.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ValidatePassword checks a password against its bcrypt hash.
func ValidatePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DaemonPasswordDigest returns the hex sha256 digest the monitoring
// daemon compares connection passwords against.
func DaemonPasswordDigest(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

// GeneratePassword returns a random hex password for installs where
// the operator did not supply one.
func GeneratePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
