package secrets

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestGenerateSecretKey(t *testing.T) {
	key, err := GenerateSecretKey()
	if err != nil {
		t.Fatalf("GenerateSecretKey() error: %v", err)
	}
	if len(key) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(key))
	}
	if _, err := hex.DecodeString(key); err != nil {
		t.Errorf("key is not valid hex: %v", err)
	}

	other, err := GenerateSecretKey()
	if err != nil {
		t.Fatalf("GenerateSecretKey() error: %v", err)
	}
	if key == other {
		t.Error("two generated keys are identical")
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash = %q, want bcrypt format", hash)
	}
	if !ValidatePassword(hash, "hunter2") {
		t.Error("ValidatePassword() rejected the correct password")
	}
	if ValidatePassword(hash, "wrong") {
		t.Error("ValidatePassword() accepted a wrong password")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("HashPassword(\"\") error = %v, want ErrPasswordRequired", err)
	}
}

func TestDaemonPasswordDigest(t *testing.T) {
	digest, err := DaemonPasswordDigest("your_secret_password")
	if err != nil {
		t.Fatalf("DaemonPasswordDigest() error: %v", err)
	}

	sum := sha256.Sum256([]byte("your_secret_password"))
	if digest != hex.EncodeToString(sum[:]) {
		t.Errorf("digest = %q, want plain sha256 hex", digest)
	}
}

func TestDaemonPasswordDigestEmpty(t *testing.T) {
	if _, err := DaemonPasswordDigest(""); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("DaemonPasswordDigest(\"\") error = %v, want ErrPasswordRequired", err)
	}
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword()
	if err != nil {
		t.Fatalf("GeneratePassword() error: %v", err)
	}
	if len(pw) != 24 {
		t.Errorf("password length = %d, want 24 hex chars", len(pw))
	}
}
