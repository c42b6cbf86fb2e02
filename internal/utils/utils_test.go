package utils

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 24*time.Hour)
	tok, exp, err := m.Generate("abc123", "doctor")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if d := time.Until(exp); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("expiry in %v, want ~24h", d)
	}
	claims, err := m.Validate(tok)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.AccountID != "abc123" || claims.Role != "doctor" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	tok, _, _ := m.Generate("abc123", "user")

	other := NewJWTManager("other-secret", time.Hour)
	expired := NewJWTManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	tests := []struct {
		name string
		m    *JWTManager
		tok  string
	}{
		{"garbage", m, "not-a-token"},
		{"wrong secret", other, tok},
		{"expired", expired, tok},
		{"no secret", NewJWTManager("", time.Hour), tok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.m.Validate(tt.tok); err == nil {
				t.Errorf("Validate() accepted token")
			}
		})
	}
}

func TestJWTManager_GenerateWithoutSecret(t *testing.T) {
	if _, _, err := NewJWTManager("", time.Hour).Generate("id", "user"); err != ErrJWTSecretMissing {
		t.Errorf("Generate() error = %v, want ErrJWTSecretMissing", err)
	}
}

func TestPasswordHasher(t *testing.T) {
	h := &PasswordHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("newpass1")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"match", "newpass1", hash, true},
		{"mismatch", "newpass2", hash, false},
		{"empty hash", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Check(tt.password, tt.hash); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewResetToken(t *testing.T) {
	a, err := NewResetToken()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewResetToken()
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
	if a == b {
		t.Errorf("tokens repeat")
	}
}
