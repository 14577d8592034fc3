package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT("secret", "0xbuyer", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatalf("ParseJWT() error = %v", err)
	}
	if claims.Address != "0xbuyer" {
		t.Errorf("claims.Address = %q, want %q", claims.Address, "0xbuyer")
	}
	if claims.Issuer != "data-escrow" {
		t.Errorf("claims.Issuer = %q, want %q", claims.Issuer, "data-escrow")
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret", "0xbuyer", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}

	if _, err := ParseJWT("other-secret", token); err == nil {
		t.Error("ParseJWT() with wrong secret should fail")
	}
}

func TestParseJWTExpired(t *testing.T) {
	claims := Claims{
		Address: "0xbuyer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Issuer:    "data-escrow",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err := ParseJWT("secret", token); err == nil {
		t.Error("ParseJWT() with expired token should fail")
	}
}

func TestParseJWTGarbage(t *testing.T) {
	if _, err := ParseJWT("secret", "not-a-token"); err == nil {
		t.Error("ParseJWT() with malformed token should fail")
	}
}
