package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Minute)

	raw, err := m.GenerateAccessToken(42, "Dr. A", "a@x.com", "doctor")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	claims, err := m.VerifyAccessToken(raw)
	if err != nil {
		t.Fatalf("VerifyAccessToken error: %v", err)
	}

	if claims.UserID != 42 || claims.Role != "doctor" || claims.Name != "Dr. A" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "42" {
		t.Fatalf("expected subject 42, got %q", claims.Subject)
	}
}

func TestManager_RejectsOtherSecret(t *testing.T) {
	raw, _ := NewManager("one", time.Minute).GenerateAccessToken(1, "n", "e@x.com", "patient")

	if _, err := NewManager("two", time.Minute).VerifyAccessToken(raw); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestManager_RejectsExpired(t *testing.T) {
	m := NewManager("s", time.Minute)

	past := time.Now().Add(-time.Hour)
	claims := Claims{
		UserID:    1,
		Role:      "patient",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = m.VerifyAccessToken(raw)
	if !errors.Is(err, ErrInvalidToken) || !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func signed(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func validClaims() Claims {
	now := time.Now()
	return Claims{
		UserID:    1,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
}

func TestManager_RejectsMalformedClaims(t *testing.T) {
	m := NewManager("s", time.Minute)

	wrongType := validClaims()
	wrongType.TokenType = "refresh"

	foreign := validClaims()
	foreign.Issuer = "someone-else"

	noUser := validClaims()
	noUser.UserID = 0

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name string
		raw  string
	}{
		{"wrong type", signed(t, jwt.SigningMethodHS256, []byte("s"), wrongType)},
		{"foreign issuer", signed(t, jwt.SigningMethodHS256, []byte("s"), foreign)},
		{"missing user", signed(t, jwt.SigningMethodHS256, []byte("s"), noUser)},
		{"missing expiry", signed(t, jwt.SigningMethodHS256, []byte("s"), noExpiry)},
		{"alg none", signed(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())},
		{"hs512", signed(t, jwt.SigningMethodHS512, []byte("s"), validClaims())},
		{"garbage", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.VerifyAccessToken(tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
