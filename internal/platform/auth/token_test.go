package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "42",
			ID:        "jti-1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "ana@example.com",
	}
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Hour)
	userType := int64(2)

	raw, err := svc.Issue(Identity{UserID: 42, Email: "ana@example.com", UserType: &userType})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	claims, err := svc.Verify(raw)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if uid, _ := claims.UserID(); uid != 42 {
		t.Errorf("expected user 42, got %d", uid)
	}
	if claims.Email != "ana@example.com" {
		t.Errorf("expected email claim, got %q", claims.Email)
	}
	if claims.UserType == nil || *claims.UserType != 2 {
		t.Errorf("expected user type 2, got %v", claims.UserType)
	}
	if claims.ID == "" {
		t.Error("expected a jti")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Errorf("expected 1h lifetime, got %s", got)
	}
}

func TestTokenService_UniqueIDs(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Hour)
	a, _ := svc.Issue(Identity{UserID: 1})
	b, _ := svc.Issue(Identity{UserID: 1})
	ca, _ := svc.Verify(a)
	cb, _ := svc.Verify(b)
	if ca.ID == cb.ID {
		t.Error("expected distinct jti per token")
	}
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Hour)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	badSubject := validClaims()
	badSubject.Subject = "ana"

	noJTI := validClaims()
	noJTI.ID = ""

	otherIssuer := validClaims()
	otherIssuer.Issuer = "someone-else"

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong key", createTestToken(t, validClaims(), []byte("another-secret-entirely"))},
		{"expired", createTestToken(t, expired, testSigningKey)},
		{"no expiry", createTestToken(t, noExpiry, testSigningKey)},
		{"bad subject", createTestToken(t, badSubject, testSigningKey)},
		{"no jti", createTestToken(t, noJTI, testSigningKey)},
		{"other issuer", createTestToken(t, otherIssuer, testSigningKey)},
		{"alg none", none},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenService_ExpiresWithClock(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Minute)
	start := time.Now()
	svc.now = func() time.Time { return start }

	raw, err := svc.Issue(Identity{UserID: 7})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	svc.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := svc.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected token to be expired, got %v", err)
	}
}
