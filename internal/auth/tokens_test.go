package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, expiresAt, err := IssueToken("user-1", "alice", "admin", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := ValidateToken(token, "test-secret")
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" || claims.Role != "admin" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, err := IssueToken("user-1", "alice", "student", "secret-a", time.Hour)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := ValidateToken(token, "secret-b"); err == nil {
		t.Fatalf("token validated with wrong secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	token, _, err := IssueToken("user-1", "alice", "student", "test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := ValidateToken(token, "test-secret"); err == nil {
		t.Fatalf("expired token validated")
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	if got := ExtractTokenFromHeader("Bearer abc123"); got != "abc123" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractTokenFromHeader(""); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractTokenFromHeader("Basic abc123"); got != "" {
		t.Fatalf("got %q", got)
	}
}
