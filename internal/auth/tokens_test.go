package auth

import (
	"testing"

	"github.com/iliyamo/marketplace-api/internal/model"
)

func testUser() model.User {
	return model.User{ID: 42, Email: "buyer@example.com", Role: model.RoleBuyer, IsActive: true}
}

func TestIssueAndDecodeAccess(t *testing.T) {
	ts := NewTokenService("test-secret", 15, 7)

	raw, err := ts.IssueAccess(testUser())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	claims, err := ts.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "buyer@example.com" {
		t.Errorf("sub = %q, want buyer@example.com", claims.Subject)
	}
	if claims.UserID != 42 {
		t.Errorf("id = %d, want 42", claims.UserID)
	}
	if claims.Role != model.RoleBuyer {
		t.Errorf("role = %q, want buyer", claims.Role)
	}
	if claims.TokenType != KindAccess {
		t.Errorf("token_type = %q, want access", claims.TokenType)
	}
}

func TestKindIsolation(t *testing.T) {
	ts := NewTokenService("test-secret", 15, 7)

	access, err := ts.IssueAccess(testUser())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, err := ts.IssueRefresh(testUser())
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	// a refresh token must never pass an access-kind check, and vice versa
	if _, err := ts.DecodeKind(refresh, KindAccess); err != ErrTokenInvalid {
		t.Errorf("refresh as access: err = %v, want ErrTokenInvalid", err)
	}
	if _, err := ts.DecodeKind(access, KindRefresh); err != ErrTokenInvalid {
		t.Errorf("access as refresh: err = %v, want ErrTokenInvalid", err)
	}
	if _, err := ts.DecodeKind(access, KindAccess); err != nil {
		t.Errorf("access as access: %v", err)
	}
	if _, err := ts.DecodeKind(refresh, KindRefresh); err != nil {
		t.Errorf("refresh as refresh: %v", err)
	}
}

func TestDecodeExpired(t *testing.T) {
	// negative TTL issues an already-expired token
	ts := NewTokenService("test-secret", -1, 7)

	raw, err := ts.IssueAccess(testUser())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := ts.Decode(raw); err != ErrTokenExpired {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestDecodeRejectsForgeries(t *testing.T) {
	ts := NewTokenService("test-secret", 15, 7)
	other := NewTokenService("other-secret", 15, 7)

	raw, err := other.IssueAccess(testUser())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	cases := []struct {
		name string
		raw  string
	}{
		{"wrong secret", raw},
		{"tampered payload", raw[:len(raw)/2] + "x" + raw[len(raw)/2:]},
		{"malformed", "not-a-jwt"},
		{"empty", ""},
	}
	for _, tc := range cases {
		if _, err := ts.Decode(tc.raw); err != ErrTokenInvalid {
			t.Errorf("%s: err = %v, want ErrTokenInvalid", tc.name, err)
		}
	}
}
