package utils

import (
	"strconv"
	"testing"
)

func TestNewOTPRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := NewOTP()
		if err != nil {
			t.Fatalf("NewOTP failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric", code)
		}
		if n < otpMin || n > otpMax {
			t.Fatalf("code %d outside [%d,%d]", n, otpMin, otpMax)
		}
	}
}

func TestOTPMatches(t *testing.T) {
	code := "123456"
	empty := ""
	cases := []struct {
		name      string
		stored    *string
		submitted string
		want      bool
	}{
		{"match", &code, "123456", true},
		{"mismatch", &code, "654321", false},
		{"nil stored", nil, "123456", false},
		{"empty stored", &empty, "", false},
		{"leading zero padding differs", &code, "0123456", false},
	}
	for _, tc := range cases {
		if got := OTPMatches(tc.stored, tc.submitted); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1", 4)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "secret1" {
		t.Fatal("hash must differ from the plain password")
	}
	if !VerifyPassword(hash, "secret1") {
		t.Error("expected password to verify")
	}
	if VerifyPassword(hash, "secret2") {
		t.Error("expected wrong password to be rejected")
	}
}

func TestBearerTokenRoundTrip(t *testing.T) {
	tok, err := NewBearerToken("s3cr3t", 42, "customer", 5)
	if err != nil {
		t.Fatalf("NewBearerToken failed: %v", err)
	}
	if tok.Hash != HashToken(tok.Token) {
		t.Error("hash does not match token")
	}
	claims, err := ParseBearerToken("s3cr3t", tok.Token)
	if err != nil {
		t.Fatalf("ParseBearerToken failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("unexpected claims %+v", claims)
	}
	if _, err := ParseBearerToken("other", tok.Token); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
	other, _ := NewBearerToken("s3cr3t", 42, "customer", 5)
	if other.Token == tok.Token {
		t.Error("two tokens for the same user must differ")
	}
}

func TestParseBearerTokenExpired(t *testing.T) {
	tok, err := NewBearerToken("s3cr3t", 7, "admin", -1)
	if err != nil {
		t.Fatalf("NewBearerToken failed: %v", err)
	}
	if _, err := ParseBearerToken("s3cr3t", tok.Token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
