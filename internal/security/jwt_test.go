package security

import (
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("secret", "platform", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Caller != "platform" {
		t.Fatalf("caller = %q, want platform", claims.Caller)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", "platform", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err = ParseToken("other", token); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", "platform", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err = ParseToken("secret", token); err != ErrExpiredToken {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
}
