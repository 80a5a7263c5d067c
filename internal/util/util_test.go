package util

import (
	"strings"
	"testing"
)

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("sk-1234567890abcdef"); got != "sk-1...cdef" {
		t.Fatalf("MaskSecret = %q", got)
	}
	if got := MaskSecret("abc"); got != "a...c" {
		t.Fatalf("MaskSecret short = %q", got)
	}
	if got := MaskSecret("ab"); got != "ab" {
		t.Fatalf("MaskSecret tiny = %q", got)
	}
}

func TestMaskURL(t *testing.T) {
	got := MaskURL("https://hooks.example.com/fire?auth_token=supersecretvalue&job=17")
	if strings.Contains(got, "supersecretvalue") {
		t.Fatalf("token leaked: %s", got)
	}
	if !strings.Contains(got, "job=17") {
		t.Fatalf("benign params should survive: %s", got)
	}

	plain := "https://hooks.example.com/fire"
	if got = MaskURL(plain); got != plain {
		t.Fatalf("URL without query changed: %s", got)
	}
}
