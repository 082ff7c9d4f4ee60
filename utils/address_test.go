package utils

import (
	"strings"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	valid := []string{
		"alice",
		"user-123",
		"wallet_a.b:c",
		"Ünïcode",
		strings.Repeat("a", MaxAddressLength),
	}
	for _, addr := range valid {
		if err := ValidateAddress(addr); err != nil {
			t.Errorf("ValidateAddress(%q) = %v, want nil", addr, err)
		}
	}

	invalid := []string{
		"",
		"has space",
		"tab\there",
		"new\nline",
		"bell\x07",
		strings.Repeat("a", MaxAddressLength+1),
	}
	for _, addr := range invalid {
		if err := ValidateAddress(addr); err == nil {
			t.Errorf("ValidateAddress(%q) = nil, want error", addr)
		}
	}
}

func TestShortenLog(t *testing.T) {
	if got := ShortenLog("short"); got != "short" {
		t.Errorf("ShortenLog(short) = %q", got)
	}
	long := "abcdefgh12345678ZZ"
	got := ShortenLog(long)
	if got != "abcdefgh...345678ZZ" {
		t.Errorf("ShortenLog(%q) = %q", long, got)
	}
}
