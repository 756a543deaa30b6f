package main

import "testing"

func TestParsePositive(t *testing.T) {
	n, err := parsePositive("150")
	if err != nil {
		t.Fatalf("parse 150: %v", err)
	}
	if n != 150 {
		t.Fatalf("expected 150, got %d", n)
	}

	for _, v := range []string{"-5", "0", "abc", ""} {
		if _, err := parsePositive(v); err == nil {
			t.Fatalf("expected error for %q", v)
		}
	}
}
