package core

import (
	"errors"
	"testing"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{" 2.50 ", "2.5", true},
		{"0.00000001", "0.00000001", true},
		{"-1", "-1", true},
		{"0", "0", true},
		{"abc", "", false},
		{"NaN", "", false},
		{"Infinity", "", false},
		{"1e3", "1000", true},
		{"1E2", "100", true},
		{"1e-05", "0.00001", true},
		{"2.5e+1", "25", true},
		{"e5", "", false},
		{"1e", "", false},
		{"1e+", "", false},
		{"1e2e3", "", false},
		{"1-2", "", false},
		{"1.2.3", "", false},
		{"1,000.50", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDecimal(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestParseAmountRejectsNonPositive(t *testing.T) {
	for _, in := range []string{"0", "-3", "0.00"} {
		if _, err := ParseAmount(in); err == nil {
			t.Fatalf("%q expected error", in)
		}
	}
	if d, err := ParseAmount("30"); err != nil || d.String() != "30" {
		t.Fatalf("expected 30, got %s (err=%v)", d, err)
	}
}

func TestParseShare(t *testing.T) {
	if _, err := ParseShare("0"); err != nil {
		t.Fatalf("zero share should be allowed: %v", err)
	}
	if _, err := ParseShare("-1"); err == nil {
		t.Fatalf("negative share should be rejected")
	}
}

func TestFormatAmount(t *testing.T) {
	d, _ := ParseAmount("30")
	if got := FormatAmount(d); got != "30.00" {
		t.Fatalf("expected 30.00, got %s", got)
	}
	d, _ = ParseAmount("12,345")
	if got := FormatAmount(d); got != "12.35" {
		t.Fatalf("expected 12.35, got %s", got)
	}
}
