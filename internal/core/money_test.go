package core

import (
	"math"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
		ok  bool
	}{
		{89.5, 8950, true},
		{0.1 + 0.2, 30, true},
		{-150, 15000, true},
		{29.90, 2990, true},
		{0, 0, false},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
	}
	for _, tc := range cases {
		got, err := MoneyFromFloat(tc.in)
		if tc.ok && (err != nil || got.Cents != tc.out) {
			t.Fatalf("%v expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%v expected error", tc.in)
		}
	}
}

func TestMoneyFromString(t *testing.T) {
	m, err := MoneyFromString("-12,50")
	if err != nil || m.Cents != 1250 {
		t.Fatalf("expected 1250, got %d (err=%v)", m.Cents, err)
	}
	if _, err := MoneyFromString("x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMoneyFormatting(t *testing.T) {
	if got := (Money{Cents: 285000}).Format(); got != "R$ 2850.00" {
		t.Fatalf("Format = %q", got)
	}
	if got := (Money{Cents: -1999}).Abs().String(); got != "19.99" {
		t.Fatalf("Abs().String() = %q", got)
	}
	if got := (Money{Cents: 8950}).Float(); got != 89.5 {
		t.Fatalf("Float = %v", got)
	}
	if got := FormatAmount(math.NaN()); got != "R$ 0.00" {
		t.Fatalf("FormatAmount(NaN) = %q", got)
	}
	if got := FormatAmount(1075); got != "R$ 1075.00" {
		t.Fatalf("FormatAmount = %q", got)
	}
}
