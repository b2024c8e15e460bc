package utils

import (
	"math/big"
	"testing"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"whole number", "10", 6, "10000000", false},
		{"with fraction", "9.8", 6, "9800000", false},
		{"full precision", "1.234567", 6, "1234567", false},
		{"trailing dot", "5.", 6, "5000000", false},
		{"leading dot", ".5", 6, "500000", false},
		{"excess precision rejected", "1.2345678", 6, "", true},
		{"negative rejected", "-3", 6, "", true},
		{"empty rejected", "", 6, "", true},
		{"garbage rejected", "ten", 6, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUnits(tt.amount, tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseUnits(%q) expected error, got %s", tt.amount, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUnits(%q) unexpected error: %v", tt.amount, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseUnits(%q) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		want     string
	}{
		{"whole number trims zeros", "10000000", 6, "10"},
		{"fraction trims zeros", "9800000", 6, "9.8"},
		{"full precision kept", "1234567", 6, "1.234567"},
		{"below one", "500", 6, "0.0005"},
		{"zero", "0", 6, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, _ := new(big.Int).SetString(tt.amount, 10)
			if got := FormatUnits(amount, tt.decimals); got != tt.want {
				t.Errorf("FormatUnits(%s) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}

	if got := FormatUnits(nil, 6); got != "0" {
		t.Errorf("FormatUnits(nil) = %s, want 0", got)
	}
}

func TestApplyFeeBps(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		feeBps int64
		want   string
	}{
		{"two percent of 10", "10000000", 200, "9800000"},
		{"zero fee", "10000000", 0, "10000000"},
		{"fee rounds down", "999", 200, "980"}, // fee 19.98 -> 19, payout 980
		{"full fee", "10000000", 10000, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, _ := new(big.Int).SetString(tt.amount, 10)
			got := ApplyFeeBps(amount, tt.feeBps)
			if got.String() != tt.want {
				t.Errorf("ApplyFeeBps(%s, %d) = %s, want %s", tt.amount, tt.feeBps, got, tt.want)
			}
		})
	}
}

func TestNormalizeReputationScore(t *testing.T) {
	raw, _ := new(big.Int).SetString("87500000000000000000", 10) // 87.5 * 1e18
	if got := NormalizeReputationScore(raw); got != 87.5 {
		t.Errorf("NormalizeReputationScore = %v, want 87.5", got)
	}
	if got := NormalizeReputationScore(nil); got != 0 {
		t.Errorf("NormalizeReputationScore(nil) = %v, want 0", got)
	}
}
