package chain

import (
	"math/big"
	"testing"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		in      string
		wantWei string
		wantErr bool
	}{
		{"1", "1000000000000000000", false},
		{"1.05", "1050000000000000000", false},
		{"0.05", "50000000000000000", false},
		{"0.001", "1000000000000000", false},
		{"0", "0", false},
		{" 2.5 ", "2500000000000000000", false},
		{"0.000000000000000001", "1", false},
		// more than 18 fractional digits are truncated
		{"0.0000000000000000019", "1", false},
		{"", "", true},
		{"1.2.3", "", true},
		{"abc", "", true},
		{"-1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			wei, err := ParseEther(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseEther(%q) expected error, got %s", tt.in, wei)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEther(%q) unexpected error: %v", tt.in, err)
			}
			if wei.String() != tt.wantWei {
				t.Errorf("ParseEther(%q) = %s, want %s", tt.in, wei, tt.wantWei)
			}
		})
	}
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  string
		want string
	}{
		{"0", "0"},
		{"1000000000000000000", "1"},
		{"1050000000000000000", "1.05"},
		{"50000000000000000", "0.05"},
		{"1", "0.000000000000000001"},
		{"123450000000000000000", "123.45"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			wei, _ := new(big.Int).SetString(tt.wei, 10)
			if got := FormatEther(wei); got != tt.want {
				t.Errorf("FormatEther(%s) = %q, want %q", tt.wei, got, tt.want)
			}
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"1.05", "0.05", "1", "0.0001", "42.4242"} {
		wei, err := ParseEther(s)
		if err != nil {
			t.Fatalf("ParseEther(%q): %v", s, err)
		}
		if got := FormatEther(wei); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}

func TestTotalWithFee(t *testing.T) {
	tests := []struct {
		salary     string
		feePercent int
		want       string
	}{
		// funding 1.0 at 5% sizes the transaction at 1.05:
		// the contract then reports amount=1.05, fee=0.05, freelancer=1.0
		{"1.0", 5, "1.0500"},
		{"1", 5, "1.0500"},
		{"0.001", 5, "0.0011"}, // 0.00105 rounded to 4 places
		{"2", 0, "2.0000"},
		{"100", 3, "103.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.salary, func(t *testing.T) {
			got, err := TotalWithFee(tt.salary, tt.feePercent)
			if err != nil {
				t.Fatalf("TotalWithFee(%q, %d): %v", tt.salary, tt.feePercent, err)
			}
			if got != tt.want {
				t.Errorf("TotalWithFee(%q, %d) = %q, want %q", tt.salary, tt.feePercent, got, tt.want)
			}
		})
	}

	if _, err := TotalWithFee("not-a-number", 5); err == nil {
		t.Error("expected error for malformed salary")
	}
}

func TestFeeSplitConsistency(t *testing.T) {
	// Scenario: salary 1.0 ETH, 5% fee. The sized total must decompose back
	// into fee + salary exactly, in wei.
	total, err := TotalWithFee("1.0", 5)
	if err != nil {
		t.Fatal(err)
	}
	totalWei, err := ParseEther(total)
	if err != nil {
		t.Fatal(err)
	}
	salaryWei, _ := ParseEther("1.0")
	feeWei, _ := ParseEther("0.05")
	if new(big.Int).Add(salaryWei, feeWei).Cmp(totalWei) != 0 {
		t.Errorf("fee + salary = %s, want %s", new(big.Int).Add(salaryWei, feeWei), totalWei)
	}
}

func TestEstimateFromUSD(t *testing.T) {
	if got := EstimateFromUSD(3000, 3000); got != "1.0000" {
		t.Errorf("EstimateFromUSD(3000, 3000) = %q, want 1.0000", got)
	}
	if got := EstimateFromUSD(1500, 3000); got != "0.5000" {
		t.Errorf("EstimateFromUSD(1500, 3000) = %q, want 0.5000", got)
	}
	if got := EstimateFromUSD(0, 3000); got != "0" {
		t.Errorf("EstimateFromUSD(0, 3000) = %q, want 0", got)
	}
	if got := EstimateFromUSD(100, 0); got != "0" {
		t.Errorf("EstimateFromUSD(100, 0) = %q, want 0", got)
	}
}
