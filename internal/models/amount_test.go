package models

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{in: "90.00", want: 9000},
		{in: "90", want: 9000},
		{in: "0.1", want: 10},
		{in: "-12.345", want: -1235},
		{in: "12.344", want: 1234},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAmount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestAmountString(t *testing.T) {
	if got := Amount(-1250).String(); got != "-12.50" {
		t.Errorf("String() = %q, want %q", got, "-12.50")
	}
	if got := Amount(5).String(); got != "0.05" {
		t.Errorf("String() = %q, want %q", got, "0.05")
	}
}

func TestAmountFormat(t *testing.T) {
	tests := []struct {
		amount   Amount
		currency string
		want     string
	}{
		{amount: 1250, currency: "USD", want: "$12.50"},
		{amount: 900000, currency: "JPY", want: "¥9,000"},
		{amount: 1250, currency: "XYZ", want: "12.50 XYZ"},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			if got := tt.amount.Format(tt.currency); got != tt.want {
				t.Errorf("Format(%s) = %q, want %q", tt.currency, got, tt.want)
			}
		})
	}
}
