package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "integer", input: "1000", want: "1000"},
		{name: "dot decimal", input: "12.34", want: "12.34"},
		{name: "comma decimal", input: "12,34", want: "12.34"},
		{name: "surrounding spaces", input: " 50 ", want: "50"},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "explicit plus", input: "+5", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
		{name: "two separators", input: "1,2,3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) expected error, got %s", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0", "$0"},
		{"999", "$999"},
		{"1000", "$1.000"},
		{"1005", "$1.005"},
		{"1234567", "$1.234.567"},
		{"1005.4", "$1.005"},
		{"1005.5", "$1.006"},
		{"-1500", "-$1.500"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.input)
			if err != nil {
				t.Fatalf("bad test input %q: %v", tt.input, err)
			}
			if got := FormatCurrency(d); got != tt.want {
				t.Errorf("FormatCurrency(%s) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatCurrencyDoesNotMutatePrecision(t *testing.T) {
	d, _ := decimal.NewFromString("10.75")
	_ = FormatCurrency(d)
	if d.String() != "10.75" {
		t.Errorf("input mutated: %s", d)
	}
}
