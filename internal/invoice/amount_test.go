package invoice

import (
	"testing"
	"time"

	"github.com/govalues/decimal"
)

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.345", "12.35"},
		{"12.344", "12.34"},
		{"12.3", "12.30"},
		{"7", "7.00"},
		{"0.005", "0.01"},
		{"-12.345", "-12.35"},
		{"2.675", "2.68"},
	}
	for _, tt := range tests {
		d := decimal.MustParse(tt.in)
		got, err := RoundHalfUp(d, MoneyScale)
		if err != nil {
			t.Fatalf("round %s: %v", tt.in, err)
		}
		if got.String() != tt.want {
			t.Errorf("RoundHalfUp(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestItemTotal(t *testing.T) {
	tests := []struct {
		cost, qty, want string
	}{
		{"2.00", "3", "6.00"},
		{"5.50", "1", "5.50"},
		{"1.333", "3", "4.00"},
		{"0.125", "1", "0.13"},
	}
	for _, tt := range tests {
		it := Item{Price: decimal.MustParse(tt.cost), Qty: decimal.MustParse(tt.qty)}
		got, err := it.Total()
		if err != nil {
			t.Fatalf("total: %v", err)
		}
		if got.String() != tt.want {
			t.Errorf("%s x %s = %s, want %s", tt.cost, tt.qty, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-07", "03-07-2024", "3-7-2024", "3/7/2024", "03/07/2024", "2024-03-07T15:04:05Z"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("parse %q = %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "yesterday", "2024-13-01", "31/31/2024"} {
		if _, err := ParseDate(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2024, time.December, 31, 22, 30, 0, 0, loc)
	if got := FormatDate(Day(local)); got != "2024-12-31" {
		t.Fatalf("Day kept wrong calendar date: %s", got)
	}
}
