package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"only punctuation", " -/ ", ""},
		{"eight char bic padded", "DEUTDEFF", "DEUTDEFFXXX"},
		{"eleven char bic kept", "CHASUS33XXX", "CHASUS33XXX"},
		{"lowercase and spaces", "hsbc hk hh", "HSBCHKHHXXX"},
		{"longer than eleven truncated", "BKCHCNBJ110 EXTRA", "BKCHCNBJ110"},
		{"swift prefix kept as letters", "SWIFT: ABOCCNBJ", "SWIFTABOCCN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identifier(tt.raw); got != tt.want {
				t.Errorf("Identifier(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIdentifierIdempotent(t *testing.T) {
	inputs := []string{"", "a", "DEUTDEFF", "deut-de-ff-500", "X", "12345678901234", "ÄBC DEF"}

	for _, in := range inputs {
		once := Identifier(in)
		twice := Identifier(once)
		if once != twice {
			t.Errorf("Identifier not idempotent for %q: %q then %q", in, once, twice)
		}
		if once != "" && len(once) != IdentifierWidth {
			t.Errorf("Identifier(%q) = %q, want length %d", in, once, IdentifierWidth)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw   string
		want  string
		valid bool
	}{
		{"346.000,", "346000", true},
		{"4.772.159,07", "4772159.07", true},
		{"633.086,7", "633086.7", true},
		{"", "", false},
		{"   ", "", false},
		{"1,234.56", "1234.56", true},
		{"1,234", "1234", true},
		{"1.234", "1234", true},
		{"12,5", "12.5", true},
		{"100", "100", true},
		{"USD 2,500.00 (REF 123)", "2500", true},
		{"-15.25", "-15.25", true},
		{"1 234 567,89", "1234567.89", true},
		{"N/A", "", false},
		{"(fee)", "", false},
		{"1.2.34", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseAmount(tt.raw)
			if got.Valid != tt.valid {
				t.Fatalf("ParseAmount(%q).Valid = %v, want %v", tt.raw, got.Valid, tt.valid)
			}
			if !tt.valid {
				return
			}
			want := decimal.RequireFromString(tt.want)
			if !got.Decimal.Equal(want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.raw, got.Decimal, want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   decimal.NullDecimal
		want string
	}{
		{decimal.NullDecimal{}, ""},
		{decimal.NewNullDecimal(decimal.RequireFromString("346000")), "346,000.00"},
		{decimal.NewNullDecimal(decimal.RequireFromString("4772159.07")), "4,772,159.07"},
		{decimal.NewNullDecimal(decimal.RequireFromString("633086.7")), "633,086.70"},
		{decimal.NewNullDecimal(decimal.RequireFromString("0.5")), "0.50"},
		{decimal.NewNullDecimal(decimal.RequireFromString("999")), "999.00"},
		{decimal.NewNullDecimal(decimal.RequireFromString("-1234.5")), "-1,234.50"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatAmount(tt.in); got != tt.want {
				t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatThenParseAmount(t *testing.T) {
	for _, s := range []string{"346000", "4772159.07", "0.01", "12"} {
		in := decimal.NewNullDecimal(decimal.RequireFromString(s))
		back := ParseAmount(FormatAmount(in))
		if !back.Valid || !back.Decimal.Equal(in.Decimal) {
			t.Errorf("ParseAmount(FormatAmount(%s)) = %v", s, back)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"15/01/2024", "2024-01-15"},
		{"5/3/2024", "2024-03-05"},
		{"15-01-2024", "2024-01-15"},
		{"2024-01-15", "2024-01-15"},
		{" 01/12/2023 ", "2023-12-01"},
		{"2024/01/15", ""},
		{"31/02/2024", ""},
		{"tomorrow", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseDate(tt.raw); got != tt.want {
				t.Errorf("ParseDate(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLedgerAccount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"  6228480012345678 ", "6228480012345678"},
		{"6.22848E+15", "6228480000000000"},
		{"1.2345e11", "123450000000"},
		{"nan", ""},
		{"", ""},
		{"ACC-001", "ACC-001"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := LedgerAccount(tt.raw); got != tt.want {
				t.Errorf("LedgerAccount(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLedgerAmount(t *testing.T) {
	got := LedgerAmount("1,250,000.50")
	if !got.Valid || !got.Decimal.Equal(decimal.RequireFromString("1250000.50")) {
		t.Errorf("LedgerAmount() = %v", got)
	}
	if LedgerAmount("").Valid {
		t.Error("expected empty cell to be unset")
	}
	if LedgerAmount("abc").Valid {
		t.Error("expected text cell to be unset")
	}
}
