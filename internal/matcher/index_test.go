package matcher

import (
	"testing"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"

	"github.com/shopspring/decimal"
)

func amount(s string) models.Amount {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func createTestLedgerRows() []*models.LedgerRow {
	return []*models.LedgerRow{
		{Index: 0, SheetRow: 2, Account: "6228480012345678", Amount: amount("100.00")},
		{Index: 1, SheetRow: 3, Account: "", Amount: amount("95.50")},
		{Index: 2, SheetRow: 4, Account: "998877", Amount: amount("90")},
		{Index: 3, SheetRow: 5, Account: "998877", Amount: amount("100")},
		{Index: 4, SheetRow: 6, Account: "555"},
	}
}

func TestNewLedgerIndex(t *testing.T) {
	index := NewLedgerIndex(createTestLedgerRows())

	stats := index.GetIndexStats()
	want := IndexStats{TotalRows: 5, UniqueAccounts: 3, UniqueAmounts: 3, WithoutAccount: 1, WithoutAmount: 1}
	if stats != want {
		t.Errorf("GetIndexStats() = %+v, want %+v", stats, want)
	}

	for i := 1; i < len(index.AmountRangeIndex); i++ {
		if index.AmountRangeIndex[i-1].Amount.GreaterThanOrEqual(index.AmountRangeIndex[i].Amount) {
			t.Fatalf("amount index not sorted at %d", i)
		}
	}
}

func TestLedgerIndex_GetByAccount(t *testing.T) {
	index := NewLedgerIndex(createTestLedgerRows())

	tests := []struct {
		name     string
		account  string
		wantRows []int
	}{
		{"single row", "6228480012345678", []int{0}},
		{"first row first", "998877", []int{2, 3}},
		{"trimmed", " 555 ", []int{4}},
		{"scientific notation", "9.98877E+05", []int{2, 3}},
		{"unknown", "123", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := index.GetByAccount(tt.account)
			if len(got) != len(tt.wantRows) {
				t.Fatalf("GetByAccount() returned %d rows, want %d", len(got), len(tt.wantRows))
			}
			for i, row := range got {
				if row.Index != tt.wantRows[i] {
					t.Errorf("row %d Index = %d, want %d", i, row.Index, tt.wantRows[i])
				}
			}
		})
	}
}

func TestLedgerIndex_GetByAmountRange(t *testing.T) {
	index := NewLedgerIndex(createTestLedgerRows())

	got := index.GetByAmountRange(decimal.NewFromInt(90), decimal.NewFromInt(100))
	wantIdx := []int{2, 1, 0, 3}
	if len(got) != len(wantIdx) {
		t.Fatalf("GetByAmountRange() returned %d rows, want %d", len(got), len(wantIdx))
	}
	for i, row := range got {
		if row.Index != wantIdx[i] {
			t.Errorf("row %d Index = %d, want %d", i, row.Index, wantIdx[i])
		}
	}

	if rows := index.GetByAmountRange(decimal.NewFromInt(101), decimal.NewFromInt(200)); len(rows) != 0 {
		t.Errorf("expected no rows above 100, got %d", len(rows))
	}
}

func TestLedgerIndex_Closest(t *testing.T) {
	index := NewLedgerIndex(createTestLedgerRows())
	target := decimal.NewFromInt(100)
	lo := decimal.NewFromInt(90)

	tests := []struct {
		name    string
		keep    func(*models.LedgerRow) bool
		wantIdx int
	}{
		{"exact amount, first in ledger order", nil, 0},
		{"next closest when exact rows excluded", func(r *models.LedgerRow) bool { return !r.Amount.Decimal.Equal(target) }, 1},
		{"nothing kept", func(*models.LedgerRow) bool { return false }, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := index.Closest(target, lo, target, tt.keep)
			got := -1
			if row != nil {
				got = row.Index
			}
			if got != tt.wantIdx {
				t.Errorf("Closest() = row %d, want %d", got, tt.wantIdx)
			}
		})
	}
}

func TestMatchingConfig_Validate(t *testing.T) {
	config := DefaultMatchingConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	if !config.AmountTolerance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("AmountTolerance = %s, want 100", config.AmountTolerance)
	}

	config.AmountTolerance = decimal.NewFromInt(-1)
	if err := config.Validate(); err == nil {
		t.Error("negative tolerance should be rejected")
	}

	strict := StrictMatchingConfig()
	lo, hi := strict.AmountWindow(decimal.NewFromInt(5))
	if !lo.Equal(hi) {
		t.Errorf("strict window = [%s, %s], want a single point", lo, hi)
	}

	original := DefaultMatchingConfig()
	clone := original.Clone()
	clone.AllowOverwrite = true
	if original.AllowOverwrite {
		t.Error("Clone() should not alias the original")
	}
}
