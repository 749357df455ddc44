package matcher

import (
	"sort"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/normalize"

	"github.com/shopspring/decimal"
)

// LedgerIndex provides account and amount lookups over ledger rows
type LedgerIndex struct {
	// AccountIndex maps canonical account numbers to rows in ledger order
	AccountIndex map[string][]*models.LedgerRow

	// AmountRangeIndex holds one entry per distinct amount, sorted ascending
	AmountRangeIndex []*AmountIndexEntry

	// AllRows holds all indexed rows
	AllRows []*models.LedgerRow
}

// AmountIndexEntry groups the rows sharing one amount, in ledger order
type AmountIndexEntry struct {
	Amount decimal.Decimal
	Rows   []*models.LedgerRow
}

// IndexStats provides statistics about an index
type IndexStats struct {
	TotalRows      int `json:"total_rows" yaml:"total_rows"`
	UniqueAccounts int `json:"unique_accounts" yaml:"unique_accounts"`
	UniqueAmounts  int `json:"unique_amounts" yaml:"unique_amounts"`
	WithoutAccount int `json:"without_account" yaml:"without_account"`
	WithoutAmount  int `json:"without_amount" yaml:"without_amount"`
}

// NewLedgerIndex indexes rows. Rows without an account stay out of the
// account index; rows without an amount stay out of the amount index.
func NewLedgerIndex(rows []*models.LedgerRow) *LedgerIndex {
	index := &LedgerIndex{
		AccountIndex: make(map[string][]*models.LedgerRow),
		AllRows:      rows,
	}

	index.buildIndexes()
	return index
}

func (li *LedgerIndex) buildIndexes() {
	amountMap := make(map[string]*AmountIndexEntry)

	for _, row := range li.AllRows {
		if row.Account != "" {
			li.AccountIndex[row.Account] = append(li.AccountIndex[row.Account], row)
		}

		if !row.Amount.Valid {
			continue
		}
		amountKey := row.Amount.Decimal.String()
		if entry, exists := amountMap[amountKey]; exists {
			entry.Rows = append(entry.Rows, row)
		} else {
			entry = &AmountIndexEntry{Amount: row.Amount.Decimal, Rows: []*models.LedgerRow{row}}
			amountMap[amountKey] = entry
			li.AmountRangeIndex = append(li.AmountRangeIndex, entry)
		}
	}

	sort.SliceStable(li.AmountRangeIndex, func(i, j int) bool {
		return li.AmountRangeIndex[i].Amount.LessThan(li.AmountRangeIndex[j].Amount)
	})
}

// GetByAccount returns the rows for an account, canonicalized like ledger cells
func (li *LedgerIndex) GetByAccount(account string) []*models.LedgerRow {
	key := normalize.LedgerAccount(account)
	if key == "" {
		return nil
	}
	return li.AccountIndex[key]
}

// GetByAmountRange returns rows within the specified amount range (inclusive),
// ascending by amount and in ledger order within one amount.
func (li *LedgerIndex) GetByAmountRange(minAmount, maxAmount decimal.Decimal) []*models.LedgerRow {
	var result []*models.LedgerRow

	startIdx := sort.Search(len(li.AmountRangeIndex), func(i int) bool {
		return li.AmountRangeIndex[i].Amount.GreaterThanOrEqual(minAmount)
	})

	for i := startIdx; i < len(li.AmountRangeIndex); i++ {
		entry := li.AmountRangeIndex[i]
		if entry.Amount.GreaterThan(maxAmount) {
			break
		}
		result = append(result, entry.Rows...)
	}

	return result
}

// Closest returns the row in [minAmount, maxAmount] nearest to target that
// passes keep (nil keeps everything). Equidistant rows resolve to the first
// one in index order.
func (li *LedgerIndex) Closest(target, minAmount, maxAmount decimal.Decimal, keep func(*models.LedgerRow) bool) *models.LedgerRow {
	var (
		best     *models.LedgerRow
		bestDiff decimal.Decimal
	)
	for _, row := range li.GetByAmountRange(minAmount, maxAmount) {
		if keep != nil && !keep(row) {
			continue
		}
		diff := row.Amount.Decimal.Sub(target).Abs()
		if best == nil || diff.LessThan(bestDiff) {
			best, bestDiff = row, diff
		}
	}
	return best
}

// GetIndexStats returns statistics about the index
func (li *LedgerIndex) GetIndexStats() IndexStats {
	stats := IndexStats{
		TotalRows:      len(li.AllRows),
		UniqueAccounts: len(li.AccountIndex),
		UniqueAmounts:  len(li.AmountRangeIndex),
	}
	for _, row := range li.AllRows {
		if row.Account == "" {
			stats.WithoutAccount++
		}
		if !row.Amount.Valid {
			stats.WithoutAmount++
		}
	}
	return stats
}
