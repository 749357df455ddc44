// Package matcher assigns counterparty identifier codes to ledger rows.
//
// Each transaction record is located in the ledger in two stages:
//  1. Account match: the record's counterparty account is looked up in the
//     ledger's account index and the first row for that account is taken.
//  2. Amount match: failing that, the ledger row whose amount lies in
//     [amount - tolerance, amount] with the smallest distance is taken.
//
// The located row's identifier slot is written first-write-wins: a different
// code arriving later is logged as a conflict and only replaces the slot when
// AllowOverwrite is set. Records are therefore processed strictly in the order
// given, and the outcome depends on that order.
//
// Example usage:
//
//	config := matcher.DefaultMatchingConfig()
//	config.AmountTolerance = decimal.NewFromInt(50)
//
//	m := matcher.NewMatcher(config, log)
//	result, err := m.Match(ctx, records, ledgerRows)
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MatchingConfig holds the policy knobs of a reconciliation pass
type MatchingConfig struct {
	// AmountTolerance is how far below a record's amount a ledger amount may be
	AmountTolerance decimal.Decimal `json:"amount_tolerance" yaml:"amount_tolerance" mapstructure:"amount_tolerance"`

	// AllowOverwrite lets a conflicting code replace the one already in the row
	AllowOverwrite bool `json:"allow_overwrite" yaml:"allow_overwrite" mapstructure:"allow_overwrite"`

	// PreferUnclaimedOnAmount hides rows that already hold a code from the
	// amount stage. Account matches are never filtered.
	PreferUnclaimedOnAmount bool `json:"prefer_unclaimed_on_amount" yaml:"prefer_unclaimed_on_amount" mapstructure:"prefer_unclaimed_on_amount"`
}

// DefaultMatchingConfig returns keep-first matching with a 100 unit window
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		AmountTolerance:         decimal.NewFromInt(100),
		AllowOverwrite:          false,
		PreferUnclaimedOnAmount: false,
	}
}

// StrictMatchingConfig only accepts exact amounts
func StrictMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.AmountTolerance = decimal.Zero
	return config
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	if mc.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative, got %s", mc.AmountTolerance)
	}
	return nil
}

// Clone creates a copy of the configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	clone := *mc
	return &clone
}

// AmountWindow returns the closed interval searched for an amount
func (mc *MatchingConfig) AmountWindow(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return amount.Sub(mc.AmountTolerance), amount
}

// String returns a string representation of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{AmountTolerance: %s, AllowOverwrite: %t, PreferUnclaimedOnAmount: %t}",
		mc.AmountTolerance, mc.AllowOverwrite, mc.PreferUnclaimedOnAmount)
}
