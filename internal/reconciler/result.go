package reconciler

import (
	"time"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/matcher"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/parsers"
)

// ReconciliationResult contains the complete results of reconciliation
type ReconciliationResult struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
	Timings     Timings   `json:"timings" yaml:"timings"`

	// Records in the order they were matched
	Records []models.TransactionRecord `json:"-" yaml:"-"`

	// Ledger carries the assigned codes and conflict flags after the pass
	Ledger *parsers.Ledger `json:"-" yaml:"-"`

	Match *matcher.Result `json:"match" yaml:"match"`
}

// Timings records the duration of each phase
type Timings struct {
	LoadRecords time.Duration `json:"load_records" yaml:"load_records"`
	LoadLedger  time.Duration `json:"load_ledger" yaml:"load_ledger"`
	Match       time.Duration `json:"match" yaml:"match"`
	Total       time.Duration `json:"total" yaml:"total"`
}

// Summary returns the matcher's counts
func (r *ReconciliationResult) Summary() matcher.Summary {
	if r.Match == nil {
		return matcher.Summary{}
	}
	return r.Match.Summary
}

// Conflicts returns the conflict log of the pass
func (r *ReconciliationResult) Conflicts() []models.Conflict {
	if r.Match == nil {
		return nil
	}
	return r.Match.Conflicts
}

// Unmatched returns the records that found no ledger row
func (r *ReconciliationResult) Unmatched() []models.UnmatchedRecord {
	if r.Match == nil {
		return nil
	}
	return r.Match.Unmatched
}
