package models

import (
	"fmt"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/normalize"
)

// LedgerRow is one data row of the reconciliation target
type LedgerRow struct {
	// Index is the 0-based position among data rows
	Index int `json:"index"`
	// SheetRow is the 1-based spreadsheet row (header is row 1)
	SheetRow int `json:"sheet_row"`

	Account string `json:"account"`
	Amount  Amount `json:"-"`

	// Cells keeps the raw row for re-emitting non-xlsx ledgers
	Cells []string `json:"-"`

	slot       *Assignment
	conflicted bool
}

// Assignment records who wrote an identifier into a ledger row
type Assignment struct {
	Code        string    `json:"code"`
	RecordIndex int       `json:"record_index"`
	Kind        MatchKind `json:"kind"`
}

// Assigned returns the current assignment, or nil while the slot is empty
func (r *LedgerRow) Assigned() *Assignment {
	return r.slot
}

// AssignedCode returns the code in the slot or ""
func (r *LedgerRow) AssignedCode() string {
	if r.slot == nil {
		return ""
	}
	return r.slot.Code
}

// Assign writes the slot. Callers decide policy; the matcher is the only writer.
func (r *LedgerRow) Assign(a Assignment) {
	r.slot = &a
}

// Conflicted reports whether two different codes competed for this row
func (r *LedgerRow) Conflicted() bool {
	return r.conflicted
}

// MarkConflicted flags the row
func (r *LedgerRow) MarkConflicted() {
	r.conflicted = true
}

// String returns a short description of the row
func (r *LedgerRow) String() string {
	return fmt.Sprintf("LedgerRow{row: %d, acct: %s, amt: %s, code: %s}",
		r.SheetRow, r.Account, normalize.FormatAmount(r.Amount), r.AssignedCode())
}

// MatchKind tells how a record found its ledger row
type MatchKind string

const (
	MatchAccount MatchKind = "ACCOUNT"
	MatchAmount  MatchKind = "AMOUNT"
)

// OutcomeStatus is the result category of matching one record
type OutcomeStatus string

const (
	OutcomeAssigned  OutcomeStatus = "assigned"
	OutcomeRepeat    OutcomeStatus = "repeat"
	OutcomeConflict  OutcomeStatus = "conflict"
	OutcomeUnmatched OutcomeStatus = "unmatched"
)

// Unmatched reasons
const (
	ReasonEmptyCode     = "empty code"
	ReasonNoLedgerMatch = "no ledger match"
)

// MatchOutcome is what happened to one transaction record
type MatchOutcome struct {
	RecordIndex int           `json:"record_index"`
	Status      OutcomeStatus `json:"status"`
	Kind        MatchKind     `json:"kind,omitempty"`
	Code        string        `json:"code,omitempty"`
	Row         *LedgerRow    `json:"-"`
	Reason      string        `json:"reason,omitempty"`
}

// Matched reports whether the record reached a ledger row
func (o MatchOutcome) Matched() bool {
	return o.Row != nil
}

// Conflict is logged whenever a record's code differs from the one already in
// the row. Overwritten tells whether the new code replaced the prior one.
type Conflict struct {
	RecordIndex int       `json:"record_index" yaml:"record_index"`
	SheetRow    int       `json:"sheet_row" yaml:"sheet_row"`
	Prior       string    `json:"prior" yaml:"prior"`
	New         string    `json:"new" yaml:"new"`
	Kind        MatchKind `json:"kind" yaml:"kind"`
	Overwritten bool      `json:"overwritten" yaml:"overwritten"`
}

// UnmatchedRecord is one line of the unmatched report
type UnmatchedRecord struct {
	RecordIndex         int    `json:"record_index" yaml:"record_index"`
	StepRow             int    `json:"step_row" yaml:"step_row"`
	CounterpartyAccount string `json:"counterparty_account" yaml:"counterparty_account"`
	Amount              string `json:"amount" yaml:"amount"`
	Code                string `json:"code" yaml:"code"`
	Reason              string `json:"reason" yaml:"reason"`
}
