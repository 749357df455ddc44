package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/normalize"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"
)

// StepRowOffset converts a record index into its row in the final-view sheet
const StepRowOffset = 2

// Matcher runs reconciliation passes
type Matcher struct {
	Config *MatchingConfig
	logger logger.Logger
}

// Result is the complete outcome of one pass
type Result struct {
	Outcomes  []models.MatchOutcome    `json:"outcomes"`
	Conflicts []models.Conflict        `json:"conflicts"`
	Unmatched []models.UnmatchedRecord `json:"unmatched"`
	Index     IndexStats               `json:"index"`
	Summary   Summary                  `json:"summary"`
}

// Summary provides aggregate counts about a pass
type Summary struct {
	TotalRecords   int `json:"total_records" yaml:"total_records"`
	LedgerRows     int `json:"ledger_rows" yaml:"ledger_rows"`
	Assigned       int `json:"assigned" yaml:"assigned"`
	// AccountMatches and AmountMatches count writes and repeats only
	AccountMatches int `json:"account_matches" yaml:"account_matches"`
	AmountMatches  int `json:"amount_matches" yaml:"amount_matches"`
	Repeats        int `json:"repeats" yaml:"repeats"`
	Conflicts      int `json:"conflicts" yaml:"conflicts"`
	Overwritten    int `json:"overwritten" yaml:"overwritten"`
	Unmatched      int `json:"unmatched" yaml:"unmatched"`
	EmptyCode      int `json:"empty_code" yaml:"empty_code"`
}

// NewMatcher creates a matcher with the specified configuration
func NewMatcher(config *MatchingConfig, log logger.Logger) *Matcher {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Matcher{Config: config, logger: log.WithComponent("matcher")}
}

// pass stages slot writes so ledger rows are only touched once every record
// has been processed.
type pass struct {
	slots      map[*models.LedgerRow]models.Assignment
	conflicted map[*models.LedgerRow]bool
}

func (p *pass) slot(row *models.LedgerRow) *models.Assignment {
	if a, ok := p.slots[row]; ok {
		return &a
	}
	return row.Assigned()
}

func (p *pass) commit() {
	for row, a := range p.slots {
		row.Assign(a)
	}
	for row := range p.conflicted {
		row.MarkConflicted()
	}
}

// Match processes records in order against the ledger rows. On success the
// rows carry the assigned codes and conflict flags; on error (cancellation)
// no row has been modified.
func (m *Matcher) Match(ctx context.Context, records []models.TransactionRecord, rows []*models.LedgerRow) (*Result, error) {
	if err := m.Config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", m.Config.String(), err)
	}

	index := NewLedgerIndex(rows)
	p := &pass{
		slots:      make(map[*models.LedgerRow]models.Assignment),
		conflicted: make(map[*models.LedgerRow]bool),
	}
	result := &Result{
		Outcomes: make([]models.MatchOutcome, 0, len(records)),
		Index:    index.GetIndexStats(),
		Summary:  Summary{TotalRecords: len(records), LedgerRows: len(rows)},
	}

	m.logger.WithFields(logger.Fields{
		"records":         len(records),
		"ledger_rows":     len(rows),
		"unique_accounts": result.Index.UniqueAccounts,
		"unique_amounts":  result.Index.UniqueAmounts,
	}).Debug("Starting matching pass")

	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, errors.ReconciliationError(errors.CodeCancelled, "matching", err)
		}

		outcome := m.matchRecord(i, &records[i], index, p, result)
		result.Outcomes = append(result.Outcomes, outcome)
		m.tally(outcome, &result.Summary)
	}

	p.commit()
	result.Summary.Conflicts = len(result.Conflicts)

	m.logger.WithFields(logger.Fields{
		"assigned":  result.Summary.Assigned,
		"repeats":   result.Summary.Repeats,
		"conflicts": result.Summary.Conflicts,
		"unmatched": result.Summary.Unmatched,
	}).Info("Matching pass completed")

	return result, nil
}

func (m *Matcher) matchRecord(i int, rec *models.TransactionRecord, index *LedgerIndex, p *pass, result *Result) models.MatchOutcome {
	outcome := models.MatchOutcome{RecordIndex: i}

	code := strings.TrimSpace(rec.CounterpartyCode)
	if code == "" {
		outcome.Status, outcome.Reason = models.OutcomeUnmatched, models.ReasonEmptyCode
		result.Unmatched = append(result.Unmatched, unmatchedFor(i, rec, outcome.Reason))
		return outcome
	}
	outcome.Code = code

	row, kind := m.locate(rec, index, p)
	if row == nil {
		outcome.Status, outcome.Reason = models.OutcomeUnmatched, models.ReasonNoLedgerMatch
		result.Unmatched = append(result.Unmatched, unmatchedFor(i, rec, outcome.Reason))
		return outcome
	}
	outcome.Row, outcome.Kind = row, kind

	prior := p.slot(row)
	switch {
	case prior == nil:
		p.slots[row] = models.Assignment{Code: code, RecordIndex: i, Kind: kind}
		outcome.Status = models.OutcomeAssigned

	case prior.Code == code:
		outcome.Status = models.OutcomeRepeat

	default:
		conflict := models.Conflict{
			RecordIndex: i,
			SheetRow:    row.SheetRow,
			Prior:       prior.Code,
			New:         code,
			Kind:        kind,
			Overwritten: m.Config.AllowOverwrite,
		}
		result.Conflicts = append(result.Conflicts, conflict)
		p.conflicted[row] = true
		if m.Config.AllowOverwrite {
			p.slots[row] = models.Assignment{Code: code, RecordIndex: i, Kind: kind}
		}
		outcome.Status = models.OutcomeConflict

		m.logger.WithFields(logger.Fields{
			"record":      i,
			"sheet_row":   row.SheetRow,
			"prior":       prior.Code,
			"new":         code,
			"overwritten": conflict.Overwritten,
		}).Warn("Ledger row already holds a different code")
	}

	return outcome
}

// locate tries the account stage, then the amount stage
func (m *Matcher) locate(rec *models.TransactionRecord, index *LedgerIndex, p *pass) (*models.LedgerRow, models.MatchKind) {
	if rows := index.GetByAccount(rec.CounterpartyAccount); len(rows) > 0 {
		return rows[0], models.MatchAccount
	}

	if !rec.Amount.Valid {
		return nil, ""
	}

	var keep func(*models.LedgerRow) bool
	if m.Config.PreferUnclaimedOnAmount {
		keep = func(row *models.LedgerRow) bool { return p.slot(row) == nil }
	}

	lo, hi := m.Config.AmountWindow(rec.Amount.Decimal)
	if row := index.Closest(rec.Amount.Decimal, lo, hi, keep); row != nil {
		return row, models.MatchAmount
	}
	return nil, ""
}

func (m *Matcher) tally(o models.MatchOutcome, s *Summary) {
	switch o.Status {
	case models.OutcomeAssigned:
		s.Assigned++
	case models.OutcomeRepeat:
		s.Repeats++
	case models.OutcomeConflict:
		if m.Config.AllowOverwrite {
			s.Overwritten++
		}
	case models.OutcomeUnmatched:
		s.Unmatched++
		if o.Reason == models.ReasonEmptyCode {
			s.EmptyCode++
		}
	}

	// a conflict is logged, not counted as a hit
	if o.Status == models.OutcomeConflict {
		return
	}
	switch o.Kind {
	case models.MatchAccount:
		s.AccountMatches++
	case models.MatchAmount:
		s.AmountMatches++
	}
}

func unmatchedFor(i int, rec *models.TransactionRecord, reason string) models.UnmatchedRecord {
	return models.UnmatchedRecord{
		RecordIndex:         i,
		StepRow:             i + StepRowOffset,
		CounterpartyAccount: rec.CounterpartyAccount,
		Amount:              normalize.FormatAmount(rec.Amount),
		Code:                strings.TrimSpace(rec.CounterpartyCode),
		Reason:              reason,
	}
}

// String returns a one-line summary
func (s Summary) String() string {
	return fmt.Sprintf("records=%d assigned=%d (account=%d amount=%d) repeats=%d conflicts=%d overwritten=%d unmatched=%d",
		s.TotalRecords, s.Assigned, s.AccountMatches, s.AmountMatches, s.Repeats, s.Conflicts, s.Overwritten, s.Unmatched)
}
