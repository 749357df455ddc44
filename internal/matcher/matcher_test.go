package matcher

import (
	"context"
	"testing"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	codeA = "AAAADEFFXXX"
	codeB = "BBBBGB2LXXX"
)

func newTestMatcher(config *MatchingConfig) *Matcher {
	return NewMatcher(config, logger.Discard())
}

func record(account, amt, code string) models.TransactionRecord {
	r := models.TransactionRecord{CounterpartyAccount: account, CounterpartyCode: code}
	if amt != "" {
		r.Amount = amount(amt)
	}
	return r
}

// amountLedger is the {100.00, 95.50, 90.00} ledger with one account on the exact row
func amountLedger() []*models.LedgerRow {
	return []*models.LedgerRow{
		{Index: 0, SheetRow: 2, Account: "111", Amount: amount("100.00")},
		{Index: 1, SheetRow: 3, Amount: amount("95.50")},
		{Index: 2, SheetRow: 4, Amount: amount("90.00")},
	}
}

func TestMatch_OrderSensitivity(t *testing.T) {
	a := record("111", "", codeA)
	b := record("111", "", codeB)

	tests := []struct {
		name      string
		records   []models.TransactionRecord
		wantCode  string
		wantPrior string
		wantNew   string
	}{
		{"A then B", []models.TransactionRecord{a, b}, codeA, codeA, codeB},
		{"B then A", []models.TransactionRecord{b, a}, codeB, codeB, codeA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := amountLedger()
			result, err := newTestMatcher(nil).Match(context.Background(), tt.records, rows)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}

			if got := rows[0].AssignedCode(); got != tt.wantCode {
				t.Errorf("row code = %q, want %q", got, tt.wantCode)
			}
			if !rows[0].Conflicted() {
				t.Error("row should be flagged as conflicted")
			}
			if len(result.Conflicts) != 1 {
				t.Fatalf("conflicts = %d, want 1", len(result.Conflicts))
			}
			c := result.Conflicts[0]
			if c.Prior != tt.wantPrior || c.New != tt.wantNew || c.Overwritten || c.RecordIndex != 1 || c.SheetRow != 2 {
				t.Errorf("conflict = %+v", c)
			}
			if result.Outcomes[1].Status != models.OutcomeConflict {
				t.Errorf("second outcome = %s, want conflict", result.Outcomes[1].Status)
			}
		})
	}
}

func TestMatch_AmountClosestWithinTolerance(t *testing.T) {
	config := DefaultMatchingConfig()
	config.AmountTolerance = decimal.NewFromInt(10)

	tests := []struct {
		name             string
		preferUnclaimed  bool
		records          []models.TransactionRecord
		wantRowForTarget int
	}{
		{
			name:             "exact amount wins",
			records:          []models.TransactionRecord{record("", "100.00", codeA)},
			wantRowForTarget: 0,
		},
		{
			name:             "claimed row still a candidate by default",
			records:          []models.TransactionRecord{record("111", "", codeB), record("", "100.00", codeA)},
			wantRowForTarget: 0,
		},
		{
			name:             "claimed row excluded when preferring unclaimed",
			preferUnclaimed:  true,
			records:          []models.TransactionRecord{record("111", "", codeB), record("", "100.00", codeA)},
			wantRowForTarget: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Clone()
			cfg.PreferUnclaimedOnAmount = tt.preferUnclaimed

			result, err := newTestMatcher(cfg).Match(context.Background(), tt.records, amountLedger())
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}

			last := result.Outcomes[len(result.Outcomes)-1]
			if !last.Matched() || last.Kind != models.MatchAmount {
				t.Fatalf("outcome = %+v, want an amount match", last)
			}
			if last.Row.Index != tt.wantRowForTarget {
				t.Errorf("matched row %d, want %d", last.Row.Index, tt.wantRowForTarget)
			}
		})
	}
}

func TestMatch_AmountWindowIsBelowTarget(t *testing.T) {
	config := DefaultMatchingConfig()
	config.AmountTolerance = decimal.NewFromInt(10)
	rows := []*models.LedgerRow{
		{Index: 0, SheetRow: 2, Amount: amount("101")},
		{Index: 1, SheetRow: 3, Amount: amount("89.99")},
	}

	result, err := newTestMatcher(config).Match(context.Background(),
		[]models.TransactionRecord{record("", "100", codeA)}, rows)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if result.Outcomes[0].Matched() {
		t.Errorf("amounts above the target or beyond the tolerance must not match: %+v", result.Outcomes[0])
	}
	if len(result.Unmatched) != 1 || result.Unmatched[0].Reason != models.ReasonNoLedgerMatch {
		t.Errorf("Unmatched = %+v", result.Unmatched)
	}
}

func TestMatch_Outcomes(t *testing.T) {
	rows := amountLedger()
	records := []models.TransactionRecord{
		record("111", "", codeA),        // account match
		record("111", "", codeA),        // same code again
		record("999", "", ""),           // no code
		record("", "95.50", codeB),      // amount match
		record("424242", "5.00", codeB), // nothing in range
	}

	result, err := newTestMatcher(nil).Match(context.Background(), records, rows)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	want := []struct {
		status models.OutcomeStatus
		kind   models.MatchKind
		reason string
	}{
		{models.OutcomeAssigned, models.MatchAccount, ""},
		{models.OutcomeRepeat, models.MatchAccount, ""},
		{models.OutcomeUnmatched, "", models.ReasonEmptyCode},
		{models.OutcomeAssigned, models.MatchAmount, ""},
		{models.OutcomeUnmatched, "", models.ReasonNoLedgerMatch},
	}
	for i, w := range want {
		got := result.Outcomes[i]
		if got.Status != w.status || got.Kind != w.kind || got.Reason != w.reason {
			t.Errorf("outcome %d = %+v, want %s/%s/%q", i, got, w.status, w.kind, w.reason)
		}
	}

	if len(result.Conflicts) != 0 {
		t.Errorf("repeat write must not be a conflict: %+v", result.Conflicts)
	}
	if rows[0].Conflicted() {
		t.Error("repeat write must not flag the row")
	}
	if rows[1].AssignedCode() != codeB || rows[1].Assigned().Kind != models.MatchAmount || rows[1].Assigned().RecordIndex != 3 {
		t.Errorf("row 1 assignment = %+v", rows[1].Assigned())
	}

	if len(result.Unmatched) != 2 {
		t.Fatalf("Unmatched = %d, want 2", len(result.Unmatched))
	}
	u := result.Unmatched[1]
	if u.StepRow != 6 || u.Amount != "5.00" || u.CounterpartyAccount != "424242" || u.Code != codeB {
		t.Errorf("unmatched entry = %+v", u)
	}

	wantSummary := Summary{
		TotalRecords:   5,
		LedgerRows:     3,
		Assigned:       2,
		AccountMatches: 2,
		AmountMatches:  1,
		Repeats:        1,
		Unmatched:      2,
		EmptyCode:      1,
	}
	if result.Summary != wantSummary {
		t.Errorf("Summary = %+v, want %+v", result.Summary, wantSummary)
	}
}

func TestMatch_AllowOverwrite(t *testing.T) {
	config := DefaultMatchingConfig()
	config.AllowOverwrite = true
	rows := amountLedger()

	result, err := newTestMatcher(config).Match(context.Background(),
		[]models.TransactionRecord{record("111", "", codeA), record("111", "", codeB)}, rows)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if rows[0].AssignedCode() != codeB {
		t.Errorf("row code = %q, want %q", rows[0].AssignedCode(), codeB)
	}
	if !rows[0].Conflicted() {
		t.Error("overwritten row must still be flagged")
	}
	if len(result.Conflicts) != 1 || !result.Conflicts[0].Overwritten {
		t.Errorf("Conflicts = %+v", result.Conflicts)
	}
	if result.Summary.Overwritten != 1 || result.Summary.Conflicts != 1 {
		t.Errorf("Summary = %+v", result.Summary)
	}
	if result.Summary.AccountMatches != 1 {
		t.Errorf("AccountMatches = %d, want 1: an overwriting conflict is not a hit", result.Summary.AccountMatches)
	}
}

func TestMatch_PriorAssignmentsCount(t *testing.T) {
	rows := amountLedger()
	rows[0].Assign(models.Assignment{Code: codeA, RecordIndex: 0, Kind: models.MatchAccount})

	result, err := newTestMatcher(nil).Match(context.Background(),
		[]models.TransactionRecord{record("111", "", codeB)}, rows)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if result.Outcomes[0].Status != models.OutcomeConflict || rows[0].AssignedCode() != codeA {
		t.Errorf("outcome = %+v, row code = %q", result.Outcomes[0], rows[0].AssignedCode())
	}
	if result.Summary.AccountMatches != 0 || result.Summary.AmountMatches != 0 {
		t.Errorf("Summary = %+v, a kept conflict counts no hit", result.Summary)
	}
}

func TestMatch_CancelledLeavesLedgerUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows := amountLedger()

	result, err := newTestMatcher(nil).Match(ctx, []models.TransactionRecord{record("111", "", codeA)}, rows)
	if result != nil {
		t.Error("cancelled pass must not return a result")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.CodeCancelled {
		t.Errorf("Match() error = %v, want cancelled", err)
	}
	if rows[0].Assigned() != nil {
		t.Error("cancelled pass must not write any slot")
	}
}

func TestMatch_InvalidConfig(t *testing.T) {
	config := DefaultMatchingConfig()
	config.AmountTolerance = decimal.NewFromInt(-5)

	_, err := newTestMatcher(config).Match(context.Background(), nil, nil)
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Category != errors.CategoryConfiguration {
		t.Errorf("Match() error = %v, want configuration error", err)
	}
}
