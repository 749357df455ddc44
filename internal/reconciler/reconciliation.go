// Package reconciler runs a complete reconciliation: it loads the transaction
// records and the ledger, indexes and matches them, and hands back one
// result that the reporter can render or write.
//
// The ledger is loaded fresh for every call and the matcher only commits its
// writes after a full pass, so a failed or cancelled run never leaves a
// half-annotated ledger behind.
//
// Example usage:
//
//	service, err := reconciler.NewReconciliationService(matchingConfig, log)
//	if err != nil {
//		return err
//	}
//
//	result, err := service.ProcessReconciliation(ctx, &reconciler.ReconciliationRequest{
//		RecordsSource: &parsers.RecordsSourceConfig{Path: "20240115_Swift.xlsx", Sheet: parsers.FinalSheetName},
//		Ledger:        ledgerConfig,
//	})
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/matcher"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/parsers"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/google/uuid"
)

// ReconciliationService orchestrates load, match and result assembly
type ReconciliationService struct {
	matcher *matcher.Matcher
	logger  logger.Logger
}

// ReconciliationRequest names the inputs of one run. Records are taken from
// memory when set, otherwise they are read from RecordsSource.
type ReconciliationRequest struct {
	Records       []models.TransactionRecord
	RecordsSource *parsers.RecordsSourceConfig
	Ledger        *parsers.LedgerConfig
}

// Validate validates the reconciliation request
func (r *ReconciliationRequest) Validate() error {
	if r.Ledger == nil {
		return fmt.Errorf("ledger configuration is required")
	}
	if err := r.Ledger.Validate(); err != nil {
		return err
	}

	if r.Records == nil {
		if r.RecordsSource == nil {
			return fmt.Errorf("either in-memory records or a records source is required")
		}
		if err := r.RecordsSource.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(config *matcher.MatchingConfig, log logger.Logger) (*ReconciliationService, error) {
	if config == nil {
		config = matcher.DefaultMatchingConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", config.String(), err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	return &ReconciliationService{
		matcher: matcher.NewMatcher(config, log),
		logger:  log.WithComponent("reconciler"),
	}, nil
}

// GetMatchingConfig returns the matching configuration in use
func (rs *ReconciliationService) GetMatchingConfig() *matcher.MatchingConfig {
	return rs.matcher.Config
}

// ProcessReconciliation performs the complete reconciliation process. Records
// are matched in the order they are given.
func (rs *ReconciliationService) ProcessReconciliation(ctx context.Context, request *ReconciliationRequest) (*ReconciliationResult, error) {
	if request == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "reconciliation_request", nil, nil)
	}
	if err := request.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidConfig, "reconciliation_request", nil, err).
			WithSuggestion("Provide a ledger file and either a records workbook or extracted records")
	}

	result := &ReconciliationResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := rs.logger.WithField("run_id", result.RunID)
	op := logger.NewOperationLogger("reconciliation", log).WithField("run_id", result.RunID)

	records, err := rs.loadRecords(request, log, &result.Timings)
	if err != nil {
		op.Error(err, "Reconciliation aborted while loading records")
		return nil, err
	}
	result.Records = records

	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeCancelled, "load", err)
	}

	op.Step("load_ledger")
	start := time.Now()
	err = logger.TimedOperation("load_ledger", log, func() error {
		ledger, err := parsers.LoadLedger(request.Ledger)
		result.Ledger = ledger
		return err
	})
	result.Timings.LoadLedger = time.Since(start)
	if err != nil {
		op.Error(err, "Reconciliation aborted while loading the ledger")
		return nil, err
	}

	op.Step("match")
	start = time.Now()
	err = logger.TimedOperation("match", log, func() error {
		match, err := rs.matcher.Match(ctx, result.Records, result.Ledger.Rows)
		result.Match = match
		return err
	})
	result.Timings.Match = time.Since(start)
	if err != nil {
		op.Error(err, "Reconciliation aborted during matching")
		return nil, errors.WrapIfNeeded(err, errors.CategoryReconciliation, errors.CodeMatchingFailed, "matching failed")
	}

	result.CompletedAt = time.Now()
	result.Timings.Total = result.CompletedAt.Sub(result.StartedAt)

	op.WithField("summary", result.Match.Summary.String()).Success("Reconciliation completed")
	return result, nil
}

func (rs *ReconciliationService) loadRecords(request *ReconciliationRequest, log logger.Logger, timings *Timings) ([]models.TransactionRecord, error) {
	if request.Records != nil {
		log.WithField("records", len(request.Records)).Debug("Using in-memory records")
		return request.Records, nil
	}

	var records []models.TransactionRecord
	start := time.Now()
	err := logger.TimedOperation("load_records", log, func() error {
		var err error
		records, err = parsers.LoadRecords(request.RecordsSource)
		return err
	})
	timings.LoadRecords = time.Since(start)
	return records, err
}
