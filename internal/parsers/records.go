package parsers

import (
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/normalize"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"
)

// Column headers of the batch workbook
const (
	ColClientAccount       = "Client Acct"
	ColPrimaryID           = "PRIM ID"
	ColDate                = "DATE"
	ColCurrency            = "CCY"
	ColAmount              = "AMT"
	ColCounterpartyName    = "CP NAME"
	ColCounterpartyAccount = "CP A/C"
	ColCounterpartyCode    = "CP SWIFT"
	ColCounterpartyBank    = "CP BANK NAME"
	ColDirection           = "DIRECTION"
	ColFile                = "FILE"
	ColError               = "ERROR"
	ColWarnings            = "WARNINGS"
)

// FinalColumns is the column order of the final view
var FinalColumns = []string{
	ColClientAccount,
	ColPrimaryID,
	ColDate,
	ColCurrency,
	ColAmount,
	ColCounterpartyName,
	ColCounterpartyAccount,
	ColCounterpartyCode,
	ColCounterpartyBank,
	ColDirection,
}

// DebugColumns is the column order of the debug view
var DebugColumns = append(append([]string{ColFile}, FinalColumns...), ColError, ColWarnings)

// FinalRow renders a record in FinalColumns order
func FinalRow(r models.TransactionRecord) []string {
	return []string{
		r.ClientAccount,
		r.PrimaryID,
		r.Date,
		r.Currency,
		normalize.FormatAmount(r.Amount),
		r.CounterpartyName,
		r.CounterpartyAccount,
		r.CounterpartyCode,
		r.CounterpartyBank,
		r.Direction.Column(),
	}
}

// LoadRecords reads the final view of a batch workbook (or a CSV with the same
// headers). Only CP A/C, AMT and CP SWIFT are required; other columns are
// read when present.
func LoadRecords(cfg *RecordsSourceConfig) ([]models.TransactionRecord, error) {
	if cfg == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "records", nil, nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "records", cfg.Path, err)
	}

	table, err := ReadTable(cfg.Path, cfg.Sheet)
	if err != nil {
		return nil, err
	}

	if _, err := table.RequireColumns(ColCounterpartyAccount, ColAmount, ColCounterpartyCode); err != nil {
		return nil, err
	}

	col := func(name string) int { return table.ColumnIndex(name) }
	var (
		acctCol   = col(ColClientAccount)
		idCol     = col(ColPrimaryID)
		dateCol   = col(ColDate)
		ccyCol    = col(ColCurrency)
		amtCol    = col(ColAmount)
		nameCol   = col(ColCounterpartyName)
		cpAcctCol = col(ColCounterpartyAccount)
		codeCol   = col(ColCounterpartyCode)
		bankCol   = col(ColCounterpartyBank)
		dirCol    = col(ColDirection)
		fileCol   = col(ColFile)
	)

	records := make([]models.TransactionRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		records = append(records, models.TransactionRecord{
			ClientAccount:       table.Cell(row, acctCol),
			PrimaryID:           table.Cell(row, idCol),
			Date:                table.Cell(row, dateCol),
			Currency:            table.Cell(row, ccyCol),
			Amount:              normalize.LedgerAmount(table.Cell(row, amtCol)),
			CounterpartyName:    table.Cell(row, nameCol),
			CounterpartyAccount: table.Cell(row, cpAcctCol),
			CounterpartyCode:    table.Cell(row, codeCol),
			CounterpartyBank:    table.Cell(row, bankCol),
			Direction:           models.ParseDirection(table.Cell(row, dirCol)),
			FileName:            table.Cell(row, fileCol),
		})
	}

	logger.GetGlobalLogger().WithComponent("parsers").WithFields(logger.Fields{
		"file":    cfg.Path,
		"records": len(records),
	}).Info("Loaded transaction records")

	return records, nil
}
