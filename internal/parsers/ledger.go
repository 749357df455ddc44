package parsers

import (
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/normalize"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"
)

// HeaderRows is the number of sheet rows above the first data row
const HeaderRows = 1

// Ledger is a loaded reconciliation target together with the resolved
// column positions needed to write it back.
type Ledger struct {
	Path    string
	Sheet   string
	Headers []string
	Rows    []*models.LedgerRow

	AccountCol int
	AmountCol  int
	TargetCol  int
}

// SheetRow converts a 0-based data index into the 1-based spreadsheet row
func SheetRow(index int) int {
	return index + HeaderRows + 1
}

// LoadLedger reads the ledger sheet. Account cells are canonicalized so that
// scientific notation compares equal to the plain digits found in messages.
func LoadLedger(cfg *LedgerConfig) (*Ledger, error) {
	if cfg == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "ledger", nil, nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "ledger", cfg.Path, err)
	}

	table, err := ReadTable(cfg.Path, cfg.Sheet)
	if err != nil {
		return nil, err
	}

	ledger := &Ledger{
		Path:    cfg.Path,
		Sheet:   table.Sheet,
		Headers: table.Headers,
		Rows:    make([]*models.LedgerRow, 0, len(table.Rows)),
	}

	if ledger.AccountCol, err = table.Column(cfg.AccountColumn); err != nil {
		return nil, err
	}
	if ledger.AmountCol, err = table.Column(cfg.AmountColumn); err != nil {
		return nil, err
	}
	if ledger.TargetCol, err = table.Column(cfg.TargetColumn); err != nil {
		return nil, err
	}

	for i, cells := range table.Rows {
		ledger.Rows = append(ledger.Rows, &models.LedgerRow{
			Index:    i,
			SheetRow: SheetRow(i),
			Account:  normalize.LedgerAccount(table.Cell(cells, ledger.AccountCol)),
			Amount:   normalize.LedgerAmount(table.Cell(cells, ledger.AmountCol)),
			Cells:    cells,
		})
	}

	logger.GetGlobalLogger().WithComponent("parsers").WithFields(logger.Fields{
		"file":  cfg.Path,
		"sheet": ledger.Sheet,
		"rows":  len(ledger.Rows),
	}).Info("Loaded ledger")

	return ledger, nil
}
