package parsers

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MappingSourceConfig describes where the account mapping table lives
type MappingSourceConfig struct {
	Path            string `json:"path" yaml:"path" mapstructure:"path"`
	Sheet           string `json:"sheet" yaml:"sheet" mapstructure:"sheet"`
	PrimaryIDColumn string `json:"primary_id_column" yaml:"primary_id_column" mapstructure:"primary_id_column"`
	CurrencyColumn  string `json:"currency_column" yaml:"currency_column" mapstructure:"currency_column"`
	AccountColumn   string `json:"account_column" yaml:"account_column" mapstructure:"account_column"`
}

// DefaultMappingSourceConfig returns the standard mapping sheet layout
func DefaultMappingSourceConfig() *MappingSourceConfig {
	return &MappingSourceConfig{
		Sheet:           "ACCT Mapping",
		PrimaryIDColumn: "PRIMARY ID",
		CurrencyColumn:  "CCY",
		AccountColumn:   "R-TAG",
	}
}

// Validate checks the mapping source configuration. An empty path is valid
// and means "no mapping".
func (mc *MappingSourceConfig) Validate() error {
	if strings.TrimSpace(mc.Path) == "" {
		return nil
	}

	if strings.TrimSpace(mc.PrimaryIDColumn) == "" {
		return fmt.Errorf("primary id column cannot be empty")
	}

	if strings.TrimSpace(mc.CurrencyColumn) == "" {
		return fmt.Errorf("currency column cannot be empty")
	}

	if strings.TrimSpace(mc.AccountColumn) == "" {
		return fmt.Errorf("account column cannot be empty")
	}

	return nil
}

// LedgerConfig describes the reconciliation target sheet
type LedgerConfig struct {
	Path          string    `json:"path" yaml:"path" mapstructure:"path"`
	Sheet         string    `json:"sheet" yaml:"sheet" mapstructure:"sheet"`
	AccountColumn ColumnRef `json:"account_column" yaml:"account_column" mapstructure:"account_column"`
	AmountColumn  ColumnRef `json:"amount_column" yaml:"amount_column" mapstructure:"amount_column"`
	TargetColumn  ColumnRef `json:"target_column" yaml:"target_column" mapstructure:"target_column"`
}

// DefaultLedgerConfig returns the DWCKFS deposit ledger layout
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		Sheet:         "DWCKFS",
		AccountColumn: ColumnRef{Name: "交易对手存款账户编码", Fallback: "X"},
		AmountColumn:  ColumnRef{Name: "存款发生金额", Fallback: "O"},
		TargetColumn:  ColumnRef{Name: "交易对手账户开户行号", Fallback: "Y"},
	}
}

// Validate checks if the ledger configuration is valid
func (lc *LedgerConfig) Validate() error {
	if strings.TrimSpace(lc.Path) == "" {
		return fmt.Errorf("ledger path cannot be empty")
	}

	refs := map[string]ColumnRef{
		"account": lc.AccountColumn,
		"amount":  lc.AmountColumn,
		"target":  lc.TargetColumn,
	}
	for role, ref := range refs {
		if strings.TrimSpace(ref.Name) == "" && strings.TrimSpace(ref.Fallback) == "" {
			return fmt.Errorf("%s column needs a header name or a column letter", role)
		}
		if ref.Fallback != "" {
			if _, err := excelize.ColumnNameToNumber(ref.Fallback); err != nil {
				return fmt.Errorf("%s column fallback %q is not a column letter", role, ref.Fallback)
			}
		}
	}

	return nil
}

// RecordsSourceConfig describes a previously written batch workbook used as
// reconciliation input
type RecordsSourceConfig struct {
	Path  string `json:"path" yaml:"path" mapstructure:"path"`
	Sheet string `json:"sheet" yaml:"sheet" mapstructure:"sheet"`
}

// FinalSheetName is the sheet holding the final view of a batch workbook
const FinalSheetName = "Step3_Final"

// DebugSheetName is the sheet holding the debug view of a batch workbook
const DebugSheetName = "Debug"

// DefaultRecordsSourceConfig reads the final view of a batch workbook
func DefaultRecordsSourceConfig() *RecordsSourceConfig {
	return &RecordsSourceConfig{Sheet: FinalSheetName}
}

// Validate checks if the records source configuration is valid
func (rc *RecordsSourceConfig) Validate() error {
	if strings.TrimSpace(rc.Path) == "" {
		return fmt.Errorf("records path cannot be empty")
	}
	return nil
}
