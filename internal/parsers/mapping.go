package parsers

import (
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"
)

// LoadMappingTable reads the account mapping sheet. An empty path yields an
// empty table so that every record simply resolves no primary id.
func LoadMappingTable(cfg *MappingSourceConfig) (*models.MappingTable, error) {
	if cfg == nil || cfg.Path == "" {
		return models.NewMappingTable(nil), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "mapping", cfg.Path, err)
	}

	table, err := ReadTable(cfg.Path, cfg.Sheet)
	if err != nil {
		return nil, err
	}

	cols, err := table.RequireColumns(cfg.PrimaryIDColumn, cfg.CurrencyColumn, cfg.AccountColumn)
	if err != nil {
		return nil, err
	}
	idCol, ccyCol, acctCol := cols[0], cols[1], cols[2]

	entries := make([]models.MappingEntry, 0, len(table.Rows))
	for _, row := range table.Rows {
		entries = append(entries, models.MappingEntry{
			PrimaryID: table.Cell(row, idCol),
			Currency:  table.Cell(row, ccyCol),
			Account:   table.Cell(row, acctCol),
		})
	}

	mapping := models.NewMappingTable(entries)
	logger.GetGlobalLogger().WithComponent("parsers").WithFields(logger.Fields{
		"file":    cfg.Path,
		"rows":    len(table.Rows),
		"entries": mapping.Len(),
	}).Info("Loaded account mapping")

	return mapping, nil
}
