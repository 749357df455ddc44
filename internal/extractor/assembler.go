// Package extractor turns the decoded text of an MT-style payment message into
// a models.TransactionRecord.
//
// Extraction runs in four steps:
//  1. ExtractBlock cuts the message into tag blocks ("50K:", "59:", ...).
//  2. ClassifyDirection decides whether the message is incoming or outgoing.
//  3. The Pick* heuristics locate the account, name, bank code and bank name
//     inside a block.
//  4. Assembler routes block results into record fields by direction.
//
// Every step is a pure function of the message text; an Assembler can be
// shared between goroutines.
package extractor

import (
	"fmt"
	"regexp"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/normalize"
)

// TagConfig names the tags that feed each logical block
type TagConfig struct {
	Ordering            string `json:"ordering" yaml:"ordering" mapstructure:"ordering"`
	Beneficiary         string `json:"beneficiary" yaml:"beneficiary" mapstructure:"beneficiary"`
	BeneficiarySpecific string `json:"beneficiary_specific" yaml:"beneficiary_specific" mapstructure:"beneficiary_specific"`
	Intermediary        string `json:"intermediary" yaml:"intermediary" mapstructure:"intermediary"`
	Receiving           string `json:"receiving" yaml:"receiving" mapstructure:"receiving"`
	ValueDate           string `json:"value_date" yaml:"value_date" mapstructure:"value_date"`
}

// DefaultTagConfig returns the MT103 tags used by the ledger's messages
func DefaultTagConfig() TagConfig {
	return TagConfig{
		Ordering:            "50K",
		Beneficiary:         "59",
		BeneficiarySpecific: "59F",
		Intermediary:        "52A",
		Receiving:           "57A",
		ValueDate:           "32A",
	}
}

// Validate checks that every tag is set
func (c TagConfig) Validate() error {
	tags := map[string]string{
		"ordering":             c.Ordering,
		"beneficiary":          c.Beneficiary,
		"beneficiary_specific": c.BeneficiarySpecific,
		"intermediary":         c.Intermediary,
		"receiving":            c.Receiving,
		"value_date":           c.ValueDate,
	}
	for name, tag := range tags {
		if tag == "" {
			return fmt.Errorf("tag %s cannot be empty", name)
		}
	}
	return nil
}

// Assembler builds one TransactionRecord per message
type Assembler struct {
	tags TagConfig
}

// NewAssembler creates an assembler for the given tags
func NewAssembler(tags TagConfig) (*Assembler, error) {
	if err := tags.Validate(); err != nil {
		return nil, err
	}
	return &Assembler{tags: tags}, nil
}

// Assemble extracts a record from a decoded message. Records of UNKNOWN
// direction carry only the file name.
func (a *Assembler) Assemble(msg models.RawMessage) models.TransactionRecord {
	record := models.TransactionRecord{
		FileName:  msg.FileName,
		Direction: ClassifyDirection(msg.Text),
	}
	if !record.Direction.IsKnown() {
		return record
	}

	blocks := ExtractBlocks(msg.Text,
		a.tags.Ordering, a.tags.Beneficiary, a.tags.BeneficiarySpecific,
		a.tags.Intermediary, a.tags.Receiving, a.tags.ValueDate)
	lines := func(tag string) []string { return CleanLines(blocks[tag].Lines) }

	ordering := lines(a.tags.Ordering)
	beneficiary := lines(a.tags.Beneficiary)

	var bank []string
	var bankTag, clientTag string

	switch record.Direction {
	case models.DirectionOut:
		record.ClientAccount = PickAccountLine(ordering)
		record.CounterpartyName = PickBeneficiaryNameUntilAddress(beneficiary)
		record.CounterpartyAccount = PickAccountLine(beneficiary)
		bank, bankTag, clientTag = lines(a.tags.Receiving), a.tags.Receiving, a.tags.Ordering

	case models.DirectionIn:
		record.ClientAccount = PickAccountLine(lines(a.tags.BeneficiarySpecific))
		clientTag = a.tags.BeneficiarySpecific
		if record.ClientAccount == "" {
			record.ClientAccount = PickAccountLine(beneficiary)
			clientTag = a.tags.Beneficiary
		}
		record.CounterpartyName = PickNameAfterAccount(ordering)
		record.CounterpartyAccount = PickAccountLine(ordering)
		bank, bankTag = lines(a.tags.Intermediary), a.tags.Intermediary
	}

	record.CounterpartyCode = PickIdentifierCode(bank)
	record.CounterpartyBank = PickBankName(bank, record.CounterpartyCode)
	record.Date, record.Currency, record.Amount = parseValueBlock(lines(a.tags.ValueDate))

	if record.ClientAccount == "" {
		record.Warnings = append(record.Warnings, fmt.Sprintf("no account line in block %s", clientTag))
	}
	if record.CounterpartyCode == "" {
		record.Warnings = append(record.Warnings, fmt.Sprintf("no identifier code in block %s", bankTag))
	}

	return record
}

var (
	valueDateLine  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	currencyAmount = regexp.MustCompile(`\b([A-Z]{3})\b\s*([0-9][0-9,.\s]*)(?:\(|$)`)
)

// parseValueBlock reads the value date, currency and amount out of a 32A block.
// The first line that looks like a date and the first currency/amount match
// win independently.
func parseValueBlock(lines []string) (date, currency string, amount models.Amount) {
	dateFound, amountFound := false, false
	for _, line := range lines {
		if !dateFound && valueDateLine.MatchString(line) {
			date = normalize.ParseDate(line)
			dateFound = true
		}
		if !amountFound {
			if m := currencyAmount.FindStringSubmatch(line); m != nil {
				currency = m[1]
				amount = normalize.ParseAmount(m[2])
				amountFound = true
			}
		}
		if dateFound && amountFound {
			break
		}
	}
	return date, currency, amount
}
