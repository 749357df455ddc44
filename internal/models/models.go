package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/normalize"

	"github.com/shopspring/decimal"
)

// Amount is an optional decimal amount; Valid is false when the source had none
type Amount = decimal.NullDecimal

// Direction tells whether a message moves funds out of or into the client's account
type Direction string

const (
	DirectionIn      Direction = "IN"
	DirectionOut     Direction = "OUT"
	DirectionUnknown Direction = "UNKNOWN"
)

// String returns the string representation of the direction
func (d Direction) String() string {
	return string(d)
}

// IsKnown reports whether the direction is IN or OUT
func (d Direction) IsKnown() bool {
	return d == DirectionIn || d == DirectionOut
}

// Column renders the direction for tabular output; UNKNOWN is left blank.
func (d Direction) Column() string {
	if d.IsKnown() {
		return string(d)
	}
	return ""
}

// ParseDirection converts a column value back into a Direction
func ParseDirection(s string) Direction {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN":
		return DirectionIn
	case "OUT":
		return DirectionOut
	default:
		return DirectionUnknown
	}
}

// RawMessage is one decoded message file
type RawMessage struct {
	FileName string
	Text     string
	// Encoding names the decoder that produced Text (e.g. "msg/utf-16le", "utf-8").
	Encoding string
}

// FieldBlock holds the cleaned lines that follow a tag header such as "59:"
type FieldBlock struct {
	Tag   string
	Lines []string
}

// IsEmpty reports whether the block collected no lines
func (b FieldBlock) IsEmpty() bool {
	return len(b.Lines) == 0
}

// TransactionRecord is the structured form of one payment message
type TransactionRecord struct {
	ClientAccount       string    `json:"client_account"`
	PrimaryID           string    `json:"primary_id"`
	Date                string    `json:"date"`
	Currency            string    `json:"currency"`
	Amount              Amount    `json:"-"`
	CounterpartyName    string    `json:"counterparty_name"`
	CounterpartyAccount string    `json:"counterparty_account"`
	CounterpartyCode    string    `json:"counterparty_code"`
	CounterpartyBank    string    `json:"counterparty_bank"`
	Direction           Direction `json:"direction"`
	FileName            string    `json:"file_name"`
	Error               string    `json:"error,omitempty"`
	Warnings            []string  `json:"warnings,omitempty"`
}

// MarshalJSON renders the amount the same way the tabular output does
func (r TransactionRecord) MarshalJSON() ([]byte, error) {
	type Alias TransactionRecord
	return json.Marshal(&struct {
		Alias
		Amount string `json:"amount"`
	}{
		Alias:  Alias(r),
		Amount: normalize.FormatAmount(r.Amount),
	})
}

// HasKeyFields reports whether at least one of the fields that make a record
// useful downstream is populated.
func (r *TransactionRecord) HasKeyFields() bool {
	return r.ClientAccount != "" ||
		r.Date != "" ||
		r.Currency != "" ||
		r.Amount.Valid ||
		r.CounterpartyAccount != "" ||
		r.CounterpartyCode != ""
}

// Failed reports whether extraction of this record failed
func (r *TransactionRecord) Failed() bool {
	return r.Error != ""
}

// String returns a short description of the record
func (r *TransactionRecord) String() string {
	if r.Failed() {
		return fmt.Sprintf("Record{file: %s, error: %s}", r.FileName, r.Error)
	}
	return fmt.Sprintf("Record{file: %s, dir: %s, acct: %s, ccy: %s, amt: %s, cp: %s/%s}",
		r.FileName, r.Direction, r.ClientAccount, r.Currency, normalize.FormatAmount(r.Amount),
		r.CounterpartyAccount, r.CounterpartyCode)
}

// FailedRecord builds the placeholder record emitted when a file cannot be processed
func FailedRecord(fileName string, err error) TransactionRecord {
	return TransactionRecord{
		FileName:  fileName,
		Direction: DirectionUnknown,
		Error:     err.Error(),
	}
}
