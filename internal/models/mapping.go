package models

import "strings"

// MappingEntry is one row of the account mapping sheet
type MappingEntry struct {
	PrimaryID string
	Currency  string
	Account   string
}

type accountCurrency struct {
	account  string
	currency string
}

// MappingTable resolves a record's account (and currency) to its primary id.
// It is read-only once built.
type MappingTable struct {
	byAccountCurrency map[accountCurrency]string
	byAccount         map[string]string
	size              int
}

// NewMappingTable indexes the entries. Entries without a primary id or account
// are ignored; for duplicate account-only keys the first entry wins.
func NewMappingTable(entries []MappingEntry) *MappingTable {
	t := &MappingTable{
		byAccountCurrency: make(map[accountCurrency]string),
		byAccount:         make(map[string]string),
	}

	for _, e := range entries {
		id := strings.TrimSpace(e.PrimaryID)
		account := strings.TrimSpace(e.Account)
		if isBlankCell(id) || isBlankCell(account) {
			continue
		}
		currency := strings.ToUpper(strings.TrimSpace(e.Currency))

		t.byAccountCurrency[accountCurrency{account, currency}] = id
		if _, seen := t.byAccount[account]; !seen {
			t.byAccount[account] = id
		}
		t.size++
	}

	return t
}

func isBlankCell(s string) bool {
	return s == "" || strings.EqualFold(s, "nan")
}

// Len returns the number of usable entries
func (t *MappingTable) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Resolve returns the primary id for (account, currency), falling back to the
// account alone. A nil table resolves nothing.
func (t *MappingTable) Resolve(account, currency string) (string, bool) {
	if t == nil {
		return "", false
	}

	account = strings.TrimSpace(account)
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if id, ok := t.byAccountCurrency[accountCurrency{account, currency}]; ok {
		return id, true
	}
	if account == "" {
		return "", false
	}
	id, ok := t.byAccount[account]
	return id, ok
}
