package model

// Account maps a payment-method display name to a remote ledger account.
type Account struct {
	Name     string `yaml:"name" json:"name"`
	LedgerID int64  `yaml:"ledger_id" json:"ledger_id"`
}
