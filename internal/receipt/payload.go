package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/cleared-dev/recibo/internal/model"
	"github.com/cleared-dev/recibo/internal/money"
)

const (
	// PayloadDateFormat is the date layout the remote API expects.
	PayloadDateFormat = "2006-01-02"
	// DisplayDateFormat is the date layout printed on receipts and logged.
	DisplayDateFormat = "02-01-2006"
)

// LedgerLookup maps a payment account display name to its ledger account.
type LedgerLookup interface {
	LedgerID(name string) (int64, bool)
}

// BuildParams holds what BuildRecord needs. Lines must already be validated.
type BuildParams struct {
	Date     time.Time
	ClientID int64
	Signer   string
	Draft    Draft
	Accounts LedgerLookup
}

// BuildRecord constructs the collection record for a validated draft. It does
// not re-check totals.
//
// The primary ledger account is the one of the FIRST payment line in entry
// order; reordering payment lines changes the record.
func BuildRecord(p BuildParams) (model.CollectionRecord, error) {
	if len(p.Draft.Payments) == 0 {
		return model.CollectionRecord{}, ErrNoPaymentLines
	}

	allocations := make([]model.Allocation, len(p.Draft.Payments))
	for i, line := range p.Draft.Payments {
		id, ok := p.Accounts.LedgerID(line.Account)
		if !ok {
			return model.CollectionRecord{}, fmt.Errorf("payment line %d: %w: %q", i+1, ErrUnknownAccount, line.Account)
		}
		allocations[i] = model.Allocation{
			Amount:    line.Amount.StringFixed(2),
			AccountID: id,
		}
	}

	return model.CollectionRecord{
		Date:        p.Date.Format(PayloadDateFormat),
		ClientID:    p.ClientID,
		AccountID:   allocations[0].AccountID,
		Memo:        Memo(p.Draft.Concepts, p.Signer),
		Allocations: allocations,
	}, nil
}

// Memo joins "description: amount" for each concept, then "Signed by …"
// when a signer is given, separated by ", ".
func Memo(concepts []model.ConceptLine, signer string) string {
	parts := make([]string, 0, len(concepts)+1)
	for _, c := range concepts {
		parts = append(parts, fmt.Sprintf("%s: %s", c.Description, money.Format(c.Amount)))
	}
	if signer != "" {
		parts = append(parts, "Signed by "+signer)
	}
	return strings.Join(parts, ", ")
}
