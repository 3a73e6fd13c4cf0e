// Package receipt validates payment drafts and builds the collection record
// sent to the remote accounting API.
package receipt

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recibo/internal/model"
	"github.com/cleared-dev/recibo/internal/money"
)

var (
	// ErrNoLines rejects a draft with no non-zero concept or payment line.
	ErrNoLines = errors.New("at least one concept or payment line with a non-zero amount is required")
	// ErrTotalsMismatch rejects a draft whose payment total differs from its
	// concept total.
	ErrTotalsMismatch = errors.New("payment total does not match concept total")
	// ErrNoPaymentLines rejects a draft that balances but has no payment line
	// to take the primary ledger account from.
	ErrNoPaymentLines = errors.New("at least one payment line with a non-zero amount is required")
	// ErrTooPrecise rejects an amount with fractions of a cent; the remote
	// API and the audit log carry two decimals.
	ErrTooPrecise = errors.New("amounts must have at most two decimals")
	// ErrUnknownAccount rejects a payment line naming an unconfigured account.
	ErrUnknownAccount = errors.New("unknown payment account")
)

// ValidationError describes why a draft was rejected.
type ValidationError struct {
	Err          error
	PaymentTotal decimal.Decimal
	ConceptTotal decimal.Decimal
	Detail       string
}

func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrTotalsMismatch):
		return fmt.Sprintf("payment total (%s) does not match concept total (%s); they must be equal",
			money.Format(e.PaymentTotal), money.Format(e.ConceptTotal))
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Err, e.Detail)
	default:
		return e.Err.Error()
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AccountChecker tests whether a payment account name is configured.
type AccountChecker interface {
	Exists(name string) bool
}

// Draft holds the lines that survive zero-amount filtering, in entry order.
type Draft struct {
	Concepts []model.ConceptLine
	Payments []model.PaymentLine
}

// Total is the transaction total, taken from the concept side.
func (d Draft) Total() decimal.Decimal {
	return model.ConceptTotal(d.Concepts)
}

// Validate drops zero-amount lines and checks the draft can be submitted.
// Totals must be exactly equal; there is no rounding tolerance.
func Validate(concepts []model.ConceptLine, payments []model.PaymentLine, accounts AccountChecker) (Draft, error) {
	d := Draft{
		Concepts: model.NonZeroConcepts(concepts),
		Payments: model.NonZeroPayments(payments),
	}

	if len(d.Concepts) == 0 && len(d.Payments) == 0 {
		return Draft{}, &ValidationError{Err: ErrNoLines}
	}

	paymentTotal := model.PaymentTotal(d.Payments)
	conceptTotal := model.ConceptTotal(d.Concepts)
	if !paymentTotal.Equal(conceptTotal) {
		return Draft{}, &ValidationError{
			Err:          ErrTotalsMismatch,
			PaymentTotal: paymentTotal,
			ConceptTotal: conceptTotal,
		}
	}

	if err := checkCents(d); err != nil {
		return Draft{}, err
	}

	if len(d.Payments) == 0 {
		return Draft{}, &ValidationError{Err: ErrNoPaymentLines}
	}

	for i, p := range d.Payments {
		if accounts != nil && !accounts.Exists(p.Account) {
			return Draft{}, &ValidationError{
				Err:    ErrUnknownAccount,
				Detail: fmt.Sprintf("payment line %d: %q", i+1, p.Account),
			}
		}
	}

	return d, nil
}

// checkCents rejects sub-cent amounts, which would be rounded apart when the
// record is built and make the allocations disagree with the concept total.
func checkCents(d Draft) error {
	for i, c := range d.Concepts {
		if !isCents(c.Amount) {
			return &ValidationError{
				Err:    ErrTooPrecise,
				Detail: fmt.Sprintf("concept line %d: %s", i+1, c.Amount),
			}
		}
	}
	for i, p := range d.Payments {
		if !isCents(p.Amount) {
			return &ValidationError{
				Err:    ErrTooPrecise,
				Detail: fmt.Sprintf("payment line %d: %s", i+1, p.Amount),
			}
		}
	}
	return nil
}

func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
