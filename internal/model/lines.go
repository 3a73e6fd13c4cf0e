package model

import "github.com/shopspring/decimal"

// ConceptLine is one component of what is being charged.
type ConceptLine struct {
	Description string          `json:"description" yaml:"description"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
}

// PaymentLine is one slice of how the payment was received. Account is the
// display name of an entry in the account table.
type PaymentLine struct {
	Account string          `json:"account" yaml:"account"`
	Amount  decimal.Decimal `json:"amount" yaml:"amount"`
}

// NonZeroConcepts drops zero-amount lines, keeping entry order.
func NonZeroConcepts(lines []ConceptLine) []ConceptLine {
	var out []ConceptLine
	for _, l := range lines {
		if !l.Amount.IsZero() {
			out = append(out, l)
		}
	}
	return out
}

// NonZeroPayments drops zero-amount lines, keeping entry order.
func NonZeroPayments(lines []PaymentLine) []PaymentLine {
	var out []PaymentLine
	for _, l := range lines {
		if !l.Amount.IsZero() {
			out = append(out, l)
		}
	}
	return out
}

// ConceptTotal sums concept amounts.
func ConceptTotal(lines []ConceptLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

// PaymentTotal sums payment amounts.
func PaymentTotal(lines []PaymentLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}
