package collect

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recibo/internal/model"
)

// State is a stage of the issue flow.
type State string

const (
	StateIdle       State = "idle"
	StateValidated  State = "validated"
	StateSubmitting State = "submitting"
	StateRendering  State = "rendering"
	StateDone       State = "done"
	StateRejected   State = "rejected"
)

// Status summarizes a finished flow for the user.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusLocalOnly  Status = "local-only"
	StatusRejected   Status = "rejected"
	StatusIncomplete Status = "incomplete"
)

// StepOutcome is the result of one remote step.
type StepOutcome string

const (
	StepSkipped   StepOutcome = "skipped"
	StepSucceeded StepOutcome = "succeeded"
	StepFailed    StepOutcome = "failed"
	StepPending   StepOutcome = "pending" // numbering only: id not listed yet
)

// Step records how a remote step ended.
type Step struct {
	Outcome StepOutcome
	Err     error
}

// Detail returns the raw error text, or "".
func (s Step) Detail() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Result is everything one Issue call produced.
type Result struct {
	ID          string // correlation id used in logs
	State       State
	Transitions []State

	Record     model.CollectionRecord
	Total      decimal.Decimal
	Submission Step
	Response   map[string]any // remote response body, when one was decoded
	AssignedID int64
	Numbering  Step
	Number     string // resolved number or model.NoNumber

	Document  []byte
	FileName  string
	AuditRows int
}

func (r *Result) enter(s State) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

// Synced reports whether the remote API accepted the record and assigned it
// an id.
func (r *Result) Synced() bool {
	return r.Submission.Outcome == StepSucceeded
}

// Status is submitted or local-only for a finished flow.
func (r *Result) Status() Status {
	switch {
	case r.State == StateRejected:
		return StatusRejected
	case r.State != StateDone:
		return StatusIncomplete
	case r.Synced():
		return StatusSubmitted
	default:
		return StatusLocalOnly
	}
}

// SubmissionError is the raw submission failure, or "" when there was none.
func (r *Result) SubmissionError() string {
	return r.Submission.Detail()
}

// Totals are the running totals of a draft, zero lines included.
type Totals struct {
	Concepts decimal.Decimal
	Payments decimal.Decimal
}

// Balanced reports whether the two totals are exactly equal.
func (t Totals) Balanced() bool {
	return t.Concepts.Equal(t.Payments)
}

// RunningTotals sums both sides of a draft for display while editing.
func RunningTotals(concepts []model.ConceptLine, payments []model.PaymentLine) Totals {
	return Totals{
		Concepts: model.ConceptTotal(concepts),
		Payments: model.PaymentTotal(payments),
	}
}
