// Package collect runs one receipt submission end to end: validate, submit
// to the remote API when possible, resolve the receipt number, render the
// document and append the audit rows.
//
// Rendering and auditing always run once a draft validates; remote failures
// only downgrade the outcome to local-only.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/recibo/internal/model"
	"github.com/cleared-dev/recibo/internal/receipt"
	"github.com/cleared-dev/recibo/internal/render"
)

// ErrRejected wraps every validation failure returned by Issue.
var ErrRejected = errors.New("receipt rejected")

// ErrNoAssignedID records a submission response without an id. The remote
// record cannot be confirmed, so the receipt is treated as local-only.
var ErrNoAssignedID = errors.New("submission response has no id")

// ErrNumberPending records that the submitted id was not in the recent
// collections listing yet.
var ErrNumberPending = errors.New("receipt number not assigned yet")

// Submitter sends a collection record to the remote API. A nil result with a
// nil error means no endpoint is configured.
type Submitter interface {
	SubmitCollection(ctx context.Context, endpoint string, rec model.CollectionRecord) (*model.SubmissionResult, error)
}

// NumberResolver finds the receipt number assigned to a submission id.
type NumberResolver interface {
	ResolveReceiptNumber(ctx context.Context, id int64) (number string, found bool, err error)
}

// Renderer produces the receipt document.
type Renderer interface {
	Render(rc render.Receipt) ([]byte, error)
}

// AuditLog appends the audit rows of one receipt.
type AuditLog interface {
	Record(client, date, memo string, payments []model.PaymentLine) (int, error)
}

// Accounts is the configured account table.
type Accounts interface {
	receipt.AccountChecker
	receipt.LedgerLookup
}

// Deps wires a Service. Submitter and Resolver may be nil for local-only use.
type Deps struct {
	Accounts  Accounts
	Submitter Submitter
	Resolver  NumberResolver
	Renderer  Renderer
	Audit     AuditLog
	Endpoint  string
	Logger    *slog.Logger
}

// Service issues receipts.
type Service struct {
	accounts  Accounts
	submitter Submitter
	resolver  NumberResolver
	renderer  Renderer
	audit     AuditLog
	endpoint  string
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	s := &Service{
		accounts:  d.Accounts,
		submitter: d.Submitter,
		resolver:  d.Resolver,
		renderer:  d.Renderer,
		audit:     d.Audit,
		endpoint:  d.Endpoint,
		logger:    d.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Request is one user submission.
type Request struct {
	Client   model.Client
	Date     time.Time
	Signer   string
	Concepts []model.ConceptLine
	Payments []model.PaymentLine
}

// Issue runs the flow for req. A validation failure returns a Rejected
// result and an error wrapping ErrRejected; nothing remote or on disk is
// touched in that case. Render and audit failures are returned as errors.
// Submission and numbering failures are recorded on the result only.
func (s *Service) Issue(ctx context.Context, req Request) (*Result, error) {
	res := &Result{ID: uuid.NewString(), Number: model.NoNumber}
	res.enter(StateIdle)
	log := s.logger.With("receipt_id", res.ID, "client_id", req.Client.ID)

	draft, err := receipt.Validate(req.Concepts, req.Payments, s.accounts)
	if err != nil {
		return s.reject(res, log, err)
	}

	rec, err := receipt.BuildRecord(receipt.BuildParams{
		Date:     req.Date,
		ClientID: req.Client.ID,
		Signer:   req.Signer,
		Draft:    draft,
		Accounts: s.accounts,
	})
	if err != nil {
		return s.reject(res, log, err)
	}
	res.Record = rec
	res.Total = draft.Total()
	res.enter(StateValidated)

	res.enter(StateSubmitting)
	s.submit(ctx, res, log)

	res.enter(StateRendering)
	label := req.Client.Label()
	displayDate := req.Date.Format(receipt.DisplayDateFormat)

	doc, err := s.renderer.Render(render.Receipt{
		ClientLabel: label,
		Date:        displayDate,
		Payments:    draft.Payments,
		Concepts:    draft.Concepts,
		Number:      res.Number,
		Signer:      req.Signer,
	})
	if err != nil {
		return res, fmt.Errorf("rendering receipt: %w", err)
	}
	res.Document = doc
	res.FileName = receipt.FileName(res.Number, displayDate)

	rows, err := s.audit.Record(label, displayDate, rec.Memo, draft.Payments)
	if err != nil {
		return res, fmt.Errorf("writing audit log: %w", err)
	}
	res.AuditRows = rows

	res.enter(StateDone)
	log.Info("receipt issued", "status", res.Status(), "number", res.Number, "file", res.FileName, "audit_rows", rows)
	return res, nil
}

func (s *Service) reject(res *Result, log *slog.Logger, err error) (*Result, error) {
	res.enter(StateRejected)
	log.Info("receipt rejected", "reason", err)
	return res, fmt.Errorf("%w: %w", ErrRejected, err)
}

// submit is best effort: every outcome is recorded on res and the flow
// continues.
func (s *Service) submit(ctx context.Context, res *Result, log *slog.Logger) {
	if s.submitter == nil {
		res.Submission = Step{Outcome: StepSkipped}
		res.Numbering = Step{Outcome: StepSkipped}
		return
	}

	sub, err := s.submitter.SubmitCollection(ctx, s.endpoint, res.Record)
	switch {
	case err != nil:
		log.Warn("submission failed, continuing locally", "error", err)
		res.Submission = Step{Outcome: StepFailed, Err: err}
		res.Numbering = Step{Outcome: StepSkipped}
		return
	case sub == nil:
		log.Info("no collection endpoint configured, generating locally")
		res.Submission = Step{Outcome: StepSkipped}
		res.Numbering = Step{Outcome: StepSkipped}
		return
	}

	res.Response = sub.Body
	if !sub.Assigned {
		log.Warn("submission response carried no id", "response", sub.Body)
		res.Submission = Step{Outcome: StepFailed, Err: ErrNoAssignedID}
		res.Numbering = Step{Outcome: StepSkipped}
		return
	}
	res.Submission = Step{Outcome: StepSucceeded}
	res.AssignedID = sub.ID

	if s.resolver == nil {
		res.Numbering = Step{Outcome: StepSkipped}
		return
	}
	number, found, err := s.resolver.ResolveReceiptNumber(ctx, sub.ID)
	switch {
	case err != nil:
		log.Warn("receipt number lookup failed", "assigned_id", sub.ID, "error", err)
		res.Numbering = Step{Outcome: StepFailed, Err: err}
	case !found:
		log.Warn("receipt number not found", "assigned_id", sub.ID)
		res.Numbering = Step{Outcome: StepPending, Err: fmt.Errorf("id %d: %w", sub.ID, ErrNumberPending)}
	default:
		res.Numbering = Step{Outcome: StepSucceeded}
		res.Number = number
	}
}
