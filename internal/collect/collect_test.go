package collect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recibo/internal/accounts"
	"github.com/cleared-dev/recibo/internal/model"
	"github.com/cleared-dev/recibo/internal/receipt"
	"github.com/cleared-dev/recibo/internal/render"
)

type fakeSubmitter struct {
	result   *model.SubmissionResult
	err      error
	calls    int
	endpoint string
	record   model.CollectionRecord
}

func (f *fakeSubmitter) SubmitCollection(_ context.Context, endpoint string, rec model.CollectionRecord) (*model.SubmissionResult, error) {
	f.calls++
	f.endpoint = endpoint
	f.record = rec
	return f.result, f.err
}

type fakeResolver struct {
	number string
	found  bool
	err    error
	calls  int
	id     int64
}

func (f *fakeResolver) ResolveReceiptNumber(_ context.Context, id int64) (string, bool, error) {
	f.calls++
	f.id = id
	return f.number, f.found, f.err
}

type fakeRenderer struct {
	err      error
	calls    int
	rendered render.Receipt
}

func (f *fakeRenderer) Render(rc render.Receipt) ([]byte, error) {
	f.calls++
	f.rendered = rc
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-" + rc.Number), nil
}

type auditCall struct {
	client, date, memo string
	payments           []model.PaymentLine
}

type fakeAudit struct {
	err   error
	calls []auditCall
}

func (f *fakeAudit) Record(client, date, memo string, payments []model.PaymentLine) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.calls = append(f.calls, auditCall{client, date, memo, payments})
	return len(payments), nil
}

type harness struct {
	sub   *fakeSubmitter
	res   *fakeResolver
	rend  *fakeRenderer
	audit *fakeAudit
	svc   *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sub:   &fakeSubmitter{result: &model.SubmissionResult{ID: 555, Assigned: true, Body: map[string]any{"id": 555}}},
		res:   &fakeResolver{number: "0001-00000042", found: true},
		rend:  &fakeRenderer{},
		audit: &fakeAudit{},
	}
	h.svc = NewService(Deps{
		Accounts: accounts.NewService([]model.Account{
			{Name: "Cash", LedgerID: 78043610},
			{Name: "Bank", LedgerID: 78043991},
		}),
		Submitter: h.sub,
		Resolver:  h.res,
		Renderer:  h.rend,
		Audit:     h.audit,
		Endpoint:  "https://api.example.com/cobro/0",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func balancedRequest() Request {
	return Request{
		Client: model.Client{ID: 9001, Name: "ACME SA", TaxID: "30-12345678-9"},
		Date:   time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		Signer: "Ana",
		Concepts: []model.ConceptLine{
			{Description: "Fees", Amount: dec("600")},
			{Description: "Expenses", Amount: dec("400")},
		},
		Payments: []model.PaymentLine{
			{Account: "Cash", Amount: dec("1000")},
		},
	}
}

func TestIssue_Submitted(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.Issue(context.Background(), balancedRequest())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []State{StateIdle, StateValidated, StateSubmitting, StateRendering, StateDone}, res.Transitions)
	assert.Equal(t, StatusSubmitted, res.Status())
	assert.True(t, res.Synced())
	assert.NotEmpty(t, res.ID)
	assert.True(t, res.Total.Equal(dec("1000")))

	assert.Equal(t, 1, h.sub.calls)
	assert.Equal(t, "https://api.example.com/cobro/0", h.sub.endpoint)
	assert.Equal(t, "2025-03-07", h.sub.record.Date)
	assert.Equal(t, int64(9001), h.sub.record.ClientID)
	assert.Equal(t, int64(78043610), h.sub.record.AccountID)

	assert.Equal(t, int64(555), h.res.id)
	assert.Equal(t, int64(555), res.AssignedID)
	assert.Equal(t, StepSucceeded, res.Numbering.Outcome)
	assert.Equal(t, "0001-00000042", res.Number)

	assert.Equal(t, "0001-00000042", h.rend.rendered.Number)
	assert.Equal(t, "ACME SA (30-12345678-9)", h.rend.rendered.ClientLabel)
	assert.Equal(t, "07-03-2025", h.rend.rendered.Date)
	assert.Equal(t, "receipt_0001-00000042_07-03-2025.pdf", res.FileName)
	assert.Equal(t, []byte("%PDF-0001-00000042"), res.Document)

	require.Len(t, h.audit.calls, 1)
	assert.Equal(t, "ACME SA (30-12345678-9)", h.audit.calls[0].client)
	assert.Equal(t, "07-03-2025", h.audit.calls[0].date)
	assert.Equal(t, "Fees: $ 600,00, Expenses: $ 400,00, Signed by Ana", h.audit.calls[0].memo)
	assert.Equal(t, 1, res.AuditRows)
}

func TestIssue_TotalsMismatchTouchesNothing(t *testing.T) {
	h := newHarness(t)
	req := balancedRequest()
	req.Payments[0].Amount = dec("999.99")

	res, err := h.svc.Issue(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, receipt.ErrTotalsMismatch)

	var verr *receipt.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.PaymentTotal.Equal(dec("999.99")))
	assert.True(t, verr.ConceptTotal.Equal(dec("1000")))

	assert.Equal(t, StateRejected, res.State)
	assert.Equal(t, StatusRejected, res.Status())
	assert.Zero(t, h.sub.calls)
	assert.Zero(t, h.res.calls)
	assert.Zero(t, h.rend.calls)
	assert.Empty(t, h.audit.calls)
}

func TestIssue_EmptyDraftRejected(t *testing.T) {
	h := newHarness(t)
	req := balancedRequest()
	req.Concepts = []model.ConceptLine{{Description: "Nothing", Amount: decimal.Zero}}
	req.Payments = []model.PaymentLine{{Account: "Cash", Amount: decimal.Zero}}

	_, err := h.svc.Issue(context.Background(), req)
	assert.ErrorIs(t, err, receipt.ErrNoLines)
	assert.Zero(t, h.sub.calls)
	assert.Zero(t, h.rend.calls)
}

func TestIssue_UnknownAccountRejected(t *testing.T) {
	h := newHarness(t)
	req := balancedRequest()
	req.Payments[0].Account = "Crypto"

	_, err := h.svc.Issue(context.Background(), req)
	assert.ErrorIs(t, err, receipt.ErrUnknownAccount)
	assert.Zero(t, h.sub.calls)
}

func TestIssue_SubmissionFailureStillRendersAndLogs(t *testing.T) {
	h := newHarness(t)
	h.sub.result = nil
	h.sub.err = errors.New("POST https://api.example.com/cobro/0: status 500: boom")

	res, err := h.svc.Issue(context.Background(), balancedRequest())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, StatusLocalOnly, res.Status())
	assert.Equal(t, StepFailed, res.Submission.Outcome)
	assert.Contains(t, res.SubmissionError(), "status 500: boom")
	assert.Equal(t, StepSkipped, res.Numbering.Outcome)
	assert.Zero(t, h.res.calls)

	assert.Equal(t, model.NoNumber, h.rend.rendered.Number)
	assert.Equal(t, "receipt_NO_NUMBER_07-03-2025.pdf", res.FileName)
	assert.Len(t, h.audit.calls, 1)
}

func TestIssue_NoEndpointIsLocalOnly(t *testing.T) {
	h := newHarness(t)
	h.sub.result = nil

	res, err := h.svc.Issue(context.Background(), balancedRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusLocalOnly, res.Status())
	assert.Equal(t, StepSkipped, res.Submission.Outcome)
	assert.Empty(t, res.SubmissionError())
	assert.Zero(t, h.res.calls)
	assert.Equal(t, model.NoNumber, res.Number)
}

func TestIssue_NilSubmitter(t *testing.T) {
	h := newHarness(t)
	h.svc.submitter = nil
	h.svc.resolver = nil

	res, err := h.svc.Issue(context.Background(), balancedRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusLocalOnly, res.Status())
	assert.Equal(t, model.NoNumber, res.Number)
}

func TestIssue_NoIDIsLocalOnly(t *testing.T) {
	h := newHarness(t)
	h.sub.result = &model.SubmissionResult{Body: map[string]any{"ok": true}}

	res, err := h.svc.Issue(context.Background(), balancedRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusLocalOnly, res.Status())
	assert.ErrorIs(t, res.Submission.Err, ErrNoAssignedID)
	assert.Equal(t, "submission response has no id", res.SubmissionError())
	assert.Equal(t, map[string]any{"ok": true}, res.Response)
	assert.Equal(t, StepSkipped, res.Numbering.Outcome)
	assert.Zero(t, h.res.calls)
	assert.Equal(t, model.NoNumber, res.Number)
	assert.Len(t, h.audit.calls, 1)
}

func TestIssue_NumberNotFoundUsesSentinel(t *testing.T) {
	h := newHarness(t)
	h.res.found = false
	h.res.number = ""

	res, err := h.svc.Issue(context.Background(), balancedRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusSubmitted, res.Status())
	assert.Equal(t, StepPending, res.Numbering.Outcome)
	assert.ErrorIs(t, res.Numbering.Err, ErrNumberPending)
	assert.Equal(t, model.NoNumber, res.Number)
	assert.Equal(t, model.NoNumber, h.rend.rendered.Number)
	assert.Equal(t, "receipt_NO_NUMBER_07-03-2025.pdf", res.FileName)
	assert.Len(t, h.audit.calls, 1)
}

func TestIssue_NumberLookupErrorUsesSentinel(t *testing.T) {
	h := newHarness(t)
	h.res.err = errors.New("timeout")

	res, err := h.svc.Issue(context.Background(), balancedRequest())
	require.NoError(t, err)

	assert.Equal(t, StepFailed, res.Numbering.Outcome)
	assert.Equal(t, "timeout", res.Numbering.Detail())
	assert.Equal(t, model.NoNumber, res.Number)
}

func TestIssue_RenderFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.rend.err = errors.New("disk full")

	res, err := h.svc.Issue(context.Background(), balancedRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rendering receipt")
	assert.Equal(t, StateRendering, res.State)
	assert.Equal(t, StatusIncomplete, res.Status())
	assert.Empty(t, h.audit.calls)
}

func TestIssue_AuditFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.audit.err = errors.New("permission denied")

	res, err := h.svc.Issue(context.Background(), balancedRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing audit log")
	assert.NotEqual(t, StateDone, res.State)
}

func TestIssue_ZeroLinesDropped(t *testing.T) {
	h := newHarness(t)
	req := balancedRequest()
	req.Concepts = append(req.Concepts, model.ConceptLine{Description: "Skip", Amount: decimal.Zero})
	req.Payments = append(req.Payments, model.PaymentLine{Account: "Bank", Amount: decimal.Zero})

	_, err := h.svc.Issue(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, h.rend.rendered.Concepts, 2)
	assert.Len(t, h.rend.rendered.Payments, 1)
	assert.Len(t, h.sub.record.Allocations, 1)
	require.Len(t, h.audit.calls, 1)
	assert.Len(t, h.audit.calls[0].payments, 1)
}

func TestIssue_CorrelationIDsDiffer(t *testing.T) {
	h := newHarness(t)

	a, err := h.svc.Issue(context.Background(), balancedRequest())
	require.NoError(t, err)
	b, err := h.svc.Issue(context.Background(), balancedRequest())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestRunningTotals(t *testing.T) {
	tot := RunningTotals(
		[]model.ConceptLine{{Amount: dec("0.10")}, {Amount: dec("0.20")}},
		[]model.PaymentLine{{Amount: dec("0.30")}},
	)
	assert.True(t, tot.Concepts.Equal(dec("0.30")))
	assert.True(t, tot.Balanced())

	tot = RunningTotals(nil, []model.PaymentLine{{Amount: dec("1")}})
	assert.False(t, tot.Balanced())
}
