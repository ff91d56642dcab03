package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"uw_workbench_backend/internal/events"
	"uw_workbench_backend/internal/notification/outbox"
	"uw_workbench_backend/internal/rules"
	"uw_workbench_backend/platform/logger"
)

type fakeOutbox struct {
	inserted  []outbox.InsertParams
	records   map[uuid.UUID]outbox.Record
	succeeded []uuid.UUID
	failed    []uuid.UUID
	pending   []uuid.UUID
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{records: make(map[uuid.UUID]outbox.Record)}
}

func (f *fakeOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	f.inserted = append(f.inserted, p)
	return uuid.New(), nil
}

func (f *fakeOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return outbox.Record{}, errors.New("not found")
	}
	return rec, nil
}

func (f *fakeOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	rec := f.records[id]
	rec.Status = outbox.StatusProcessing
	rec.Attempts++
	f.records[id] = rec
	return nil
}

func (f *fakeOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	f.succeeded = append(f.succeeded, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeOutbox) MarkPending(_ context.Context, id uuid.UUID, _ *string) error {
	f.pending = append(f.pending, id)
	return nil
}

type fakeSender struct {
	calls   int
	to      string
	subject string
	body    string
	sendErr error
}

func (s *fakeSender) Send(_ context.Context, toEmail, subject, body string) error {
	s.calls++
	s.to = toEmail
	s.subject = subject
	s.body = body
	return s.sendErr
}

func testTemplates() rules.TemplatesConfig {
	return rules.TemplatesConfig{
		Assignment: rules.MessageTemplate{
			Subject: "New Cyber Insurance Submission Assigned - {{.CompanyName}}",
			Body:    "Dear {{.UnderwriterName}}, work item {{.WorkItemID}} for {{.CompanyName}} has risk score {{.RiskScore}}.",
		},
		Rejection: rules.MessageTemplate{
			Subject: "Cyber Insurance Application Status - {{.CompanyName}}",
			Body:    "Dear {{.ContactName}}, reason: {{.RejectionReason}}",
		},
		InfoRequest: rules.MessageTemplate{
			Subject: "Additional Information Required - {{.CompanyName}}",
			Body:    "Missing:\n{{range .MissingFields}}- {{.}}\n{{end}}",
		},
	}
}

func newTestModule(store OutboxStore, sender *fakeSender) *Module {
	return New(store, sender, testTemplates(), logger.New("test"))
}

func TestHandleWorkItemAssignedQueuesOutboxRow(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(store, &fakeSender{})

	err := m.Handle(context.Background(), events.WorkItemAssigned{
		BaseEvent:        events.NewBaseEvent(),
		WorkItemID:       uuid.New(),
		UnderwriterID:    "uw-1",
		UnderwriterEmail: "alice@example.com",
		UnderwriterName:  "Alice",
		CompanyName:      "Acme Corp",
		Industry:         "healthcare",
		Priority:         "high",
		RiskScore:        71.25,
		CoverageAmount:   5_000_000,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 outbox insert, got %d", len(store.inserted))
	}
	ins := store.inserted[0]
	if ins.Template != TemplateAssignment {
		t.Fatalf("expected assignment template, got %q", ins.Template)
	}
	if ins.Recipient != "alice@example.com" {
		t.Fatalf("unexpected recipient %q", ins.Recipient)
	}
	payload, ok := ins.Payload.(assignmentPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", ins.Payload)
	}
	if payload.RiskScore != "71.2" && payload.RiskScore != "71.3" {
		t.Fatalf("unexpected formatted risk score %q", payload.RiskScore)
	}
	if payload.CoverageAmount != "$5000000" {
		t.Fatalf("unexpected formatted coverage %q", payload.CoverageAmount)
	}
}

func TestHandleSubmissionRejectedWithoutSenderEmailIsSkipped(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(store, &fakeSender{})

	err := m.Handle(context.Background(), events.SubmissionRejected{
		BaseEvent:     events.NewBaseEvent(),
		SubmissionRef: uuid.New(),
		Reasons:       []string{"sender domain spam.com is blacklisted"},
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected no outbox inserts, got %d", len(store.inserted))
	}
}

func TestHandleOutboxDueRendersAndSends(t *testing.T) {
	store := newFakeOutbox()
	sender := &fakeSender{}
	m := newTestModule(store, sender)

	id := uuid.New()
	store.records[id] = outbox.Record{
		ID:        id,
		Kind:      "email",
		Template:  TemplateAssignment,
		Recipient: "alice@example.com",
		Payload: []byte(`{"UnderwriterName":"Alice","WorkItemID":"wi-1",` +
			`"CompanyName":"Acme Corp","RiskScore":"71.2"}`),
		RunAt:  time.Now().UTC(),
		Status: outbox.StatusEnqueued,
	}

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  id,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sender.calls != 1 {
		t.Fatalf("expected 1 send, got %d", sender.calls)
	}
	if sender.subject != "New Cyber Insurance Submission Assigned - Acme Corp" {
		t.Fatalf("unexpected subject %q", sender.subject)
	}
	if !strings.Contains(sender.body, "Dear Alice") || !strings.Contains(sender.body, "71.2") {
		t.Fatalf("unexpected body %q", sender.body)
	}
	if len(store.succeeded) != 1 {
		t.Fatalf("expected row marked succeeded, got %v", store.succeeded)
	}
}

func TestHandleOutboxDueFailedSendGoesBackToPending(t *testing.T) {
	store := newFakeOutbox()
	sender := &fakeSender{sendErr: errors.New("smtp unavailable")}
	m := newTestModule(store, sender)

	id := uuid.New()
	store.records[id] = outbox.Record{
		ID:        id,
		Template:  TemplateRejection,
		Recipient: "broker@example.com",
		Payload:   []byte(`{"ContactName":"Acme team","CompanyName":"Acme","RejectionReason":"blacklisted"}`),
		Status:    outbox.StatusEnqueued,
	}

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  id,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(store.pending) != 1 {
		t.Fatalf("expected row returned to pending, got pending=%v failed=%v", store.pending, store.failed)
	}
}

func TestHandleOutboxDueParksRowAfterAttemptBudget(t *testing.T) {
	store := newFakeOutbox()
	sender := &fakeSender{sendErr: errors.New("smtp unavailable")}
	m := newTestModule(store, sender)

	id := uuid.New()
	store.records[id] = outbox.Record{
		ID:        id,
		Template:  TemplateRejection,
		Recipient: "broker@example.com",
		Payload:   []byte(`{"ContactName":"Acme team","CompanyName":"Acme","RejectionReason":"blacklisted"}`),
		Status:    outbox.StatusEnqueued,
		Attempts:  maxSendAttempts - 1,
	}

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  id,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(store.failed) != 1 {
		t.Fatalf("expected row marked failed, got failed=%v pending=%v", store.failed, store.pending)
	}
}

func TestHandleOutboxDueSettledRowIsNoOp(t *testing.T) {
	store := newFakeOutbox()
	sender := &fakeSender{}
	m := newTestModule(store, sender)

	id := uuid.New()
	store.records[id] = outbox.Record{
		ID:       id,
		Template: TemplateAssignment,
		Status:   outbox.StatusSucceeded,
	}

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  id,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("expected no send for settled row, got %d", sender.calls)
	}
}

func TestRenderInfoRequestListsMissingFields(t *testing.T) {
	m := newTestModule(newFakeOutbox(), &fakeSender{})

	_, body, err := m.render(TemplateInfoRequest,
		[]byte(`{"CompanyName":"Acme","ContactName":"Acme team","MissingFields":["coverage_amount","industry"]}`))
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	if !strings.Contains(body, "- coverage_amount") || !strings.Contains(body, "- industry") {
		t.Fatalf("missing fields not listed in body: %q", body)
	}
}

func TestRenderUnknownTemplateFails(t *testing.T) {
	m := newTestModule(newFakeOutbox(), &fakeSender{})

	if _, _, err := m.render("no_such_template", []byte(`{}`)); err == nil {
		t.Fatal("expected unknown template to be rejected")
	}
}
