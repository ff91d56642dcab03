// Package notification turns domain events into broker and underwriter
// emails. Handlers never send directly: they write an outbox row, and the
// scheduler delivers it later, so a slow SMTP server cannot stall the
// pipeline and a crashed worker cannot lose a message.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"uw_workbench_backend/internal/email"
	"uw_workbench_backend/internal/events"
	"uw_workbench_backend/internal/notification/outbox"
	"uw_workbench_backend/internal/rules"
	"uw_workbench_backend/platform/logger"
)

// Template names, matching the keys in the business rules file.
const (
	TemplateAssignment  = "assignment"
	TemplateRejection   = "rejection"
	TemplateInfoRequest = "info_request"
)

const kindEmail = "email"

// maxSendAttempts bounds delivery retries before a row is parked as failed.
const maxSendAttempts = 3

// OutboxStore is the subset of the outbox repository the module uses.
// Satisfied by *outbox.Repository.
type OutboxStore interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

type Module struct {
	outbox    OutboxStore
	sender    email.Sender
	templates rules.TemplatesConfig
	log       *logger.Logger
}

func New(store OutboxStore, sender email.Sender, templates rules.TemplatesConfig, log *logger.Logger) *Module {
	return &Module{
		outbox:    store,
		sender:    sender,
		templates: templates,
		log:       log,
	}
}

func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.WorkItemAssigned{}.EventName(), m)
	bus.Subscribe(events.SubmissionRejected{}.EventName(), m)
	bus.Subscribe(events.InfoRequested{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.WorkItemAssigned:
		return m.handleWorkItemAssigned(ctx, e)
	case events.SubmissionRejected:
		return m.handleSubmissionRejected(ctx, e)
	case events.InfoRequested:
		return m.handleInfoRequested(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// Payload field names line up with the placeholders in the configured
// templates; they are rendered with text/template at send time.

type assignmentPayload struct {
	UnderwriterName string
	WorkItemID      string
	CompanyName     string
	Industry        string
	CoverageAmount  string
	Priority        string
	RiskScore       string
}

type rejectionPayload struct {
	ContactName     string
	CompanyName     string
	RejectionReason string
}

type infoRequestPayload struct {
	ContactName   string
	CompanyName   string
	MissingFields []string
}

func (m *Module) handleWorkItemAssigned(ctx context.Context, e events.WorkItemAssigned) error {
	if e.UnderwriterEmail == "" {
		m.log.Warn("assignment notification skipped, underwriter has no email",
			"work_item_id", e.WorkItemID, "underwriter_id", e.UnderwriterID)
		return nil
	}

	coverage := "not specified"
	if e.CoverageAmount > 0 {
		coverage = fmt.Sprintf("$%.0f", e.CoverageAmount)
	}

	return m.enqueue(ctx, TemplateAssignment, e.UnderwriterEmail, assignmentPayload{
		UnderwriterName: e.UnderwriterName,
		WorkItemID:      e.WorkItemID.String(),
		CompanyName:     displayCompany(e.CompanyName),
		Industry:        e.Industry,
		CoverageAmount:  coverage,
		Priority:        e.Priority,
		RiskScore:       fmt.Sprintf("%.1f", e.RiskScore),
	})
}

func (m *Module) handleSubmissionRejected(ctx context.Context, e events.SubmissionRejected) error {
	if e.SenderEmail == "" {
		m.log.Warn("rejection notification skipped, submission has no sender email",
			"submission_ref", e.SubmissionRef)
		return nil
	}

	return m.enqueue(ctx, TemplateRejection, e.SenderEmail, rejectionPayload{
		ContactName:     contactName(e.CompanyName),
		CompanyName:     displayCompany(e.CompanyName),
		RejectionReason: strings.Join(e.Reasons, "; "),
	})
}

func (m *Module) handleInfoRequested(ctx context.Context, e events.InfoRequested) error {
	if e.BrokerEmail == "" {
		m.log.Warn("info request notification skipped, no broker email",
			"work_item_id", e.WorkItemID)
		return nil
	}

	return m.enqueue(ctx, TemplateInfoRequest, e.BrokerEmail, infoRequestPayload{
		ContactName:   contactName(e.CompanyName),
		CompanyName:   displayCompany(e.CompanyName),
		MissingFields: e.MissingFields,
	})
}

func (m *Module) enqueue(ctx context.Context, templateName, recipient string, payload any) error {
	if m.outbox == nil {
		m.log.Warn("notification dropped, outbox not configured", "template", templateName)
		return nil
	}

	id, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Kind:      kindEmail,
		Template:  templateName,
		Recipient: recipient,
		Payload:   payload,
		RunAt:     time.Now().UTC(),
	})
	if err != nil {
		m.log.Error("outbox insert failed", "template", templateName, "error", err)
		return err
	}

	m.log.Info("notification queued", "outbox_id", id, "template", templateName)
	return nil
}

// handleNotificationOutboxDue renders and delivers one outbox row. Failed
// sends go back to pending until the attempt budget is exhausted, so the
// handler itself never returns the send error to asynq.
func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.outbox == nil {
		return nil
	}

	rec, err := m.outbox.GetByID(ctx, e.OutboxID)
	if err != nil {
		return err
	}

	// Re-delivered tasks for rows already settled are no-ops.
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		return nil
	}

	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}
	attempts := rec.Attempts + 1

	subject, body, err := m.render(rec.Template, rec.Payload)
	if err != nil {
		// Rendering is deterministic, retrying cannot help.
		m.log.Error("notification render failed", "outbox_id", rec.ID, "error", err)
		return m.outbox.MarkFailed(ctx, rec.ID, err.Error())
	}

	if err := m.sender.Send(ctx, rec.Recipient, subject, body); err != nil {
		m.log.Warn("notification send failed",
			"outbox_id", rec.ID, "attempts", attempts, "error", err)
		if attempts >= maxSendAttempts {
			return m.outbox.MarkFailed(ctx, rec.ID, err.Error())
		}
		msg := err.Error()
		return m.outbox.MarkPending(ctx, rec.ID, &msg)
	}

	m.log.Info("notification sent", "outbox_id", rec.ID, "template", rec.Template)
	return m.outbox.MarkSucceeded(ctx, rec.ID)
}

func (m *Module) render(templateName string, payload []byte) (subject, body string, err error) {
	tpl, err := m.templateFor(templateName)
	if err != nil {
		return "", "", err
	}

	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return "", "", fmt.Errorf("decode payload: %w", err)
	}

	subject, err = renderText(templateName+".subject", tpl.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err = renderText(templateName+".body", tpl.Body, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func (m *Module) templateFor(name string) (rules.MessageTemplate, error) {
	switch name {
	case TemplateAssignment:
		return m.templates.Assignment, nil
	case TemplateRejection:
		return m.templates.Rejection, nil
	case TemplateInfoRequest:
		return m.templates.InfoRequest, nil
	default:
		return rules.MessageTemplate{}, fmt.Errorf("unknown notification template %q", name)
	}
}

func renderText(name, text string, data map[string]any) (string, error) {
	tpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

func displayCompany(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Unknown Company"
	}
	return name
}

func contactName(companyName string) string {
	if strings.TrimSpace(companyName) == "" {
		return "Applicant"
	}
	return companyName + " team"
}
