package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/domain"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/mailer"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/ratelimit"
)

type stubRisk struct{ result domain.Evaluation }

func (s stubRisk) Evaluate(RequestMeta) domain.Evaluation { return s.result }

type stubSpam struct{ result domain.Evaluation }

func (s stubSpam) Evaluate(domain.ContactPayload) domain.Evaluation { return s.result }

type stubDeliverability struct{ result DomainCheck }

func (s stubDeliverability) Check(context.Context, string) DomainCheck { return s.result }

type stubLimiter struct{ result ratelimit.Result }

func (s stubLimiter) Check(string) ratelimit.Result { return s.result }

type stubDuplicates struct{ seen bool }

func (s stubDuplicates) Seen(_, _, _, _ string) bool { return s.seen }

type stubSender struct {
	configured bool
	id         string
	err        error
	calls      int
	last       mailer.Message
}

func (s *stubSender) Send(_ context.Context, msg mailer.Message) (string, error) {
	s.calls++
	s.last = msg
	return s.id, s.err
}

func (s *stubSender) Configured() bool { return s.configured }

func permissiveDeps(sender *stubSender) Deps {
	return Deps{
		Risk:           stubRisk{result: domain.Evaluation{Action: domain.ActionAllow}},
		Spam:           stubSpam{result: domain.Evaluation{Action: domain.ActionAllow}},
		Deliverability: stubDeliverability{result: DomainCheck{Valid: true, Reason: ReasonMXRecord}},
		Limiter:        stubLimiter{},
		Duplicates:     stubDuplicates{},
		Sender:         sender,
		FromEmail:      "Castello Mongivetto <noreply@castellomongivetto.com>",
		ToEmail:        "info@castellomongivetto.com",
		Clock:          func() time.Time { return time.Date(2026, time.March, 14, 10, 30, 0, 0, time.UTC) },
	}
}

func validBody() map[string]any {
	return map[string]any{
		"name":    "Maria Rossi",
		"email":   "maria.rossi@example.com",
		"subject": "visita",
		"message": "Vorrei prenotare una visita guidata per sabato.",
		"privacy": true,
	}
}

func validRequest() SubmissionRequest {
	return SubmissionRequest{
		Body:      validBody(),
		UserAgent: browserUA,
		Origin:    "https://www.castellomongivetto.com",
		ClientIP:  "203.0.113.7",
	}
}

func TestSubmitSendsNotification(t *testing.T) {
	sender := &stubSender{configured: true, id: "re_123"}
	service := NewSubmissionService(permissiveDeps(sender))

	result := service.Submit(context.Background(), validRequest())

	if result.Status != StatusSent {
		t.Fatalf("status = %q", result.Status)
	}
	if result.MessageID != "re_123" {
		t.Fatalf("message id = %q", result.MessageID)
	}
	if result.SubmissionID == "" {
		t.Fatal("submission id should be assigned")
	}
	if sender.calls != 1 {
		t.Fatalf("sender calls = %d", sender.calls)
	}
	if sender.last.ReplyTo != "maria.rossi@example.com" {
		t.Fatalf("reply-to = %q", sender.last.ReplyTo)
	}
	if sender.last.Subject != "Modulo Contatti - Prenotazione visita - Maria Rossi" {
		t.Fatalf("subject = %q", sender.last.Subject)
	}
}

func TestSubmitNotificationBody(t *testing.T) {
	sender := &stubSender{configured: true}
	service := NewSubmissionService(permissiveDeps(sender))

	service.Submit(context.Background(), validRequest())

	text := sender.last.Text
	for _, want := range []string{
		"Nuova richiesta dal Modulo Contatti",
		"Data UTC: 2026-03-14T10:30:00.000Z",
		"Nome: Maria Rossi",
		"Email: maria.rossi@example.com",
		"Telefono: Non indicato",
		"Oggetto: Prenotazione visita",
		"IP cliente: 203.0.113.7",
		"Segnali anti-spam: nessuno",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("body missing %q:\n%s", want, text)
		}
	}
}

func TestSubmitStripsMarkupFromNotification(t *testing.T) {
	sender := &stubSender{configured: true}
	service := NewSubmissionService(permissiveDeps(sender))

	req := validRequest()
	req.Body["message"] = "Vorrei <script>alert('x')</script> prenotare una visita guidata."
	service.Submit(context.Background(), req)

	if strings.Contains(sender.last.Text, "<script>") {
		t.Fatalf("markup leaked into notification:\n%s", sender.last.Text)
	}
	if !strings.Contains(sender.last.Text, "prenotare una visita guidata.") {
		t.Fatalf("plain text lost:\n%s", sender.last.Text)
	}
}

func TestSubmitInvalidPayload(t *testing.T) {
	sender := &stubSender{configured: true}
	service := NewSubmissionService(permissiveDeps(sender))

	result := service.Submit(context.Background(), SubmissionRequest{
		Body:     map[string]any{"name": "Maria"},
		ClientIP: "203.0.113.7",
	})

	if result.Status != StatusInvalid {
		t.Fatalf("status = %q", result.Status)
	}
	if _, ok := result.FieldErrors["email"]; !ok {
		t.Fatalf("field errors = %v", result.FieldErrors)
	}
	if sender.calls != 0 {
		t.Fatal("sender must not be called for invalid payloads")
	}
}

func TestSubmitRateLimited(t *testing.T) {
	sender := &stubSender{configured: true}
	deps := permissiveDeps(sender)
	deps.Limiter = stubLimiter{result: ratelimit.Result{Limited: true, Reason: ratelimit.ReasonBurst}}
	service := NewSubmissionService(deps)

	result := service.Submit(context.Background(), validRequest())

	if result.Status != StatusRateLimited {
		t.Fatalf("status = %q", result.Status)
	}
	if result.LimitReason != ratelimit.ReasonBurst {
		t.Fatalf("limit reason = %q", result.LimitReason)
	}
	if sender.calls != 0 {
		t.Fatal("sender must not be called when rate limited")
	}
}

func TestSubmitDuplicateDropped(t *testing.T) {
	sender := &stubSender{configured: true}
	deps := permissiveDeps(sender)
	deps.Duplicates = stubDuplicates{seen: true}
	service := NewSubmissionService(deps)

	result := service.Submit(context.Background(), validRequest())

	if result.Status != StatusDropped || result.Cause != DropDuplicate {
		t.Fatalf("result = %+v", result)
	}
	if sender.calls != 0 {
		t.Fatal("duplicates must not be delivered")
	}
}

func TestSubmitRiskBlockDropped(t *testing.T) {
	sender := &stubSender{configured: true}
	deps := permissiveDeps(sender)
	deps.Risk = stubRisk{result: domain.Evaluation{
		Action:  domain.ActionBlock,
		Reasons: []string{ReasonAutomatedUserAgent},
	}}
	service := NewSubmissionService(deps)

	result := service.Submit(context.Background(), validRequest())

	if result.Status != StatusDropped || result.Cause != DropRequestRisk {
		t.Fatalf("result = %+v", result)
	}
	if sender.calls != 0 {
		t.Fatal("risk-blocked submissions must not be delivered")
	}
}

func TestSubmitSpamBlockDropped(t *testing.T) {
	sender := &stubSender{configured: true}
	deps := permissiveDeps(sender)
	deps.Spam = stubSpam{result: domain.Evaluation{
		Action:  domain.ActionBlock,
		Reasons: []string{ReasonHoneypot},
	}}
	service := NewSubmissionService(deps)

	result := service.Submit(context.Background(), validRequest())

	if result.Status != StatusDropped || result.Cause != DropSpam {
		t.Fatalf("result = %+v", result)
	}
	if sender.calls != 0 {
		t.Fatal("spam-blocked submissions must not be delivered")
	}
}

func TestSubmitUndeliverableDomain(t *testing.T) {
	sender := &stubSender{configured: true}
	deps := permissiveDeps(sender)
	deps.Deliverability = stubDeliverability{result: DomainCheck{Valid: false, Reason: ReasonDNSMissing}}
	service := NewSubmissionService(deps)

	result := service.Submit(context.Background(), validRequest())

	if result.Status != StatusUndeliverable {
		t.Fatalf("status = %q", result.Status)
	}
	if result.FieldErrors["email"] != "Il dominio email non risulta valido." {
		t.Fatalf("field errors = %v", result.FieldErrors)
	}
}

func TestSubmitNotConfigured(t *testing.T) {
	sender := &stubSender{configured: false}
	service := NewSubmissionService(permissiveDeps(sender))

	result := service.Submit(context.Background(), validRequest())

	if result.Status != StatusNotConfigured {
		t.Fatalf("status = %q", result.Status)
	}
	if sender.calls != 0 {
		t.Fatal("unconfigured sender must not be called")
	}
}

func TestSubmitMissingFromEmailNotConfigured(t *testing.T) {
	sender := &stubSender{configured: true}
	deps := permissiveDeps(sender)
	deps.FromEmail = ""
	service := NewSubmissionService(deps)

	if result := service.Submit(context.Background(), validRequest()); result.Status != StatusNotConfigured {
		t.Fatalf("status = %q", result.Status)
	}
}

func TestSubmitSendFailure(t *testing.T) {
	sender := &stubSender{configured: true, err: errors.New("upstream 500")}
	service := NewSubmissionService(permissiveDeps(sender))

	result := service.Submit(context.Background(), validRequest())

	if result.Status != StatusSendFailed {
		t.Fatalf("status = %q", result.Status)
	}
}

func TestSubmitFlaggedSubmissionStillSends(t *testing.T) {
	sender := &stubSender{configured: true, id: "re_456"}
	deps := permissiveDeps(sender)
	deps.Risk = stubRisk{result: domain.Evaluation{
		Action:  domain.ActionFlag,
		Reasons: []string{ReasonMissingUserAgent},
	}}
	deps.Spam = stubSpam{result: domain.Evaluation{
		Action:  domain.ActionFlag,
		Reasons: []string{ReasonVeryShortMessage},
	}}
	service := NewSubmissionService(deps)

	result := service.Submit(context.Background(), validRequest())

	if result.Status != StatusSent {
		t.Fatalf("status = %q", result.Status)
	}
	if !result.Flagged {
		t.Fatal("result should be flagged")
	}
	if !strings.HasPrefix(sender.last.Subject, "[Possibile spam] ") {
		t.Fatalf("subject = %q", sender.last.Subject)
	}
	if !strings.Contains(sender.last.Text, "Segnali anti-spam: missing-user-agent, very-short-message") {
		t.Fatalf("body reasons:\n%s", sender.last.Text)
	}
}
