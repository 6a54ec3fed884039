package services

import (
	"context"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/domain"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/mailer"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/ratelimit"
)

// RequestMeta carries the transport-level signals inspected by the risk
// evaluator. Values arrive exactly as the client sent them.
type RequestMeta struct {
	UserAgent string
	Origin    string
	Referer   string
}

// RiskEvaluator classifies the request source from transport signals.
type RiskEvaluator interface {
	Evaluate(meta RequestMeta) domain.Evaluation
}

// SpamEvaluator scores submission content into allow/flag/block.
type SpamEvaluator interface {
	Evaluate(payload domain.ContactPayload) domain.Evaluation
}

// DomainCheck is the outcome of a deliverability probe.
type DomainCheck struct {
	Valid  bool
	Reason string
}

// DeliverabilityChecker verifies that an email domain has network presence.
type DeliverabilityChecker interface {
	Check(ctx context.Context, domainName string) DomainCheck
}

// RateLimiter enforces per-client submission ceilings.
type RateLimiter interface {
	Check(identifier string) ratelimit.Result
}

// DuplicateDetector suppresses immediate resubmission of identical content.
type DuplicateDetector interface {
	Seen(identifier, email, subject, message string) bool
}

// NotificationSender dispatches the outbound notification email. Configured
// reports whether credentials are present; their absence is a per-request
// error, not a startup failure.
type NotificationSender interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
	Configured() bool
}

// ContactService runs the full submission pipeline.
type ContactService interface {
	Submit(ctx context.Context, req SubmissionRequest) SubmissionResult
}
