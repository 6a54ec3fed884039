package services

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/observability"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/ratelimit"
)

// SubmissionStatus is the terminal state of a submission attempt.
type SubmissionStatus string

const (
	// StatusSent means the notification was accepted by the email provider.
	StatusSent SubmissionStatus = "sent"
	// StatusInvalid means field validation failed.
	StatusInvalid SubmissionStatus = "invalid"
	// StatusRateLimited means the client exceeded a submission ceiling.
	StatusRateLimited SubmissionStatus = "rate_limited"
	// StatusDropped means the submission was silently discarded; the client
	// still receives a success-shaped response.
	StatusDropped SubmissionStatus = "dropped"
	// StatusUndeliverable means the email domain failed the DNS probe.
	StatusUndeliverable SubmissionStatus = "undeliverable"
	// StatusNotConfigured means outbound email credentials are missing.
	StatusNotConfigured SubmissionStatus = "not_configured"
	// StatusSendFailed means the email provider rejected or never answered.
	StatusSendFailed SubmissionStatus = "send_failed"
)

// DropCause says which check discarded a StatusDropped submission.
type DropCause string

const (
	DropDuplicate   DropCause = "duplicate"
	DropRequestRisk DropCause = "request-risk"
	DropSpam        DropCause = "spam"
)

// SubmissionRequest is one decoded form submission plus the transport
// signals the pipeline inspects.
type SubmissionRequest struct {
	Body      map[string]any
	UserAgent string
	Origin    string
	Referer   string
	ClientIP  string
}

// SubmissionResult is the pipeline outcome. Which fields are meaningful
// depends on Status: FieldErrors for StatusInvalid and StatusUndeliverable,
// LimitReason for StatusRateLimited, Cause for StatusDropped, MessageID for
// StatusSent.
type SubmissionResult struct {
	Status       SubmissionStatus
	SubmissionID string
	FieldErrors  map[string]string
	LimitReason  ratelimit.Reason
	Cause        DropCause
	Flagged      bool
	MessageID    string
}

// Deps wires the submission pipeline. Every field is required except Clock,
// which defaults to time.Now.
type Deps struct {
	Risk           RiskEvaluator
	Spam           SpamEvaluator
	Deliverability DeliverabilityChecker
	Limiter        RateLimiter
	Duplicates     DuplicateDetector
	Sender         NotificationSender
	FromEmail      string
	ToEmail        string
	Clock          func() time.Time
}

// SubmissionService runs the full contact pipeline: normalize, validate,
// rate limit, dedupe, risk and spam evaluation, deliverability probe, then
// dispatch. Abuse drops report success to the caller so automated senders
// learn nothing from the response.
type SubmissionService struct {
	deps Deps
}

// NewSubmissionService builds the pipeline from its dependencies.
func NewSubmissionService(deps Deps) *SubmissionService {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &SubmissionService{deps: deps}
}

// Submit processes one submission end to end.
func (s *SubmissionService) Submit(ctx context.Context, req SubmissionRequest) SubmissionResult {
	logger := observability.FromContext(ctx)
	submissionID := ulid.Make().String()

	payload := NormalizePayload(req.Body)
	logger = logger.With(
		zap.String("submission_id", submissionID),
		zap.String("email", observability.SanitizeEmail(payload.Email)),
	)

	if fieldErrors := ValidatePayload(payload); len(fieldErrors) > 0 {
		logger.Info("submission rejected by validation",
			zap.Int("error_count", len(fieldErrors)))
		return SubmissionResult{
			Status:       StatusInvalid,
			SubmissionID: submissionID,
			FieldErrors:  fieldErrors,
		}
	}

	if limit := s.deps.Limiter.Check(req.ClientIP); limit.Limited {
		logger.Warn("submission rate limited",
			zap.String("limit_reason", string(limit.Reason)))
		return SubmissionResult{
			Status:       StatusRateLimited,
			SubmissionID: submissionID,
			LimitReason:  limit.Reason,
		}
	}

	if s.deps.Duplicates.Seen(req.ClientIP, payload.Email, payload.Subject, payload.Message) {
		logger.Warn("duplicate submission ignored")
		return SubmissionResult{
			Status:       StatusDropped,
			SubmissionID: submissionID,
			Cause:        DropDuplicate,
		}
	}

	risk := s.deps.Risk.Evaluate(RequestMeta{
		UserAgent: req.UserAgent,
		Origin:    req.Origin,
		Referer:   req.Referer,
	})
	if risk.Blocked() {
		logger.Warn("submission blocked by request risk checks",
			zap.Strings("reasons", risk.Reasons))
		return SubmissionResult{
			Status:       StatusDropped,
			SubmissionID: submissionID,
			Cause:        DropRequestRisk,
		}
	}

	if check := s.deps.Deliverability.Check(ctx, payload.EmailDomain); !check.Valid {
		logger.Info("email domain rejected",
			zap.String("domain_reason", check.Reason))
		return SubmissionResult{
			Status:       StatusUndeliverable,
			SubmissionID: submissionID,
			FieldErrors:  map[string]string{"email": "Il dominio email non risulta valido."},
		}
	}

	spam := s.deps.Spam.Evaluate(payload)
	if spam.Blocked() {
		logger.Warn("submission blocked as spam",
			zap.Strings("reasons", spam.Reasons))
		return SubmissionResult{
			Status:       StatusDropped,
			SubmissionID: submissionID,
			Cause:        DropSpam,
		}
	}

	if !s.deps.Sender.Configured() || s.deps.FromEmail == "" {
		logger.Error("outbound email not configured",
			zap.Bool("missing_from_email", s.deps.FromEmail == ""))
		return SubmissionResult{
			Status:       StatusNotConfigured,
			SubmissionID: submissionID,
		}
	}

	flagged := risk.Flagged() || spam.Flagged()
	reasons := append(append([]string{}, risk.Reasons...), spam.Reasons...)
	msg := composeNotification(payload, req.ClientIP, reasons, flagged, s.deps.FromEmail, s.deps.ToEmail, s.deps.Clock())

	messageID, err := s.deps.Sender.Send(ctx, msg)
	if err != nil {
		logger.Error("notification send failed", zap.Error(err))
		return SubmissionResult{
			Status:       StatusSendFailed,
			SubmissionID: submissionID,
			Flagged:      flagged,
		}
	}

	logger.Info("notification accepted",
		zap.String("message_id", messageID),
		zap.Bool("flagged", flagged),
		zap.Strings("reasons", reasons))
	return SubmissionResult{
		Status:       StatusSent,
		SubmissionID: submissionID,
		Flagged:      flagged,
		MessageID:    messageID,
	}
}
