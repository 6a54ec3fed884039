package services

import (
	"testing"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/domain"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

func TestRiskEvaluatorAllowsBrowserRequest(t *testing.T) {
	evaluator := NewRequestRiskEvaluator(nil)

	result := evaluator.Evaluate(RequestMeta{
		UserAgent: browserUA,
		Origin:    "https://www.castellomongivetto.com",
		Referer:   "https://www.castellomongivetto.com/contatti",
	})

	if result.Action != domain.ActionAllow {
		t.Fatalf("action = %q, reasons = %v", result.Action, result.Reasons)
	}
}

func TestRiskEvaluatorBlocksAutomatedUserAgent(t *testing.T) {
	evaluator := NewRequestRiskEvaluator(nil)

	result := evaluator.Evaluate(RequestMeta{UserAgent: "python-requests/2.31.0"})

	if result.Action != domain.ActionBlock {
		t.Fatalf("action = %q", result.Action)
	}
	if result.Reasons[0] != ReasonAutomatedUserAgent {
		t.Fatalf("reasons = %v", result.Reasons)
	}
}

func TestRiskEvaluatorBlocksForeignOrigin(t *testing.T) {
	evaluator := NewRequestRiskEvaluator(nil)

	result := evaluator.Evaluate(RequestMeta{
		UserAgent: browserUA,
		Origin:    "https://spam-farm.example.net",
	})

	if result.Action != domain.ActionBlock {
		t.Fatalf("action = %q", result.Action)
	}
	if result.Reasons[0] != ReasonUntrustedOrigin {
		t.Fatalf("reasons = %v", result.Reasons)
	}
}

func TestRiskEvaluatorFlagsMissingUserAgent(t *testing.T) {
	evaluator := NewRequestRiskEvaluator(nil)

	result := evaluator.Evaluate(RequestMeta{UserAgent: "   "})

	if result.Action != domain.ActionFlag {
		t.Fatalf("action = %q", result.Action)
	}
	if result.Reasons[0] != ReasonMissingUserAgent {
		t.Fatalf("reasons = %v", result.Reasons)
	}
}

func TestRiskEvaluatorFlagsForeignReferer(t *testing.T) {
	evaluator := NewRequestRiskEvaluator(nil)

	result := evaluator.Evaluate(RequestMeta{
		UserAgent: browserUA,
		Referer:   "https://other.example.org/page",
	})

	if result.Action != domain.ActionFlag {
		t.Fatalf("action = %q", result.Action)
	}
	if result.Reasons[0] != ReasonUntrustedReferer {
		t.Fatalf("reasons = %v", result.Reasons)
	}
}

func TestRiskEvaluatorMalformedOriginIsUntrusted(t *testing.T) {
	evaluator := NewRequestRiskEvaluator(nil)

	result := evaluator.Evaluate(RequestMeta{
		UserAgent: browserUA,
		Origin:    "not a url",
	})

	if result.Action != domain.ActionBlock {
		t.Fatalf("action = %q, reasons = %v", result.Action, result.Reasons)
	}
}

func TestRiskEvaluatorEmptyHeadersAreNotOriginFailures(t *testing.T) {
	evaluator := NewRequestRiskEvaluator(nil)

	result := evaluator.Evaluate(RequestMeta{UserAgent: browserUA})

	if result.Action != domain.ActionAllow {
		t.Fatalf("action = %q, reasons = %v", result.Action, result.Reasons)
	}
}

func TestRiskEvaluatorTrustsDeploymentPreviews(t *testing.T) {
	evaluator := NewRequestRiskEvaluator(nil)

	result := evaluator.Evaluate(RequestMeta{
		UserAgent: browserUA,
		Origin:    "https://feature-branch-abc123.vercel.app",
	})

	if result.Action != domain.ActionAllow {
		t.Fatalf("action = %q, reasons = %v", result.Action, result.Reasons)
	}
}
