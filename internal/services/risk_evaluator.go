package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/antispam"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/domain"
)

// Transport-level reason codes. They surface in audit logs and in the
// notification body for flagged submissions.
const (
	ReasonMissingUserAgent   = "missing-user-agent"
	ReasonAutomatedUserAgent = "automated-user-agent"
	ReasonUntrustedOrigin    = "untrusted-origin"
	ReasonUntrustedReferer   = "untrusted-referer"
)

// RequestRiskEvaluator classifies a request from its transport signals:
// user agent, Origin, and Referer. A blocked tool signature or a foreign
// Origin blocks outright; weaker anomalies only flag.
type RequestRiskEvaluator struct {
	rules *antispam.Provider
}

// NewRequestRiskEvaluator builds an evaluator backed by the given rule
// provider.
func NewRequestRiskEvaluator(rules *antispam.Provider) *RequestRiskEvaluator {
	if rules == nil {
		rules = antispam.NewProvider(nil)
	}
	return &RequestRiskEvaluator{rules: rules}
}

// Evaluate inspects the request metadata and returns an action with the
// ordered reasons that produced it.
func (e *RequestRiskEvaluator) Evaluate(meta RequestMeta) domain.Evaluation {
	rules := e.rules.Rules()
	reasons := make([]string, 0, 3)
	block := false

	userAgent := strings.TrimSpace(meta.UserAgent)
	if userAgent == "" {
		reasons = append(reasons, ReasonMissingUserAgent)
	} else if matchesAny(rules.BlockedUserAgents, userAgent) {
		reasons = append(reasons, ReasonAutomatedUserAgent)
		block = true
	}

	if origin := strings.TrimSpace(meta.Origin); origin != "" && !trustedSourceURL(rules, origin) {
		reasons = append(reasons, ReasonUntrustedOrigin)
		block = true
	}
	if referer := strings.TrimSpace(meta.Referer); referer != "" && !trustedSourceURL(rules, referer) {
		reasons = append(reasons, ReasonUntrustedReferer)
	}

	switch {
	case block:
		return domain.Evaluation{Action: domain.ActionBlock, Reasons: reasons}
	case len(reasons) > 0:
		return domain.Evaluation{Action: domain.ActionFlag, Reasons: reasons}
	default:
		return domain.Evaluation{Action: domain.ActionAllow, Reasons: reasons}
	}
}

// trustedSourceURL reports whether the value parses as an absolute URL whose
// host the rules trust. Unparseable values are treated as untrusted.
func trustedSourceURL(rules *antispam.Rules, value string) bool {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Hostname() == "" {
		return false
	}
	return rules.AllowedHost(parsed.Hostname())
}

func matchesAny(patterns []*regexp.Regexp, value string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
