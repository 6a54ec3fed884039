package services

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/antispam"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/domain"
)

// Content reason codes, in the order the signals are evaluated.
const (
	ReasonHoneypot         = "honeypot"
	ReasonSubmittedTooFast = "submitted-too-fast"
	ReasonMissingTiming    = "missing-timing-signal"
	ReasonTooManyLinks     = "too-many-links"
	ReasonRepeatedChars    = "repeated-characters"
	ReasonVeryShortMessage = "very-short-message"
)

const (
	// minFormFillMillis is the shortest plausible time a human needs between
	// first render and submit.
	minFormFillMillis = 1200
	// maxMessageLinks is the number of links tolerated before the message
	// counts as link spam.
	maxMessageLinks = 2
	// repeatedRunLength is the shortest run of one repeated alphanumeric
	// character that marks keyboard mashing.
	repeatedRunLength = 9
)

var linkPattern = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)

// ContentSpamEvaluator scores submission content. Signals accumulate into
// reasons; the decision tiers them into block (unambiguous spam), flag
// (suspicious, deliver but mark) and allow.
type ContentSpamEvaluator struct {
	rules *antispam.Provider
	clock func() time.Time
}

// SpamEvaluatorOption tweaks evaluator construction.
type SpamEvaluatorOption func(*ContentSpamEvaluator)

// WithSpamClock substitutes the time source, for tests.
func WithSpamClock(clock func() time.Time) SpamEvaluatorOption {
	return func(e *ContentSpamEvaluator) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewContentSpamEvaluator builds an evaluator backed by the given rule
// provider.
func NewContentSpamEvaluator(rules *antispam.Provider, opts ...SpamEvaluatorOption) *ContentSpamEvaluator {
	if rules == nil {
		rules = antispam.NewProvider(nil)
	}
	evaluator := &ContentSpamEvaluator{rules: rules, clock: time.Now}
	for _, opt := range opts {
		opt(evaluator)
	}
	return evaluator
}

// Evaluate scores the payload and returns an action with the ordered reasons
// that produced it.
func (e *ContentSpamEvaluator) Evaluate(payload domain.ContactPayload) domain.Evaluation {
	rules := e.rules.Rules()
	reasons := make([]string, 0, 4)

	honeypot := payload.Website != ""
	if honeypot {
		reasons = append(reasons, ReasonHoneypot)
	}

	tooFast := false
	missingTiming := false
	if timingSignalPresent(payload.FormStartedAt) {
		elapsed := float64(e.clock().UnixMilli()) - payload.FormStartedAt
		if elapsed < minFormFillMillis {
			reasons = append(reasons, ReasonSubmittedTooFast)
			tooFast = true
		}
	} else {
		reasons = append(reasons, ReasonMissingTiming)
		missingTiming = true
	}

	combined := payload.Name + " " + payload.Email + " " + payload.Subject + " " + payload.Message
	keywordHits := 0
	for _, pattern := range rules.KeywordPatterns {
		if pattern.MatchString(combined) {
			keywordHits++
		}
	}
	if keywordHits > 0 {
		reasons = append(reasons, fmt.Sprintf("keywords:%d", keywordHits))
	}

	manyLinks := len(linkPattern.FindAllString(payload.Message, -1)) > maxMessageLinks
	if manyLinks {
		reasons = append(reasons, ReasonTooManyLinks)
	}

	repeated := hasRepeatedRun(payload.Message, repeatedRunLength)
	if repeated {
		reasons = append(reasons, ReasonRepeatedChars)
	}

	veryShort := len(strings.Fields(payload.Message)) <= 2
	if veryShort {
		reasons = append(reasons, ReasonVeryShortMessage)
	}

	if honeypot {
		return domain.Evaluation{Action: domain.ActionBlock, Reasons: reasons}
	}

	clearSpam := keywordHits >= 2 ||
		(keywordHits >= 1 && manyLinks) ||
		(manyLinks && repeated)
	if clearSpam {
		return domain.Evaluation{Action: domain.ActionBlock, Reasons: reasons}
	}

	suspicious := tooFast || missingTiming || keywordHits == 1 ||
		manyLinks || repeated || veryShort
	if suspicious {
		return domain.Evaluation{Action: domain.ActionFlag, Reasons: reasons}
	}

	return domain.Evaluation{Action: domain.ActionAllow, Reasons: reasons}
}

// timingSignalPresent reports whether the client supplied a usable
// form-render timestamp. NaN compares false to everything, so the positive
// check also rejects it.
func timingSignalPresent(startedAt float64) bool {
	return startedAt > 0 && !math.IsInf(startedAt, 1)
}

// hasRepeatedRun reports whether the text contains a run of at least
// minRun identical ASCII alphanumerics, case-insensitively.
func hasRepeatedRun(text string, minRun int) bool {
	var last rune
	run := 0
	for _, r := range text {
		lowered := unicode.ToLower(r)
		if !isASCIIAlnum(lowered) {
			last, run = 0, 0
			continue
		}
		if lowered == last {
			run++
			if run >= minRun {
				return true
			}
		} else {
			last, run = lowered, 1
		}
	}
	return false
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
