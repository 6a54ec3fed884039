package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/domain"
)

var (
	emailPattern     = regexp.MustCompile(`(?i)^[a-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-z0-9-]+(?:\.[a-z0-9-]+)+$`)
	phoneDisallowed  = regexp.MustCompile(`[^0-9+()./\-\s]`)
	minMessageLength = 10
)

// NormalizePayload coerces an untyped request body into the canonical
// ContactPayload. Best effort by design: it never fails, non-string values
// become empty strings, and out-of-bound values are clamped.
func NormalizePayload(body map[string]any) domain.ContactPayload {
	name := cleanText(body["name"], domain.MaxNameLength)
	email := strings.ToLower(cleanText(body["email"], domain.MaxEmailLength))
	phone := phoneDisallowed.ReplaceAllString(cleanText(body["phone"], domain.MaxPhoneLength), "")
	subject := strings.ToLower(cleanText(body["subject"], domain.MaxSubjectLength))
	message := cleanText(body["message"], domain.MaxMessageLength)
	website := cleanText(body["website"], domain.MaxWebsiteLength)

	// Strict boolean: string truthiness must not grant consent.
	privacy := body["privacy"] == true

	emailDomain := ""
	if at := strings.LastIndex(email, "@"); at >= 0 {
		emailDomain = email[at+1:]
	}

	return domain.ContactPayload{
		Name:          name,
		Email:         email,
		Phone:         phone,
		Subject:       subject,
		Message:       message,
		Website:       website,
		Privacy:       privacy,
		FormStartedAt: numericValue(body["formStartedAt"]),
		EmailDomain:   emailDomain,
	}
}

// ValidatePayload checks the canonical payload against required-field and
// format rules. Every rule runs; the returned map is empty when valid. The
// two message-length rules deliberately share one key, so an over-long
// message overwrites the too-short error.
func ValidatePayload(payload domain.ContactPayload) map[string]string {
	errors := make(map[string]string)

	if payload.Name == "" {
		errors["name"] = "Inserisci nome e cognome."
	}
	if payload.Email == "" || !emailPattern.MatchString(payload.Email) {
		errors["email"] = "Inserisci un indirizzo email valido."
	}
	if _, ok := domain.SubjectLabels[payload.Subject]; !ok {
		errors["subject"] = "Seleziona una tipologia valida."
	}
	messageLength := utf8.RuneCountInString(payload.Message)
	if messageLength < minMessageLength {
		errors["message"] = "Inserisci un messaggio di almeno 10 caratteri."
	}
	if messageLength > domain.MaxMessageLength {
		errors["message"] = "Il messaggio è troppo lungo."
	}
	if !payload.Privacy {
		errors["privacy"] = "È necessario accettare il consenso privacy."
	}

	return errors
}

func cleanText(value any, maxLength int) string {
	text, ok := value.(string)
	if !ok {
		return ""
	}
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > maxLength {
		return string(runes[:maxLength])
	}
	return text
}

func numericValue(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	case bool:
		if v {
			return 1
		}
		return 0
	}
	return math.NaN()
}
