package services

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/domain"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/mailer"
)

// strictPolicy strips every HTML element, leaving plain text only. User input
// ends up verbatim in a notification email; stripping markup here keeps a
// pasted fragment from rendering in mail clients that sniff content.
var strictPolicy = bluemonday.StrictPolicy()

func plainText(value string) string {
	return html.UnescapeString(strictPolicy.Sanitize(value))
}

// composeNotification renders the outbound email for a submission. The
// subject carries a "[Possibile spam]" prefix when any evaluator flagged the
// request, and the body lists the collected anti-spam reasons for triage.
func composeNotification(payload domain.ContactPayload, clientIP string, reasons []string, flagged bool, from, to string, now time.Time) mailer.Message {
	name := plainText(payload.Name)
	message := plainText(payload.Message)
	subjectLabel := domain.SubjectLabel(payload.Subject)

	phone := plainText(payload.Phone)
	if phone == "" {
		phone = "Non indicato"
	}

	signals := "Segnali anti-spam: nessuno"
	if len(reasons) > 0 {
		signals = "Segnali anti-spam: " + strings.Join(reasons, ", ")
	}

	lines := []string{
		"Nuova richiesta dal Modulo Contatti",
		"",
		"Data UTC: " + now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"Nome: " + name,
		"Email: " + payload.Email,
		"Telefono: " + phone,
		"Oggetto: " + subjectLabel,
		"",
		"Messaggio:",
		message,
		"",
		"IP cliente: " + clientIP,
		signals,
	}

	prefix := ""
	if flagged {
		prefix = "[Possibile spam] "
	}

	return mailer.Message{
		From:    from,
		To:      to,
		ReplyTo: payload.Email,
		Subject: fmt.Sprintf("%sModulo Contatti - %s - %s", prefix, subjectLabel, name),
		Text:    strings.Join(lines, "\n"),
	}
}
