package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/httpx"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/ratelimit"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/requestctx"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/services"
)

const maxContactRequestBody = 16 * 1024

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

// End-user messages. Abuse drops answer with the same success-shaped body a
// delivered submission gets, so callers cannot probe the filters.
const (
	msgInvalidPayload   = "Payload non valido."
	msgPayloadTooLarge  = "Payload troppo grande."
	msgValidationFailed = "Controlla i campi del modulo e riprova."
	msgBurstLimited     = "Hai inviato troppe richieste in poco tempo. Attendi qualche minuto."
	msgHourlyLimited    = "Hai inviato troppe richieste. Attendi circa un'ora e riprova."
	msgDuplicate        = "Richiesta già ricevuta. Ti risponderemo appena possibile."
	msgDropped          = "Richiesta ricevuta. Ti risponderemo appena possibile."
	msgUndeliverable    = "Inserisci un indirizzo email reale e raggiungibile."
	msgNotConfigured    = "Servizio email non configurato correttamente."
	msgSendFailed       = "Errore temporaneo nell'invio. Riprova tra poco."
	msgSent             = "Messaggio inviato correttamente. Ti risponderemo al più presto."
)

type contactResponse struct {
	OK      bool              `json:"ok"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ContactHandlers exposes the contact form submission endpoint.
type ContactHandlers struct {
	service services.ContactService
}

// NewContactHandlers constructs a contact handler set.
func NewContactHandlers(service services.ContactService) *ContactHandlers {
	return &ContactHandlers{service: service}
}

// Routes registers the contact endpoints beneath /api.
func (h *ContactHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/contact", h.submit)
}

func (h *ContactHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "contact service not available", http.StatusServiceUnavailable))
		return
	}

	raw, err := readLimitedBody(r, maxContactRequestBody)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			httpx.WriteJSON(w, http.StatusRequestEntityTooLarge, contactResponse{OK: false, Message: msgPayloadTooLarge})
			return
		}
		httpx.WriteJSON(w, http.StatusBadRequest, contactResponse{OK: false, Message: msgInvalidPayload})
		return
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		httpx.WriteJSON(w, http.StatusBadRequest, contactResponse{OK: false, Message: msgInvalidPayload})
		return
	}

	result := h.service.Submit(ctx, services.SubmissionRequest{
		Body:      body,
		UserAgent: r.Header.Get("User-Agent"),
		Origin:    r.Header.Get("Origin"),
		Referer:   r.Header.Get("Referer"),
		ClientIP:  requestctx.ClientIP(ctx),
	})

	status, payload := renderResult(result)
	httpx.WriteJSON(w, status, payload)
}

// renderResult maps a pipeline outcome to its HTTP shape.
func renderResult(result services.SubmissionResult) (int, contactResponse) {
	switch result.Status {
	case services.StatusInvalid:
		return http.StatusUnprocessableEntity, contactResponse{
			OK:      false,
			Message: msgValidationFailed,
			Errors:  result.FieldErrors,
		}
	case services.StatusRateLimited:
		message := msgHourlyLimited
		if result.LimitReason == ratelimit.ReasonBurst {
			message = msgBurstLimited
		}
		return http.StatusTooManyRequests, contactResponse{OK: false, Message: message}
	case services.StatusDropped:
		message := msgDropped
		if result.Cause == services.DropDuplicate {
			message = msgDuplicate
		}
		return http.StatusOK, contactResponse{OK: true, Message: message}
	case services.StatusUndeliverable:
		return http.StatusUnprocessableEntity, contactResponse{
			OK:      false,
			Message: msgUndeliverable,
			Errors:  result.FieldErrors,
		}
	case services.StatusNotConfigured:
		return http.StatusInternalServerError, contactResponse{OK: false, Message: msgNotConfigured}
	case services.StatusSendFailed:
		return http.StatusBadGateway, contactResponse{OK: false, Message: msgSendFailed}
	case services.StatusSent:
		return http.StatusOK, contactResponse{OK: true, Message: msgSent}
	default:
		return http.StatusInternalServerError, contactResponse{OK: false, Message: msgSendFailed}
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}
