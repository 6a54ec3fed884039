package domain

// Field length ceilings applied during normalization.
const (
	MaxNameLength    = 120
	MaxEmailLength   = 160
	MaxPhoneLength   = 40
	MaxSubjectLength = 40
	MaxMessageLength = 2500
	MaxWebsiteLength = 120
)

// SubjectLabels maps the enumerated subject keys to the labels used in
// notification emails. The key set doubles as the validation whitelist.
var SubjectLabels = map[string]string{
	"visita":       "Prenotazione visita",
	"evento":       "Evento privato",
	"informazioni": "Richiesta informazioni",
	"altro":        "Altro",
}

// SubjectLabel resolves the display label for a subject key, defaulting to
// "Altro" for unknown keys.
func SubjectLabel(key string) string {
	if label, ok := SubjectLabels[key]; ok {
		return label
	}
	return "Altro"
}

// ContactPayload is the canonical, post-normalization form submission. All
// string fields are length-bounded and free of NUL bytes; EmailDomain is
// empty only when Email lacks an '@'.
type ContactPayload struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
	// Website is the honeypot field; any non-empty value marks automation.
	Website string
	Privacy bool
	// FormStartedAt is the client-reported epoch-millisecond timestamp of the
	// first form render. NaN when the raw value was not numeric.
	FormStartedAt float64
	EmailDomain   string
}

// Action is the outcome level of an anti-abuse evaluation.
type Action string

const (
	// ActionAllow lets the submission continue untouched.
	ActionAllow Action = "allow"
	// ActionFlag lets the submission continue but marks it for human review.
	ActionFlag Action = "flag"
	// ActionBlock silently drops the submission.
	ActionBlock Action = "block"
)

// Evaluation is the outcome of a risk or spam check: an action plus the
// ordered reason codes that produced it. Reasons feed audit logs and the
// notification body, never the end-user response.
type Evaluation struct {
	Action  Action
	Reasons []string
}

// Blocked reports whether the evaluation demands a silent drop.
func (e Evaluation) Blocked() bool { return e.Action == ActionBlock }

// Flagged reports whether the evaluation asks for human review.
func (e Evaluation) Flagged() bool { return e.Action == ActionFlag }
