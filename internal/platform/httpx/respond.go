package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON encodes the payload with the response headers every submission
// endpoint carries: no caching and no content sniffing.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	setResponseHeaders(w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func setResponseHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
}
