package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the response convention for every endpoint: success flag,
// optional human-readable message, payload fields merged at the top
// level by the caller.
type Envelope map[string]any

// JSON writes a success envelope with the given extra payload fields.
func JSON(w http.ResponseWriter, status int, payload Envelope) {
	body := Envelope{"success": status < 400}
	for k, v := range payload {
		body[k] = v
	}
	write(w, status, body)
}

// Error writes a failure envelope carrying a human-readable message.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{"success": false, "message": message})
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response failed", "err", err)
	}
}
