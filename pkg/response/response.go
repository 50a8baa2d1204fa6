// Package response writes the flat JSON bodies used by every endpoint:
// a "message" field next to endpoint-specific keys.
package response

import (
	"encoding/json"
	"net/http"
)

// H is a shorthand for a JSON object.
type H = map[string]any

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// Message writes {"message": msg} merged with extra.
func Message(w http.ResponseWriter, status int, msg string, extra H) {
	body := make(H, len(extra)+1)
	for k, v := range extra {
		body[k] = v
	}
	body["message"] = msg
	JSON(w, status, body)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, H{"message": message})
}

// ValidationError sends a 400 with a field-level error map.
func ValidationError(w http.ResponseWriter, message string, errs map[string]string) {
	if message == "" {
		message = "Validation failed"
	}
	JSON(w, http.StatusBadRequest, H{"message": message, "errors": errs})
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func TooManyRequests(w http.ResponseWriter) {
	Error(w, http.StatusTooManyRequests, "Too Many Requests")
}
