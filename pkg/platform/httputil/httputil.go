// Package httputil centralizes JSON response writing and domain error
// translation for HTTP transports.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "konto/pkg/domain-errors"
)

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a coded domain error into a JSON error response.
// Internal errors omit the description so infrastructure detail never leaks
// to callers.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(err)
	body := map[string]string{
		"error": string(dErrors.CodeOf(err)),
	}
	if status != http.StatusInternalServerError {
		if msg := dErrors.Message(err); msg != "" {
			body["error_description"] = msg
		}
	}
	WriteJSON(w, status, body)
}
