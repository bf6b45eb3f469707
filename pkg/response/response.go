// Package response writes JSON bodies for handlers and middleware that work
// on a plain http.ResponseWriter.
package response

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the shape of every error response the API emits.
type ErrorBody struct {
	Status  int               `json:"status"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// Error writes an ErrorBody.
func Error(w http.ResponseWriter, status int, kind, message string) {
	JSON(w, status, ErrorBody{Status: status, Error: kind, Message: message})
}

// Unauthorized sends a 401 AuthError.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, "AuthError", message)
}

// Forbidden sends a 403 AuthError.
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, "AuthError", message)
}

// NotFound sends a 404 for unmatched routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusNotFound, "NotFoundError", "Route not found")
}

// MethodNotAllowed sends a 405 for a known path with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusMethodNotAllowed, "NotFoundError", "Method not allowed")
}
