package auth

import (
	"encoding/json"
	"net/http"
)

// Failure messages surfaced to callers. Internal error detail is logged,
// never returned.
const (
	msgAuthorizationFailed  = "Request failed during authorization."
	msgAuthenticationFailed = "Request failed during authentication."
	msgTokenMissing         = "Authentication token is missing."
	msgHeadersMissing       = "Authorization headers are missing."
)

// failureBody is the JSON shape of every gateway rejection.
type failureBody struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// writeFailure writes a {message, success:false} rejection with the given
// status code.
func writeFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(failureBody{Message: message, Success: false})
}
