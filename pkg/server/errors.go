package server

import (
	"encoding/json"
	"net/http"
)

// Error codes used in the structured error envelope.
const (
	codeInvalidRequest     = "invalid_request"
	codeInvalidMode        = "invalid_mode"
	codeUnauthorized       = "unauthorized"
	codeMisconfigured      = "service_misconfigured"
	codeEnhancementFailed  = "enhancement_failed"
	codeServiceUnavailable = "service_unavailable"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
