// Package httputil holds small HTTP helpers shared by the handlers.
package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON envelope of a failed request.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// MessageResponse is the JSON envelope of a successful request.
type MessageResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// JSON writes v as a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes {"ok":true,"message":...}.
func OK(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, MessageResponse{OK: true, Message: message})
}

// Error writes {"ok":false,"error":...}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{OK: false, Error: message})
}

// Text writes a plain-text response.
func Text(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
