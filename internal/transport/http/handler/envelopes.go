package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-auth-nosql/internal/domain"
)

// Envelope is the response wrapper for every auth endpoint. The account is
// serialized through its json tags, so the credential digest never leaves.
type Envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	User    *domain.Account `json:"user,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, msg string, user *domain.Account) {
	writeJSON(w, status, Envelope{Success: true, Message: msg, User: user})
}
