package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-auth-nosql/internal/domain"
)

var kindStatus = map[string]int{
	domain.KindInvalidInput:       http.StatusBadRequest,
	domain.KindAlreadyExists:      http.StatusBadRequest,
	domain.KindInvalidCredentials: http.StatusBadRequest,
	domain.KindInvalidOrExpired:   http.StatusBadRequest,
	domain.KindUnauthenticated:    http.StatusUnauthorized,
	domain.KindDependency:         http.StatusServiceUnavailable,
	domain.KindInternal:           http.StatusInternalServerError,
}

// writeError maps err to its kind and status. Client errors carry the leading
// message of err, which services keep client-safe; server errors get a
// generic message and the detail goes to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := kindStatus[kind]
	var msg string
	switch kind {
	case domain.KindDependency:
		msg = "service temporarily unavailable"
		slog.ErrorContext(r.Context(), "dependency failure", "path", r.URL.Path, "err", err)
	case domain.KindInternal:
		msg = "internal server error"
		slog.ErrorContext(r.Context(), "internal error", "path", r.URL.Path, "err", err)
	case domain.KindUnauthenticated:
		msg = "unauthorized - no valid session"
	default:
		msg, _, _ = strings.Cut(err.Error(), ": ")
	}
	writeJSON(w, status, Envelope{Error: kind, Message: msg})
}

func writeBadBody(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, Envelope{Error: domain.KindInvalidInput, Message: "invalid request body"})
}
