// Package server exposes the HTTP trigger that feeds inbound events to the
// account service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/kvstore/internal/account"
	"github.com/roach88/kvstore/internal/store"
)

// EventPath is the route of the event trigger.
const EventPath = "/api/thot_terminator_endpoint"

// RequestIDHeader carries the per-request id.
const RequestIDHeader = "X-Request-Id"

// UsageMessage is returned when user_id or message is missing.
const UsageMessage = "This HTTP triggered function executed successfully. " +
	"Pass user_id and message in the query string or in the request body."

const maxBodyBytes = 1 << 20

// EventHandler is what the trigger needs from the account layer.
type EventHandler interface {
	HandleEvent(ctx context.Context, userID, message string) (account.Result, error)
}

// EventResponse is the JSON body of a handled event.
type EventResponse struct {
	UserID   string           `json:"user_id"`
	Decision account.Decision `json:"decision"`
	Created  bool             `json:"created"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type eventRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// New returns the HTTP handler for the trigger.
func New(events EventHandler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{events: events, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc(EventPath, h.handleEvent)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	return withRequestID(mux)
}

type handler struct {
	events EventHandler
	logger *slog.Logger
}

func (h *handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", w.Header().Get(RequestIDHeader))
	logger.Info("event trigger processed a request", "method", r.Method)

	userID := r.URL.Query().Get("user_id")
	message := r.URL.Query().Get("message")
	if userID == "" || message == "" {
		var body eventRequest
		// An unreadable body is treated like a missing one.
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err == nil {
			userID = body.UserID
			message = body.Message
		}
	}

	if strings.TrimSpace(userID) == "" || strings.TrimSpace(message) == "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, UsageMessage)
		return
	}

	res, err := h.events.HandleEvent(r.Context(), userID, message)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrValidation) {
			status = http.StatusBadRequest
		}
		logger.Error("event failed", "user_id", userID, "status", status, "error", err)
		writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
		return
	}

	writeJSON(w, http.StatusOK, EventResponse{
		UserID:   res.User.ID,
		Decision: res.Decision,
		Created:  res.Created,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// withRequestID assigns every request an id, keeping one supplied by the
// caller.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
