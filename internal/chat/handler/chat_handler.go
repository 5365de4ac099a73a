// Package handler exposes the conversation endpoints: POST /v1/chat/events
// for free-text messages and POST /v1/chat/interactions for button clicks.
// Handlers are thin — validation and a delegate to the ChatService; replies
// to balance requests arrive later via the event's response URL.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/precocity/timeoff-assistant-go/internal/chat/domain"
	"github.com/precocity/timeoff-assistant-go/internal/chat/service"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("chat/handler")

// EventsHandler handles POST /v1/chat/events.
func EventsHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat/events")
		defer span.End()

		var ev domain.MessageEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			logger.Warn("undecodable chat event", zap.Error(err))
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if ev.UserID == "" {
			logger.Warn("chat event without user id")
			writeError(w, http.StatusBadRequest, "user is required")
			return
		}
		span.SetAttributes(attribute.String("chat.user_id", ev.UserID))

		reply := chatSvc.HandleMessage(ctx, ev)
		writeJSON(w, http.StatusOK, reply)
	}
}

// InteractionsHandler handles POST /v1/chat/interactions.
func InteractionsHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat/interactions")
		defer span.End()

		var ev domain.InteractionEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			logger.Warn("undecodable chat interaction", zap.Error(err))
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if ev.UserID == "" {
			logger.Warn("chat interaction without user id")
			writeError(w, http.StatusBadRequest, "user is required")
			return
		}
		span.SetAttributes(
			attribute.String("chat.user_id", ev.UserID),
			attribute.String("chat.callback_id", ev.CallbackID),
		)

		reply := chatSvc.HandleInteraction(ctx, ev)
		writeJSON(w, http.StatusOK, reply)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
