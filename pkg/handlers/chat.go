package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/apperrors"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/conversation"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/services"
)

// ChatHandler exposes the turn-based query resolution flow.
type ChatHandler struct {
	resolver *services.Resolver
	sessions *conversation.Store
	logger   *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(resolver *services.Resolver, sessions *conversation.Store, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{resolver: resolver, sessions: sessions, logger: logger}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.Query)
	mux.HandleFunc("POST /api/confirm", h.Confirm)
	mux.HandleFunc("POST /api/reject", h.Reject)
	mux.HandleFunc("GET /api/conversation/{session}", h.GetConversation)
	mux.HandleFunc("DELETE /api/conversation/{session}", h.DeleteConversation)
}

// QueryRequest is the body of POST /api/query. SessionID is optional; a
// missing one starts a new session.
type QueryRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// SessionRequest is the body of POST /api/confirm and POST /api/reject.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// TurnResponse wraps a turn result with its session id so the caller can
// continue the conversation.
type TurnResponse struct {
	SessionID string `json:"session_id"`
	*models.TurnResult
}

// Query handles POST /api/query: one user message, one turn result.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, codeInvalidRequest, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, err := h.resolver.ProcessMessage(r.Context(), sessionID, req.Message)
	if err != nil {
		h.writeResolverError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, TurnResponse{SessionID: sessionID, TurnResult: result}); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// Confirm handles POST /api/confirm: the explicit confirmation signal
// that releases the proposed interpretation into construction.
func (h *ChatHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.decodeSession(w, r)
	if !ok {
		return
	}

	result, err := h.resolver.Confirm(r.Context(), sessionID)
	if err != nil {
		h.writeResolverError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, TurnResponse{SessionID: sessionID, TurnResult: result}); err != nil {
		h.logger.Error("Failed to encode confirm response", zap.Error(err))
	}
}

// Reject handles POST /api/reject: the interpretation was wrong, clear
// the session context and invite a rephrase.
func (h *ChatHandler) Reject(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.decodeSession(w, r)
	if !ok {
		return
	}

	result, err := h.resolver.Reject(r.Context(), sessionID)
	if err != nil {
		h.writeResolverError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, TurnResponse{SessionID: sessionID, TurnResult: result}); err != nil {
		h.logger.Error("Failed to encode reject response", zap.Error(err))
	}
}

// GetConversation handles GET /api/conversation/{session}.
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")

	cctx, err := h.sessions.Get(sessionID)
	if err != nil {
		h.writeResolverError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, cctx); err != nil {
		h.logger.Error("Failed to encode conversation response", zap.Error(err))
	}
}

// DeleteConversation handles DELETE /api/conversation/{session}.
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")

	if err := h.sessions.Delete(sessionID); err != nil {
		h.writeResolverError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) decodeSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return "", false
	}
	if req.SessionID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, codeInvalidRequest, "session_id is required")
		return "", false
	}
	return req.SessionID, true
}

func (h *ChatHandler) writeResolverError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, codeSessionNotFound, err.Error())
	case errors.Is(err, apperrors.ErrNoPendingConfirmation):
		_ = ErrorResponse(w, http.StatusConflict, codeNoPendingConfirmation, err.Error())
	case errors.Is(err, apperrors.ErrSchemaUnavailable):
		_ = ErrorResponse(w, http.StatusServiceUnavailable, codeSchemaUnavailable, err.Error())
	default:
		h.logger.Error("Unhandled resolver error", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
