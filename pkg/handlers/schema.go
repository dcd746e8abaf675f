package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/conversation"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/llm"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/schema"
)

// SchemaHandler exposes schema refresh and component status.
type SchemaHandler struct {
	store     *schema.Store
	sessions  *conversation.Store
	llmClient llm.LLMClient
	logger    *zap.Logger
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(store *schema.Store, sessions *conversation.Store, llmClient llm.LLMClient, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{store: store, sessions: sessions, llmClient: llmClient, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/schema/refresh", h.Refresh)
	mux.HandleFunc("GET /api/status", h.Status)
}

// Refresh handles POST /api/schema/refresh. The swap is atomic, so
// in-flight turns keep the snapshot they started with; a failed refresh
// keeps the prior snapshot.
func (h *SchemaHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context()); err != nil {
		_ = ErrorResponse(w, http.StatusBadGateway, codeRefreshFailed, err.Error())
		return
	}

	snap, err := h.store.Snapshot()
	if err != nil {
		_ = ErrorResponse(w, http.StatusServiceUnavailable, codeSchemaUnavailable, err.Error())
		return
	}

	response := map[string]any{
		"status":     "refreshed",
		"view":       snap.ViewName,
		"measures":   len(snap.Measures),
		"dimensions": len(snap.Dimensions),
		"fetched_at": snap.FetchedAt.Format(time.RFC3339),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode refresh response", zap.Error(err))
	}
}

// StatusResponse reports per-component health.
type StatusResponse struct {
	Status string       `json:"status"`
	Schema SchemaStatus `json:"schema"`
	LLM    LLMStatus    `json:"llm"`
	Count  int          `json:"active_sessions"`
}

// SchemaStatus describes the loaded snapshot.
type SchemaStatus struct {
	Loaded     bool   `json:"loaded"`
	View       string `json:"view,omitempty"`
	Measures   int    `json:"measures"`
	Dimensions int    `json:"dimensions"`
	AgeSeconds int64  `json:"age_seconds"`
}

// LLMStatus describes the configured model.
type LLMStatus struct {
	Model string `json:"model"`
}

// Status handles GET /api/status.
func (h *SchemaHandler) Status(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Status: "ok",
		LLM:    LLMStatus{Model: h.llmClient.GetModel()},
		Count:  h.sessions.Count(),
	}

	if snap, err := h.store.Snapshot(); err == nil {
		age, _ := h.store.Age()
		response.Schema = SchemaStatus{
			Loaded:     true,
			View:       snap.ViewName,
			Measures:   len(snap.Measures),
			Dimensions: len(snap.Dimensions),
			AgeSeconds: int64(age.Seconds()),
		}
	} else {
		response.Status = "degraded"
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode status response", zap.Error(err))
	}
}
