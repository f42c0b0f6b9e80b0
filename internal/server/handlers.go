package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openagora/agora/internal/domain"
	"github.com/openagora/agora/internal/history"
	"github.com/openagora/agora/internal/storage"
	"github.com/openagora/agora/internal/stream"
)

const errorAnswerText = "An error occurred while processing your question. Please try again."

// DebateRunner processes one question, invoking emit for each progress update.
type DebateRunner interface {
	Run(ctx context.Context, req *domain.DebateRequest, emit func(domain.StatusUpdate)) (*domain.FinalAnswer, error)
}

// Handler serves the debate API.
type Handler struct {
	runner DebateRunner
	store  storage.HistoryStore
	logger *slog.Logger
}

// NewHandler creates a handler. store may be nil, disabling history.
func NewHandler(runner DebateRunner, store storage.HistoryStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runner: runner,
		store:  store,
		logger: logger,
	}
}

// Register mounts the API routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/debate", h.handleDebate)
	r.Get("/api/v1/history/{user_id}", h.handleHistory)
	r.Get("/healthz", h.handleHealth)
}

// handleDebate streams the debate as newline-delimited JSON: status envelopes
// while agents work, then one response envelope with the final answer. Errors
// after the stream has started are shaped as a response envelope so clients
// always see a terminal line.
func (h *Handler) handleDebate(w http.ResponseWriter, r *http.Request) {
	var req domain.DebateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}

	AddLogField(r.Context(), "user_id", req.UserID)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	sw := stream.NewWriter(w)

	var statuses []domain.StatusUpdate
	emit := func(update domain.StatusUpdate) {
		statuses = append(statuses, update)
		if err := sw.Status(update.Agent, update.Message); err != nil {
			h.logger.Warn("failed to write status update", slog.String("error", err.Error()))
		}
	}

	answer, err := h.runner.Run(r.Context(), &req, emit)
	if err != nil {
		AddError(r.Context(), err)
		h.logger.Error("debate failed",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		answer = &domain.FinalAnswer{
			Role:    "assistant",
			Content: errorAnswerText,
			Error:   err.Error(),
		}
	}

	var details any
	if req.IncludeDebateDetails && len(answer.DebateTranscript) > 0 {
		details = answer.DebateTranscript
	}
	if err := sw.Response(answer, details); err != nil {
		h.logger.Error("failed to write response envelope", slog.String("error", err.Error()))
		return
	}

	history.Record(r.Context(), h.store, &req, answer, statuses)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusNotImplemented, "history is not enabled")
		return
	}

	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	opts := storage.ListOptions{UserID: userID}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	conversations, err := h.store.ListConversations(r.Context(), opts)
	if err != nil {
		AddError(r.Context(), err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":       userID,
		"conversations": conversations,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
