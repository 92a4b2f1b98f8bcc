package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/user/runlog-engine/internal/domain"
	"github.com/user/runlog-engine/internal/usecase"
)

// QueryHandler exposes the scoped log query operations.
type QueryHandler struct {
	useCase *usecase.QueryUseCase
	logger  *slog.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(uc *usecase.QueryUseCase, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{useCase: uc, logger: logger}
}

// Logs serves GET /runs/{id}/logs?stream=&start=&end=&limit=.
func (h *QueryHandler) Logs(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	params := r.URL.Query()

	limit := 0
	if raw := params.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	results, err := h.useCase.QueryByStream(r.Context(), runID,
		params.Get("stream"), params.Get("start"), params.Get("end"), limit)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

// Event serves GET /runs/{id}/events/{event_id}.
func (h *QueryHandler) Event(w http.ResponseWriter, r *http.Request) {
	record, err := h.useCase.QueryEvent(r.Context(), r.PathValue("id"),
		r.PathValue("event_id"), r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *QueryHandler) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("query failed", "error", err)
	writeError(w, http.StatusBadGateway, "log store query failed")
}
