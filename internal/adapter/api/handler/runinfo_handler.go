package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/user/runlog-engine/internal/domain"
)

// RunInfoHandler proxies run descriptor lookups to the metadata
// provider collaborator.
type RunInfoHandler struct {
	provider domain.RunInfoProvider
	logger   *slog.Logger
}

// NewRunInfoHandler creates a new RunInfoHandler.
func NewRunInfoHandler(provider domain.RunInfoProvider, logger *slog.Logger) *RunInfoHandler {
	return &RunInfoHandler{provider: provider, logger: logger}
}

func (h *RunInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	info, err := h.provider.RunInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("run info lookup failed", "error", err)
		writeError(w, http.StatusBadGateway, "run info retrieval failed")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// InstructionsHandler serves investigation instructions for a
// free-text question.
type InstructionsHandler struct {
	provider domain.InstructionProvider
	logger   *slog.Logger
}

// NewInstructionsHandler creates a new InstructionsHandler.
func NewInstructionsHandler(provider domain.InstructionProvider, logger *slog.Logger) *InstructionsHandler {
	return &InstructionsHandler{provider: provider, logger: logger}
}

func (h *InstructionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	instructions, err := h.provider.Instructions(query)
	if err != nil {
		h.logger.Error("instruction lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "instruction lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"instructions": instructions})
}
