package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/user/runlog-engine/internal/domain"
	"github.com/user/runlog-engine/internal/usecase"
)

// IngestHandler accepts ingestion requests and hands back either a
// task id or a local setup command. It is a pass-through: all
// semantics live in the use case.
type IngestHandler struct {
	useCase *usecase.IngestUseCase
	logger  *slog.Logger
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(uc *usecase.IngestUseCase, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{useCase: uc, logger: logger}
}

type ingestRequest struct {
	DownloadURL string `json:"download_url"`
	RunID       string `json:"run_id"`
}

func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DownloadURL == "" {
		writeError(w, http.StatusBadRequest, "download_url is required")
		return
	}

	result, err := h.useCase.IngestLogs(r.Context(), req.DownloadURL, req.RunID)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("ingest request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ingestion request failed")
		return
	}

	if result.SetupCommand != "" {
		// The store is not running; nothing was scheduled.
		writeJSON(w, http.StatusServiceUnavailable, result)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// TaskStatusHandler reports the lifecycle state of an ingestion task.
type TaskStatusHandler struct {
	tasks  domain.TaskRepository
	logger *slog.Logger
}

// NewTaskStatusHandler creates a new TaskStatusHandler.
func NewTaskStatusHandler(tasks domain.TaskRepository, logger *slog.Logger) *TaskStatusHandler {
	return &TaskStatusHandler{tasks: tasks, logger: logger}
}

func (h *TaskStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("task lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "task lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, task)
}
