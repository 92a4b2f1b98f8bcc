package api

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/user/runlog-engine/internal/adapter/api/handler"
	"github.com/user/runlog-engine/internal/adapter/api/middleware"
	"github.com/user/runlog-engine/internal/domain"
	"github.com/user/runlog-engine/internal/usecase"
)

// Deps carries everything the router wires together.
type Deps struct {
	Logger       *slog.Logger
	IngestUC     *usecase.IngestUseCase
	QueryUC      *usecase.QueryUseCase
	Tasks        domain.TaskRepository
	RunInfo      domain.RunInfoProvider
	Instructions domain.InstructionProvider
	IngestRate   rate.Limit
	IngestBurst  int
}

// NewRouter creates and configures the main HTTP router for the
// engine's pass-through boundary.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	rateLimited := middleware.RateLimit(d.IngestRate, d.IngestBurst)
	mux.Handle("POST /ingest", rateLimited(handler.NewIngestHandler(d.IngestUC, d.Logger)))
	mux.Handle("GET /tasks/{id}", handler.NewTaskStatusHandler(d.Tasks, d.Logger))

	queryHandler := handler.NewQueryHandler(d.QueryUC, d.Logger)
	mux.HandleFunc("GET /runs/{id}/logs", queryHandler.Logs)
	mux.HandleFunc("GET /runs/{id}/events/{event_id}", queryHandler.Event)

	mux.Handle("GET /runs/{id}/info", handler.NewRunInfoHandler(d.RunInfo, d.Logger))
	mux.Handle("GET /instructions", handler.NewInstructionsHandler(d.Instructions, d.Logger))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return middleware.Logging(d.Logger)(mux)
}
