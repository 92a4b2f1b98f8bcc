package usecase

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/user/runlog-engine/internal/adapter/metrics"
	"github.com/user/runlog-engine/internal/domain"
)

const ingestionBatchSize = 1000

// IngestUseCase runs the end-to-end ingestion chain: download an
// archive, unpack it, and stream its log files into the remote store
// from a detached background worker tracked in the task registry.
type IngestUseCase struct {
	retriever domain.ArchiveRetriever
	extractor domain.ArchiveExtractor
	store     domain.LogStore
	tasks     domain.TaskRepository
	metrics   *metrics.EngineMetrics
	logger    *slog.Logger
	dataDir   string
}

// NewIngestUseCase creates a new IngestUseCase. dataDir is the local
// log store data directory referenced by the setup command handed out
// when the store is unreachable.
func NewIngestUseCase(
	retriever domain.ArchiveRetriever,
	extractor domain.ArchiveExtractor,
	store domain.LogStore,
	tasks domain.TaskRepository,
	m *metrics.EngineMetrics,
	logger *slog.Logger,
	dataDir string,
) *IngestUseCase {
	return &IngestUseCase{
		retriever: retriever,
		extractor: extractor,
		store:     store,
		tasks:     tasks,
		metrics:   m,
		logger:    logger.With("component", "ingest_usecase"),
		dataDir:   dataDir,
	}
}

// IngestResult is the outcome of an ingestion request: a task id to
// poll, or a ready-to-run command when the log store is not reachable.
type IngestResult struct {
	TaskID       string `json:"task_id,omitempty"`
	SetupCommand string `json:"setup_command,omitempty"`
}

// IngestLogs validates the request, probes the log store and spawns a
// detached worker for the download/extract/ingest chain. The caller
// only ever blocks on the health probe.
//
// Two overlapping requests for the same run id share a cache path and
// may race on it; the engine does not deduplicate them.
func (uc *IngestUseCase) IngestLogs(ctx context.Context, downloadURL, runID string) (IngestResult, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return IngestResult{}, fmt.Errorf("%w: invalid run_id %q: %v", domain.ErrValidation, runID, err)
	}

	if !uc.store.Healthy(ctx) {
		uc.logger.Warn("log store unreachable, returning setup command", "run_id", runID)
		return IngestResult{SetupCommand: uc.setupCommand()}, nil
	}

	task := uc.tasks.Create(runID)
	go uc.worker(downloadURL, runID, task.ID)

	uc.logger.Info("ingestion task started", "task_id", task.ID, "run_id", runID)
	return IngestResult{TaskID: task.ID}, nil
}

// setupCommand returns a command the caller can run to start a local
// log store instance.
func (uc *IngestUseCase) setupCommand() string {
	return fmt.Sprintf(
		"docker run -d --name victoria-logs -p 9428:9428 -v %s:/victoria-logs-data victoriametrics/victoria-logs",
		uc.dataDir,
	)
}

// worker owns the task until it writes a terminal state. Every error
// in the chain is captured here; nothing re-raises past this boundary.
func (uc *IngestUseCase) worker(downloadURL, runID, taskID string) {
	// Detached from the originating request on purpose: the caller has
	// already been handed the task id.
	ctx := context.Background()

	if err := uc.run(ctx, downloadURL, runID); err != nil {
		uc.logger.Error("ingestion task failed", "task_id", taskID, "run_id", runID, "error", err)
		uc.metrics.TasksFinished.WithLabelValues(string(domain.TaskFailed)).Inc()
		if serr := uc.tasks.SetStatus(taskID, domain.TaskFailed, err.Error()); serr != nil {
			uc.logger.Error("failed to record task failure", "task_id", taskID, "error", serr)
		}
		return
	}

	uc.metrics.TasksFinished.WithLabelValues(string(domain.TaskCompleted)).Inc()
	if serr := uc.tasks.SetStatus(taskID, domain.TaskCompleted, ""); serr != nil {
		uc.logger.Error("failed to record task completion", "task_id", taskID, "error", serr)
	}
	uc.logger.Info("ingestion task completed", "task_id", taskID, "run_id", runID)
}

func (uc *IngestUseCase) run(ctx context.Context, downloadURL, runID string) error {
	archivePath, err := uc.retriever.Fetch(ctx, downloadURL, runID)
	if err != nil {
		return err
	}

	extractDir, err := uc.extractor.Unpack(archivePath, runID)
	if err != nil {
		return err
	}

	files := uc.extractor.LocateLogFiles(extractDir)
	for _, stream := range domain.Streams() {
		path, ok := files[stream]
		if !ok {
			uc.logger.Warn("log file not found, skipping",
				"file", stream.FileName(), "dir", extractDir, "run_id", runID)
			continue
		}
		if err := uc.ingestFile(ctx, path, stream, runID); err != nil {
			return err
		}
	}
	return nil
}

// ingestFile stream-parses one NDJSON log file, enriches each record
// with run_id and the stream label, and flushes batches of
// ingestionBatchSize plus a trailing partial batch. Batches are strictly
// sequential: the next one is not sent until the previous one resolved.
func (uc *IngestUseCase) ingestFile(ctx context.Context, path string, stream domain.Stream, runID string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", domain.ErrIngestion, path, err)
	}
	defer f.Close()

	params := domain.IngestParams(stream)
	batch := make([][]byte, 0, ingestionBatchSize)
	lineCount := 0

	// bufio.Reader instead of bufio.Scanner: input lines have no size
	// bound, and Scanner aborts the whole file on an oversized line.
	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		raw, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return fmt.Errorf("%w: read %s: %v", domain.ErrIngestion, path, readErr)
		}

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			if readErr == io.EOF {
				break
			}
			continue
		}

		var record domain.LogRecord
		// A JSON `null` unmarshals into a nil map; treat it like any
		// other unusable line rather than passing it to Enrich.
		if err := json.Unmarshal(line, &record); err != nil || record == nil {
			uc.logger.Warn("skipping malformed log line",
				"stream", stream, "run_id", runID, "error", err)
			uc.metrics.LinesSkipped.WithLabelValues(string(stream)).Inc()
			if readErr == io.EOF {
				break
			}
			continue
		}

		record.Enrich(runID, stream)
		enriched, err := json.Marshal(record)
		if err != nil {
			uc.logger.Warn("skipping unserializable log line",
				"stream", stream, "run_id", runID, "error", err)
			uc.metrics.LinesSkipped.WithLabelValues(string(stream)).Inc()
			if readErr == io.EOF {
				break
			}
			continue
		}

		batch = append(batch, enriched)
		lineCount++

		if len(batch) >= ingestionBatchSize {
			if err := uc.store.SendBatch(ctx, batch, params); err != nil {
				return err
			}
			batch = batch[:0]
		}

		if readErr == io.EOF {
			break
		}
	}

	if len(batch) > 0 {
		if err := uc.store.SendBatch(ctx, batch, params); err != nil {
			return err
		}
	}

	uc.metrics.LinesIngested.WithLabelValues(string(stream)).Add(float64(lineCount))
	uc.logger.Info("log file ingested",
		"stream", stream, "run_id", runID, "lines", lineCount)
	return nil
}
