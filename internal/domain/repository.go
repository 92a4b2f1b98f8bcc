package domain

import "context"

// LogStore is the remote append-only log store the engine ingests into
// and queries from.
type LogStore interface {
	// Healthy probes the store with a short-timeout liveness check.
	Healthy(ctx context.Context) bool

	// SendBatch transmits one batch of serialized records as
	// newline-delimited JSON, retrying transport failures internally.
	SendBatch(ctx context.Context, lines [][]byte, params BatchParams) error

	// Query executes a LogsQL expression and returns the parsed
	// newline-delimited JSON results. An empty response is an empty
	// slice, never an error.
	Query(ctx context.Context, expression string) ([]LogRecord, error)
}

// TaskRepository tracks background ingestion task lifecycle state.
// Consumers poll; there is no notification mechanism.
type TaskRepository interface {
	// Create registers a new task for a run, starting in TaskPending.
	Create(runID string) IngestionTask

	// SetStatus overwrites a task's status. Transitioning a task out
	// of a terminal state is a programming error and is rejected.
	SetStatus(taskID string, status TaskStatus, errMsg string) error

	// Get returns the current task state, or ErrTaskNotFound.
	Get(taskID string) (IngestionTask, error)
}

// ArchiveRetriever downloads a remote compressed log archive into the
// per-run local cache.
type ArchiveRetriever interface {
	// Fetch streams the archive at downloadURL to local storage and
	// returns the archive path. One shot, no retry.
	Fetch(ctx context.Context, downloadURL, runID string) (string, error)
}

// ArchiveExtractor unpacks a downloaded archive and locates the
// well-known log files inside it.
type ArchiveExtractor interface {
	// Unpack decompresses and untars the archive into the run's cache
	// directory, returning the extraction root.
	Unpack(archivePath, runID string) (string, error)

	// LocateLogFiles searches the extraction root and its immediate
	// subdirectories for each stream's log file. Missing files are
	// simply absent from the result.
	LocateLogFiles(extractDir string) map[Stream]string
}

// RunInfoProvider is the external test-run metadata collaborator.
type RunInfoProvider interface {
	RunInfo(ctx context.Context, runID string) (RunInfo, error)
}

// InstructionProvider is the external knowledge-retrieval collaborator
// mapping a free-text question to investigation instructions.
type InstructionProvider interface {
	Instructions(query string) (string, error)
}
