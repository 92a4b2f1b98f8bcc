package domain

import "errors"

// Sentinel errors for the ingestion and query engine. Callers match
// them with errors.Is; concrete causes are attached via %w wrapping.
var (
	// ErrValidation marks malformed caller input (run id, event id,
	// stream or timestamp). Always raised before any network call.
	ErrValidation = errors.New("validation failed")

	// ErrDownload marks a failed archive download.
	ErrDownload = errors.New("archive download failed")

	// ErrExtraction marks a malformed or unreadable archive.
	ErrExtraction = errors.New("archive extraction failed")

	// ErrIngestion marks a batch transmission that exhausted its retries.
	ErrIngestion = errors.New("log ingestion failed")

	// ErrQuery marks a query transport failure.
	ErrQuery = errors.New("log query failed")

	// ErrTaskNotFound marks a poll for an unknown ingestion task id.
	ErrTaskNotFound = errors.New("ingestion task not found")

	// ErrRunInfo marks a failure talking to the run metadata provider.
	ErrRunInfo = errors.New("run info retrieval failed")
)
