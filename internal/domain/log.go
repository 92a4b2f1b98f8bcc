package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stream is a named partition of the remote log store. Each test run
// ships two well-known log files, and each maps to exactly one stream.
type Stream string

const (
	// StreamAction holds entries from actions.log.
	StreamAction Stream = "action"
	// StreamEvents holds entries from raw_events.log.
	StreamEvents Stream = "events"
)

// Streams lists all known streams in ingestion order.
func Streams() []Stream {
	return []Stream{StreamAction, StreamEvents}
}

// ParseStream converts a raw string into a Stream.
func ParseStream(raw string) (Stream, error) {
	switch Stream(raw) {
	case StreamAction:
		return StreamAction, nil
	case StreamEvents:
		return StreamEvents, nil
	}
	return "", fmt.Errorf("%w: invalid stream %q, must be %q or %q",
		ErrValidation, raw, StreamAction, StreamEvents)
}

// FileName returns the archive member file holding this stream's records.
func (s Stream) FileName() string {
	if s == StreamAction {
		return "actions.log"
	}
	return "raw_events.log"
}

// TimeField names the record field the log store should index as the
// event timestamp for this stream.
func (s Stream) TimeField() string {
	if s == StreamAction {
		return "datetime"
	}
	return "event_timestamp"
}

// MsgField names the record field the log store should treat as the
// primary message for this stream.
func (s Stream) MsgField() string {
	if s == StreamAction {
		return "action"
	}
	return "line"
}

// LogRecord is a single open-schema log line. Fields are kept as raw
// JSON so arbitrary downstream content survives a round trip untouched.
type LogRecord map[string]json.RawMessage

// Enrich injects the run identifier and stream label into the record.
// These are the only two fields the engine ever adds, and they are
// added exactly once, before transmission.
func (r LogRecord) Enrich(runID string, stream Stream) {
	id, _ := json.Marshal(runID)
	label, _ := json.Marshal(string(stream))
	r["run_id"] = id
	r["stream"] = label
}

// BatchParams describe how the log store should index a batch of records.
type BatchParams struct {
	StreamFields string
	TimeField    string
	MsgField     string
}

// IngestParams returns the ingestion parameters for a stream.
func IngestParams(stream Stream) BatchParams {
	return BatchParams{
		StreamFields: "stream,run_id",
		TimeField:    stream.TimeField(),
		MsgField:     stream.MsgField(),
	}
}

// TaskStatus is the lifecycle state of a background ingestion task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is final. A task never leaves a
// terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// IngestionTask tracks one background ingestion request for its
// process lifetime.
type IngestionTask struct {
	ID     string     `json:"task_id"`
	RunID  string     `json:"run_id"`
	Status TaskStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// Query scopes a log store lookup. It is translated deterministically
// into a single LogsQL expression by Expression.
type Query struct {
	Stream  Stream
	RunID   string
	EventID string
	Start   string
	End     string
	Limit   int
}

// Expression renders the query as a LogsQL string. The stream filter
// comes first so the store can prune partitions before scanning.
func (q Query) Expression() string {
	var b strings.Builder
	fmt.Fprintf(&b, `{stream=%q, run_id=%q}`, string(q.Stream), q.RunID)
	if q.EventID != "" {
		fmt.Fprintf(&b, ` event_id:%q`, q.EventID)
	}
	switch {
	case q.Start != "" && q.End != "":
		fmt.Fprintf(&b, ` _time:[%s,%s]`, q.Start, q.End)
	case q.Start != "":
		fmt.Fprintf(&b, ` _time:[%s,]`, q.Start)
	case q.End != "":
		fmt.Fprintf(&b, ` _time:[,%s]`, q.End)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, ` | limit %d`, q.Limit)
	}
	return b.String()
}

// EventSummary is the sanitized per-severity event count carried in a
// run descriptor. The raw provider payload is trimmed down to this.
type EventSummary struct {
	Amount   int    `json:"event_amount"`
	Severity string `json:"severity"`
}

// RunInfo is the descriptor of a test run as reported by the metadata
// provider, with candidate log archive download links.
type RunInfo struct {
	RunID    string            `json:"run_id"`
	Status   string            `json:"status"`
	Events   []EventSummary    `json:"events"`
	LogLinks map[string]string `json:"log_links"`
}
