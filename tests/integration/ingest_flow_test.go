package integration

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/user/runlog-engine/internal/adapter/archive"
	"github.com/user/runlog-engine/internal/adapter/logstore"
	"github.com/user/runlog-engine/internal/adapter/metrics"
	"github.com/user/runlog-engine/internal/adapter/taskstore"
	"github.com/user/runlog-engine/internal/domain"
	"github.com/user/runlog-engine/internal/usecase"
)

// fakeLogStore mimics the remote log store: health endpoint, NDJSON
// insertion, and a LogsQL query endpoint that replays captured lines
// for the queried run.
type fakeLogStore struct {
	mu       sync.Mutex
	inserted []string
	batches  []int
}

func (f *fakeLogStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /insert/jsonline", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lines := strings.Split(strings.TrimSpace(string(body)), "\n")

		f.mu.Lock()
		f.inserted = append(f.inserted, lines...)
		f.batches = append(f.batches, len(lines))
		f.mu.Unlock()

		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /select/logsql/query", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		query := r.PostFormValue("query")
		if !strings.Contains(query, `run_id=`) {
			http.Error(w, "missing stream filter", http.StatusBadRequest)
			return
		}

		// Replays every stored line; result scoping is the real
		// store's job, asserted elsewhere on the expression.
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, line := range f.inserted {
			io.WriteString(w, line+"\n")
		}
	})
	return mux
}

func buildArchive(t *testing.T, lineCount int) []byte {
	t.Helper()

	var actions strings.Builder
	for i := 0; i < lineCount; i++ {
		fmt.Fprintf(&actions, `{"action": "step %d", "datetime": "2025-05-17T04:44:00Z"}`+"\n", i)
	}
	events := `{"line": "node restarted", "event_timestamp": "2025-05-17T04:44:30Z", "event_id": "abc"}` + "\n" +
		"garbage line\n"

	members := map[string]string{
		"sct-runner-events/actions.log":    actions.String(),
		"sct-runner-events/raw_events.log": events,
	}

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create zstd writer: %v", err)
	}
	tw := tar.NewWriter(zw)
	for name, content := range members {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write member: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zstd: %v", err)
	}
	return buf.Bytes()
}

func TestIngestAndQueryFlow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Remote archive host.
	archiveBytes := buildArchive(t, 1200)
	archiveServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archiveBytes)
	}))
	defer archiveServer.Close()

	// Remote log store.
	fake := &fakeLogStore{}
	storeServer := httptest.NewServer(fake.handler())
	defer storeServer.Close()

	// Engine wiring, as in cmd/server.
	cacheDir := t.TempDir()
	m := metrics.New(prometheus.NewRegistry())
	store := logstore.NewClient(storeServer.URL, m, logger)
	retriever := archive.NewRetriever(cacheDir, time.Minute, logger)
	extractor := archive.NewExtractor(cacheDir, logger)
	tasks := taskstore.NewMemory()
	ingestUC := usecase.NewIngestUseCase(retriever, extractor, store, tasks, m, logger, cacheDir)
	queryUC := usecase.NewQueryUseCase(store, logger)

	runID := uuid.NewString()

	// Kick off ingestion and poll to completion.
	result, err := ingestUC.IngestLogs(context.Background(), archiveServer.URL+"/logs.tar.zst", runID)
	if err != nil {
		t.Fatalf("ingest request failed: %v", err)
	}
	if result.TaskID == "" {
		t.Fatalf("expected a task id, got %+v", result)
	}

	var task domain.IngestionTask
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		task, err = tasks.Get(result.TaskID)
		if err != nil {
			t.Fatalf("task poll failed: %v", err)
		}
		if task.Status.Terminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if task.Status != domain.TaskCompleted {
		t.Fatalf("expected completed, got %s (error: %s)", task.Status, task.Error)
	}

	// 1200 action lines → batches of 1000 and 200; 1 good event line
	// (the garbage line is skipped) → one batch of 1.
	fake.mu.Lock()
	batches := append([]int(nil), fake.batches...)
	insertedCount := len(fake.inserted)
	var sample string
	if insertedCount > 0 {
		sample = fake.inserted[0]
	}
	fake.mu.Unlock()

	wantBatches := []int{1000, 200, 1}
	if len(batches) != len(wantBatches) {
		t.Fatalf("expected %d batches, got %v", len(wantBatches), batches)
	}
	for i, want := range wantBatches {
		if batches[i] != want {
			t.Errorf("batch %d: expected %d lines, got %d", i, want, batches[i])
		}
	}
	if insertedCount != 1201 {
		t.Errorf("expected 1201 inserted lines, got %d", insertedCount)
	}
	if !strings.Contains(sample, `"run_id":"`+runID+`"`) || !strings.Contains(sample, `"stream":"action"`) {
		t.Errorf("expected enriched line, got %s", sample)
	}

	// Query the ingested logs back out.
	records, err := queryUC.QueryByStream(context.Background(), runID, "action", "", "", 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1201 {
		t.Errorf("expected 1201 records from fake store, got %d", len(records))
	}
}
