package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/user/runlog-engine/internal/domain"
	"github.com/user/runlog-engine/internal/domain/mocks"
)

const (
	testRunID   = "e38b303f-df9b-4aac-b9d8-930cfd45306b"
	testEventID = "7d45f1f1-2c2e-45a2-b0a3-1f3c9d2e8a01"
)

func TestQueryByStream(t *testing.T) {
	t.Run("builds scoped expression with time range", func(t *testing.T) {
		store := &mocks.MockLogStore{}
		uc := NewQueryUseCase(store, discardLogger())

		_, err := uc.QueryByStream(context.Background(), testRunID, "action",
			"2025-05-17T04:44:00Z", "2025-05-17T04:45:00Z", 0)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}

		want := `{stream="action", run_id="` + testRunID + `"} _time:[2025-05-17T04:44:00Z,2025-05-17T04:45:00Z]`
		if len(store.Expressions) != 1 || store.Expressions[0] != want {
			t.Errorf("unexpected expression:\n got: %v\nwant: %s", store.Expressions, want)
		}
	})

	t.Run("appends limit clause", func(t *testing.T) {
		store := &mocks.MockLogStore{}
		uc := NewQueryUseCase(store, discardLogger())

		_, err := uc.QueryByStream(context.Background(), testRunID, "events", "", "", 100)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}

		want := `{stream="events", run_id="` + testRunID + `"} | limit 100`
		if store.Expressions[0] != want {
			t.Errorf("unexpected expression: %s", store.Expressions[0])
		}
	})

	t.Run("rejects invalid stream before any network call", func(t *testing.T) {
		store := &mocks.MockLogStore{}
		uc := NewQueryUseCase(store, discardLogger())

		_, err := uc.QueryByStream(context.Background(), testRunID, "metrics", "", "", 0)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if store.Calls() != 0 {
			t.Errorf("expected zero network calls, got %d", store.Calls())
		}
	})

	t.Run("rejects invalid run id before any network call", func(t *testing.T) {
		store := &mocks.MockLogStore{}
		uc := NewQueryUseCase(store, discardLogger())

		_, err := uc.QueryByStream(context.Background(), "not-a-uuid", "action", "", "", 0)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if store.Calls() != 0 {
			t.Errorf("expected zero network calls, got %d", store.Calls())
		}
	})

	t.Run("rejects date-only timestamp", func(t *testing.T) {
		store := &mocks.MockLogStore{}
		uc := NewQueryUseCase(store, discardLogger())

		_, err := uc.QueryByStream(context.Background(), testRunID, "action", "2025-05-17", "", 0)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if store.Calls() != 0 {
			t.Errorf("expected zero network calls, got %d", store.Calls())
		}
	})

	t.Run("accepts fractional and zoneless timestamps", func(t *testing.T) {
		store := &mocks.MockLogStore{}
		uc := NewQueryUseCase(store, discardLogger())

		for _, ts := range []string{"2025-05-17T04:44:00.123Z", "2025-05-17T04:44:00"} {
			if _, err := uc.QueryByStream(context.Background(), testRunID, "action", ts, "", 0); err != nil {
				t.Errorf("expected %q to be accepted, got %v", ts, err)
			}
		}
	})

	t.Run("surfaces transport failure", func(t *testing.T) {
		store := &mocks.MockLogStore{QueryErr: errors.New("boom")}
		uc := NewQueryUseCase(store, discardLogger())

		if _, err := uc.QueryByStream(context.Background(), testRunID, "action", "", "", 0); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestQueryActions(t *testing.T) {
	store := &mocks.MockLogStore{}
	uc := NewQueryUseCase(store, discardLogger())

	_, err := uc.QueryActions(context.Background(), testRunID, "2025-05-17T04:44:00Z", "")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	want := `{stream="action", run_id="` + testRunID + `"} _time:[2025-05-17T04:44:00Z,]`
	if store.Expressions[0] != want {
		t.Errorf("unexpected expression: %s", store.Expressions[0])
	}
}

func TestQueryEvent(t *testing.T) {
	t.Run("builds event-scoped expression with implicit limit", func(t *testing.T) {
		store := &mocks.MockLogStore{
			QueryResults: []domain.LogRecord{{"line": json.RawMessage(`"found"`)}},
		}
		uc := NewQueryUseCase(store, discardLogger())

		record, err := uc.QueryEvent(context.Background(), testRunID, testEventID, "", "")
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if record == nil || string(record["line"]) != `"found"` {
			t.Errorf("unexpected record: %v", record)
		}

		want := `{stream="events", run_id="` + testRunID + `"} event_id:"` + testEventID + `" | limit 1`
		if store.Expressions[0] != want {
			t.Errorf("unexpected expression:\n got: %s\nwant: %s", store.Expressions[0], want)
		}
	})

	t.Run("zero matches is nil, not an error", func(t *testing.T) {
		store := &mocks.MockLogStore{}
		uc := NewQueryUseCase(store, discardLogger())

		record, err := uc.QueryEvent(context.Background(), testRunID, testEventID, "", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if record != nil {
			t.Errorf("expected nil record, got %v", record)
		}
	})

	t.Run("rejects invalid event id before any network call", func(t *testing.T) {
		store := &mocks.MockLogStore{}
		uc := NewQueryUseCase(store, discardLogger())

		_, err := uc.QueryEvent(context.Background(), testRunID, "not-a-uuid", "", "")
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if store.Calls() != 0 {
			t.Errorf("expected zero network calls, got %d", store.Calls())
		}
	})
}
