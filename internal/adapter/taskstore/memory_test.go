package taskstore

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/user/runlog-engine/internal/domain"
)

func TestMemory_Create(t *testing.T) {
	store := NewMemory()
	runID := uuid.NewString()

	task := store.Create(runID)

	if _, err := uuid.Parse(task.ID); err != nil {
		t.Fatalf("expected task id to be a UUID, got %q: %v", task.ID, err)
	}
	if task.ID == runID {
		t.Error("task id must differ from run id")
	}
	if task.Status != domain.TaskPending {
		t.Errorf("expected new task to be pending, got %s", task.Status)
	}

	got, err := store.Get(task.ID)
	if err != nil {
		t.Fatalf("expected task to be retrievable, got %v", err)
	}
	if got != task {
		t.Errorf("expected stored task %+v, got %+v", task, got)
	}
}

func TestMemory_GetUnknown(t *testing.T) {
	store := NewMemory()

	_, err := store.Get("no-such-task")
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestMemory_SetStatus(t *testing.T) {
	t.Run("pending to terminal", func(t *testing.T) {
		store := NewMemory()
		task := store.Create(uuid.NewString())

		if err := store.SetStatus(task.ID, domain.TaskFailed, "boom"); err != nil {
			t.Fatalf("expected transition to succeed, got %v", err)
		}

		got, _ := store.Get(task.ID)
		if got.Status != domain.TaskFailed || got.Error != "boom" {
			t.Errorf("unexpected task state: %+v", got)
		}
	})

	t.Run("terminal state is sticky", func(t *testing.T) {
		store := NewMemory()
		task := store.Create(uuid.NewString())

		if err := store.SetStatus(task.ID, domain.TaskCompleted, ""); err != nil {
			t.Fatalf("expected transition to succeed, got %v", err)
		}
		if err := store.SetStatus(task.ID, domain.TaskFailed, "late failure"); err == nil {
			t.Fatal("expected transition out of terminal state to be rejected")
		}

		// Repeated polls must keep returning the identical state.
		for i := 0; i < 3; i++ {
			got, err := store.Get(task.ID)
			if err != nil {
				t.Fatalf("poll %d failed: %v", i, err)
			}
			if got.Status != domain.TaskCompleted || got.Error != "" {
				t.Errorf("poll %d: unexpected task state: %+v", i, got)
			}
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		store := NewMemory()
		err := store.SetStatus("missing", domain.TaskCompleted, "")
		if !errors.Is(err, domain.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	store := NewMemory()

	var wg sync.WaitGroup
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = store.Create(uuid.NewString()).ID
	}

	for _, id := range ids {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			_ = store.SetStatus(id, domain.TaskCompleted, "")
		}(id)
		go func(id string) {
			defer wg.Done()
			_, _ = store.Get(id)
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		got, err := store.Get(id)
		if err != nil {
			t.Fatalf("task %s vanished: %v", id, err)
		}
		if got.Status != domain.TaskCompleted {
			t.Errorf("task %s: expected completed, got %s", id, got.Status)
		}
	}
}
