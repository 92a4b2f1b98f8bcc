package taskstore

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/user/runlog-engine/internal/domain"
)

// Memory is an in-memory, process-lifetime task registry. All access
// is serialized through a single mutex. Entries are never evicted, so
// a long-lived process accumulates one entry per ingestion request.
type Memory struct {
	mu    sync.Mutex
	tasks map[string]domain.IngestionTask
}

// NewMemory creates an empty registry.
func NewMemory() *Memory {
	return &Memory{
		tasks: make(map[string]domain.IngestionTask),
	}
}

// Create registers a new pending task for the given run and returns it.
func (m *Memory) Create(runID string) domain.IngestionTask {
	task := domain.IngestionTask{
		ID:     uuid.NewString(),
		RunID:  runID,
		Status: domain.TaskPending,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	return task
}

// SetStatus overwrites the task's status. Once a task has reached a
// terminal state it is owned by nobody; a further transition is a bug
// in the caller and is rejected.
func (m *Memory) SetStatus(taskID string, status domain.TaskStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}
	if task.Status.Terminal() {
		return fmt.Errorf("task %s is already %s, refusing transition to %s",
			taskID, task.Status, status)
	}

	task.Status = status
	task.Error = errMsg
	m.tasks[taskID] = task
	return nil
}

// Get returns the current state of a task.
func (m *Memory) Get(taskID string) (domain.IngestionTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return domain.IngestionTask{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}
	return task, nil
}
