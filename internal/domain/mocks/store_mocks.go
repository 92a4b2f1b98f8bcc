package mocks

import (
	"context"
	"sync"

	"github.com/user/runlog-engine/internal/domain"
)

// MockLogStore is a mock implementation of domain.LogStore for testing.
// It records every call so tests can assert on batch contents and on
// the absence of network activity.
type MockLogStore struct {
	mu sync.Mutex

	HealthyResult bool
	HealthCalls   int

	SentBatches [][][]byte
	SentParams  []domain.BatchParams
	SendErr     error
	// FailSends makes the first N SendBatch calls return SendErr.
	FailSends int
	sendCalls int

	Expressions  []string
	QueryResults []domain.LogRecord
	QueryErr     error
}

func (m *MockLogStore) Healthy(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HealthCalls++
	return m.HealthyResult
}

func (m *MockLogStore) SendBatch(ctx context.Context, lines [][]byte, params domain.BatchParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendCalls++
	if m.SendErr != nil && (m.FailSends == 0 || m.sendCalls <= m.FailSends) {
		return m.SendErr
	}
	batch := make([][]byte, len(lines))
	for i, line := range lines {
		batch[i] = append([]byte(nil), line...)
	}
	m.SentBatches = append(m.SentBatches, batch)
	m.SentParams = append(m.SentParams, params)
	return nil
}

func (m *MockLogStore) Query(ctx context.Context, expression string) ([]domain.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Expressions = append(m.Expressions, expression)
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.QueryResults, nil
}

// Calls reports the total number of network-facing calls the mock has
// seen, across health probes, batch sends and queries.
func (m *MockLogStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.HealthCalls + m.sendCalls + len(m.Expressions)
}
