package mocks

import (
	"context"

	"github.com/user/runlog-engine/internal/domain"
)

// MockArchiveRetriever is a mock implementation of domain.ArchiveRetriever.
type MockArchiveRetriever struct {
	FetchedURLs []string
	ArchivePath string
	FetchErr    error
}

func (m *MockArchiveRetriever) Fetch(ctx context.Context, downloadURL, runID string) (string, error) {
	m.FetchedURLs = append(m.FetchedURLs, downloadURL)
	if m.FetchErr != nil {
		return "", m.FetchErr
	}
	return m.ArchivePath, nil
}

// MockArchiveExtractor is a mock implementation of domain.ArchiveExtractor.
type MockArchiveExtractor struct {
	ExtractDir string
	UnpackErr  error
	LogFiles   map[domain.Stream]string
}

func (m *MockArchiveExtractor) Unpack(archivePath, runID string) (string, error) {
	if m.UnpackErr != nil {
		return "", m.UnpackErr
	}
	return m.ExtractDir, nil
}

func (m *MockArchiveExtractor) LocateLogFiles(extractDir string) map[domain.Stream]string {
	return m.LogFiles
}
