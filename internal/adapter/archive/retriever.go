package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/user/runlog-engine/internal/domain"
)

const (
	archiveFileName = "archive.tar.zst"
	dirPerm         = 0755
)

// Retriever downloads remote log archives into a per-run cache
// directory. The download is one shot: retry policy belongs to the
// ingestion pipeline's store calls, not here. The downloaded file is
// left in place whether or not later steps succeed.
type Retriever struct {
	cacheDir string
	client   *http.Client
	logger   *slog.Logger
}

// NewRetriever creates a Retriever writing under cacheDir.
func NewRetriever(cacheDir string, timeout time.Duration, logger *slog.Logger) *Retriever {
	return &Retriever{
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "archive_retriever"),
	}
}

// Fetch streams the archive at downloadURL to
// <cacheDir>/<runID>/archive.tar.zst, creating directories as needed.
func (r *Retriever) Fetch(ctx context.Context, downloadURL, runID string) (string, error) {
	runDir := filepath.Join(r.cacheDir, runID)
	if err := os.MkdirAll(runDir, dirPerm); err != nil {
		return "", fmt.Errorf("%w: create cache dir %s: %v", domain.ErrDownload, runDir, err)
	}
	archivePath := filepath.Join(runDir, archiveFileName)

	r.logger.Info("downloading archive", "url", downloadURL, "run_id", runID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request for %s: %v", domain.ErrDownload, downloadURL, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %v", domain.ErrDownload, downloadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: fetch %s: unexpected status %d", domain.ErrDownload, downloadURL, resp.StatusCode)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", domain.ErrDownload, archivePath, err)
	}

	written, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("%w: write %s: %v", domain.ErrDownload, archivePath, err)
	}

	r.logger.Info("archive downloaded", "path", archivePath, "bytes", written)
	return archivePath, nil
}
