package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/user/runlog-engine/internal/domain"
)

// Extractor unpacks downloaded zstd-compressed tar archives and
// locates the per-stream log files inside the extraction tree.
type Extractor struct {
	cacheDir string
	logger   *slog.Logger
}

// NewExtractor creates an Extractor unpacking under cacheDir.
func NewExtractor(cacheDir string, logger *slog.Logger) *Extractor {
	return &Extractor{
		cacheDir: cacheDir,
		logger:   logger.With("component", "archive_extractor"),
	}
}

// Unpack decompresses and untars the archive into the run's cache
// directory and returns the extraction root.
func (e *Extractor) Unpack(archivePath, runID string) (string, error) {
	dest := filepath.Join(e.cacheDir, runID)

	e.logger.Info("unpacking archive", "path", archivePath, "dest", dest)

	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", domain.ErrExtraction, archivePath, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("%w: zstd reader for %s: %v", domain.ErrExtraction, archivePath, err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: read tar entry: %v", domain.ErrExtraction, err)
		}

		target := filepath.Join(dest, filepath.Clean(hdr.Name))
		// Reject members that would escape the extraction root.
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return "", fmt.Errorf("%w: tar member %q escapes extraction dir", domain.ErrExtraction, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirPerm); err != nil {
				return "", fmt.Errorf("%w: create dir %s: %v", domain.ErrExtraction, target, err)
			}
		case tar.TypeReg:
			if err := writeMember(target, tr); err != nil {
				return "", err
			}
		default:
			e.logger.Debug("skipping tar member", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}

	e.logger.Info("archive unpacked", "dest", dest)
	return dest, nil
}

func writeMember(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return fmt.Errorf("%w: create dir for %s: %v", domain.ErrExtraction, target, err)
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrExtraction, target, err)
	}
	_, err = io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrExtraction, target, err)
	}
	return nil
}

// LocateLogFiles searches for each stream's log file, first at the
// extraction root and then exactly one subdirectory level down,
// stopping as soon as every stream is accounted for. Missing files are
// simply absent from the result; the caller decides what to do.
func (e *Extractor) LocateLogFiles(extractDir string) map[domain.Stream]string {
	found := make(map[domain.Stream]string, 2)
	streams := domain.Streams()

	for _, s := range streams {
		p := filepath.Join(extractDir, s.FileName())
		if isRegularFile(p) {
			found[s] = p
		}
	}
	if len(found) == len(streams) {
		return found
	}

	entries, err := os.ReadDir(extractDir)
	if err != nil {
		e.logger.Warn("failed to scan extraction dir", "dir", extractDir, "error", err)
		return found
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		for _, s := range streams {
			if _, ok := found[s]; ok {
				continue
			}
			p := filepath.Join(extractDir, entry.Name(), s.FileName())
			if isRegularFile(p) {
				found[s] = p
			}
		}
		if len(found) == len(streams) {
			break
		}
	}
	return found
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
