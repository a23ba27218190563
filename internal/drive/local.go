package drive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

// extMimes maps the file extensions a local folder may hold to media types.
var extMimes = map[string]string{
	"pdf":  constants.MimePDF,
	"docx": constants.MimeDOCX,
	"doc":  constants.MimeDOC,
	"txt":  constants.MimePlainText,
	"md":   constants.MimeMarkdown,
	"csv":  constants.MimeCSV,
}

// LocalSource serves a directory tree as a folder source for offline runs.
// The folder id is the root directory and file ids are slash-separated paths
// relative to it.
type LocalSource struct {
	root       string
	skipHidden bool
	logger     *slog.Logger
}

var _ Source = (*LocalSource)(nil)

func NewLocalSource(root string, skipHidden bool, logger *slog.Logger) (*LocalSource, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalSource{root: abs, skipHidden: skipHidden, logger: logger}, nil
}

// Root is the folder id to list.
func (s *LocalSource) Root() string { return s.root }

// ListFolder walks folderID (which must be the source root) and returns every
// file with a known extension, sorted by path.
func (s *LocalSource) ListFolder(_ context.Context, folderID string) ([]FileMeta, error) {
	if filepath.Clean(folderID) != s.root {
		return nil, common.SourceUnavailable("folder "+folderID+" is outside the local root", nil)
	}

	var out []FileMeta
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path != s.root && s.skipHidden && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		mime, ok := mimeForPath(path)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		out = append(out, FileMeta{
			ID:           filepath.ToSlash(rel),
			Name:         d.Name(),
			MimeType:     mime,
			Size:         info.Size(),
			ModifiedTime: info.ModTime().UTC().Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		s.logger.Error("local.list.failed", "root", s.root, "error", err)
		return nil, common.SourceUnavailable("walk "+s.root, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	s.logger.Info("local.list.ok", "root", s.root, "count", len(out))
	return out, nil
}

// ResolveShortcut has nothing to resolve on a local disk.
func (s *LocalSource) ResolveShortcut(_ context.Context, meta FileMeta) (FileMeta, error) {
	return FileMeta{}, common.SourceUnavailable("shortcuts are not supported for local folders: "+meta.ID, nil)
}

func (s *LocalSource) Download(_ context.Context, fileID string) ([]byte, error) {
	path, err := s.resolve(fileID)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, common.FetchFailed("read "+fileID, err)
	}
	return b, nil
}

// Export only supports plain text output of text files.
func (s *LocalSource) Export(ctx context.Context, fileID, mimeType string) ([]byte, error) {
	if constants.IsPlainText(mimeType) {
		if m, ok := mimeForPath(fileID); ok && constants.IsPlainText(m) {
			return s.Download(ctx, fileID)
		}
	}
	return nil, common.FetchFailed(fmt.Sprintf("cannot export %s as %s", fileID, mimeType), nil)
}

func (s *LocalSource) resolve(fileID string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(fileID))
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", common.FetchFailed("file id escapes root: "+fileID, nil)
	}
	return path, nil
}

func mimeForPath(path string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	m, ok := extMimes[ext]
	return m, ok
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
