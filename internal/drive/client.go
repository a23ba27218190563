package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
)

// Config selects the Drive credentials. ServiceAccountFile wins when set.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountFile string
	PageSize           int64 // default 1000
}

// FileMeta is one listed folder entry.
type FileMeta struct {
	ID           string
	Name         string
	MimeType     string
	Size         int64
	ModifiedTime string

	ShortcutTargetID   string
	ShortcutTargetMime string
}

// Source is the folder-source collaborator the ingestion pipeline depends on.
type Source interface {
	ListFolder(ctx context.Context, folderID string) ([]FileMeta, error)
	ResolveShortcut(ctx context.Context, meta FileMeta) (FileMeta, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	Export(ctx context.Context, fileID, mimeType string) ([]byte, error)
}

// Client implements Source over the Drive v3 API.
type Client struct {
	svc      *drive.Service
	pageSize int64
	logger   *slog.Logger
}

var _ Source = (*Client)(nil)

// New builds a read-only Drive client from a service account key file or an
// OAuth refresh token.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	switch {
	case cfg.ServiceAccountFile != "":
		key, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, key, drive.DriveReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account file: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case cfg.RefreshToken != "":
		oauthConfig := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{drive.DriveReadonlyScope},
			Endpoint:     google.Endpoint,
		}
		tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
		opts = append(opts, option.WithTokenSource(tokenSource))
	default:
		return nil, errors.New("drive: no credentials configured")
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		logger.Error("could not create drive service", "error", err)
		return nil, err
	}
	return NewWithService(svc, cfg.PageSize, logger), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *drive.Service, pageSize int64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}
	return &Client{svc: svc, pageSize: pageSize, logger: logger}
}

// IsShortcut reports whether the entry points at another file.
func (m FileMeta) IsShortcut() bool {
	return constants.IsShortcut(m.MimeType)
}

func fromDriveFile(f *drive.File) FileMeta {
	meta := FileMeta{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		ModifiedTime: f.ModifiedTime,
	}
	if f.ShortcutDetails != nil {
		meta.ShortcutTargetID = f.ShortcutDetails.TargetId
		meta.ShortcutTargetMime = f.ShortcutDetails.TargetMimeType
	}
	return meta
}
