package drive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

const (
	listFields = "nextPageToken, files(id,name,mimeType,size,modifiedTime,shortcutDetails(targetId,targetMimeType))"
	metaFields = "id, name, mimeType, size, modifiedTime"
)

// ListFolder returns every non-trashed entry directly under folderID,
// following page tokens until exhausted.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]FileMeta, error) {
	start := time.Now()
	q := fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folderID, "'", `\'`))

	var (
		out   []FileMeta
		token string
		pages int
	)
	for {
		call := c.svc.Files.List().
			Q(q).
			PageSize(c.pageSize).
			Fields(googleapi.Field(listFields)).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			c.logger.Error("drive.list.failed", "folder_id", folderID, "page", pages+1, "error", err)
			return nil, common.SourceUnavailable("list folder "+folderID, err)
		}
		pages++
		for _, f := range resp.Files {
			out = append(out, fromDriveFile(f))
		}
		token = resp.NextPageToken
		if token == "" {
			break
		}
	}

	c.logger.Info("drive.list.ok",
		"folder_id", folderID,
		"files", len(out),
		"pages", pages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ResolveShortcut fetches the metadata of the shortcut's target.
func (c *Client) ResolveShortcut(ctx context.Context, meta FileMeta) (FileMeta, error) {
	if meta.ShortcutTargetID == "" {
		return FileMeta{}, common.SourceUnavailable("shortcut "+meta.ID+" has no target", nil)
	}
	f, err := c.svc.Files.Get(meta.ShortcutTargetID).
		Fields(googleapi.Field(metaFields)).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		c.logger.Warn("drive.shortcut.resolve_failed", "file_id", meta.ID, "target_id", meta.ShortcutTargetID, "error", err)
		return FileMeta{}, common.SourceUnavailable("resolve shortcut "+meta.ID, err)
	}
	return fromDriveFile(f), nil
}
