package drive

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

// Download returns the raw bytes of a binary file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	start := time.Now()
	resp, err := c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		c.logger.Error("drive.download.failed", "file_id", fileID, "error", err)
		return nil, common.FetchFailed("download "+fileID, err)
	}
	b, err := readBody(resp)
	if err != nil {
		return nil, common.FetchFailed("read "+fileID, err)
	}
	c.logger.Debug("drive.download.ok", "file_id", fileID, "bytes", len(b), "elapsed_ms", time.Since(start).Milliseconds())
	return b, nil
}

// Export converts a native Google document to mimeType and returns the bytes.
func (c *Client) Export(ctx context.Context, fileID, mimeType string) ([]byte, error) {
	start := time.Now()
	resp, err := c.svc.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		c.logger.Error("drive.export.failed", "file_id", fileID, "mime", mimeType, "error", err)
		return nil, common.FetchFailed("export "+fileID, err)
	}
	b, err := readBody(resp)
	if err != nil {
		return nil, common.FetchFailed("read export "+fileID, err)
	}
	c.logger.Debug("drive.export.ok", "file_id", fileID, "mime", mimeType, "bytes", len(b), "elapsed_ms", time.Since(start).Milliseconds())
	return b, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}
