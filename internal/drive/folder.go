package drive

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

var (
	folderURLRe = regexp.MustCompile(`/folders/([a-zA-Z0-9_-]+)`)
	folderIDRe  = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
)

// ParseFolderID accepts a folder URL (".../folders/<id>...") or a bare id.
func ParseFolderID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if m := folderURLRe.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if folderIDRe.MatchString(ref) {
		return ref, nil
	}
	return "", common.NewAppError("INVALID_FOLDER", fmt.Sprintf("not a Google Drive folder reference: %q", ref), common.ErrInvalidInput)
}
