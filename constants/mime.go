package constants

import "strings"

// Media types the extractor and the folder source understand.
const (
	MimePlainText = "text/plain"
	MimeMarkdown  = "text/markdown"
	MimeCSV       = "text/csv"
	MimePDF       = "application/pdf"
	MimeDOC       = "application/msword"
	MimeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeGoogleDoc = "application/vnd.google-apps.document"
	MimeShortcut  = "application/vnd.google-apps.shortcut"
	MimeFolder    = "application/vnd.google-apps.folder"
)

// DefaultMaxPDFBytes is the default ceiling for PDF downloads (15 MiB).
const DefaultMaxPDFBytes int64 = 15 << 20

// MinExtractedChars is the acceptance bar for a PDF extraction tier.
const MinExtractedChars = 50

// NormalizeMime lowercases and drops parameters such as "; charset=utf-8".
func NormalizeMime(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// IsPlainText reports whether mime is decoded as UTF-8 text.
func IsPlainText(mime string) bool {
	switch NormalizeMime(mime) {
	case MimePlainText, MimeMarkdown, MimeCSV:
		return true
	}
	return false
}

// IsShortcut reports whether mime is a Drive shortcut entry.
func IsShortcut(mime string) bool {
	return NormalizeMime(mime) == MimeShortcut
}
