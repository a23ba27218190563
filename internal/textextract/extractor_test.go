package textextract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

// fakeRunner records invocations and answers per binary name.
type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	return f.fn(name, args)
}

func (f *fakeRunner) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func countingTier(name, text string, err error, counter *int) Tier {
	return Tier{Name: name, Run: func(context.Context, PDFDocument) (string, error) {
		*counter++
		return text, err
	}}
}

var longText = strings.Repeat("Senior Go engineer with Kubernetes experience. ", 3)

func TestExtractPlainTextDropsInvalidBytes(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	res, err := e.Extract(context.Background(), []byte("Python dev\xff\xfe ok\r\n"), "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Python dev ok", res.Text)
	assert.Equal(t, MethodPlain, res.Method)
}

func TestExtractGoogleDocExportIsPlainText(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	res, err := e.Extract(context.Background(), []byte("Exported body"), constants.MimeGoogleDoc)
	require.NoError(t, err)
	assert.Equal(t, "Exported body", res.Text)
}

func TestExtractUnsupported(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	_, err := e.Extract(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Equal(t, common.CodeUnsupportedFormat, common.ErrorCode(err))
}

func TestPDFFirstTierAcceptedSkipsRest(t *testing.T) {
	var n1, n2, n3 int
	e := NewExtractor(Config{TempDir: t.TempDir()}, nil, WithPDFTiers(
		countingTier("t1", longText, nil, &n1),
		countingTier("t2", longText, nil, &n2),
		countingTier("t3", longText, nil, &n3),
	))

	res, err := e.Extract(context.Background(), []byte("%PDF"), constants.MimePDF)
	require.NoError(t, err)
	assert.Equal(t, "t1", res.Method)
	assert.Equal(t, []int{1, 0, 0}, []int{n1, n2, n3})
}

func TestPDFShortTiersFallThroughToOCR(t *testing.T) {
	var n1, n2, n3 int
	e := NewExtractor(Config{TempDir: t.TempDir()}, nil, WithPDFTiers(
		countingTier("t1", "too short", nil, &n1),
		countingTier("t2", "", nil, &n2),
		countingTier("ocr", longText, nil, &n3),
	))

	res, err := e.Extract(context.Background(), []byte("%PDF"), constants.MimePDF)
	require.NoError(t, err)
	assert.Equal(t, "ocr", res.Method)
	assert.Equal(t, []int{1, 1, 1}, []int{n1, n2, n3})
}

func TestPDFNoTierAcceptedReturnsFirstSuccess(t *testing.T) {
	var n1, n2, n3 int
	e := NewExtractor(Config{TempDir: t.TempDir()}, nil, WithPDFTiers(
		countingTier("t1", "", errors.New("broken xref"), &n1),
		countingTier("t2", "short text", nil, &n2),
		countingTier("t3", "", errors.New("tesseract missing"), &n3),
	))

	res, err := e.Extract(context.Background(), []byte("%PDF"), constants.MimePDF)
	require.NoError(t, err)
	assert.Equal(t, "t2", res.Method)
	assert.Equal(t, "short text", res.Text)
	assert.Len(t, res.Warnings, 3)
}

func TestPDFAllTiersFailIsNotAnError(t *testing.T) {
	var n int
	e := NewExtractor(Config{TempDir: t.TempDir()}, nil, WithPDFTiers(
		countingTier("t1", "", errors.New("x"), &n),
	))
	res, err := e.Extract(context.Background(), []byte("%PDF"), constants.MimePDF)
	require.NoError(t, err)
	assert.Equal(t, MethodNone, res.Method)
	assert.Empty(t, res.Text)
}

func TestDefaultTiersWithFakeTools(t *testing.T) {
	r := &fakeRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("  \n"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, p := range []string{"-1.png", "-2.png"} {
				if err := os.WriteFile(prefix+p, []byte("png"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		case "tesseract":
			return []byte("page " + filepath.Base(args[0]) + " " + longText), nil, nil
		}
		return nil, []byte("unknown"), errors.New("unexpected command")
	}}
	e := NewExtractor(Config{TempDir: t.TempDir()}, nil, WithRunner(r))

	// not a parseable PDF, so the structural tier errors out
	res, err := e.Extract(context.Background(), []byte("%PDF-1.4 garbage"), constants.MimePDF)
	require.NoError(t, err)
	assert.Equal(t, MethodPDFOCR, res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "page page-1.png")
	assert.Equal(t, 1, r.called("pdftotext"))
	assert.Equal(t, 1, r.called("pdftoppm"))
	assert.Equal(t, 2, r.called("tesseract"))
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const docXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t xml:space="preserve">Skills: </w:t></w:r><w:r><w:t>Go, Kafka</w:t></w:r></w:p>
<w:p><w:r><w:t>   </w:t></w:r></w:p>
<w:p><w:r><w:t>Projects</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestExtractDocx(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	res, err := e.Extract(context.Background(), buildDocx(t, docXML), constants.MimeDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills: Go, Kafka\nProjects", res.Text)
	assert.Equal(t, MethodDOCX, res.Method)
}

const docTableXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Experience</w:t></w:r></w:p>
<w:tbl>
<w:tr>
<w:tc><w:p><w:r><w:t>Acme</w:t></w:r></w:p></w:tc>
<w:tc><w:p><w:r><w:t>2019</w:t></w:r><w:r><w:tab/></w:r><w:r><w:t>2023</w:t></w:r></w:p></w:tc>
</w:tr>
</w:tbl>
<w:p><w:r><w:t>Education</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestExtractDocxWalksTables(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	res, err := e.Extract(context.Background(), buildDocx(t, docTableXML), constants.MimeDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Experience\nAcme\n2019 2023\nEducation", res.Text)
}

func TestExtractDocxCorrupt(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	_, err := e.Extract(context.Background(), []byte("not a zip"), constants.MimeDOCX)
	assert.Error(t, err)
}

func TestExtractLegacyDocConverts(t *testing.T) {
	docx := buildDocx(t, docXML)
	r := &fakeRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		require.Equal(t, "soffice", name)
		outDir := args[len(args)-2]
		return nil, nil, os.WriteFile(filepath.Join(outDir, "in.docx"), docx, 0o600)
	}}
	e := NewExtractor(Config{TempDir: t.TempDir()}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), []byte{0xD0, 0xCF, 0x11, 0xE0}, constants.MimeDOC)
	require.NoError(t, err)
	assert.Equal(t, MethodDOCConvert, res.Method)
	assert.Contains(t, res.Text, "Skills: Go, Kafka")
}

func TestNormalize(t *testing.T) {
	in := "Line one\t\tx  \r\n\r\n\r\n\r\nLine two\x00"
	assert.Equal(t, "Line one x\n\nLine two", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}

func TestSupports(t *testing.T) {
	for _, mt := range []string{"text/plain; charset=utf-8", constants.MimePDF, constants.MimeDOCX, constants.MimeDOC, constants.MimeGoogleDoc} {
		assert.True(t, Supports(mt), mt)
	}
	for _, mt := range []string{constants.MimeFolder, "image/png", ""} {
		assert.False(t, Supports(mt), mt)
	}
}
