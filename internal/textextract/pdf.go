package textextract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFDocument is handed to every tier: the raw bytes and a temp file holding them.
type PDFDocument struct {
	Path string
	Data []byte
}

// Tier is one strategy in the ordered PDF fallback chain.
type Tier struct {
	Name string
	Run  func(ctx context.Context, doc PDFDocument) (string, error)
}

// DefaultPDFTiers is structural extraction, then pdftotext, then OCR.
func (e *Extractor) DefaultPDFTiers() []Tier {
	return []Tier{
		{Name: MethodPDFLib, Run: e.pdfLibText},
		{Name: MethodPDFText, Run: e.pdfToText},
		{Name: MethodPDFOCR, Run: e.pdfToOCR},
	}
}

// extractPDF walks the tiers and stops at the first one whose text clears
// MinChars. When none does, the first tier that ran without error wins.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) Result {
	var warns []string

	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "rf-pdf-*")
	if err != nil {
		e.logger.Error("extract.pdf.tempdir_failed", "error", err)
		return Result{Method: MethodNone, Warnings: []string{err.Error()}}
	}
	defer e.removeAll(tmpDir)

	doc := PDFDocument{Path: filepath.Join(tmpDir, "in.pdf"), Data: data}
	if err := os.WriteFile(doc.Path, data, 0o600); err != nil {
		e.logger.Error("extract.pdf.write_failed", "error", err)
		return Result{Method: MethodNone, Warnings: []string{err.Error()}}
	}

	var first *Result
	for _, tier := range e.pdfTiers {
		text, err := tier.Run(ctx, doc)
		if err != nil {
			e.logger.Warn("extract.pdf.tier_failed", "tier", tier.Name, "error", err)
			warns = append(warns, fmt.Sprintf("%s: %v", tier.Name, err))
			continue
		}
		text = Normalize(text)
		n := charCount(text)
		if first == nil {
			first = &Result{Text: text, Method: tier.Name}
		}
		if n >= e.cfg.MinChars {
			e.logger.Debug("extract.pdf.tier_accepted", "tier", tier.Name, "chars", n)
			return Result{Text: text, Pages: 1 + strings.Count(text, "\f"), Method: tier.Name, Warnings: warns}
		}
		e.logger.Debug("extract.pdf.tier_short", "tier", tier.Name, "chars", n, "min", e.cfg.MinChars)
		warns = append(warns, fmt.Sprintf("%s: only %d chars", tier.Name, n))
	}

	if first == nil {
		return Result{Method: MethodNone, Warnings: warns}
	}
	first.Pages = 1 + strings.Count(first.Text, "\f")
	first.Warnings = warns
	return *first
}

func (e *Extractor) pdfLibText(_ context.Context, doc PDFDocument) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("plain text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}
	return buf.String(), nil
}

func (e *Extractor) pdfToText(ctx context.Context, doc PDFDocument) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", doc.Path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, doc PDFDocument) (string, error) {
	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "rf-pp-*")
	if err != nil {
		return "", err
	}
	defer e.removeAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 200 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", doc.Path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no images")
	}

	var b strings.Builder
	ok := 0
	for _, img := range matches {
		txt, err := e.tesseractOCR(ctx, img)
		if err != nil {
			e.logger.Warn("extract.ocr.page_failed", "image", filepath.Base(img), "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
		ok++
	}
	if ok == 0 {
		return "", fmt.Errorf("tesseract failed on all %d pages", len(matches))
	}
	return b.String(), nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}

func (e *Extractor) removeAll(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
	}
}
