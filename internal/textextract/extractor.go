package textextract

import (
	"context"
	"log/slog"
	"time"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

// Extraction methods reported in Result.Method.
const (
	MethodPlain      = "plain"
	MethodPDFLib     = "pdf-lib"
	MethodPDFText    = "pdf-text"
	MethodPDFOCR     = "pdf-ocr"
	MethodDOCX       = "docx"
	MethodDOCConvert = "doc-convert"
	MethodNone       = "none"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Soffice   string // LibreOffice binary for legacy .doc; if empty -> "soffice"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 200
	MaxPages      int // 0 = no limit

	MinChars int    // PDF tier acceptance threshold, default 50
	TempDir  string // "" = os.TempDir()

	CommandTimeout time.Duration // per external command, default 2m
}

type Result struct {
	Text     string
	Pages    int
	Method   string
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg      Config
	runner   Runner
	logger   *slog.Logger
	pdfTiers []Tier
}

type Option func(*Extractor)

// WithRunner replaces the command runner used for external tools.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithPDFTiers replaces the ordered PDF fallback chain.
func WithPDFTiers(tiers ...Tier) Option {
	return func(e *Extractor) {
		if len(tiers) > 0 {
			e.pdfTiers = tiers
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Soffice == "" {
		cfg.Soffice = "soffice"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = constants.MinExtractedChars
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	e := &Extractor{cfg: cfg, runner: newCommandRunner(cfg.CommandTimeout, logger), logger: logger}
	e.pdfTiers = e.DefaultPDFTiers()
	for _, o := range opts {
		o(e)
	}
	return e
}

// Supports reports whether Extract handles mimeType.
func Supports(mimeType string) bool {
	mt := constants.NormalizeMime(mimeType)
	switch {
	case constants.IsPlainText(mt):
		return true
	case mt == constants.MimeGoogleDoc, mt == constants.MimePDF, mt == constants.MimeDOCX, mt == constants.MimeDOC:
		return true
	}
	return false
}

// Extract converts raw document bytes of the declared media type into text.
// Only unknown media types and legacy-format conversion failures are errors;
// PDF extraction is best-effort and never fails.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (Result, error) {
	start := time.Now()
	mt := constants.NormalizeMime(mimeType)
	e.logger.Debug("extract.start", "mime", mt, "bytes", len(data))

	var (
		res Result
		err error
	)
	switch {
	case constants.IsPlainText(mt), mt == constants.MimeGoogleDoc:
		res = Result{Text: Normalize(DecodeUTF8(data)), Pages: 1, Method: MethodPlain}
	case mt == constants.MimePDF:
		res = e.extractPDF(ctx, data)
	case mt == constants.MimeDOCX:
		var text string
		text, err = parseDocx(data)
		res = Result{Text: Normalize(text), Pages: 1, Method: MethodDOCX}
	case mt == constants.MimeDOC:
		res, err = e.extractDoc(ctx, data)
	default:
		e.logger.Warn("extract.unsupported", "mime", mt)
		return Result{}, common.UnsupportedFormat(mt)
	}
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("extract.failed", "mime", mt, "method", res.Method, "error", err)
		return res, err
	}
	e.logger.Info("extract.ok",
		"mime", mt,
		"method", res.Method,
		"chars", len(res.Text),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
