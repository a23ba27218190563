package textextract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
)

// parseDocx returns the non-empty paragraph texts of a .docx body in
// document order, one per line. Table cells are walked row by row.
func parseDocx(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	var paras []string
	collectDocxItems(doc.Document.Body.Items, &paras)
	return strings.Join(paras, "\n"), nil
}

func collectDocxItems(items []interface{}, out *[]string) {
	for _, it := range items {
		switch o := it.(type) {
		case *docx.Paragraph:
			appendDocxParagraph(o, out)
		case *docx.Table:
			collectDocxTable(o, out)
		}
	}
}

func collectDocxTable(t *docx.Table, out *[]string) {
	for _, row := range t.TableRows {
		for _, cell := range row.TableCells {
			for _, p := range cell.Paragraphs {
				appendDocxParagraph(p, out)
			}
			for _, nested := range cell.Tables {
				collectDocxTable(nested, out)
			}
		}
	}
}

// appendDocxParagraph keeps run text, tabs and breaks; drawings are dropped.
func appendDocxParagraph(p *docx.Paragraph, out *[]string) {
	var sb strings.Builder
	for _, c := range p.Children {
		switch o := c.(type) {
		case *docx.Run:
			writeDocxRun(&sb, o)
		case *docx.Hyperlink:
			writeDocxRun(&sb, &o.Run)
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		*out = append(*out, s)
	}
}

func writeDocxRun(sb *strings.Builder, r *docx.Run) {
	for _, c := range r.Children {
		switch x := c.(type) {
		case *docx.Text:
			sb.WriteString(x.Text)
		case *docx.Tab:
			sb.WriteByte('\t')
		case *docx.BarterRabbet:
			sb.WriteByte('\n')
		}
	}
}

// extractDoc converts a legacy .doc to .docx with LibreOffice, then parses it.
func (e *Extractor) extractDoc(ctx context.Context, data []byte) (Result, error) {
	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "rf-doc-*")
	if err != nil {
		return Result{Method: MethodDOCConvert}, err
	}
	defer e.removeAll(tmpDir)

	in := filepath.Join(tmpDir, "in.doc")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return Result{Method: MethodDOCConvert}, err
	}
	// soffice --headless --nologo --convert-to docx --outdir <dir> <in.doc>
	_, errb, err := e.runner.Run(ctx, e.cfg.Soffice, "--headless", "--nologo", "--convert-to", "docx", "--outdir", tmpDir, in)
	if err != nil {
		return Result{Method: MethodDOCConvert}, fmt.Errorf("soffice convert: %w: %s", err, truncate(string(errb), 512))
	}
	converted, err := os.ReadFile(filepath.Join(tmpDir, "in.docx"))
	if err != nil {
		return Result{Method: MethodDOCConvert}, fmt.Errorf("soffice produced no docx: %w", err)
	}
	text, err := parseDocx(converted)
	if err != nil {
		return Result{Method: MethodDOCConvert}, err
	}
	return Result{Text: Normalize(text), Pages: 1, Method: MethodDOCConvert}, nil
}
