package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/signintech/gopdf"
)

const (
	fontName    = "DejaVu"
	textWidth   = 500.0
	pageBottom  = 790.0
	marginLeft  = 48.0
	marginTop   = 48.0
	lineHeight  = 14.0
	headingSize = 14
	bodySize    = 11
)

// DefaultFontPaths are the usual DejaVuSans locations on Alpine and Debian.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

var ErrNoFont = errors.New("no usable font for PDF rendering")

// PDFRenderer lays out a report's markdown as plain paragraphs.
type PDFRenderer struct {
	fontPaths []string
}

func NewPDFRenderer(fontPaths ...string) *PDFRenderer {
	if len(fontPaths) == 0 {
		fontPaths = DefaultFontPaths
	}
	return &PDFRenderer{fontPaths: fontPaths}
}

type pdfWriter struct {
	pdf *gopdf.GoPdf
}

func (r *PDFRenderer) Render(rep *Report, patientName string) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetMargins(marginLeft, marginTop, marginLeft, marginTop)
	pdf.AddPage()

	var fontErr error
	loaded := false
	for _, path := range r.fontPaths {
		if err := pdf.AddTTFFont(fontName, path); err != nil {
			fontErr = err
			continue
		}
		loaded = true
		break
	}
	if !loaded {
		return nil, fmt.Errorf("%w: %v", ErrNoFont, fontErr)
	}

	w := pdfWriter{pdf: pdf}
	if err := w.line(rep.ReportType, 18); err != nil {
		return nil, err
	}
	w.pdf.Br(8)
	meta := []string{
		"Patient: " + patientName,
		"Generated: " + rep.CreatedAt.Format("January 02, 2006 15:04 MST"),
		"Source: " + rep.GeneratedByAI,
	}
	for _, m := range meta {
		if err := w.line(m, bodySize); err != nil {
			return nil, err
		}
	}
	w.pdf.Br(lineHeight)

	for _, raw := range strings.Split(rep.Content, "\n") {
		text := strings.TrimSpace(raw)
		size := bodySize
		switch {
		case text == "":
			w.pdf.Br(lineHeight / 2)
			continue
		case strings.HasPrefix(text, "#"):
			text = strings.TrimSpace(strings.TrimLeft(text, "#"))
			size = headingSize
			w.pdf.Br(lineHeight / 2)
		case strings.HasPrefix(text, "- "), strings.HasPrefix(text, "* "):
			text = "• " + strings.TrimSpace(text[2:])
		}
		if err := w.paragraph(strings.ReplaceAll(text, "**", ""), size); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (w pdfWriter) paragraph(text string, size int) error {
	if err := w.pdf.SetFont(fontName, "", size); err != nil {
		return err
	}
	lines, err := w.pdf.SplitText(text, textWidth)
	if err != nil {
		lines = []string{text}
	}
	for _, l := range lines {
		if err := w.line(l, size); err != nil {
			return err
		}
	}
	return nil
}

func (w pdfWriter) line(text string, size int) error {
	if w.pdf.GetY() > pageBottom {
		w.pdf.AddPage()
	}
	if err := w.pdf.SetFont(fontName, "", size); err != nil {
		return err
	}
	w.pdf.SetX(marginLeft)
	if err := w.pdf.Cell(nil, text); err != nil {
		return err
	}
	w.pdf.Br(float64(size) + 3)
	return nil
}
