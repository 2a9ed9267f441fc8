package analysis

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const maxPages = 50

// TextExtractor pulls plain text out of an uploaded document.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

type pdfExtractor struct{}

func NewPDFExtractor() TextExtractor {
	return pdfExtractor{}
}

// Extract reads at most the first 50 pages. Scanned PDFs yield "".
func (pdfExtractor) Extract(data []byte) (text string, err error) {
	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parse: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf open: %w", err)
	}

	var parts []string
	n := r.NumPage()
	if n > maxPages {
		n = maxPages
	}
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), nil
}
