package extract

import (
	"fmt"

	"clusterlabel/internal/util"

	"github.com/ledongthuc/pdf"
)

// FirstPage returns the sanitized plain text of the first page of a PDF.
func FirstPage(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", util.ErrNoExtractableText
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return "", util.ErrNoExtractableText
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract first page text: %w", err)
	}
	text = util.SanitizeText(text)
	if text == "" {
		return "", util.ErrNoExtractableText
	}
	return text, nil
}
