package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

type DocumentExtractor interface {
	ExtractText(filePath string) (string, error)
}

type pdfExtractor struct{}

func NewPDFExtractor() DocumentExtractor {
	return &pdfExtractor{}
}

// ExtractText returns the text of every page in page order. An empty result is
// not an error; callers decide what to do with a document without text.
func (p *pdfExtractor) ExtractText(filePath string) (text string, err error) {
	// The parser panics on some malformed inputs instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = NewExtractionError("failed to parse PDF", fmt.Errorf("%v", r))
		}
	}()

	f, r, err := pdf.Open(filePath)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return "", NewExtractionError("failed to open PDF", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("⚠️  Skipping unreadable PDF page %d: %v\n", pageIndex, err)
			continue
		}

		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n")
		}
		textBuilder.WriteString(pageText)
	}

	return textBuilder.String(), nil
}
