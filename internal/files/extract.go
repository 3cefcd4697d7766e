// Package files implements the file collaborators around the masking core:
// text extraction from txt/docx/pdf uploads and assembly of the output
// bundle.
package files

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docshield/docshield/internal/document"
	"github.com/docshield/docshield/internal/errs"
	"github.com/ledongthuc/pdf"
)

// DefaultMaxFileSizeMB limits upload size when no configuration is given.
const DefaultMaxFileSizeMB = 50

// ExtractText pulls plain text from a supported file. The size limit is
// checked before any parsing work begins.
func ExtractText(filename string, data []byte, maxSizeMB int) (string, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxFileSizeMB
	}
	sizeMB := float64(len(data)) / (1024 * 1024)
	if sizeMB > float64(maxSizeMB) {
		return "", errs.SizeLimit("file is %.1fMB, the limit is %dMB", sizeMB, maxSizeMB)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return strings.ToValidUTF8(string(data), ""), nil
	case ".docx":
		doc, err := document.Load(data)
		if err != nil {
			return "", err
		}
		return doc.PlainText(), nil
	case ".pdf":
		return extractPDF(data)
	default:
		return "", errs.Format(nil, "unsupported file type %q, use txt/docx/pdf", filepath.Ext(filename))
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errs.Format(err, "cannot parse PDF")
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", errs.Format(err, "cannot extract text from PDF page %d", i)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n\n"), nil
}

// IsSupported reports whether the extension has an extraction path.
func IsSupported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".docx", ".pdf":
		return true
	}
	return false
}

// SizeString formats a byte count for logs and error messages.
func SizeString(n int) string {
	return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
}
