package files

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"

	"github.com/docshield/docshield/internal/crypto"
)

// Stamp renders the timestamp embedded in bundle file names.
func Stamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MaskedFileName is the redacted document entry name inside a bundle.
func MaskedFileName(stamp string) string {
	return fmt.Sprintf("masked_%s.docx", stamp)
}

// RestoreFileName is the restore payload entry name inside a bundle.
func RestoreFileName(stamp string) string {
	return fmt.Sprintf("restore_%s.json", stamp)
}

// BuildBundle packs the redacted document and its restore payload into a ZIP
// archive containing exactly those two entries.
func BuildBundle(maskedDocx []byte, payload *crypto.RestorePayload, stamp string) ([]byte, error) {
	payloadJSON, err := payload.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal restore payload: %w", err)
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	entries := []struct {
		name string
		data []byte
	}{
		{MaskedFileName(stamp), maskedDocx},
		{RestoreFileName(stamp), payloadJSON},
	}
	for _, entry := range entries {
		w, err := writer.Create(entry.name)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", entry.name, err)
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", entry.name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close bundle: %w", err)
	}
	return buf.Bytes(), nil
}
