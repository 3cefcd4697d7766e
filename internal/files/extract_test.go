package files

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/docshield/docshield/internal/crypto"
	"github.com/docshield/docshield/internal/document"
	"github.com/docshield/docshield/internal/errs"
)

func TestExtractTextTxt(t *testing.T) {
	text, err := ExtractText("notes.txt", []byte("第一行\n第二行"), DefaultMaxFileSizeMB)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if text != "第一行\n第二行" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractTextDocx(t *testing.T) {
	data, err := document.BuildPlain("合同正文\n签署人张三")
	if err != nil {
		t.Fatalf("BuildPlain failed: %v", err)
	}

	text, err := ExtractText("contract.docx", data, DefaultMaxFileSizeMB)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if text != "合同正文\n签署人张三" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractTextSizeLimit(t *testing.T) {
	// The limit check runs before any content inspection, so even an
	// unsupported extension reports the size error first.
	big := bytes.Repeat([]byte("a"), 2<<20)
	_, err := ExtractText("huge.bin", big, 1)
	if !errs.IsKind(err, errs.KindSizeLimit) {
		t.Errorf("error = %v, want size limit kind", err)
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText("image.png", []byte("data"), DefaultMaxFileSizeMB)
	if !errs.IsKind(err, errs.KindFormat) {
		t.Errorf("error = %v, want format kind", err)
	}
}

func TestExtractTextCorruptDocx(t *testing.T) {
	_, err := ExtractText("broken.docx", []byte("not a package"), DefaultMaxFileSizeMB)
	if !errs.IsKind(err, errs.KindFormat) {
		t.Errorf("error = %v, want format kind", err)
	}
}

func TestIsSupported(t *testing.T) {
	supported := []string{"a.txt", "b.docx", "c.pdf", "UPPER.TXT"}
	for _, name := range supported {
		if !IsSupported(name) {
			t.Errorf("IsSupported(%q) = false, want true", name)
		}
	}
	unsupported := []string{"a.doc", "b.xlsx", "noext", "c.png"}
	for _, name := range unsupported {
		if IsSupported(name) {
			t.Errorf("IsSupported(%q) = true, want false", name)
		}
	}
}

func TestBuildBundle(t *testing.T) {
	maskedDocx, err := document.BuildPlain("脱敏后的文本")
	if err != nil {
		t.Fatalf("BuildPlain failed: %v", err)
	}

	restore, err := crypto.Encrypt("原始文本", "secret123", []string{"张三"})
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	stamp := "20240115_103000"
	bundle, err := BuildBundle(maskedDocx, restore, stamp)
	if err != nil {
		t.Fatalf("BuildBundle failed: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		t.Fatalf("bundle is not a zip: %v", err)
	}
	if len(reader.File) != 2 {
		t.Fatalf("bundle entries = %d, want 2", len(reader.File))
	}

	names := []string{reader.File[0].Name, reader.File[1].Name}
	wantMasked := MaskedFileName(stamp)
	wantRestore := RestoreFileName(stamp)
	if names[0] != wantMasked && names[1] != wantMasked {
		t.Errorf("bundle %v missing %s", names, wantMasked)
	}
	if names[0] != wantRestore && names[1] != wantRestore {
		t.Errorf("bundle %v missing %s", names, wantRestore)
	}
}

func TestSizeString(t *testing.T) {
	if got := SizeString(3 << 20); got != "3.0MB" {
		t.Errorf("SizeString = %q, want %q", got, "3.0MB")
	}
	if got := SizeString(512 << 10); got != "0.5MB" {
		t.Errorf("SizeString = %q, want %q", got, "0.5MB")
	}
}

func TestStampFormat(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if got := Stamp(ts); got != "20240115_103000" {
		t.Errorf("Stamp = %q", got)
	}
	if !strings.HasPrefix(MaskedFileName("20240115_103000"), "masked_") {
		t.Error("unexpected masked file name prefix")
	}
}
