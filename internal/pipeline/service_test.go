package pipeline

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/docshield/docshield/internal/config"
	"github.com/docshield/docshield/internal/crypto"
	"github.com/docshield/docshield/internal/document"
	"github.com/docshield/docshield/internal/errs"
	"github.com/docshield/docshield/internal/files"
	"github.com/docshield/docshield/internal/masking"
)

func newTestService() *Service {
	cfg := config.GetDefaults()
	engine := masking.NewEngine(masking.NewCatalog(), nil)
	return New(cfg, engine, nil)
}

func TestMaskText(t *testing.T) {
	service := newTestService()

	t.Run("smart detection with defaults", func(t *testing.T) {
		result, err := service.MaskText("电话13800138000", Options{EnableSmart: true})
		if err != nil {
			t.Fatalf("MaskText failed: %v", err)
		}
		if result.MaskedText != "电话138********" {
			t.Errorf("masked = %q", result.MaskedText)
		}
		if result.Payload != nil {
			t.Error("payload present without a password")
		}
	})

	t.Run("password seals the original", func(t *testing.T) {
		result, err := service.MaskText("机密内容", Options{
			Keywords: []string{"机密"},
			Password: "secret123",
		})
		if err != nil {
			t.Fatalf("MaskText failed: %v", err)
		}
		if result.Payload == nil {
			t.Fatal("payload missing")
		}
		restored, err := crypto.Decrypt(result.Payload, "secret123")
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if restored != "机密内容" {
			t.Errorf("restored = %q", restored)
		}
	})

	t.Run("explicit zero preserve chars", func(t *testing.T) {
		zero := 0
		result, err := service.MaskText("联系人张三", Options{
			Keywords:      []string{"张三"},
			Mode:          masking.ModePartial,
			PreserveChars: &zero,
		})
		if err != nil {
			t.Fatalf("MaskText failed: %v", err)
		}
		if result.MaskedText != "联系人**" {
			t.Errorf("masked = %q, want %q", result.MaskedText, "联系人**")
		}
	})

	t.Run("nil preserve chars falls back to config", func(t *testing.T) {
		// The default keeps one character, so a two-character partial match
		// keeps its head.
		result, err := service.MaskText("联系人张三", Options{
			Keywords: []string{"张三"},
			Mode:     masking.ModePartial,
		})
		if err != nil {
			t.Fatalf("MaskText failed: %v", err)
		}
		if result.MaskedText != "联系人张*" {
			t.Errorf("masked = %q, want %q", result.MaskedText, "联系人张*")
		}
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := service.MaskText("text", Options{Keywords: []string{"t"}, Password: "ab"})
		if !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("error = %v, want validation kind", err)
		}
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, err := service.MaskText("  ", Options{EnableSmart: true})
		if !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("error = %v, want validation kind", err)
		}
	})
}

func TestMaskDocumentTxtPath(t *testing.T) {
	service := newTestService()

	result, err := service.MaskDocument("notes.txt", []byte("电话13800138000"), Options{
		EnableSmart: true,
		Password:    "secret123",
	})
	if err != nil {
		t.Fatalf("MaskDocument failed: %v", err)
	}
	if !result.Collapsed {
		t.Error("txt path must report the regenerate path")
	}
	if result.Stats.SmartDetection["mobile_number"] != 1 {
		t.Errorf("stats = %+v", result.Stats)
	}

	maskedDocx, payload := unpackBundle(t, result.Bundle, result.Stamp)

	docx, err := document.Load(maskedDocx)
	if err != nil {
		t.Fatalf("masked docx does not load: %v", err)
	}
	if got := docx.PlainText(); got != "电话138********" {
		t.Errorf("masked document text = %q", got)
	}

	restored, err := crypto.Decrypt(payload, "secret123")
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if restored != "电话13800138000" {
		t.Errorf("restored = %q", restored)
	}
}

func TestMaskDocumentDocxPath(t *testing.T) {
	service := newTestService()

	source, err := document.BuildPlain("联系人张三\n电话13800138000")
	if err != nil {
		t.Fatalf("BuildPlain failed: %v", err)
	}

	result, err := service.MaskDocument("contract.docx", source, Options{
		Keywords:    []string{"张三"},
		EnableSmart: true,
		Password:    "secret123",
	})
	if err != nil {
		t.Fatalf("MaskDocument failed: %v", err)
	}
	if result.Collapsed {
		t.Error("docx path must use run-level splicing, not regeneration")
	}

	maskedDocx, payload := unpackBundle(t, result.Bundle, result.Stamp)
	docx, err := document.Load(maskedDocx)
	if err != nil {
		t.Fatalf("masked docx does not load: %v", err)
	}

	// CJK keyword becomes block glyphs, digits become the mask char.
	want := "联系人██\n电话***********"
	if got := docx.PlainText(); got != want {
		t.Errorf("masked document text = %q, want %q", got, want)
	}

	// The payload holds the text extracted before any mutation.
	restored, err := crypto.Decrypt(payload, "secret123")
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if restored != "联系人张三\n电话13800138000" {
		t.Errorf("restored = %q", restored)
	}
}

func TestMaskDocumentEntitySuffix(t *testing.T) {
	service := newTestService()

	source, err := document.BuildPlain("甲方北京某某科技有限公司")
	if err != nil {
		t.Fatalf("BuildPlain failed: %v", err)
	}

	result, err := service.MaskDocument("contract.docx", source, Options{
		EnableSmart: true,
		Password:    "secret123",
	})
	if err != nil {
		t.Fatalf("MaskDocument failed: %v", err)
	}

	maskedDocx, _ := unpackBundle(t, result.Bundle, result.Stamp)
	docx, err := document.Load(maskedDocx)
	if err != nil {
		t.Fatalf("masked docx does not load: %v", err)
	}

	got := docx.PlainText()
	if !strings.HasSuffix(got, "有限公司") {
		t.Errorf("entity suffix not preserved: %q", got)
	}
	if strings.Contains(got, "北京某某科技") {
		t.Errorf("entity name not masked: %q", got)
	}
}

func TestMaskDocumentValidation(t *testing.T) {
	service := newTestService()

	t.Run("password required", func(t *testing.T) {
		_, err := service.MaskDocument("a.txt", []byte("text"), Options{EnableSmart: true})
		if !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("error = %v, want validation kind", err)
		}
	})

	t.Run("no masking source", func(t *testing.T) {
		_, err := service.MaskDocument("a.txt", []byte("text"), Options{
			EnableSmart: false,
			Password:    "secret123",
		})
		if !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("error = %v, want validation kind", err)
		}
	})

	t.Run("unsupported file type", func(t *testing.T) {
		_, err := service.MaskDocument("a.png", []byte("data"), Options{
			EnableSmart: true,
			Password:    "secret123",
		})
		if !errs.IsKind(err, errs.KindFormat) {
			t.Errorf("error = %v, want format kind", err)
		}
	})

	t.Run("oversized docx", func(t *testing.T) {
		service := newTestService()
		service.cfg.Files.MaxFileSizeMB = 1
		big := bytes.Repeat([]byte("a"), 2<<20)
		_, err := service.MaskDocument("a.docx", big, Options{
			EnableSmart: true,
			Password:    "secret123",
		})
		if !errs.IsKind(err, errs.KindSizeLimit) {
			t.Errorf("error = %v, want size limit kind", err)
		}
	})
}

func TestRestore(t *testing.T) {
	service := newTestService()

	payload, err := crypto.Encrypt("原始文本", "secret123", []string{"张三"})
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	payloadJSON, err := payload.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		text, parsed, err := service.Restore(payloadJSON, "secret123")
		if err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if text != "原始文本" {
			t.Errorf("text = %q", text)
		}
		if parsed.OriginalLength != 4 {
			t.Errorf("original length = %d, want 4", parsed.OriginalLength)
		}
	})

	t.Run("empty password", func(t *testing.T) {
		_, _, err := service.Restore(payloadJSON, "  ")
		if !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("error = %v, want validation kind", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := service.Restore(payloadJSON, "wrong-password")
		if !errs.IsKind(err, errs.KindCrypto) {
			t.Errorf("error = %v, want crypto kind", err)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, _, err := service.Restore([]byte("{broken"), "secret123")
		if !errs.IsKind(err, errs.KindFormat) {
			t.Errorf("error = %v, want format kind", err)
		}
	})
}

// unpackBundle opens an output bundle and returns the masked document bytes
// with the parsed restore payload.
func unpackBundle(t *testing.T, bundle []byte, stamp string) ([]byte, *crypto.RestorePayload) {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		t.Fatalf("bundle is not a zip: %v", err)
	}

	var maskedDocx, payloadJSON []byte
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			t.Fatalf("open %s: %v", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", file.Name, err)
		}
		switch file.Name {
		case files.MaskedFileName(stamp):
			maskedDocx = content
		case files.RestoreFileName(stamp):
			payloadJSON = content
		default:
			t.Errorf("unexpected bundle entry %s", file.Name)
		}
	}
	if maskedDocx == nil || payloadJSON == nil {
		t.Fatal("bundle is missing an expected entry")
	}

	payload, err := crypto.ParsePayload(payloadJSON)
	if err != nil {
		t.Fatalf("ParsePayload failed: %v", err)
	}
	return maskedDocx, payload
}
