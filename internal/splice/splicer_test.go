package splice

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/docshield/docshield/internal/document"
	"github.com/docshield/docshield/internal/masking"
)

// buildDocx packs a WordprocessingML body into a minimal in-memory package.
func buildDocx(t *testing.T, bodyXML string) []byte {
	t.Helper()
	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\r\n" +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		bodyXML +
		`</w:body></w:document>`

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	w, err := writer.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func runXML(text string) string {
	return fmt.Sprintf(`<w:r><w:t>%s</w:t></w:r>`, text)
}

func TestBuildRules(t *testing.T) {
	catalog := masking.NewCatalog()
	rules := BuildRules([]string{"张三", ""}, catalog, "*")

	// One keyword rule (the empty keyword is dropped) plus every detector
	// except org_name.
	want := 1 + len(catalog.Entries()) - 1
	if len(rules) != want {
		t.Fatalf("rule count = %d, want %d", len(rules), want)
	}
	if rules[0].Name != "keyword" {
		t.Errorf("first rule = %q, want keyword", rules[0].Name)
	}
	for _, rule := range rules {
		if rule.Name == "org_name" {
			t.Error("org_name must not produce a splicing rule")
		}
		if !rule.EqualLength {
			t.Errorf("rule %q is not equal-length", rule.Name)
		}
	}
}

func TestComputeEqualLength(t *testing.T) {
	catalog := masking.NewCatalog()

	t.Run("cjk keyword becomes block glyphs", func(t *testing.T) {
		splicer := NewRunSplicer(BuildRules([]string{"张三"}, catalog, "*"), nil)
		got := splicer.Compute("报告人张三已确认")
		want := "报告人██已确认"
		if got != want {
			t.Errorf("Compute = %q, want %q", got, want)
		}
	})

	t.Run("digits become mask chars", func(t *testing.T) {
		splicer := NewRunSplicer(BuildRules(nil, catalog, "*"), nil)
		got := splicer.Compute("电话13800138000联系")
		want := "电话***********联系"
		if got != want {
			t.Errorf("Compute = %q, want %q", got, want)
		}
	})

	t.Run("length is always preserved", func(t *testing.T) {
		splicer := NewRunSplicer(BuildRules([]string{"张三", "Acme"}, catalog, "*"), nil)
		inputs := []string{
			"张三的邮箱是zhangsan@example.com",
			"Acme在192.168.1.1部署了服务",
			"卡号6222021234567890123，电话13800138000",
		}
		for _, input := range inputs {
			got := splicer.Compute(input)
			if utf8.RuneCountInString(got) != utf8.RuneCountInString(input) {
				t.Errorf("Compute(%q) changed length: %q", input, got)
			}
		}
	})
}

func TestApplyReplacements(t *testing.T) {
	t.Run("overwrites span in place", func(t *testing.T) {
		got := ApplyReplacements("abcdef", []TextReplacement{
			{Start: 1, End: 4, Replacement: "***"},
		})
		if got != "a***ef" {
			t.Errorf("ApplyReplacements = %q, want %q", got, "a***ef")
		}
	})

	t.Run("short replacement leaves tail unchanged", func(t *testing.T) {
		got := ApplyReplacements("abcdef", []TextReplacement{
			{Start: 1, End: 5, Replacement: "**"},
		})
		if got != "a**def" {
			t.Errorf("ApplyReplacements = %q, want %q", got, "a**def")
		}
	})

	t.Run("multiple spans applied back to front", func(t *testing.T) {
		got := ApplyReplacements("abcdefgh", []TextReplacement{
			{Start: 0, End: 2, Replacement: "##"},
			{Start: 5, End: 8, Replacement: "***"},
		})
		if got != "##cde***" {
			t.Errorf("ApplyReplacements = %q, want %q", got, "##cde***")
		}
	})
}

// A phone number split across two styled runs must be masked without merging
// the runs: the masked text is sliced back over the original run lengths.
func TestProcessDocumentSplitRuns(t *testing.T) {
	data := buildDocx(t, `<w:p>`+
		`<w:r><w:rPr><w:b/></w:rPr><w:t>电话13800</w:t></w:r>`+
		runXML("138000联系")+
		`</w:p>`)

	docx, err := document.Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	splicer := NewRunSplicer(BuildRules(nil, masking.NewCatalog(), "*"), nil)
	splicer.ProcessDocument(docx.Document())

	paragraphs := docx.Document().Paragraphs()
	if len(paragraphs) != 1 {
		t.Fatalf("paragraph count = %d, want 1", len(paragraphs))
	}
	runs := paragraphs[0].Runs
	if len(runs) != 2 {
		t.Fatalf("run count = %d, want 2", len(runs))
	}
	if got := runs[0].Text(); got != "电话*****" {
		t.Errorf("run 0 = %q, want %q", got, "电话*****")
	}
	if got := runs[1].Text(); got != "******联系" {
		t.Errorf("run 1 = %q, want %q", got, "******联系")
	}

	// The rewritten package must still load and carry the masked text.
	saved, err := docx.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reloaded, err := document.Load(saved)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := reloaded.PlainText(); got != "电话***********联系" {
		t.Errorf("PlainText = %q, want %q", got, "电话***********联系")
	}
}

func TestProcessDocumentTableCell(t *testing.T) {
	data := buildDocx(t, `<w:tbl><w:tr><w:tc><w:p>`+
		runXML("13800138000")+
		`</w:p></w:tc></w:tr></w:tbl>`)

	docx, err := document.Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	splicer := NewRunSplicer(BuildRules(nil, masking.NewCatalog(), "*"), nil)
	splicer.ProcessDocument(docx.Document())

	if got := docx.PlainText(); got != strings.Repeat("*", 11) {
		t.Errorf("PlainText = %q, want 11 mask chars", got)
	}
}

func TestCommitLengthChangeCollapses(t *testing.T) {
	data := buildDocx(t, `<w:p>`+runXML("北京")+runXML("某公司文本")+`</w:p>`)
	docx, err := document.Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	p := docx.Document().Paragraphs()[0]
	segments, fullText := Collect(p)
	Commit(p, segments, fullText, "短文本")

	if got := p.Runs[0].Text(); got != "短文本" {
		t.Errorf("run 0 = %q, want %q", got, "短文本")
	}
	if got := p.Runs[1].Text(); got != "" {
		t.Errorf("run 1 = %q, want empty", got)
	}
}
