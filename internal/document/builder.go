package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// ParagraphData is the flattened, format-carrying view of one paragraph,
// produced by formatted extraction and consumed when a document is
// regenerated from scratch.
type ParagraphData struct {
	Text         string     `json:"text"`
	StyleName    string     `json:"style_name,omitempty"`
	HeadingLevel int        `json:"heading_level,omitempty"`
	IsBold       bool       `json:"is_bold,omitempty"`
	IsItalic     bool       `json:"is_italic,omitempty"`
	FontSizePt   float64    `json:"font_size_pt,omitempty"`
	Alignment    string     `json:"alignment,omitempty"`
	IsTitle      bool       `json:"is_title,omitempty"`
	IsTable      bool       `json:"is_table,omitempty"`
	TableRows    [][]string `json:"table_rows,omitempty"`
}

// ExtractFormatted flattens a loaded document into ParagraphData records:
// body paragraphs with style hints, tables as string grids, then header and
// footer paragraphs.
func ExtractFormatted(d *Docx) []ParagraphData {
	var out []ParagraphData

	for _, p := range d.model.Paragraphs() {
		out = append(out, paragraphData(p))
	}

	for _, t := range d.model.Tables() {
		rows := make([][]string, 0, len(t.Rows))
		var flat []string
		for _, row := range t.Rows {
			cells := make([]string, len(row.Cells))
			for i, cell := range row.Cells {
				var sb strings.Builder
				for j, cp := range cell.Paragraphs {
					if j > 0 {
						sb.WriteString("\n")
					}
					sb.WriteString(cp.Text())
				}
				cells[i] = strings.TrimSpace(sb.String())
			}
			rows = append(rows, cells)
			flat = append(flat, strings.Join(cells, " | "))
		}
		if len(rows) > 0 {
			out = append(out, ParagraphData{
				Text:      strings.Join(flat, " | "),
				IsTable:   true,
				TableRows: rows,
			})
		}
	}

	for _, hf := range d.model.Headers {
		for _, p := range hf.Paragraphs {
			if strings.TrimSpace(p.Text()) != "" {
				out = append(out, ParagraphData{Text: p.Text(), StyleName: "Header"})
			}
		}
	}
	for _, hf := range d.model.Footers {
		for _, p := range hf.Paragraphs {
			if strings.TrimSpace(p.Text()) != "" {
				out = append(out, ParagraphData{Text: p.Text(), StyleName: "Footer"})
			}
		}
	}
	return out
}

func paragraphData(p *Paragraph) ParagraphData {
	data := ParagraphData{Text: p.Text()}

	if pPr := firstChild(p.node, "pPr"); pPr != nil {
		if style := firstChild(pPr, "pStyle"); style != nil {
			data.StyleName = wordAttr(style, "val")
		}
		if jc := firstChild(pPr, "jc"); jc != nil {
			data.Alignment = wordAttr(jc, "val")
		}
	}
	switch {
	case strings.HasPrefix(data.StyleName, "Heading"):
		fmt.Sscanf(strings.TrimPrefix(data.StyleName, "Heading"), "%d", &data.HeadingLevel)
	case strings.Contains(data.StyleName, "Title"):
		data.IsTitle = true
	}

	if len(p.Runs) > 0 {
		if rPr := firstChild(p.Runs[0].node, "rPr"); rPr != nil {
			data.IsBold = firstChild(rPr, "b") != nil
			data.IsItalic = firstChild(rPr, "i") != nil
			if sz := firstChild(rPr, "sz"); sz != nil {
				var halfPoints float64
				fmt.Sscanf(wordAttr(sz, "val"), "%f", &halfPoints)
				data.FontSizePt = halfPoints / 2
			}
		}
	}
	return data
}

func firstChild(n *xmlNode, local string) *xmlNode {
	children := n.findChildren(local)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

func wordAttr(n *xmlNode, local string) string {
	for _, attr := range n.attrs {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}

// BuildPlain regenerates a minimal DOCX from plain text, one paragraph per
// line with blank lines preserved as empty paragraphs.
func BuildPlain(text string) ([]byte, error) {
	lines := strings.Split(text, "\n")
	data := make([]ParagraphData, len(lines))
	for i, line := range lines {
		data[i] = ParagraphData{Text: strings.TrimSuffix(line, "\r")}
	}
	return BuildFormatted(data)
}

// BuildFormatted regenerates a DOCX package from ParagraphData records,
// mapping heading levels, bold/italic, font size and alignment back to
// WordprocessingML. This is the degraded output path used when run-level
// splicing is not possible.
func BuildFormatted(paragraphs []ParagraphData) ([]byte, error) {
	var body bytes.Buffer
	for _, p := range paragraphs {
		if p.IsTable && len(p.TableRows) > 0 {
			writeTableXML(&body, p.TableRows)
			continue
		}
		writeParagraphXML(&body, p)
	}

	documentXML := fmt.Sprintf(docxDocumentTemplate, body.String())

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRootRels},
		{"word/_rels/document.xml.rels", docxDocumentRels},
		{"word/styles.xml", docxStyles},
		{"word/document.xml", documentXML},
	}
	for _, part := range parts {
		w, err := writer.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close package: %w", err)
	}
	return buf.Bytes(), nil
}

func writeParagraphXML(buf *bytes.Buffer, p ParagraphData) {
	buf.WriteString("<w:p>")

	var pPr bytes.Buffer
	switch {
	case p.HeadingLevel > 0:
		fmt.Fprintf(&pPr, `<w:pStyle w:val="Heading%d"/>`, p.HeadingLevel)
	case p.IsTitle:
		pPr.WriteString(`<w:pStyle w:val="Title"/>`)
	case p.StyleName != "" && p.StyleName != "Normal":
		fmt.Fprintf(&pPr, `<w:pStyle w:val="%s"/>`, escapeXML(p.StyleName))
	}
	if p.Alignment != "" && p.Alignment != "left" {
		fmt.Fprintf(&pPr, `<w:jc w:val="%s"/>`, escapeXML(p.Alignment))
	}
	if pPr.Len() > 0 {
		buf.WriteString("<w:pPr>")
		buf.Write(pPr.Bytes())
		buf.WriteString("</w:pPr>")
	}

	if p.Text != "" {
		buf.WriteString("<w:r>")
		var rPr bytes.Buffer
		if p.IsBold {
			rPr.WriteString("<w:b/>")
		}
		if p.IsItalic {
			rPr.WriteString("<w:i/>")
		}
		if p.FontSizePt > 0 {
			fmt.Fprintf(&rPr, `<w:sz w:val="%d"/>`, int(p.FontSizePt*2))
		}
		if rPr.Len() > 0 {
			buf.WriteString("<w:rPr>")
			buf.Write(rPr.Bytes())
			buf.WriteString("</w:rPr>")
		}
		fmt.Fprintf(buf, `<w:t xml:space="preserve">%s</w:t>`, escapeXML(p.Text))
		buf.WriteString("</w:r>")
	}

	buf.WriteString("</w:p>")
}

func writeTableXML(buf *bytes.Buffer, rows [][]string) {
	buf.WriteString(`<w:tbl><w:tblPr><w:tblBorders>` +
		`<w:top w:val="single" w:sz="4"/><w:left w:val="single" w:sz="4"/>` +
		`<w:bottom w:val="single" w:sz="4"/><w:right w:val="single" w:sz="4"/>` +
		`<w:insideH w:val="single" w:sz="4"/><w:insideV w:val="single" w:sz="4"/>` +
		`</w:tblBorders></w:tblPr>`)
	for _, row := range rows {
		buf.WriteString("<w:tr>")
		for _, cell := range row {
			fmt.Fprintf(buf, `<w:tc><w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p></w:tc>`, escapeXML(cell))
		}
		buf.WriteString("</w:tr>")
	}
	buf.WriteString("</w:tbl>")
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const docxStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="56"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="48"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="36"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading4"><w:name w:val="heading 4"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="24"/></w:rPr></w:style>
</w:styles>`

const docxDocumentTemplate = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>%s<w:sectPr/></w:body></w:document>`
