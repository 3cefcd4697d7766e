// Package document holds the in-memory model of a structured word-processing
// document: paragraphs made of style-bearing runs, tables of cells (which may
// nest further tables), and per-section header/footer paragraph lists. The
// model is created per input document, mutated in place by one masking pass
// at a time, and serialized back without touching run styling.
package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/docshield/docshield/internal/errs"
)

// Run is the smallest styled unit of text inside a paragraph. Its properties
// element stays bound to the underlying XML node and is never copied, so
// rewriting the text leaves the styling untouched.
type Run struct {
	node  *xmlNode
	texts []*xmlNode
}

// Text returns the run's current text.
func (r *Run) Text() string {
	var sb strings.Builder
	for _, t := range r.texts {
		sb.WriteString(t.innerText())
	}
	return sb.String()
}

// SetText replaces the run's text in place. When the run holds several text
// elements they are collapsed into the first; runs without a text element
// get one created on demand.
func (r *Run) SetText(s string) {
	if len(r.texts) == 0 {
		if s == "" {
			return
		}
		t := &xmlNode{name: xml.Name{Space: wordML, Local: "t"}}
		r.node.children = append(r.node.children, t)
		r.texts = []*xmlNode{t}
	}
	first := r.texts[0]
	first.children = []*xmlNode{{text: s, isText: true}}
	setSpacePreserve(first)
	for _, t := range r.texts[1:] {
		t.children = nil
	}
}

func setSpacePreserve(t *xmlNode) {
	for i, attr := range t.attrs {
		if attr.Name.Space == "xml" && attr.Name.Local == "space" {
			t.attrs[i].Value = "preserve"
			return
		}
	}
	t.attrs = append(t.attrs, xml.Attr{
		Name:  xml.Name{Space: "xml", Local: "space"},
		Value: "preserve",
	})
}

// Paragraph is an ordered list of runs sharing one block of text.
type Paragraph struct {
	node *xmlNode
	Runs []*Run
}

// Text returns the concatenation of all run texts in order.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// Cell holds paragraphs and, recursively, nested tables.
type Cell struct {
	Paragraphs []*Paragraph
	Tables     []*Table
}

// Row is one table row.
type Row struct {
	Cells []*Cell
}

// Text returns the row's cell texts joined for plain-text extraction.
func (row *Row) Text() string {
	parts := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		var sb strings.Builder
		for j, p := range cell.Paragraphs {
			if j > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(p.Text())
		}
		parts[i] = strings.TrimSpace(sb.String())
	}
	return strings.Join(parts, " | ")
}

// Table is a grid of rows of cells.
type Table struct {
	Rows []*Row
}

// Block is one body-level element: either a paragraph or a table.
type Block struct {
	Paragraph *Paragraph
	Table     *Table
}

// HeaderFooter is one section header or footer part.
type HeaderFooter struct {
	Path       string
	Paragraphs []*Paragraph
	Tables     []*Table
}

// Document is the mutable model over one parsed DOCX package.
type Document struct {
	Body    []*Block
	Headers []*HeaderFooter
	Footers []*HeaderFooter
}

// Paragraphs returns the body's top-level paragraphs in order.
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, block := range d.Body {
		if block.Paragraph != nil {
			out = append(out, block.Paragraph)
		}
	}
	return out
}

// Tables returns the body's top-level tables in order.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, block := range d.Body {
		if block.Table != nil {
			out = append(out, block.Table)
		}
	}
	return out
}

// WalkParagraphs visits every paragraph a masking pass must cover: the main
// body, every cell of every table (nested tables included, recursively), and
// every header and footer paragraph.
func (d *Document) WalkParagraphs(visit func(*Paragraph)) {
	for _, block := range d.Body {
		if block.Paragraph != nil {
			visit(block.Paragraph)
		}
		if block.Table != nil {
			walkTable(block.Table, visit)
		}
	}
	for _, hf := range d.Headers {
		walkHeaderFooter(hf, visit)
	}
	for _, hf := range d.Footers {
		walkHeaderFooter(hf, visit)
	}
}

func walkTable(t *Table, visit func(*Paragraph)) {
	for _, row := range t.Rows {
		for _, cell := range row.Cells {
			for _, p := range cell.Paragraphs {
				visit(p)
			}
			for _, nested := range cell.Tables {
				walkTable(nested, visit)
			}
		}
	}
}

func walkHeaderFooter(hf *HeaderFooter, visit func(*Paragraph)) {
	for _, p := range hf.Paragraphs {
		visit(p)
	}
	for _, t := range hf.Tables {
		walkTable(t, visit)
	}
}

// zipEntry keeps one package part with its original order.
type zipEntry struct {
	name string
	data []byte
}

// Docx is a loaded DOCX package: the raw ZIP entries plus the parsed
// WordprocessingML parts the model exposes.
type Docx struct {
	entries []zipEntry
	parts   map[string]*xmlNode
	model   *Document
}

const documentPart = "word/document.xml"

// Load parses DOCX bytes into a package with a live document model.
func Load(data []byte) (*Docx, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errs.Format(err, "not a valid DOCX package")
	}

	d := &Docx{parts: make(map[string]*xmlNode)}
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			return nil, errs.Format(err, "cannot read package part %s", file.Name)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errs.Format(err, "cannot read package part %s", file.Name)
		}
		d.entries = append(d.entries, zipEntry{name: file.Name, data: content})
	}

	docData, ok := d.entry(documentPart)
	if !ok {
		return nil, errs.Format(nil, "package has no %s", documentPart)
	}
	docRoot, err := parsePart(docData)
	if err != nil {
		return nil, errs.Format(err, "cannot parse %s", documentPart)
	}
	d.parts[documentPart] = docRoot

	var headerPaths, footerPaths []string
	for _, entry := range d.entries {
		switch {
		case strings.HasPrefix(entry.name, "word/header") && strings.HasSuffix(entry.name, ".xml"):
			headerPaths = append(headerPaths, entry.name)
		case strings.HasPrefix(entry.name, "word/footer") && strings.HasSuffix(entry.name, ".xml"):
			footerPaths = append(footerPaths, entry.name)
		}
	}
	sort.Strings(headerPaths)
	sort.Strings(footerPaths)

	for _, path := range append(append([]string{}, headerPaths...), footerPaths...) {
		content, _ := d.entry(path)
		root, err := parsePart(content)
		if err != nil {
			return nil, errs.Format(err, "cannot parse %s", path)
		}
		d.parts[path] = root
	}

	model, err := buildModel(docRoot, headerPaths, footerPaths, d.parts)
	if err != nil {
		return nil, err
	}
	d.model = model
	return d, nil
}

func (d *Docx) entry(name string) ([]byte, bool) {
	for _, entry := range d.entries {
		if entry.name == name {
			return entry.data, true
		}
	}
	return nil, false
}

// Document returns the live model. Mutations through the model are reflected
// by Save.
func (d *Docx) Document() *Document { return d.model }

func buildModel(docRoot *xmlNode, headerPaths, footerPaths []string, parts map[string]*xmlNode) (*Document, error) {
	docElem := docRoot.children[0]
	bodies := docElem.findChildren("body")
	if len(bodies) == 0 {
		return nil, errs.Format(nil, "document has no body element")
	}

	model := &Document{}
	for _, child := range bodies[0].children {
		if child.isText {
			continue
		}
		switch {
		case child.isElement(wordML, "p"):
			model.Body = append(model.Body, &Block{Paragraph: newParagraph(child)})
		case child.isElement(wordML, "tbl"):
			model.Body = append(model.Body, &Block{Table: newTable(child)})
		}
	}

	for _, path := range headerPaths {
		model.Headers = append(model.Headers, newHeaderFooter(path, parts[path]))
	}
	for _, path := range footerPaths {
		model.Footers = append(model.Footers, newHeaderFooter(path, parts[path]))
	}
	return model, nil
}

func newHeaderFooter(path string, root *xmlNode) *HeaderFooter {
	hf := &HeaderFooter{Path: path}
	elem := root.children[0]
	for _, p := range elem.findChildren("p") {
		hf.Paragraphs = append(hf.Paragraphs, newParagraph(p))
	}
	for _, tbl := range elem.findChildren("tbl") {
		hf.Tables = append(hf.Tables, newTable(tbl))
	}
	return hf
}

func newParagraph(node *xmlNode) *Paragraph {
	p := &Paragraph{node: node}
	// Runs nested in hyperlinks and smart tags are included; the paragraph
	// properties element is not descended into.
	for _, r := range node.findAll("r", "pPr") {
		p.Runs = append(p.Runs, &Run{node: r, texts: r.findChildren("t")})
	}
	return p
}

func newTable(node *xmlNode) *Table {
	t := &Table{}
	for _, tr := range node.findChildren("tr") {
		row := &Row{}
		for _, tc := range tr.findChildren("tc") {
			cell := &Cell{}
			for _, p := range tc.findChildren("p") {
				cell.Paragraphs = append(cell.Paragraphs, newParagraph(p))
			}
			for _, nested := range tc.findChildren("tbl") {
				cell.Tables = append(cell.Tables, newTable(nested))
			}
			row.Cells = append(row.Cells, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// PlainText extracts the document's text for the flat masking path:
// body paragraphs, table rows with cells joined by " | ", then non-empty
// header and footer paragraphs.
func (d *Docx) PlainText() string {
	var parts []string
	for _, p := range d.model.Paragraphs() {
		parts = append(parts, p.Text())
	}
	for _, t := range d.model.Tables() {
		for _, row := range t.Rows {
			parts = append(parts, row.Text())
		}
	}
	for _, hf := range append(append([]*HeaderFooter{}, d.model.Headers...), d.model.Footers...) {
		for _, p := range hf.Paragraphs {
			if text := strings.TrimSpace(p.Text()); text != "" {
				parts = append(parts, p.Text())
			}
		}
	}
	return strings.Join(parts, "\n")
}

// Save serializes the mutated parts and rebuilds the package, keeping every
// untouched entry byte-identical and in its original order.
func (d *Docx) Save() ([]byte, error) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	for _, entry := range d.entries {
		data := entry.data
		if root, ok := d.parts[entry.name]; ok {
			serialized, err := serializePart(root)
			if err != nil {
				return nil, fmt.Errorf("serialize %s: %w", entry.name, err)
			}
			data = serialized
		}
		w, err := writer.Create(entry.name)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", entry.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write %s: %w", entry.name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close package: %w", err)
	}
	return buf.Bytes(), nil
}
