package document

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// xmlNode is a generic element tree for a WordprocessingML part. The whole
// part is kept so that content the model does not understand (bookmarks,
// proofing marks, drawings) survives a load/save round trip untouched.
type xmlNode struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*xmlNode
	text     string // character data; set only when name.Local is empty
	isText   bool
}

func (n *xmlNode) isElement(space, local string) bool {
	return !n.isText && n.name.Local == local && (space == "" || n.name.Space == space)
}

// wordML is the main WordprocessingML namespace.
const wordML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// parsePart decodes one XML part into a node tree. The returned node is a
// synthetic root whose single child is the document element.
func parsePart(data []byte) (*xmlNode, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	root := &xmlNode{}
	stack := []*xmlNode{root}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml parse: %w", err)
		}

		parent := stack[len(stack)-1]
		switch t := token.(type) {
		case xml.StartElement:
			child := &xmlNode{name: t.Name, attrs: copyAttrs(t.Attr)}
			parent.children = append(parent.children, child)
			stack = append(stack, child)
		case xml.EndElement:
			if len(stack) == 1 {
				return nil, fmt.Errorf("xml parse: unbalanced end element %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			// Whitespace outside the document element is prolog formatting,
			// not content; keeping it would shift the element out of
			// position zero.
			if parent == root && strings.TrimSpace(string(t)) == "" {
				break
			}
			parent.children = append(parent.children, &xmlNode{text: string(t), isText: true})
		case xml.Comment, xml.ProcInst, xml.Directive:
			// Prolog and comments are regenerated on save.
		}
	}

	if len(root.children) == 0 {
		return nil, fmt.Errorf("xml parse: empty part")
	}
	return root, nil
}

func copyAttrs(attrs []xml.Attr) []xml.Attr {
	out := make([]xml.Attr, len(attrs))
	copy(out, attrs)
	return out
}

// nsTable maps namespace URIs back to the prefixes declared on the part's
// document element. encoding/xml resolves prefixes during decode, so the
// writer needs this table to emit the original prefixed names.
type nsTable struct {
	prefixByURI map[string]string
	defaultURI  string
}

func buildNSTable(docElem *xmlNode) *nsTable {
	table := &nsTable{prefixByURI: make(map[string]string)}
	for _, attr := range docElem.attrs {
		switch {
		case attr.Name.Space == "xmlns":
			table.prefixByURI[attr.Value] = attr.Name.Local
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			table.defaultURI = attr.Value
		}
	}
	return table
}

func (t *nsTable) qualify(name xml.Name) string {
	if name.Space == "" || name.Space == t.defaultURI {
		return name.Local
	}
	if name.Space == "xml" {
		return "xml:" + name.Local
	}
	if prefix, ok := t.prefixByURI[name.Space]; ok {
		return prefix + ":" + name.Local
	}
	return name.Local
}

func (t *nsTable) qualifyAttr(name xml.Name) string {
	switch {
	case name.Space == "xmlns":
		return "xmlns:" + name.Local
	case name.Space == "" && name.Local == "xmlns":
		return "xmlns"
	default:
		return t.qualify(name)
	}
}

// serializePart writes the node tree back to XML with the standard prolog.
func serializePart(root *xmlNode) ([]byte, error) {
	if len(root.children) == 0 {
		return nil, fmt.Errorf("serialize: empty part")
	}
	docElem := root.children[0]
	table := buildNSTable(docElem)

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\r\n")
	if err := writeNode(&buf, docElem, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n *xmlNode, table *nsTable) error {
	if n.isText {
		return xml.EscapeText(buf, []byte(n.text))
	}

	name := table.qualify(n.name)
	buf.WriteByte('<')
	buf.WriteString(name)
	for _, attr := range n.attrs {
		buf.WriteByte(' ')
		buf.WriteString(table.qualifyAttr(attr.Name))
		buf.WriteString(`="`)
		if err := xml.EscapeText(buf, []byte(attr.Value)); err != nil {
			return err
		}
		buf.WriteByte('"')
	}

	if len(n.children) == 0 {
		buf.WriteString("/>")
		return nil
	}

	buf.WriteByte('>')
	for _, child := range n.children {
		if err := writeNode(buf, child, table); err != nil {
			return err
		}
	}
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteByte('>')
	return nil
}

// innerText concatenates all character data beneath n.
func (n *xmlNode) innerText() string {
	if n.isText {
		return n.text
	}
	var sb strings.Builder
	for _, child := range n.children {
		sb.WriteString(child.innerText())
	}
	return sb.String()
}

// findAll collects direct and nested descendants with the given WordML local
// name, in document order, without descending into excluded elements.
func (n *xmlNode) findAll(local string, exclude ...string) []*xmlNode {
	var out []*xmlNode
	for _, child := range n.children {
		if child.isText {
			continue
		}
		if child.isElement(wordML, local) {
			out = append(out, child)
			continue
		}
		if containsLocal(exclude, child.name.Local) {
			continue
		}
		out = append(out, child.findAll(local, exclude...)...)
	}
	return out
}

// findChildren collects only direct element children with the given name.
func (n *xmlNode) findChildren(local string) []*xmlNode {
	var out []*xmlNode
	for _, child := range n.children {
		if child.isElement(wordML, local) {
			out = append(out, child)
		}
	}
	return out
}

func containsLocal(locals []string, local string) bool {
	for _, l := range locals {
		if l == local {
			return true
		}
	}
	return false
}
