package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node types of the page document tree (ProseMirror JSON naming).
const (
	NodeDoc            = "doc"
	NodeParagraph      = "paragraph"
	NodeHeading        = "heading"
	NodeBulletList     = "bulletList"
	NodeOrderedList    = "orderedList"
	NodeListItem       = "listItem"
	NodeCodeBlock      = "codeBlock"
	NodeTable          = "table"
	NodeTableRow       = "tableRow"
	NodeTableCell      = "tableCell"
	NodeHorizontalRule = "horizontalRule"
	NodeText           = "text"
)

// Mark types for inline formatting.
const (
	MarkBold   = "bold"
	MarkItalic = "italic"
	MarkCode   = "code"
	MarkStrike = "strike"
	MarkLink   = "link"
)

// Node represents a node in the page document tree
type Node struct {
	Attrs   map[string]any `json:"attrs,omitempty"`
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark represents a text mark (formatting)
type Mark struct {
	Attrs map[string]any `json:"attrs,omitempty"`
	Type  string         `json:"type"`
}

// Document is the root of a page tree. Its Type is always NodeDoc.
type Document = Node

// NewDocument creates a document with the given top-level blocks.
func NewDocument(blocks ...Node) Document {
	return Document{Type: NodeDoc, Content: blocks}
}

// NewTextDocument creates a document with one paragraph per line of text.
func NewTextDocument(text string) Document {
	if text == "" {
		return NewDocument()
	}
	lines := strings.Split(text, "\n")
	blocks := make([]Node, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, Paragraph(line))
	}
	return NewDocument(blocks...)
}

// Paragraph creates a paragraph with plain text.
func Paragraph(text string) Node {
	return Node{Type: NodeParagraph, Content: textContent(text)}
}

// Heading creates a heading of the given level.
func Heading(level int, text string) Node {
	return Node{
		Type:    NodeHeading,
		Attrs:   map[string]any{"level": level},
		Content: textContent(text),
	}
}

// Text creates a text node with optional marks.
func Text(text string, marks ...Mark) Node {
	return Node{Type: NodeText, Text: text, Marks: marks}
}

func textContent(text string) []Node {
	if text == "" {
		return nil
	}
	return []Node{Text(text)}
}

// PlainText returns the text of the node with blocks separated by newlines.
func (n Node) PlainText() string {
	var lines []string
	n.collectLines(&lines)
	return strings.Join(lines, "\n")
}

func (n Node) collectLines(lines *[]string) {
	switch n.Type {
	case NodeText:
		*lines = append(*lines, n.Text)
	case NodeParagraph, NodeHeading, NodeCodeBlock:
		var b strings.Builder
		for _, child := range n.Content {
			b.WriteString(child.Text)
		}
		*lines = append(*lines, b.String())
	default:
		for _, child := range n.Content {
			child.collectLines(lines)
		}
	}
}

// IsEmpty reports whether the document has no text and no structural blocks.
func (n Node) IsEmpty() bool {
	return len(n.Content) == 0 && n.Text == ""
}

// MarshalDocument serializes a document for persistence.
func MarshalDocument(doc Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// UnmarshalDocument parses a persisted document.
func UnmarshalDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if doc.Type == "" {
		doc.Type = NodeDoc
	}
	if doc.Type != NodeDoc {
		return Document{}, fmt.Errorf("unexpected root node type %q", doc.Type)
	}
	return doc, nil
}
