package notebook

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// markdownCell matches the body of a Pluto markdown cell: md"""...""" or md"...".
var markdownCell = regexp.MustCompile(`(?s)md"""(.*?)"""|md"((?:[^"\\\n]|\\.)*)"`)

// Outliner reads headings out of the markdown cells of a notebook.
type Outliner struct {
	parser goldmark.Markdown
}

// NewOutliner creates an Outliner configured with the goldmark parser.
func NewOutliner() *Outliner {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Outliner{parser: md}
}

// MarkdownCells returns the markdown source of every md cell, in file order.
func MarkdownCells(source []byte) [][]byte {
	var cells [][]byte
	for _, m := range markdownCell.FindAllSubmatch(source, -1) {
		body := m[1]
		if body == nil {
			body = m[2]
		}
		cells = append(cells, bytes.TrimSpace(body))
	}
	return cells
}

// Outline returns the H1 and H2 headings of all markdown cells.
// Nested headings are rendered as "# Parent > ## Child".
func (o *Outliner) Outline(source []byte) ([]string, error) {
	var headings []string
	for _, cell := range MarkdownCells(source) {
		doc := o.parser.Parser().Parse(text.NewReader(cell))
		tree, err := toc.Inspect(doc, cell,
			toc.MinDepth(1),
			toc.MaxDepth(2),
			toc.Compact(true),
		)
		if err != nil {
			return nil, fmt.Errorf("inspect TOC: %w", err)
		}
		collectHeadings(tree.Items, nil, &headings)
	}
	return headings, nil
}

// Title returns the first heading of the first markdown cell that has one,
// or "" when the notebook has no headings.
func (o *Outliner) Title(source []byte) string {
	for _, cell := range MarkdownCells(source) {
		doc := o.parser.Parser().Parse(text.NewReader(cell))
		tree, err := toc.Inspect(doc, cell, toc.Compact(true))
		if err != nil || len(tree.Items) == 0 {
			continue
		}
		if t := firstTitle(tree.Items); t != "" {
			return t
		}
	}
	return ""
}

func firstTitle(items toc.Items) string {
	for _, item := range items {
		if len(item.Title) > 0 {
			return string(item.Title)
		}
		if t := firstTitle(item.Items); t != "" {
			return t
		}
	}
	return ""
}

// collectHeadings flattens TOC items into header paths.
func collectHeadings(items toc.Items, ancestors []string, out *[]string) {
	for _, item := range items {
		current := append(append([]string(nil), ancestors...), string(item.Title))
		if len(item.Title) > 0 {
			*out = append(*out, formatHeaderPath(current))
		}
		if len(item.Items) > 0 {
			collectHeadings(item.Items, current, out)
		}
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Intro", "Setup"] -> "# Intro > ## Setup"
func formatHeaderPath(path []string) string {
	parts := make([]string, 0, len(path))
	for i, segment := range path {
		parts = append(parts, fmt.Sprintf("%s %s", strings.Repeat("#", i+1), segment))
	}
	return strings.Join(parts, " > ")
}
