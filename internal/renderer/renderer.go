// Package renderer converts markdown documents into Confluence storage
// format. Rendering is a pure function of the source: the only filesystem
// knowledge comes in through Options, so tests can run without I/O.
package renderer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// ImageRef is a local image referenced by a document, destined to become a
// page attachment keyed by its base filename.
type ImageRef struct {
	Path     string // resolved path on disk
	Filename string // attachment filename (base name)
}

// RenderedPage is the storage-format rendition of one document.
type RenderedPage struct {
	Title     string
	Body      string
	ImageRefs []ImageRef
	Warnings  []string
}

// Options carries the per-document context the renderer needs.
type Options struct {
	// DocDir is the directory of the source document; relative image and
	// cross-page link paths resolve against it.
	DocDir string
	// DocsRoot, when set, bounds image resolution: references escaping it
	// degrade to plain links.
	DocsRoot string
	// FileExists, when set, is consulted for local image paths; absent
	// files degrade to plain links. Nil means assume present.
	FileExists func(path string) bool
}

// MalformedTableError rejects a table whose row width differs from its
// header row.
type MalformedTableError struct {
	HeaderCells int
	RowCells    int
}

func (e *MalformedTableError) Error() string {
	return fmt.Sprintf("malformed table: row has %d cells, header has %d", e.RowCells, e.HeaderCells)
}

var parser = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Render converts one markdown document into storage format and collects its
// local image references. Structural errors (malformed tables) fail only
// this document.
func Render(source []byte, title string, opts Options) (*RenderedPage, error) {
	doc := parser.Parser().Parse(text.NewReader(source))

	st := &state{src: source, opts: opts, seen: make(map[string]string)}
	if err := st.renderChildren(doc); err != nil {
		return nil, err
	}

	return &RenderedPage{
		Title:     title,
		Body:      strings.TrimSuffix(st.buf.String(), "\n"),
		ImageRefs: st.refs,
		Warnings:  st.warnings,
	}, nil
}

type state struct {
	src      []byte
	opts     Options
	buf      bytes.Buffer
	refs     []ImageRef
	seen     map[string]string // filename -> path already referenced
	warnings []string
}

func (s *state) renderChildren(n ast.Node) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := s.renderBlock(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) renderBlock(n ast.Node) error {
	switch node := n.(type) {
	case *ast.Heading:
		inner, err := s.renderInlines(node)
		if err != nil {
			return err
		}
		fmt.Fprintf(&s.buf, "<h%d>%s</h%d>\n", node.Level, inner, node.Level)

	case *ast.Paragraph:
		inner, err := s.renderInlines(node)
		if err != nil {
			return err
		}
		s.buf.WriteString("<p>" + inner + "</p>\n")

	case *ast.TextBlock:
		inner, err := s.renderInlines(node)
		if err != nil {
			return err
		}
		s.buf.WriteString(inner)

	case *ast.FencedCodeBlock:
		s.renderCode(string(node.Language(s.src)), blockText(node, s.src))

	case *ast.CodeBlock:
		s.renderCode("", blockText(node, s.src))

	case *ast.Blockquote:
		return s.renderBlockquote(node)

	case *ast.List:
		return s.renderList(node)

	case *ast.ThematicBreak:
		s.buf.WriteString("<hr/>\n")

	case *ast.HTMLBlock:
		s.buf.WriteString(blockText(node, s.src))
		if node.HasClosure() {
			s.buf.Write(node.ClosureLine.Value(s.src))
		}

	case *east.Table:
		return s.renderTable(node)

	default:
		return s.renderChildren(n)
	}
	return nil
}

// renderCode emits the code structured macro with the language hint and a
// CDATA body. CDATA terminators inside the code are split so the source
// round-trips exactly.
func (s *state) renderCode(lang, code string) {
	code = strings.TrimSuffix(code, "\n")
	if lang != "" {
		fmt.Fprintf(&s.buf, `<ac:structured-macro ac:name="code" ac:schema-version="1"><ac:parameter ac:name="language">%s</ac:parameter><ac:plain-text-body><![CDATA[%s]]></ac:plain-text-body></ac:structured-macro>`, escapeText(lang), escapeCDATA(code))
	} else {
		fmt.Fprintf(&s.buf, `<ac:structured-macro ac:name="code" ac:schema-version="1"><ac:plain-text-body><![CDATA[%s]]></ac:plain-text-body></ac:structured-macro>`, escapeCDATA(code))
	}
	s.buf.WriteString("\n")
}

// admonitionMacros maps GitHub-style callout kinds to the nearest Confluence
// macro. Unknown kinds fall back to a plain blockquote.
var admonitionMacros = map[string]string{
	"NOTE":      "info",
	"TIP":       "tip",
	"IMPORTANT": "note",
	"WARNING":   "warning",
	"CAUTION":   "warning",
}

func (s *state) renderBlockquote(n *ast.Blockquote) error {
	kind, ok := calloutKind(n, s.src)
	macro := ""
	if ok {
		macro = admonitionMacros[kind]
	}

	sub := &state{src: s.src, opts: s.opts, seen: s.seen}
	if err := sub.renderChildren(n); err != nil {
		return err
	}
	s.refs = append(s.refs, sub.refs...)
	s.warnings = append(s.warnings, sub.warnings...)
	inner := sub.buf.String()

	if macro == "" {
		s.buf.WriteString("<blockquote>\n" + inner + "</blockquote>\n")
		return nil
	}

	inner = stripCalloutMarker(inner, kind)
	fmt.Fprintf(&s.buf, `<ac:structured-macro ac:name="%s" ac:schema-version="1"><ac:rich-text-body>%s</ac:rich-text-body></ac:structured-macro>`, macro, strings.TrimSuffix(inner, "\n"))
	s.buf.WriteString("\n")
	return nil
}

// calloutKind detects a leading "[!KIND]" marker on the first line of the
// blockquote's first paragraph. The check reads the source line directly;
// the bracket is split across text nodes when it fails to parse as a link.
func calloutKind(n *ast.Blockquote, src []byte) (string, bool) {
	para, ok := n.FirstChild().(*ast.Paragraph)
	if !ok {
		return "", false
	}
	if para.Lines().Len() == 0 {
		return "", false
	}
	seg := para.Lines().At(0)
	v := strings.TrimSpace(string(seg.Value(src)))
	if !strings.HasPrefix(v, "[!") {
		return "", false
	}
	end := strings.Index(v, "]")
	if end < 3 || end != len(v)-1 {
		return "", false
	}
	kind := v[2:end]
	for _, r := range kind {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return kind, true
}

func stripCalloutMarker(body, kind string) string {
	marker := "[!" + kind + "]"
	// Marker alone in its own paragraph.
	if strings.Contains(body, "<p>"+marker+"</p>\n") {
		return strings.Replace(body, "<p>"+marker+"</p>\n", "", 1)
	}
	// Marker on the first line of a multi-line paragraph.
	if strings.Contains(body, "<p>"+marker+"\n") {
		return strings.Replace(body, "<p>"+marker+"\n", "<p>", 1)
	}
	return strings.Replace(body, marker, "", 1)
}

func (s *state) renderList(n *ast.List) error {
	tag := "ul"
	if n.IsOrdered() {
		tag = "ol"
	}
	s.buf.WriteString("<" + tag + ">\n")
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		s.buf.WriteString("<li>")
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch child := c.(type) {
			case *ast.TextBlock, *ast.Paragraph:
				inner, err := s.renderInlines(child)
				if err != nil {
					return err
				}
				s.buf.WriteString(inner)
			case *ast.List:
				s.buf.WriteString("\n")
				if err := s.renderList(child); err != nil {
					return err
				}
			default:
				if err := s.renderBlock(c); err != nil {
					return err
				}
			}
		}
		s.buf.WriteString("</li>\n")
	}
	s.buf.WriteString("</" + tag + ">\n")
	return nil
}

func (s *state) renderTable(n *east.Table) error {
	header, ok := n.FirstChild().(*east.TableHeader)
	if !ok {
		return &MalformedTableError{}
	}
	headerCells := childCount(header)

	s.buf.WriteString("<table><tbody>\n")
	if err := s.renderTableRow(header, "th"); err != nil {
		return err
	}
	for row := header.NextSibling(); row != nil; row = row.NextSibling() {
		if cells := childCount(row); cells != headerCells {
			return &MalformedTableError{HeaderCells: headerCells, RowCells: cells}
		}
		if err := s.renderTableRow(row, "td"); err != nil {
			return err
		}
	}
	s.buf.WriteString("</tbody></table>\n")
	return nil
}

func (s *state) renderTableRow(row ast.Node, cellTag string) error {
	s.buf.WriteString("<tr>")
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		inner, err := s.renderInlines(cell)
		if err != nil {
			return err
		}
		s.buf.WriteString("<" + cellTag + ">" + inner + "</" + cellTag + ">")
	}
	s.buf.WriteString("</tr>\n")
	return nil
}

func childCount(n ast.Node) int {
	count := 0
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		count++
	}
	return count
}

func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}
