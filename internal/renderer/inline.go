package renderer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

// renderInlines renders the inline children of a block node.
func (s *state) renderInlines(n ast.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := s.renderInline(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (s *state) renderInline(buf *bytes.Buffer, n ast.Node) error {
	switch node := n.(type) {
	case *ast.Text:
		buf.WriteString(escapeText(string(node.Segment.Value(s.src))))
		if node.HardLineBreak() {
			buf.WriteString("<br/>")
		} else if node.SoftLineBreak() {
			buf.WriteString("\n")
		}

	case *ast.String:
		buf.WriteString(escapeText(string(node.Value)))

	case *ast.CodeSpan:
		buf.WriteString("<code>" + escapeText(inlineText(node, s.src)) + "</code>")

	case *ast.Emphasis:
		tag := "em"
		if node.Level == 2 {
			tag = "strong"
		}
		buf.WriteString("<" + tag + ">")
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if err := s.renderInline(buf, c); err != nil {
				return err
			}
		}
		buf.WriteString("</" + tag + ">")

	case *east.Strikethrough:
		buf.WriteString("<s>")
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if err := s.renderInline(buf, c); err != nil {
				return err
			}
		}
		buf.WriteString("</s>")

	case *ast.Link:
		return s.renderLink(buf, node)

	case *ast.AutoLink:
		url := string(node.URL(s.src))
		fmt.Fprintf(buf, `<a href="%s">%s</a>`, escapeAttr(url), escapeText(string(node.Label(s.src))))

	case *ast.Image:
		s.renderImage(buf, node)

	case *ast.RawHTML:
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			buf.Write(seg.Value(s.src))
		}

	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if err := s.renderInline(buf, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderLink emits external links as plain hyperlinks. Links to another
// local markdown document become cross-reference tokens the publisher
// patches to page links once the run's title index is known; unpatched
// tokens degrade back to relative hyperlinks.
func (s *state) renderLink(buf *bytes.Buffer, n *ast.Link) error {
	var inner bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := s.renderInline(&inner, c); err != nil {
			return err
		}
	}

	dest := string(n.Destination)
	if target, ok := s.localDocTarget(dest); ok {
		fmt.Fprintf(buf, `<confpress-xref target="%s" href="%s">%s</confpress-xref>`, escapeAttr(target), escapeAttr(dest), inner.String())
		return nil
	}

	fmt.Fprintf(buf, `<a href="%s">%s</a>`, escapeAttr(dest), inner.String())
	return nil
}

// localDocTarget resolves a link destination to a local markdown file path,
// ignoring any fragment.
func (s *state) localDocTarget(dest string) (string, bool) {
	if dest == "" || hasScheme(dest) || strings.HasPrefix(dest, "#") {
		return "", false
	}
	path := dest
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
	default:
		return "", false
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.opts.DocDir, path)
	}
	return filepath.Clean(path), true
}

func (s *state) renderImage(buf *bytes.Buffer, n *ast.Image) {
	dest := string(n.Destination)
	alt := inlineText(n, s.src)

	if hasScheme(dest) {
		if alt != "" {
			fmt.Fprintf(buf, `<ac:image ac:alt="%s"><ri:url ri:value="%s"/></ac:image>`, escapeAttr(alt), escapeAttr(dest))
		} else {
			fmt.Fprintf(buf, `<ac:image><ri:url ri:value="%s"/></ac:image>`, escapeAttr(dest))
		}
		return
	}

	resolved := dest
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(s.opts.DocDir, resolved)
	}
	resolved = filepath.Clean(resolved)

	if reason := s.rejectImage(resolved); reason != "" {
		s.warnings = append(s.warnings, fmt.Sprintf("image %s: %s", dest, reason))
		label := alt
		if label == "" {
			label = dest
		}
		fmt.Fprintf(buf, `<a href="%s">%s</a>`, escapeAttr(dest), escapeText(label))
		return
	}

	filename := filepath.Base(resolved)
	if prev, dup := s.seen[filename]; dup {
		if prev != resolved {
			s.warnings = append(s.warnings, fmt.Sprintf("image %s: filename collides with %s; first reference wins", dest, prev))
		}
	} else {
		s.seen[filename] = resolved
		s.refs = append(s.refs, ImageRef{Path: resolved, Filename: filename})
	}

	if alt != "" {
		fmt.Fprintf(buf, `<ac:image ac:alt="%s"><ri:attachment ri:filename="%s"/></ac:image>`, escapeAttr(alt), escapeAttr(filename))
	} else {
		fmt.Fprintf(buf, `<ac:image><ri:attachment ri:filename="%s"/></ac:image>`, escapeAttr(filename))
	}
}

func (s *state) rejectImage(resolved string) string {
	if s.opts.DocsRoot != "" {
		rel, err := filepath.Rel(s.opts.DocsRoot, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "path escapes the docs directory"
		}
	}
	if s.opts.FileExists != nil && !s.opts.FileExists(resolved) {
		return "file not found"
	}
	return ""
}

func hasScheme(dest string) bool {
	return strings.HasPrefix(dest, "http://") ||
		strings.HasPrefix(dest, "https://") ||
		strings.HasPrefix(dest, "mailto:") ||
		strings.HasPrefix(dest, "data:")
}

// inlineText collects the plain text beneath an inline node.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
		} else {
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}

func escapeText(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}

func escapeAttr(text string) string {
	text = escapeText(text)
	text = strings.ReplaceAll(text, "\"", "&quot;")
	return text
}

func escapeCDATA(text string) string {
	return strings.ReplaceAll(text, "]]>", "]]]]><![CDATA[>")
}
