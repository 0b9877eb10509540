package publish

import (
	"fmt"
	"regexp"
	"strings"
)

// Cross-page links are rendered as placeholder tokens in the first pass;
// once the whole tree's titles are indexed they are patched to Confluence
// page links. Targets outside the tree fall back to the original relative
// hyperlink, so patching is best-effort and never fatal.
var xrefPattern = regexp.MustCompile(`(?s)<confpress-xref target="([^"]*)" href="([^"]*)">(.*?)</confpress-xref>`)

// PatchCrossLinks rewrites xref tokens in a rendered body using the
// path-to-title index of the current run.
func PatchCrossLinks(body string, titleByPath map[string]string) string {
	return xrefPattern.ReplaceAllStringFunc(body, func(token string) string {
		m := xrefPattern.FindStringSubmatch(token)
		target := unescapeAttr(m[1])
		href := m[2]
		text := m[3]

		title, ok := titleByPath[target]
		if !ok {
			return fmt.Sprintf(`<a href="%s">%s</a>`, href, text)
		}
		return fmt.Sprintf(`<ac:link><ri:page ri:content-title="%s"/><ac:link-body>%s</ac:link-body></ac:link>`, escapeAttr(title), text)
	})
}

func escapeAttr(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = strings.ReplaceAll(text, "\"", "&quot;")
	return text
}

func unescapeAttr(text string) string {
	text = strings.ReplaceAll(text, "&quot;", "\"")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&amp;", "&")
	return text
}
