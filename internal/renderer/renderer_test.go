package renderer

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func render(t *testing.T, source string, opts Options) *RenderedPage {
	t.Helper()
	page, err := Render([]byte(source), "Test Page", opts)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return page
}

func TestRenderHeadingsAndParagraphs(t *testing.T) {
	page := render(t, "# Title\n\nSome *emphasis* and **bold** text.\n\n## Section\n", Options{})

	for _, want := range []string{
		"<h1>Title</h1>",
		"<h2>Section</h2>",
		"<p>Some <em>emphasis</em> and <strong>bold</strong> text.</p>",
	} {
		if !strings.Contains(page.Body, want) {
			t.Errorf("body missing %q\nbody: %s", want, page.Body)
		}
	}
}

func TestRenderEscapesText(t *testing.T) {
	page := render(t, "AT&T uses <angle> brackets\n", Options{})

	if !strings.Contains(page.Body, "AT&amp;T uses &lt;angle&gt; brackets") {
		t.Errorf("special characters not escaped: %s", page.Body)
	}
}

func TestRenderCodeBlock(t *testing.T) {
	page := render(t, "```go\nfmt.Println(\"hi\")\n```\n", Options{})

	wantLang := `<ac:parameter ac:name="language">go</ac:parameter>`
	wantBody := `<![CDATA[fmt.Println("hi")]]>`
	if !strings.Contains(page.Body, wantLang) {
		t.Errorf("missing language parameter: %s", page.Body)
	}
	if !strings.Contains(page.Body, wantBody) {
		t.Errorf("missing CDATA body: %s", page.Body)
	}
}

func TestRenderCodeBlockSplitsCDATATerminator(t *testing.T) {
	page := render(t, "```\na]]>b\n```\n", Options{})

	if strings.Contains(page.Body, "a]]>b") {
		t.Errorf("CDATA terminator not split: %s", page.Body)
	}
	if !strings.Contains(page.Body, "a]]]]><![CDATA[>b") {
		t.Errorf("expected split CDATA sequence: %s", page.Body)
	}
}

func TestRenderInlineCode(t *testing.T) {
	page := render(t, "Use `go build` here.\n", Options{})

	if !strings.Contains(page.Body, "<code>go build</code>") {
		t.Errorf("inline code not rendered: %s", page.Body)
	}
}

func TestRenderLists(t *testing.T) {
	page := render(t, "- one\n- two\n  - nested\n\n1. first\n2. second\n", Options{})

	for _, want := range []string{"<ul>", "<li>one</li>", "<li>nested</li>", "<ol>", "<li>first</li>"} {
		if !strings.Contains(page.Body, want) {
			t.Errorf("body missing %q\nbody: %s", want, page.Body)
		}
	}
}

func TestRenderTable(t *testing.T) {
	source := "| Name | Value |\n|------|-------|\n| a    | 1     |\n| b    | 2     |\n"
	page := render(t, source, Options{})

	for _, want := range []string{
		"<table><tbody>",
		"<tr><th>Name</th><th>Value</th></tr>",
		"<tr><td>a</td><td>1</td></tr>",
		"</tbody></table>",
	} {
		if !strings.Contains(page.Body, want) {
			t.Errorf("body missing %q\nbody: %s", want, page.Body)
		}
	}
}

func TestRenderMalformedTable(t *testing.T) {
	source := "| A | B |\n|---|---|\n| only-one-cell |\n"
	_, err := Render([]byte(source), "Bad Table", Options{})

	var tableErr *MalformedTableError
	if !errors.As(err, &tableErr) {
		t.Fatalf("expected MalformedTableError, got %v", err)
	}
	if tableErr.HeaderCells != 2 || tableErr.RowCells != 1 {
		t.Errorf("unexpected cell counts: header=%d row=%d", tableErr.HeaderCells, tableErr.RowCells)
	}
}

func TestRenderAdmonitions(t *testing.T) {
	tests := []struct {
		kind  string
		macro string
	}{
		{"NOTE", "info"},
		{"TIP", "tip"},
		{"IMPORTANT", "note"},
		{"WARNING", "warning"},
		{"CAUTION", "warning"},
	}
	for _, tt := range tests {
		source := "> [!" + tt.kind + "]\n> Something worth knowing.\n"
		page := render(t, source, Options{})

		want := `<ac:structured-macro ac:name="` + tt.macro + `"`
		if !strings.Contains(page.Body, want) {
			t.Errorf("%s: missing macro %q\nbody: %s", tt.kind, tt.macro, page.Body)
		}
		if strings.Contains(page.Body, "[!"+tt.kind+"]") {
			t.Errorf("%s: marker not stripped: %s", tt.kind, page.Body)
		}
		if !strings.Contains(page.Body, "Something worth knowing.") {
			t.Errorf("%s: callout text lost: %s", tt.kind, page.Body)
		}
	}
}

func TestRenderUnknownCalloutStaysBlockquote(t *testing.T) {
	page := render(t, "> [!BOGUS]\n> text\n", Options{})

	if !strings.Contains(page.Body, "<blockquote>") {
		t.Errorf("unknown callout should stay a blockquote: %s", page.Body)
	}
	if !strings.Contains(page.Body, "[!BOGUS]") {
		t.Errorf("unknown marker should be kept verbatim: %s", page.Body)
	}
}

func TestRenderPlainBlockquote(t *testing.T) {
	page := render(t, "> quoted text\n", Options{})

	if !strings.Contains(page.Body, "<blockquote>") || !strings.Contains(page.Body, "quoted text") {
		t.Errorf("blockquote not rendered: %s", page.Body)
	}
}

func TestRenderExternalLink(t *testing.T) {
	page := render(t, "[example](https://example.com/a?b=1)\n", Options{})

	if !strings.Contains(page.Body, `<a href="https://example.com/a?b=1">example</a>`) {
		t.Errorf("external link not rendered: %s", page.Body)
	}
}

func TestRenderCrossPageLinkToken(t *testing.T) {
	opts := Options{DocDir: filepath.Join("/docs", "guide")}
	page := render(t, "See [the intro](../intro.md).\n", opts)

	want := `<confpress-xref target="/docs/intro.md" href="../intro.md">the intro</confpress-xref>`
	if !strings.Contains(page.Body, want) {
		t.Errorf("cross-page token not emitted\nwant: %s\nbody: %s", want, page.Body)
	}
}

func TestRenderCrossPageLinkIgnoresFragment(t *testing.T) {
	opts := Options{DocDir: "/docs"}
	page := render(t, "[section](other.md#setup)\n", opts)

	if !strings.Contains(page.Body, `target="/docs/other.md"`) {
		t.Errorf("fragment should not affect the resolved target: %s", page.Body)
	}
}

func TestRenderAnchorLinkStaysPlain(t *testing.T) {
	page := render(t, "[jump](#section)\n", Options{})

	if !strings.Contains(page.Body, `<a href="#section">jump</a>`) {
		t.Errorf("in-page anchor should stay a plain link: %s", page.Body)
	}
}

func TestRenderLocalImage(t *testing.T) {
	opts := Options{
		DocDir:     "/docs/guide",
		DocsRoot:   "/docs",
		FileExists: func(string) bool { return true },
	}
	page := render(t, "![diagram](img/flow.png)\n", opts)

	want := `<ac:image ac:alt="diagram"><ri:attachment ri:filename="flow.png"/></ac:image>`
	if !strings.Contains(page.Body, want) {
		t.Errorf("image not rendered as attachment\nwant: %s\nbody: %s", want, page.Body)
	}
	if len(page.ImageRefs) != 1 {
		t.Fatalf("expected 1 image ref, got %d", len(page.ImageRefs))
	}
	if page.ImageRefs[0].Filename != "flow.png" {
		t.Errorf("unexpected filename: %s", page.ImageRefs[0].Filename)
	}
	if page.ImageRefs[0].Path != filepath.Clean("/docs/guide/img/flow.png") {
		t.Errorf("unexpected resolved path: %s", page.ImageRefs[0].Path)
	}
}

func TestRenderRemoteImage(t *testing.T) {
	page := render(t, "![logo](https://example.com/logo.png)\n", Options{})

	if !strings.Contains(page.Body, `<ri:url ri:value="https://example.com/logo.png"/>`) {
		t.Errorf("remote image not rendered as URL: %s", page.Body)
	}
	if len(page.ImageRefs) != 0 {
		t.Errorf("remote images must not produce attachment refs: %v", page.ImageRefs)
	}
}

func TestRenderMissingImageDegradesToLink(t *testing.T) {
	opts := Options{
		DocDir:     "/docs",
		DocsRoot:   "/docs",
		FileExists: func(string) bool { return false },
	}
	page := render(t, "![gone](missing.png)\n", opts)

	if !strings.Contains(page.Body, `<a href="missing.png">gone</a>`) {
		t.Errorf("missing image should degrade to a link: %s", page.Body)
	}
	if len(page.ImageRefs) != 0 {
		t.Errorf("missing image must not be queued for upload: %v", page.ImageRefs)
	}
	if len(page.Warnings) != 1 {
		t.Errorf("expected a warning, got %v", page.Warnings)
	}
}

func TestRenderImageEscapingDocsRoot(t *testing.T) {
	opts := Options{
		DocDir:     "/docs",
		DocsRoot:   "/docs",
		FileExists: func(string) bool { return true },
	}
	page := render(t, "![secret](../../etc/passwd.png)\n", opts)

	if strings.Contains(page.Body, "<ac:image") {
		t.Errorf("image escaping the docs root must not become an attachment: %s", page.Body)
	}
	if len(page.Warnings) != 1 {
		t.Errorf("expected a warning, got %v", page.Warnings)
	}
}

func TestRenderDuplicateImageFilenames(t *testing.T) {
	opts := Options{
		DocDir:     "/docs",
		DocsRoot:   "/docs",
		FileExists: func(string) bool { return true },
	}
	page := render(t, "![a](one/pic.png)\n\n![b](two/pic.png)\n", opts)

	if len(page.ImageRefs) != 1 {
		t.Fatalf("expected first reference to win, got %d refs", len(page.ImageRefs))
	}
	if page.ImageRefs[0].Path != filepath.Clean("/docs/one/pic.png") {
		t.Errorf("unexpected surviving path: %s", page.ImageRefs[0].Path)
	}
	if len(page.Warnings) != 1 {
		t.Errorf("expected a collision warning, got %v", page.Warnings)
	}
}

func TestRenderThematicBreakAndStrikethrough(t *testing.T) {
	page := render(t, "before\n\n---\n\n~~gone~~\n", Options{})

	if !strings.Contains(page.Body, "<hr/>") {
		t.Errorf("thematic break missing: %s", page.Body)
	}
	if !strings.Contains(page.Body, "<s>gone</s>") {
		t.Errorf("strikethrough missing: %s", page.Body)
	}
}

func TestRenderInlineRawHTML(t *testing.T) {
	page := render(t, "press <kbd>Ctrl</kbd> to continue\n", Options{})

	if !strings.Contains(page.Body, "<kbd>Ctrl</kbd>") {
		t.Errorf("inline HTML not passed through: %s", page.Body)
	}
}

func TestRenderHTMLBlockPassthrough(t *testing.T) {
	page := render(t, "<div class=\"callout\">\nraw block\n</div>\n", Options{})

	if !strings.Contains(page.Body, `<div class="callout">`) {
		t.Errorf("HTML block not passed through: %s", page.Body)
	}
	if !strings.Contains(page.Body, "raw block") {
		t.Errorf("HTML block content lost: %s", page.Body)
	}
}

func TestRenderDeterministic(t *testing.T) {
	source := "# T\n\ntext with [link](https://x.example) and `code`\n"
	first := render(t, source, Options{})
	second := render(t, source, Options{})

	if first.Body != second.Body {
		t.Errorf("render is not deterministic:\n%s\nvs\n%s", first.Body, second.Body)
	}
}
