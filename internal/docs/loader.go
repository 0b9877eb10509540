package docs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"confpress/pkg/logger"
)

// Loader builds a navigation tree from the markdown files under a directory.
// Directories become section pages; an index.md or README.md inside a
// directory supplies the section's own body.
type Loader struct {
	docsDir string
	exclude []string
	log     *logger.Logger
}

func NewLoader(docsDir string, exclude []string, log *logger.Logger) *Loader {
	return &Loader{docsDir: docsDir, exclude: exclude, log: log}
}

type docMatter struct {
	Title string `yaml:"title"`
}

var titleCaser = cases.Title(language.English)

// Load walks the docs directory and returns the navigation tree. Directory
// entries are visited in sorted order, so the tree is deterministic for a
// given filesystem state. Duplicate page titles are a configuration error.
func (l *Loader) Load() (*Tree, error) {
	root, err := filepath.Abs(l.docsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve docs directory: %w", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("docs directory not found: %s", l.docsDir)
	}

	tree := &Tree{RootDir: root}
	roots, err := l.loadDir(tree, root, true)
	if err != nil {
		return nil, err
	}
	tree.Roots = roots

	if err := checkDuplicateTitles(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (l *Loader) loadDir(tree *Tree, dir string, isRoot bool) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var children []int
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			idx, err := l.loadSection(tree, path)
			if err != nil {
				return nil, err
			}
			if idx >= 0 {
				children = append(children, idx)
			}
			continue
		}

		if !isMarkdown(entry.Name()) {
			continue
		}
		if l.excluded(entry.Name()) {
			l.log.Debug("skipping excluded file %s", path)
			continue
		}
		if !isRoot && isIndexFile(entry.Name()) {
			// Consumed by the parent section node.
			continue
		}

		idx, err := l.loadDocument(tree, path)
		if err != nil {
			return nil, err
		}
		children = append(children, idx)
	}

	return children, nil
}

// loadSection turns a directory into a section node. Directories without any
// markdown beneath them produce no node (index -1).
func (l *Loader) loadSection(tree *Tree, dir string) (int, error) {
	indexPath := findIndexFile(dir)

	idx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{})

	children, err := l.loadDir(tree, dir, false)
	if err != nil {
		return -1, err
	}

	if indexPath == "" && len(children) == 0 {
		// Nothing below; drop the placeholder (it is the last node).
		tree.Nodes = tree.Nodes[:idx]
		return -1, nil
	}

	node := Node{Dir: dir, Children: children}
	if indexPath != "" {
		doc, err := l.readDocument(indexPath)
		if err != nil {
			return -1, err
		}
		node.Title = doc.Title
		node.Path = indexPath
		node.Source = doc.Source
	} else {
		dirName := filepath.Base(dir)
		node.Title = titleCaser.String(strings.ReplaceAll(dirName, "-", " "))
		node.Synthetic = true
		node.Source = []byte(sectionBody(node.Title))
	}
	tree.Nodes[idx] = node
	return idx, nil
}

func (l *Loader) loadDocument(tree *Tree, path string) (int, error) {
	doc, err := l.readDocument(path)
	if err != nil {
		return -1, err
	}
	idx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{
		Title:  doc.Title,
		Path:   path,
		Dir:    filepath.Dir(path),
		Source: doc.Source,
	})
	return idx, nil
}

type document struct {
	Title  string
	Source []byte
}

// readDocument extracts front matter and resolves the page title: front
// matter first, then the first level-one heading, then the filename.
func (l *Loader) readDocument(path string) (*document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var matter docMatter
	body, err := frontmatter.Parse(bytes.NewReader(raw), &matter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse front matter in %s: %w", path, err)
	}

	title := strings.TrimSpace(matter.Title)
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &document{Title: title, Source: body}, nil
}

func firstHeading(source []byte) string {
	for _, line := range strings.Split(string(source), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

func (l *Loader) excluded(name string) bool {
	for _, pattern := range l.exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func isMarkdown(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func isIndexFile(name string) bool {
	switch strings.ToLower(name) {
	case "index.md", "readme.md":
		return true
	}
	return false
}

func findIndexFile(dir string) string {
	for _, name := range []string{"index.md", "README.md", "readme.md"} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// sectionBody is the generated markdown of a directory page. The publisher
// appends a children macro so the section lists its pages automatically.
func sectionBody(title string) string {
	return fmt.Sprintf("# %s\n\nPages in this section:\n", title)
}

func checkDuplicateTitles(tree *Tree) error {
	byTitle := make(map[string]string, len(tree.Nodes))
	for i := range tree.Nodes {
		node := &tree.Nodes[i]
		where := node.Path
		if where == "" {
			where = node.Dir
		}
		if prev, dup := byTitle[node.Title]; dup {
			return fmt.Errorf("duplicate page title %q (%s and %s): titles must be unique within a publish run", node.Title, prev, where)
		}
		byTitle[node.Title] = where
	}
	return nil
}
