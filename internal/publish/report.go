package publish

import (
	"fmt"
	"io"
	"sync"

	"confpress/internal/docs"
)

// Action is the outcome of publishing one page.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
	ActionFailed  Action = "failed"
)

// AttachmentResult records one attachment sync outcome.
type AttachmentResult struct {
	Filename string
	Uploaded bool
	Err      error
}

// PublishResult is the outcome for a single page in the run.
type PublishResult struct {
	Title       string
	Action      Action
	Kind        ErrorKind
	Err         error
	Warnings    []string
	Attachments []AttachmentResult
}

// Report accumulates per-page results. Append is safe under the
// orchestrator's sibling concurrency.
type Report struct {
	mu      sync.Mutex
	results map[string]PublishResult
}

func NewReport() *Report {
	return &Report{results: make(map[string]PublishResult)}
}

func (r *Report) add(result PublishResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.Title] = result
}

// Result returns the recorded result for a page title.
func (r *Report) Result(title string) (PublishResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.results[title]
	return result, ok
}

// HasFailures reports whether any page failed; drives the exit status.
func (r *Report) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, result := range r.results {
		if result.Action == ActionFailed {
			return true
		}
	}
	return false
}

// Counts returns the number of pages per action.
func (r *Report) Counts() map[Action]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Action]int)
	for _, result := range r.results {
		counts[result.Action]++
	}
	return counts
}

// Render prints the report as a tree in navigation order.
func (r *Report) Render(w io.Writer, tree *docs.Tree) {
	var rec func(indices []int, level int)
	rec = func(indices []int, level int) {
		for i, idx := range indices {
			node := &tree.Nodes[idx]
			prefix := ""
			for j := 0; j < level; j++ {
				prefix += "  "
			}
			if level > 0 {
				if i == len(indices)-1 {
					prefix += "└── "
				} else {
					prefix += "├── "
				}
			}

			result, ok := r.Result(node.Title)
			if !ok {
				fmt.Fprintf(w, "%s❔ %s (not visited)\n", prefix, node.Title)
				continue
			}

			var icon, status string
			switch result.Action {
			case ActionCreated:
				icon, status = "🆕", "created"
			case ActionUpdated:
				icon, status = "📝", "updated"
			case ActionSkipped:
				icon, status = "✅", "up to date"
			case ActionFailed:
				icon, status = "❌", fmt.Sprintf("failed (%s): %v", result.Kind, result.Err)
			}
			fmt.Fprintf(w, "%s%s %s (%s)\n", prefix, icon, node.Title, status)

			for _, warning := range result.Warnings {
				fmt.Fprintf(w, "%s   ⚠ %s\n", prefix, warning)
			}
			for _, att := range result.Attachments {
				switch {
				case att.Err != nil:
					fmt.Fprintf(w, "%s   ⚠ attachment %s: %v\n", prefix, att.Filename, att.Err)
				case att.Uploaded:
					fmt.Fprintf(w, "%s   📎 attachment %s uploaded\n", prefix, att.Filename)
				}
			}

			rec(node.Children, level+1)
		}
	}
	rec(tree.Roots, 0)

	counts := r.Counts()
	fmt.Fprintf(w, "\n%d created, %d updated, %d up to date, %d failed\n",
		counts[ActionCreated], counts[ActionUpdated], counts[ActionSkipped], counts[ActionFailed])
}
