package publish

import "fmt"

// ErrorKind classifies a failed page in the run report.
type ErrorKind string

const (
	KindRender              ErrorKind = "render"
	KindAmbiguousTitle      ErrorKind = "ambiguous-title"
	KindRemoteCall          ErrorKind = "remote-call"
	KindAncestorUnavailable ErrorKind = "ancestor-unavailable"
	KindAttachment          ErrorKind = "attachment"
)

// AmbiguousTitleError means a title lookup returned more than one page.
// Publishing to a first match risks overwriting the wrong page, so this is a
// hard failure rather than a guess.
type AmbiguousTitleError struct {
	Title string
	Count int
}

func (e *AmbiguousTitleError) Error() string {
	return fmt.Sprintf("title %q matches %d pages in the space; titles must resolve to exactly one page", e.Title, e.Count)
}
