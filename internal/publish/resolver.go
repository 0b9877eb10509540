package publish

import (
	"context"
	"regexp"

	"confpress/internal/confluence"
)

// RemotePageRef identifies an existing remote page. Fingerprint is the
// content hash recorded at the last publish, empty when the page was never
// published by this tool or was edited out-of-band.
type RemotePageRef struct {
	ID          string
	Version     int
	Title       string
	Fingerprint string
}

// Resolver maps a page title to its remote identity. Lookups are exact-match
// and never normalized; matching rules belong to the server.
type Resolver struct {
	client confluence.API
	space  string
}

func NewResolver(client confluence.API, space string) *Resolver {
	return &Resolver{client: client, space: space}
}

// Resolve returns the remote page for a title, nil when no page exists, or
// an AmbiguousTitleError when more than one matches. Transient failures are
// returned as-is for the caller's shared retry policy.
func (r *Resolver) Resolve(ctx context.Context, title string) (*RemotePageRef, error) {
	pages, err := r.client.SearchPagesByTitle(ctx, r.space, title)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}
	if len(pages) > 1 {
		return nil, &AmbiguousTitleError{Title: title, Count: len(pages)}
	}

	page := pages[0]
	return &RemotePageRef{
		ID:          page.ID,
		Version:     page.Version.Number,
		Title:       page.Title,
		Fingerprint: ParseFingerprintMarker(page.Version.Message),
	}, nil
}

// The published fingerprint rides in the version message, so change
// detection needs no local state between runs.
var markerPattern = regexp.MustCompile(`\[v([0-9a-f]{64})\]`)

// ParseFingerprintMarker extracts the content hash from a version message.
// Returns "" when no marker is present.
func ParseFingerprintMarker(message string) string {
	m := markerPattern.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	return m[1]
}

// VersionMessage formats the version message carrying a fingerprint marker.
func VersionMessage(fingerprint string) string {
	return "confpress [v" + fingerprint + "]"
}
