package confluence

import "context"

// API defines the Confluence operations the rest of the tool consumes.
type API interface {
	SearchPagesByTitle(ctx context.Context, spaceKey, title string) ([]Page, error)
	GetPage(ctx context.Context, pageID string) (*Page, error)
	CreatePage(ctx context.Context, spaceKey, title, content, parentID, message string) (*Page, error)
	UpdatePage(ctx context.Context, pageID, title, content string, version int, message string) (*Page, error)
	ListAttachments(ctx context.Context, pageID string) ([]Attachment, error)
	UploadAttachment(ctx context.Context, pageID, filename string, data []byte, comment string) (*Attachment, error)
	GetPageHierarchy(ctx context.Context, spaceKey, parentPageTitle string) ([]PageInfo, error)
}

// Ensure Client implements the interface
var _ API = (*Client)(nil)
