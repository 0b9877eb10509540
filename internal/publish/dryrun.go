package publish

import (
	"context"
	"fmt"
	"sync"
)

// RecordedCreate is one page creation a dry run would have performed.
type RecordedCreate struct {
	Space    string
	Title    string
	ParentID string
	PageID   string // synthesized id, referenced by children and uploads
}

// RecordedUpdate is one page update a dry run would have performed.
type RecordedUpdate struct {
	PageID  string
	Title   string
	Version int
}

// RecordedUpload is one attachment upload a dry run would have performed.
type RecordedUpload struct {
	PageID   string
	Filename string
	Size     int
}

// DryRunSink absorbs mutations without touching the server. Pages it
// "creates" get synthesized ids so descendants and attachments still
// reference a parent, keeping the recorded plan structurally complete.
type DryRunSink struct {
	mu      sync.Mutex
	nextID  int
	Creates []RecordedCreate
	Updates []RecordedUpdate
	Uploads []RecordedUpload
}

func NewDryRunSink() *DryRunSink {
	return &DryRunSink{}
}

func (d *DryRunSink) CreatePage(ctx context.Context, space, title, body, parentID, message string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := fmt.Sprintf("dry-run-%d", d.nextID)
	d.Creates = append(d.Creates, RecordedCreate{Space: space, Title: title, ParentID: parentID, PageID: id})
	return id, nil
}

func (d *DryRunSink) UpdatePage(ctx context.Context, pageID, title, body string, version int, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Updates = append(d.Updates, RecordedUpdate{PageID: pageID, Title: title, Version: version})
	return nil
}

func (d *DryRunSink) UploadAttachment(ctx context.Context, pageID, filename string, data []byte, comment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Uploads = append(d.Uploads, RecordedUpload{PageID: pageID, Filename: filename, Size: len(data)})
	return nil
}
