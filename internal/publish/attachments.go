package publish

import (
	"context"
	"fmt"
	"os"

	"confpress/internal/confluence"
)

// imageFile is a local image bound for a page attachment, hashed during the
// prepare pass so change detection and uploads share one digest.
type imageFile struct {
	Filename string
	Path     string
	Hash     string
}

// syncAttachments reconciles a page's attachments with the local images the
// document references. Remote attachments carrying a matching fingerprint
// marker are left alone; everything else is uploaded as a new version.
// Attachments no longer referenced are never deleted.
//
// justCreated skips the remote listing: a page created moments ago has no
// attachments to diff against.
func (o *Orchestrator) syncAttachments(ctx context.Context, dest Destination, pageID string, images []imageFile, justCreated bool) ([]AttachmentResult, []string) {
	if len(images) == 0 {
		return nil, nil
	}

	var warnings []string
	remote := make(map[string]string, len(images))
	if !justCreated {
		listed, err := o.listAttachmentsWithRetry(ctx, pageID)
		if err != nil {
			if o.opts.DryRun {
				warnings = append(warnings, fmt.Sprintf("attachment listing failed, assuming all uploads needed: %v", err))
			} else {
				results := make([]AttachmentResult, 0, len(images))
				for _, img := range images {
					results = append(results, AttachmentResult{Filename: img.Filename, Err: fmt.Errorf("failed to list attachments: %w", err)})
				}
				return results, warnings
			}
		}
		for _, att := range listed {
			remote[att.Title] = ParseFingerprintMarker(att.Version.Message)
		}
	}

	results := make([]AttachmentResult, 0, len(images))
	for _, img := range images {
		if remote[img.Filename] == img.Hash && !justCreated {
			results = append(results, AttachmentResult{Filename: img.Filename})
			continue
		}

		data, err := os.ReadFile(img.Path)
		if err != nil {
			results = append(results, AttachmentResult{Filename: img.Filename, Err: fmt.Errorf("failed to read image: %w", err)})
			continue
		}

		err = o.withRetry(ctx, func(ctx context.Context) error {
			return dest.UploadAttachment(ctx, pageID, img.Filename, data, VersionMessage(img.Hash))
		})
		if err != nil {
			results = append(results, AttachmentResult{Filename: img.Filename, Err: err})
			continue
		}
		results = append(results, AttachmentResult{Filename: img.Filename, Uploaded: true})
	}
	return results, warnings
}

func (o *Orchestrator) listAttachmentsWithRetry(ctx context.Context, pageID string) ([]confluence.Attachment, error) {
	var listed []confluence.Attachment
	err := o.withRetry(ctx, func(ctx context.Context) error {
		var err error
		listed, err = o.client.ListAttachments(ctx, pageID)
		return err
	})
	return listed, err
}
