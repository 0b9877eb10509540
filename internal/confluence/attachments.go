package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
)

type Attachment struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version struct {
		Number  int    `json:"number"`
		Message string `json:"message"`
	} `json:"version"`
}

// ListAttachments returns the attachments of a page with version info
// expanded, so callers can read the content-hash marker in the message.
func (c *Client) ListAttachments(ctx context.Context, pageID string) ([]Attachment, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/rest/api/content/"+pageID+"/child/attachment?expand=version&limit=200", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("X-Atlassian-Token", "no-check")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var result struct {
		Results []Attachment `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Results, nil
}

// UploadAttachment creates or replaces an attachment on the page, keyed by
// filename (the allowDuplicated parameter of the API makes the same call
// cover both). The comment is stored as the attachment version message.
func (c *Client) UploadAttachment(ctx context.Context, pageID, filename string, data []byte, comment string) (*Attachment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write attachment data: %w", err)
	}
	if comment != "" {
		if err := writer.WriteField("comment", comment); err != nil {
			return nil, fmt.Errorf("failed to write comment field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := c.baseURL + "/rest/api/content/" + pageID + "/child/attachment?allowDuplicated=true"
	req, err := http.NewRequestWithContext(ctx, "PUT", url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "no-check")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var result struct {
		Results []Attachment `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Results) == 0 {
		return nil, fmt.Errorf("upload response contained no attachment for %s", filename)
	}

	return &result.Results[0], nil
}
