package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"confpress/pkg/logger"
)

type Client struct {
	baseURL  string
	username string
	apiToken string
	client   *http.Client
	logger   *logger.Logger
}

type Page struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Body  struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
		View struct {
			Value string `json:"value"`
		} `json:"view"`
	} `json:"body,omitempty"`
	Space struct {
		Key string `json:"key"`
	} `json:"space,omitempty"`
	Version struct {
		Number  int    `json:"number"`
		Message string `json:"message"`
	} `json:"version,omitempty"`
}

type PageInfo struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Children []PageInfo `json:"children,omitempty"`
}

func NewClient(baseURL, username, apiToken string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		apiToken: apiToken,
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}
}

// SearchPagesByTitle returns every page in the space whose title matches
// exactly. Matching rules are the server's; titles are not normalized here.
func (c *Client) SearchPagesByTitle(ctx context.Context, spaceKey, title string) ([]Page, error) {
	params := url.Values{}
	params.Add("spaceKey", spaceKey)
	params.Add("title", title)
	params.Add("expand", "version")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/rest/api/content?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var result struct {
		Results []Page `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Results, nil
}

func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/rest/api/content/"+pageID+"?expand=version,body.storage,body.view", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var result Page
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// CreatePage creates a page in the space. An empty parentID creates a
// top-level page; otherwise the page is linked under the parent via
// ancestors. The version message is stored alongside revision 1.
func (c *Client) CreatePage(ctx context.Context, spaceKey, title, content, parentID, message string) (*Page, error) {
	page := map[string]interface{}{
		"type":  "page",
		"title": title,
		"space": map[string]string{"key": spaceKey},
		"body": map[string]interface{}{
			"storage": map[string]interface{}{
				"value":          content,
				"representation": "storage",
			},
		},
	}
	if parentID != "" {
		page["ancestors"] = []map[string]string{
			{"id": parentID},
		}
	}
	if message != "" {
		page["version"] = map[string]interface{}{
			"number":  1,
			"message": message,
		}
	}

	data, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/rest/api/content", bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var result Page
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// UpdatePage replaces the whole page body at the given version number. The
// caller supplies the incremented version; the server rejects stale numbers.
func (c *Client) UpdatePage(ctx context.Context, pageID, title, content string, version int, message string) (*Page, error) {
	page := map[string]interface{}{
		"id":    pageID,
		"type":  "page",
		"title": title,
		"body": map[string]interface{}{
			"storage": map[string]interface{}{
				"value":          content,
				"representation": "storage",
			},
		},
		"version": map[string]interface{}{
			"number":  version,
			"message": message,
		},
	}

	data, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", c.baseURL+"/rest/api/content/"+pageID, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var result Page
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetPageHierarchy returns the page tree of a space, optionally scoped to the
// children of a parent page looked up by title.
func (c *Client) GetPageHierarchy(ctx context.Context, spaceKey, parentPageTitle string) ([]PageInfo, error) {
	if parentPageTitle != "" {
		matches, err := c.SearchPagesByTitle(ctx, spaceKey, parentPageTitle)
		if err != nil {
			return nil, fmt.Errorf("failed to find parent page '%s': %w", parentPageTitle, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("parent page '%s' not found in space '%s'", parentPageTitle, spaceKey)
		}
		return c.getChildPages(ctx, matches[0].ID)
	}

	allPages, err := c.getAllPagesWithParents(ctx, spaceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages in space: %w", err)
	}
	return buildPageTree(allPages), nil
}

// getAllPagesWithParents gets all pages in a space with parent information.
func (c *Client) getAllPagesWithParents(ctx context.Context, spaceKey string) (map[string]PageInfo, error) {
	params := url.Values{}
	params.Add("spaceKey", spaceKey)
	params.Add("type", "page")
	params.Add("limit", "1000")
	params.Add("expand", "ancestors")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/rest/api/content?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var result struct {
		Results []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Ancestors []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"ancestors"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	pages := make(map[string]PageInfo)
	parentChildMap := make(map[string][]string)

	for _, page := range result.Results {
		pages[page.ID] = PageInfo{
			ID:       page.ID,
			Title:    page.Title,
			Children: []PageInfo{},
		}

		// The immediate parent is the last ancestor.
		if len(page.Ancestors) > 0 {
			parentID := page.Ancestors[len(page.Ancestors)-1].ID
			parentChildMap[parentID] = append(parentChildMap[parentID], page.ID)
		}
	}

	for parentID, childIDs := range parentChildMap {
		if parent, exists := pages[parentID]; exists {
			for _, childID := range childIDs {
				if child, exists := pages[childID]; exists {
					parent.Children = append(parent.Children, child)
				}
			}
			pages[parentID] = parent
		}
	}

	return pages, nil
}

// buildPageTree identifies root pages: those that are nobody's child.
func buildPageTree(allPages map[string]PageInfo) []PageInfo {
	childPages := make(map[string]bool)
	for _, page := range allPages {
		for _, child := range page.Children {
			childPages[child.ID] = true
		}
	}

	var rootPages []PageInfo
	for _, page := range allPages {
		if !childPages[page.ID] {
			rootPages = append(rootPages, page)
		}
	}

	return rootPages
}

func (c *Client) getChildPages(ctx context.Context, pageID string) ([]PageInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/rest/api/content/"+pageID+"/child/page", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var result struct {
		Results []PageInfo `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	for i := range result.Results {
		children, err := c.getChildPages(ctx, result.Results[i].ID)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("failed to get children for page '%s': %v", result.Results[i].Title, err)
			}
			continue
		}
		result.Results[i].Children = children
	}

	return result.Results, nil
}

func newAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
}
