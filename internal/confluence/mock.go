package confluence

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory implementation of API for tests. It is safe for
// concurrent use so orchestrator tests can exercise sibling parallelism.
type MockClient struct {
	mu sync.Mutex

	Pages        map[string]*Page        // pageID -> Page
	PagesByTitle map[string][]*Page      // spaceKey:title -> pages (multiple = ambiguous)
	Attachments  map[string][]Attachment // pageID -> attachments
	Hierarchies  map[string][]PageInfo   // spaceKey -> root pages (fully nested)

	Calls       []string // ordered call log for assertions, e.g. "create:Home"
	CreateCalls []string // titles created
	UpdateCalls []string // titles updated
	UploadCalls []string // filenames uploaded

	SearchErr map[string]error // title -> error injected on lookup
	CreateErr map[string]error // title -> error injected on create
	UpdateErr map[string]error // title -> error injected on update
	UploadErr map[string]error // filename -> error injected on upload
	ListErr   error

	nextID int
}

func NewMockClient() *MockClient {
	return &MockClient{
		Pages:        make(map[string]*Page),
		PagesByTitle: make(map[string][]*Page),
		Attachments:  make(map[string][]Attachment),
		Hierarchies:  make(map[string][]PageInfo),
		SearchErr:    make(map[string]error),
		CreateErr:    make(map[string]error),
		UpdateErr:    make(map[string]error),
		UploadErr:    make(map[string]error),
	}
}

func (m *MockClient) key(spaceKey, title string) string { return spaceKey + ":" + title }

// Seed installs a pre-existing remote page without recording a call.
func (m *MockClient) Seed(spaceKey, title, content, versionMessage string) *Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addPage(spaceKey, title, content, versionMessage)
}

func (m *MockClient) addPage(spaceKey, title, content, versionMessage string) *Page {
	m.nextID++
	p := &Page{ID: fmt.Sprintf("page-%d", m.nextID), Title: title}
	p.Space.Key = spaceKey
	p.Body.Storage.Value = content
	p.Version.Number = 1
	p.Version.Message = versionMessage
	m.Pages[p.ID] = p
	m.PagesByTitle[m.key(spaceKey, title)] = append(m.PagesByTitle[m.key(spaceKey, title)], p)
	return p
}

func (m *MockClient) SearchPagesByTitle(ctx context.Context, spaceKey, title string) ([]Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "search:"+title)
	if err := m.SearchErr[title]; err != nil {
		return nil, err
	}
	var out []Page
	for _, p := range m.PagesByTitle[m.key(spaceKey, title)] {
		out = append(out, *p)
	}
	return out, nil
}

func (m *MockClient) GetPage(ctx context.Context, pageID string) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Pages[pageID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, &APIError{StatusCode: 404, Body: "page " + pageID + " not found"}
}

func (m *MockClient) CreatePage(ctx context.Context, spaceKey, title, content, parentID, message string) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "create:"+title)
	if err := m.CreateErr[title]; err != nil {
		return nil, err
	}
	p := m.addPage(spaceKey, title, content, message)
	m.CreateCalls = append(m.CreateCalls, title)
	return p, nil
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID, title, content string, version int, message string) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "update:"+title)
	if err := m.UpdateErr[title]; err != nil {
		return nil, err
	}
	p, ok := m.Pages[pageID]
	if !ok {
		return nil, &APIError{StatusCode: 404, Body: "page " + pageID + " not found"}
	}
	if version != p.Version.Number+1 {
		return nil, &APIError{StatusCode: 409, Body: "version conflict"}
	}
	p.Title = title
	p.Body.Storage.Value = content
	p.Version.Number = version
	p.Version.Message = message
	m.UpdateCalls = append(m.UpdateCalls, title)
	return p, nil
}

func (m *MockClient) ListAttachments(ctx context.Context, pageID string) ([]Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "list-attachments:"+pageID)
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]Attachment(nil), m.Attachments[pageID]...), nil
}

func (m *MockClient) UploadAttachment(ctx context.Context, pageID, filename string, data []byte, comment string) (*Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "upload:"+filename)
	if err := m.UploadErr[filename]; err != nil {
		return nil, err
	}
	att := Attachment{ID: "att-" + filename, Title: filename}
	att.Version.Number = 1
	att.Version.Message = comment

	// Create-or-replace keyed by filename.
	existing := m.Attachments[pageID]
	replaced := false
	for i := range existing {
		if existing[i].Title == filename {
			att.Version.Number = existing[i].Version.Number + 1
			existing[i] = att
			replaced = true
			break
		}
	}
	if !replaced {
		m.Attachments[pageID] = append(existing, att)
	}
	m.UploadCalls = append(m.UploadCalls, filename)
	return &att, nil
}

func (m *MockClient) GetPageHierarchy(ctx context.Context, spaceKey, parentPageTitle string) ([]PageInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if parentPageTitle != "" {
		var stack []PageInfo
		stack = append(stack, m.Hierarchies[spaceKey]...)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if cur.Title == parentPageTitle {
				return cur.Children, nil
			}
			stack = append(stack, cur.Children...)
		}
		return []PageInfo{}, nil
	}
	return m.Hierarchies[spaceKey], nil
}

var _ API = (*MockClient)(nil)
