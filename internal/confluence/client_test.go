package confluence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"confpress/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "user@example.com", "token", 5*time.Second, logger.New(false))
}

func TestSearchPagesByTitle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/content" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("spaceKey") != "DOCS" || q.Get("title") != "My Page" {
			t.Errorf("unexpected query: %v", q)
		}
		if q.Get("expand") != "version" {
			t.Errorf("version not expanded: %v", q)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user@example.com" || pass != "token" {
			t.Error("basic auth not set")
		}
		w.Write([]byte(`{"results":[{"id":"123","title":"My Page","version":{"number":4,"message":"confpress [vabc]"}}]}`))
	})

	pages, err := client.SearchPagesByTitle(context.Background(), "DOCS", "My Page")
	if err != nil {
		t.Fatalf("SearchPagesByTitle failed: %v", err)
	}
	if len(pages) != 1 || pages[0].ID != "123" || pages[0].Version.Number != 4 {
		t.Errorf("unexpected result: %+v", pages)
	}
}

func TestSearchPagesByTitleEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	})

	pages, err := client.SearchPagesByTitle(context.Background(), "DOCS", "Nope")
	if err != nil {
		t.Fatalf("SearchPagesByTitle failed: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("expected no results, got %+v", pages)
	}
}

func TestCreatePage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/rest/api/content" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if body["title"] != "New Page" {
			t.Errorf("unexpected title: %v", body["title"])
		}
		ancestors, ok := body["ancestors"].([]interface{})
		if !ok || len(ancestors) != 1 {
			t.Errorf("ancestors missing: %v", body["ancestors"])
		}
		version, ok := body["version"].(map[string]interface{})
		if !ok || version["message"] != "confpress [vdeadbeef]" {
			t.Errorf("version message missing: %v", body["version"])
		}
		w.Write([]byte(`{"id":"456","title":"New Page","version":{"number":1}}`))
	})

	page, err := client.CreatePage(context.Background(), "DOCS", "New Page", "<p>hi</p>", "123", "confpress [vdeadbeef]")
	if err != nil {
		t.Fatalf("CreatePage failed: %v", err)
	}
	if page.ID != "456" {
		t.Errorf("unexpected page id: %s", page.ID)
	}
}

func TestCreatePageTopLevelOmitsAncestors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if _, present := body["ancestors"]; present {
			t.Error("top-level create must not send ancestors")
		}
		w.Write([]byte(`{"id":"1","title":"Top"}`))
	})

	if _, err := client.CreatePage(context.Background(), "DOCS", "Top", "<p/>", "", ""); err != nil {
		t.Fatalf("CreatePage failed: %v", err)
	}
}

func TestUpdatePageSendsVersion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PUT" || r.URL.Path != "/rest/api/content/123" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		version := body["version"].(map[string]interface{})
		if version["number"].(float64) != 5 {
			t.Errorf("unexpected version: %v", version)
		}
		w.Write([]byte(`{"id":"123","title":"Page","version":{"number":5}}`))
	})

	page, err := client.UpdatePage(context.Background(), "123", "Page", "<p>new</p>", 5, "msg")
	if err != nil {
		t.Fatalf("UpdatePage failed: %v", err)
	}
	if page.Version.Number != 5 {
		t.Errorf("unexpected version in response: %d", page.Version.Number)
	}
}

func TestAPIErrorOnServerFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})

	_, err := client.GetPage(context.Background(), "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unexpected status: %d", apiErr.StatusCode)
	}
	if !IsTransient(err) {
		t.Error("503 should be transient")
	}
}

func TestTransportErrorIsTransient(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "u", "t", 500*time.Millisecond, logger.New(false))

	_, err := client.GetPage(context.Background(), "1")
	if err == nil {
		t.Fatal("expected a connection error")
	}
	if !IsTransient(err) {
		t.Errorf("transport errors should be transient: %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{409, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}
	for _, tt := range tests {
		err := &APIError{StatusCode: tt.status}
		if IsTransient(err) != tt.transient {
			t.Errorf("status %d: expected transient=%v", tt.status, tt.transient)
		}
	}
}

func TestGetPageHierarchyByParent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/api/content":
			w.Write([]byte(`{"results":[{"id":"10","title":"Parent"}]}`))
		case "/rest/api/content/10/child/page":
			w.Write([]byte(`{"results":[{"id":"11","title":"Child"}]}`))
		case "/rest/api/content/11/child/page":
			w.Write([]byte(`{"results":[]}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	})

	pages, err := client.GetPageHierarchy(context.Background(), "DOCS", "Parent")
	if err != nil {
		t.Fatalf("GetPageHierarchy failed: %v", err)
	}
	if len(pages) != 1 || pages[0].Title != "Child" {
		t.Errorf("unexpected hierarchy: %+v", pages)
	}
}
