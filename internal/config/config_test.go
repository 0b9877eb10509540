package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
confluence:
  base_url: https://example.atlassian.net/wiki
  username: user@example.com
  api_token: secret
  space_key: DOCS
publish:
  root_page: Team Docs
  create_root: true
  enabled_if_env: PUBLISH_DOCS
  concurrency: 8
  retry_attempts: 5
  call_timeout_seconds: 60
local:
  docs_dir: ./documentation
  exclude:
    - "draft-*.md"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Confluence.BaseURL != "https://example.atlassian.net/wiki" {
		t.Errorf("unexpected base URL: %s", cfg.Confluence.BaseURL)
	}
	if cfg.Confluence.SpaceKey != "DOCS" {
		t.Errorf("unexpected space key: %s", cfg.Confluence.SpaceKey)
	}
	if cfg.Publish.RootPage != "Team Docs" || !cfg.Publish.CreateRoot {
		t.Errorf("unexpected publish settings: %+v", cfg.Publish)
	}
	if cfg.Publish.Concurrency != 8 || cfg.Publish.RetryAttempts != 5 {
		t.Errorf("unexpected tuning: %+v", cfg.Publish)
	}
	if cfg.CallTimeout() != 60*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.CallTimeout())
	}
	if len(cfg.Local.Exclude) != 1 || cfg.Local.Exclude[0] != "draft-*.md" {
		t.Errorf("unexpected exclude: %v", cfg.Local.Exclude)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
confluence:
  base_url: https://example.atlassian.net/wiki
  username: user@example.com
  api_token: secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Publish.Concurrency != 4 {
		t.Errorf("default concurrency: expected 4, got %d", cfg.Publish.Concurrency)
	}
	if cfg.Publish.RetryAttempts != 3 {
		t.Errorf("default retry attempts: expected 3, got %d", cfg.Publish.RetryAttempts)
	}
	if cfg.CallTimeout() != 30*time.Second {
		t.Errorf("default timeout: expected 30s, got %v", cfg.CallTimeout())
	}
	if cfg.Local.DocsDir != "docs" {
		t.Errorf("default docs dir: expected docs, got %s", cfg.Local.DocsDir)
	}
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	path := writeConfig(t, `
confluence:
  base_url: https://example.atlassian.net/wiki
`)

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for missing credentials")
	}
}

func TestLoadRejectsInvalidTuning(t *testing.T) {
	path := writeConfig(t, `
confluence:
  base_url: https://example.atlassian.net/wiki
  username: user@example.com
  api_token: secret
publish:
  concurrency: 0
`)

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for zero concurrency")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Confluence.BaseURL = "https://example.atlassian.net/wiki"
	cfg.Confluence.Username = "user@example.com"
	cfg.Confluence.APIToken = "secret"
	cfg.Confluence.SpaceKey = "DOCS"
	cfg.Publish.RootPage = "Home"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file should be private, mode: %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save failed: %v", err)
	}
	if loaded.Confluence.SpaceKey != "DOCS" || loaded.Publish.RootPage != "Home" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
