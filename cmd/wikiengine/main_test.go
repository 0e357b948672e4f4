package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPageCommands(t *testing.T) {
	dataDir := t.TempDir()
	common := []string{"--data-dir", dataDir, "--log-level", "error"}
	cmd := func(args ...string) []string { return append(args, common...) }

	out, err := run(t, `{"title":"Welcome Visitors","story":[]}`, cmd("put", "Welcome Visitors")...)
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if strings.TrimSpace(out) != "welcome-visitors" {
		t.Errorf("put output = %q, want normalized slug", out)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "pages", "welcome-visitors")); err != nil {
		t.Errorf("page file not written: %v", err)
	}

	out, err = run(t, "", cmd("get", "welcome-visitors")...)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("get output is not JSON: %v\n%s", err, out)
	}
	if doc["title"] != "Welcome Visitors" {
		t.Errorf("title = %v, want Welcome Visitors", doc["title"])
	}

	out, err = run(t, "", cmd("slugs")...)
	if err != nil {
		t.Fatalf("slugs failed: %v", err)
	}
	if strings.TrimSpace(out) != "welcome-visitors" {
		t.Errorf("slugs output = %q", out)
	}

	out, err = run(t, "", cmd("sitemap")...)
	if err != nil {
		t.Fatalf("sitemap failed: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("sitemap output is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0]["slug"] != "welcome-visitors" {
		t.Errorf("sitemap = %v", entries)
	}

	if _, err := run(t, "", cmd("delete", "welcome-visitors")...); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := run(t, "", cmd("get", "welcome-visitors")...); err == nil {
		t.Error("expected get of deleted page to fail")
	}
	if _, err := run(t, "", cmd("get", "--recycled", "welcome-visitors")...); err != nil {
		t.Errorf("get --recycled failed: %v", err)
	}
	if _, err := run(t, "", cmd("delete", "--recycled", "welcome-visitors")...); err != nil {
		t.Fatalf("delete --recycled failed: %v", err)
	}
	if _, err := run(t, "", cmd("get", "--recycled", "welcome-visitors")...); err == nil {
		t.Error("expected recycled page to be gone")
	}
}

func TestPutRejectsBadInput(t *testing.T) {
	common := []string{"--data-dir", t.TempDir(), "--log-level", "error"}
	if _, err := run(t, "not json", append([]string{"put", "example"}, common...)...); err == nil {
		t.Error("expected error for malformed document")
	}
	if _, err := run(t, "{}", append([]string{"put", "!!!"}, common...)...); err == nil {
		t.Error("expected error for empty slug")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "wikiengine dev\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestReadConfigFileJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiki.jsonc")
	data := `{
	// site identity
	"name": "Fed Wiki",
	"url": "https://wiki.example.com",
	"storage": "memory:",
	"sitemap_cache_ttl": "30s",
	"watch_pages": true,
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	v := newViper()
	if err := readConfigFile(v, path); err != nil {
		t.Fatalf("readConfigFile failed: %v", err)
	}
	cfg := siteConfig(v)

	got := []any{cfg.Name, cfg.URL, cfg.StorageDSN, cfg.SitemapCacheTTL, cfg.WatchPages, cfg.Addr}
	want := []any{"Fed Wiki", "https://wiki.example.com", "memory:", 30 * time.Second, true, ":3000"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestReadConfigFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiki.yaml")
	if err := os.WriteFile(path, []byte("name: Yaml Wiki\ndata_dir: /srv/wiki\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v := newViper()
	if err := readConfigFile(v, path); err != nil {
		t.Fatalf("readConfigFile failed: %v", err)
	}
	cfg := siteConfig(v)
	if cfg.Name != "Yaml Wiki" || cfg.DataDir != "/srv/wiki" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestReadConfigFileInvalidJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiki.json")
	if err := os.WriteFile(path, []byte(`{"name": `), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := readConfigFile(newViper(), path); err == nil {
		t.Error("expected error for truncated config")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("WIKI_OWNER_PASSWORD", "hunter2")
	t.Setenv("WIKI_NAME", "Env Wiki")
	cfg := siteConfig(newViper())
	if cfg.OwnerPassword != "hunter2" || cfg.Name != "Env Wiki" {
		t.Errorf("cfg = %+v", cfg)
	}
}
