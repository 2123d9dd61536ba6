package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apppkg "github.com/hyperifyio/nldigest/internal/app"
)

const lede = "사월 호에서는 거리 전시와 작은 음악회 소식, 새로 합류한 동료 작가들의 인사, 그리고 여름 프로젝트 준비 과정을 나눕니다. 함께 읽어 주셔서 고맙습니다."

func newsletterServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>4월</title></head><body><div class="email-content"><p>` + lede + `</p></div></body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeStore(t *testing.T, link string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "newsletters.json")
	content := `[{"id":1,"title":"4월 소식","link":"` + link + `"}]`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write store: %v", err)
	}
	return p
}

// Smoke test: the root command processes a store end to end.
func TestRootCmd_UpdatesStore(t *testing.T) {
	srv := newsletterServer(t)
	data := writeStore(t, srv.URL+"/april")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data", data, "--wait", "0", "--env-file", ""})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	b, err := os.ReadFile(data)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `"summary": "`+lede+`"`) {
		t.Fatalf("summary not written:\n%s", b)
	}
	if !strings.Contains(out.String(), "[1/1] 4월 소식") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRootCmd_DryRunKeepsStore(t *testing.T) {
	srv := newsletterServer(t)
	data := writeStore(t, srv.URL+"/april")
	before, _ := os.ReadFile(data)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data", data, "--dry-run", "--wait", "0", "--env-file", ""})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	after, _ := os.ReadFile(data)
	if !bytes.Equal(before, after) {
		t.Fatalf("dry run changed the store")
	}
	if !strings.Contains(out.String(), "dry run: no changes written") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRootCmd_MissingStoreFails(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data", filepath.Join(t.TempDir(), "none.json"), "--env-file", ""})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing store")
	}
}

func TestRootCmd_BadWait(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--wait", "soon", "--env-file", ""})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "--wait") {
		t.Fatalf("expected --wait error, got %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != apppkg.VersionString() {
		t.Fatalf("version output %q", out.String())
	}
}

// Flags beat env, env beats the config file, the file beats defaults.
func TestResolveConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nldigest.yaml")
	content := "data: file.json\nrun:\n  limit: 7\n  wait: \"900\"\ncache:\n  dir: file-cache\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NLDIGEST_DATA", "env.json")
	t.Setenv("NLDIGEST_CACHE_DIR", "env-cache")
	t.Setenv("NLDIGEST_WAIT", "")

	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--config", cfgPath, "--cache-dir", "flag-cache", "--env-file", ""}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := resolveConfig(cmd.Flags())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DataPath != "env.json" {
		t.Fatalf("DataPath=%q, want env.json", cfg.DataPath)
	}
	if cfg.CacheDir != "flag-cache" {
		t.Fatalf("CacheDir=%q, want flag-cache", cfg.CacheDir)
	}
	if cfg.Limit != 7 || cfg.Wait != 900*time.Millisecond {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Attempts != apppkg.DefaultAttempts {
		t.Fatalf("Attempts=%d", cfg.Attempts)
	}
}

func TestResolveConfig_DotenvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("NLDIGEST_RULES=from-dotenv.yaml\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("NLDIGEST_RULES", "")

	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--env-file", envPath}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := resolveConfig(cmd.Flags())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.RulesPath != "from-dotenv.yaml" {
		t.Fatalf("RulesPath=%q", cfg.RulesPath)
	}
}
