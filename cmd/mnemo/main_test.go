package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/flemzord/mnemo/internal/config"
	"github.com/flemzord/mnemo/internal/embedding"
)

// execute runs the CLI with args against an isolated data directory.
func execute(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	return t.TempDir()
}

func TestVersion(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "mnemo dev") {
		t.Errorf("output = %q", out)
	}
	for _, id := range []string{"gateway.http", "store.memory", "store.nop", "store.sqlite"} {
		if !strings.Contains(out, id) {
			t.Errorf("compiled modules missing %s", id)
		}
	}
}

func TestInitAndCheck(t *testing.T) {
	dataDir := isolate(t)
	path := filepath.Join(t.TempDir(), "mnemo.yaml")

	out, err := execute(t, dataDir, "init", "--defaults", "-o", path)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("init output = %q", out)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if _, ok := cfg.Modules["gateway.http"]; !ok {
		t.Error("default init should enable the gateway")
	}

	if _, err := execute(t, dataDir, "init", "--defaults", "-o", path); err == nil {
		t.Error("init over an existing file should fail without --force")
	}

	out, err = execute(t, dataDir, "config", "check", path)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK") || !strings.Contains(out, "embedding:  local") {
		t.Errorf("check output = %q", out)
	}
	if !strings.Contains(out, "module:     store.sqlite") {
		t.Errorf("check output should name the default store: %q", out)
	}
}

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func TestReminderCommands(t *testing.T) {
	dataDir := isolate(t)

	out, err := execute(t, dataDir, "remind", "remind me to drink water every 30 minutes")
	if err != nil {
		t.Fatalf("remind: %v", err)
	}
	if !strings.Contains(out, `"Drink water" every 30m0s`) {
		t.Errorf("remind output = %q", out)
	}
	m := idPattern.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no id in %q", out)
	}
	id := m[1]

	if _, err := execute(t, dataDir, "remind", "--in", "2h", "Check the oven"); err != nil {
		t.Fatalf("remind --in: %v", err)
	}
	if _, err := execute(t, dataDir, "remind", "remind me sometime"); err == nil {
		t.Error("unclear request should fail")
	}

	out, err = execute(t, dataDir, "reminders", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Drink water") || !strings.Contains(out, "Check the oven") {
		t.Errorf("list output = %q", out)
	}

	if out, err = execute(t, dataDir, "reminders", "snooze", id, "-m", "5"); err != nil {
		t.Fatalf("snooze: %v", err)
	}
	if _, err := execute(t, dataDir, "reminders", "snooze", "missing"); err == nil {
		t.Error("snoozing an unknown id should fail")
	}
	if out, err = execute(t, dataDir, "reminders", "trigger", id); err != nil || !strings.Contains(out, "Fired") {
		t.Fatalf("trigger = %q, %v", out, err)
	}

	out, err = execute(t, dataDir, "reminders", "cancel", "cancel", "my", "oven", "reminder")
	if err != nil {
		t.Fatalf("cancel by text: %v", err)
	}
	if !strings.Contains(out, `"Check the oven"`) {
		t.Errorf("cancel output = %q", out)
	}

	if out, err = execute(t, dataDir, "reminders", "cancel", id); err != nil || !strings.Contains(out, "Cancelled "+id) {
		t.Fatalf("cancel by id = %q, %v", out, err)
	}

	out, _ = execute(t, dataDir, "reminders", "list")
	if !strings.Contains(out, "No reminders.") {
		t.Errorf("list after cancel = %q", out)
	}
}

func TestMemoryCommands(t *testing.T) {
	dataDir := isolate(t)

	out, err := execute(t, dataDir, "remember", "--meta", "source=cli", "my", "bike", "lock", "code", "is", "4512")
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	id := strings.TrimSpace(strings.TrimPrefix(out, "Remembered "))

	out, err = execute(t, dataDir, "recall", "--threshold", "-1", "what is the bike lock code")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "## Relevant Memory") || !strings.Contains(out, "4512") {
		t.Errorf("recall output = %q", out)
	}

	out, _ = execute(t, dataDir, "recall", "--list")
	if !strings.Contains(out, id) {
		t.Errorf("list output = %q, want id %s", out, id)
	}

	if _, err := execute(t, dataDir, "forget"); err == nil {
		t.Error("forget without id should fail")
	}
	if out, err = execute(t, dataDir, "forget", id); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, err := execute(t, dataDir, "forget", id); err == nil {
		t.Error("forgetting twice should fail")
	}
}

func TestEmbeddingCommands(t *testing.T) {
	var resets int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0k" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		st := embedding.Status{RemoteConfigured: true, CircuitOpen: true, Failures: 3, Threshold: 3, Dimensions: 768}
		if r.URL.Path == "/api/embedding/reset" && r.Method == http.MethodPost {
			resets++
			st.CircuitOpen, st.Failures = false, 0
		}
		_ = json.NewEncoder(w).Encode(st)
	}))
	defer srv.Close()

	out, err := execute(t, t.TempDir(), "embedding", "status", "--addr", srv.URL, "--token", "t0k")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "open (local fallback)") {
		t.Errorf("status output = %q", out)
	}

	out, err = execute(t, t.TempDir(), "embedding", "reset", "--addr", srv.URL, "--token", "t0k")
	if err != nil {
		t.Fatal(err)
	}
	if resets != 1 || !strings.Contains(out, "circuit:           closed") {
		t.Errorf("reset output = %q, resets = %d", out, resets)
	}

	if _, err := execute(t, t.TempDir(), "embedding", "status", "--addr", srv.URL); err == nil {
		t.Error("missing token should surface the 401")
	}
}

func TestServiceConfig(t *testing.T) {
	g := &globalFlags{configPath: "/etc/mnemo.yaml"}
	cfg := serviceConfig(g)
	want := []string{"service", "run", "--config", "/etc/mnemo.yaml"}
	if strings.Join(cfg.Arguments, " ") != strings.Join(want, " ") {
		t.Errorf("Arguments = %v, want %v", cfg.Arguments, want)
	}
	if cfg.Name != "mnemo" {
		t.Errorf("Name = %q", cfg.Name)
	}
}
