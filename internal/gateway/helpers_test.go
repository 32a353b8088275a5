package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/mnemo/internal/embedding"
	"github.com/flemzord/mnemo/internal/memory"
	"github.com/flemzord/mnemo/internal/reminder"
	"github.com/flemzord/mnemo/internal/telemetry"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type nopClock struct{}

func (nopClock) Arm(string, time.Time, map[string]string) {}
func (nopClock) Disarm(string)                            {}

type fakeEmbedding struct {
	mu   sync.Mutex
	open bool
}

func (f *fakeEmbedding) Status() embedding.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return embedding.Status{RemoteConfigured: true, CircuitOpen: f.open, Threshold: 3, Dimensions: 8}
}

func (f *fakeEmbedding) ResetCircuit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
}

type testGateway struct {
	*Gateway
	handler   http.Handler
	engine    *reminder.Engine
	embedding *fakeEmbedding
	metrics   *telemetry.Metrics
}

func newTestGateway(t *testing.T, cfg Config) *testGateway {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := reminder.NewEngine(reminder.Config{
		Store:  reminder.NewInMemoryStore(),
		Clock:  nopClock{},
		Logger: logger,
		Now:    func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatal(err)
	}

	codec := embedding.New(nil, 8)
	t.Cleanup(codec.Close)
	svc, err := memory.NewService(memory.ServiceConfig{
		Store:    memory.NewInMemoryStore(),
		Embedder: codec,
		Logger:   logger,
		Now:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg.defaults()
	emb := &fakeEmbedding{}
	metrics := telemetry.NewMetrics()
	g := &Gateway{
		config:    cfg,
		logger:    logger,
		limiter:   NewRateLimiter(cfg.RateLimit),
		startedAt: testNow,
		owner:     "alice",
		reminders: engine,
		memories:  svc,
		embedding: emb,
		metrics:   metrics,
	}
	return &testGateway{
		Gateway:   g,
		handler:   g.buildRouter(),
		engine:    engine,
		embedding: emb,
		metrics:   metrics,
	}
}

func (tg *testGateway) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	tg.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
