package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Task hints the provider about how the text will be used.
type Task int

// Supported task hints.
const (
	TaskDocument Task = iota
	TaskQuery
)

// String returns the short task label.
func (t Task) String() string {
	if t == TaskQuery {
		return "query"
	}
	return "document"
}

// Provider produces embeddings from a remote model.
type Provider interface {
	Embed(ctx context.Context, text string, task Task) ([]float32, error)
}

// HTTPConfig configures an HTTPProvider.
type HTTPConfig struct {
	// BaseURL is the API root; "/embeddings" is appended.
	BaseURL string
	APIKey  string
	Model   string

	// Dimensions is requested from the provider when positive.
	Dimensions int

	// QueryTask and DocumentTask are sent in the "task" field.
	QueryTask    string
	DocumentTask string

	Headers map[string]string
}

// HTTPProvider calls an OpenAI-compatible /embeddings endpoint.
type HTTPProvider struct {
	cfg    HTTPConfig
	client *http.Client
}

// Compile-time interface check.
var _ Provider = (*HTTPProvider)(nil)

type embedRequest struct {
	Model      string   `json:"model,omitempty"`
	Input      []string `json:"input"`
	Task       string   `json:"task,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewHTTPProvider creates a provider. A nil client gets a default one
// with a 10s timeout; callers also bound each call through ctx.
func NewHTTPProvider(cfg HTTPConfig, client *http.Client) *HTTPProvider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: MaxTimeout}
	}
	return &HTTPProvider{cfg: cfg, client: client}
}

// Embed implements Provider.
func (p *HTTPProvider) Embed(ctx context.Context, text string, task Task) ([]float32, error) {
	if p.cfg.BaseURL == "" || p.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(embedRequest{
		Model:      p.cfg.Model,
		Input:      []string{text},
		Task:       p.taskName(task),
		Dimensions: p.cfg.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	for _, d := range parsed.Data {
		if d.Index == 0 {
			if len(d.Embedding) == 0 {
				return nil, fmt.Errorf("%w: empty vector", ErrMalformedResponse)
			}
			return d.Embedding, nil
		}
	}
	return nil, fmt.Errorf("%w: no data", ErrMalformedResponse)
}

func (p *HTTPProvider) taskName(task Task) string {
	if task == TaskQuery {
		return p.cfg.QueryTask
	}
	return p.cfg.DocumentTask
}

// MaxTimeout bounds every remote embedding call.
const MaxTimeout = 10 * time.Second
