// Package tracing records every model call as a run on a LangSmith
// compatible endpoint.
package tracing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/i2y/moviemood/config"
	"github.com/i2y/moviemood/logging"
	"github.com/i2y/moviemood/provider"
)

// Run is one traced call.
type Run struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	RunType     string         `json:"run_type"`
	SessionName string         `json:"session_name,omitempty"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Inputs      map[string]any `json:"inputs"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Error       string         `json:"error,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Tracer posts runs in the background. Failures are logged, never returned
// to the traced call.
type Tracer struct {
	http     *http.Client
	endpoint string
	apiKey   string
	project  string

	wg sync.WaitGroup
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Tracer) {
		t.http = hc
	}
}

// New returns a tracer for cfg.
func New(cfg config.TracingConfig, opts ...Option) *Tracer {
	t := &Tracer{
		http:     &http.Client{Timeout: 10 * time.Second},
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		project:  cfg.Project,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Flush waits for pending runs to be sent, or for ctx to end.
func (t *Tracer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wrap returns p with every call traced. Embedding support is kept.
func (t *Tracer) Wrap(p provider.Provider) provider.Provider {
	tp := &tracedProvider{inner: p, tracer: t}
	if e, ok := p.(provider.Embedder); ok {
		return &tracedEmbedder{tracedProvider: tp, embedder: e}
	}
	return tp
}

// WrapFactory traces every provider the factory builds.
func (t *Tracer) WrapFactory(f provider.Factory) provider.Factory {
	return func() (provider.Provider, error) {
		p, err := f()
		if err != nil {
			return nil, err
		}
		return t.Wrap(p), nil
	}
}

func (t *Tracer) record(ctx context.Context, run Run) {
	run.ID = uuid.NewString()
	run.SessionName = t.project
	if id := logging.QueryID(ctx); id != "" {
		run.Extra = map[string]any{"metadata": map[string]any{"query_id": id}}
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.post(run); err != nil {
			logging.Warn().Err(err).Str("run", run.Name).Msg("posting trace failed")
		}
	}()
}

func (t *Tracer) post(run Run) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, t.endpoint+"/runs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", t.apiKey)

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("post run: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("post run: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

type tracedProvider struct {
	inner  provider.Provider
	tracer *Tracer
}

func (p *tracedProvider) Name() string {
	return p.inner.Name()
}

func (p *tracedProvider) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	start := time.Now().UTC()
	resp, err := p.inner.Call(ctx, req)

	run := Run{
		Name:      p.inner.Name() + ":" + req.Model,
		RunType:   "llm",
		StartTime: start,
		EndTime:   time.Now().UTC(),
		Inputs:    map[string]any{"messages": req.Messages},
	}
	if req.JSONSchema != nil {
		run.Inputs["response_format"] = req.JSONSchema.Name
	}
	if err != nil {
		run.Error = err.Error()
	} else {
		run.Outputs = map[string]any{
			"content":       resp.Content,
			"finish_reason": resp.FinishReason,
			"usage":         resp.Usage,
		}
	}
	p.tracer.record(ctx, run)

	return resp, err
}

type tracedEmbedder struct {
	*tracedProvider
	embedder provider.Embedder
}

func (p *tracedEmbedder) Embed(ctx context.Context, req *provider.EmbeddingRequest) (*provider.EmbeddingResponse, error) {
	start := time.Now().UTC()
	resp, err := p.embedder.Embed(ctx, req)

	run := Run{
		Name:      p.inner.Name() + ":" + req.Model,
		RunType:   "embedding",
		StartTime: start,
		EndTime:   time.Now().UTC(),
		Inputs:    map[string]any{"count": len(req.Input)},
	}
	if err != nil {
		run.Error = err.Error()
	} else {
		run.Outputs = map[string]any{"vectors": len(resp.Vectors), "usage": resp.Usage}
	}
	p.tracer.record(ctx, run)

	return resp, err
}
