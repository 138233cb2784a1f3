// Package httprunner implements AgentRunner over HTTP, adapting the
// teacher's internal/scheduler/executor.go (job-dispatch HTTP client) to
// invoke an agent's execution endpoint instead of a webhook URL, wrapped in
// a circuit breaker per agent ID.
package httprunner

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/resilience"
	"github.com/nova-labs/agentsched/internal/runner"
)

// Runner invokes an agent's run endpoint over HTTP. The method, path,
// headers, and body are all read from AgentRecord.Configuration so each
// agent can target a different execution endpoint; any field left unset
// falls back to a plain POST of BaseURL + "/agents/{id}/run" with no body.
type Runner struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
	cbConfig resilience.CircuitBreakerConfig
}

func New(baseURL string, logger *slog.Logger) *Runner {
	return &Runner{
		client: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
		baseURL:  baseURL,
		logger:   logger.With("component", "httprunner"),
		breakers: make(map[string]*resilience.CircuitBreaker),
		cbConfig: resilience.DefaultCircuitBreakerConfig(),
	}
}

func (r *Runner) breakerFor(agentID string) *resilience.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[agentID]
	if !ok {
		cb = resilience.NewCircuitBreaker(agentID, r.cbConfig)
		r.breakers[agentID] = cb
	}
	return cb
}

// requestSpec is the shape an agent's Configuration may carry under the
// "request" key to override the default run endpoint.
type requestSpec struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    any               `json:"body"`
}

func parseRequestSpec(configuration map[string]any) requestSpec {
	var spec requestSpec
	raw, ok := configuration["request"]
	if !ok {
		return spec
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return spec
	}
	_ = json.Unmarshal(encoded, &spec)
	return spec
}

func (r *Runner) Run(ctx context.Context, agent domain.AgentRecord) runner.Result {
	start := time.Now()
	cb := r.breakerFor(agent.ID)
	spec := parseRequestSpec(agent.Configuration)

	method := http.MethodPost
	if spec.Method != "" {
		method = spec.Method
	}

	url := r.baseURL + "/agents/" + agent.ID + "/run"
	switch {
	case spec.URL != "":
		url = spec.URL
	case spec.Path != "":
		url = r.baseURL + spec.Path
	}

	var bodyReader io.Reader
	if spec.Body != nil {
		encoded, err := json.Marshal(spec.Body)
		if err != nil {
			return runner.Result{Success: false, Error: fmt.Sprintf("encode request body: %v", err)}
		}
		bodyReader = bytes.NewReader(encoded)
	}

	var statusCode int
	err := cb.Execute(ctx, func(ctx context.Context) error {
		req, buildErr := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if buildErr != nil {
			return fmt.Errorf("build request: %w", buildErr)
		}
		if spec.Body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range spec.Headers {
			req.Header.Set(k, v)
		}

		resp, doErr := r.client.Do(req)
		if doErr != nil {
			return fmt.Errorf("do request: %w", doErr)
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, resp.Body)

		statusCode = resp.StatusCode
		if resp.StatusCode >= 400 {
			return fmt.Errorf("agent run endpoint returned %d", resp.StatusCode)
		}
		return nil
	})

	duration := time.Since(start)
	if err != nil {
		r.logger.Error("agent run failed", "agent_id", agent.ID, "error", err, "status", statusCode, "duration", duration)
		return runner.Result{Success: false, Error: err.Error(), Duration: duration}
	}

	r.logger.Info("agent run succeeded", "agent_id", agent.ID, "status", statusCode, "duration", duration)
	return runner.Result{Success: true, Duration: duration}
}

var _ runner.AgentRunner = (*Runner)(nil)
