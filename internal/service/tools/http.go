package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// maxResponseBytes bounds how much of a tool response is read.
const maxResponseBytes = 1 << 20

// HTTPExecutor runs tools by POSTing their JSON arguments to
// <baseURL>/<tool name>. A 2xx JSON response is the tool's data.
type HTTPExecutor struct {
	baseURL string
	known   map[string]bool
	client  *http.Client
}

// NewHTTPExecutor creates an executor for the declared tools. Calls to
// undeclared names fail with ErrUnknownTool without a request being made.
func NewHTTPExecutor(baseURL string, decls []Declaration, timeout time.Duration) *HTTPExecutor {
	known := make(map[string]bool, len(decls))
	for _, d := range decls {
		known[d.Name] = true
	}
	return &HTTPExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		known:   known,
		client:  &http.Client{Timeout: timeout},
	}
}

// Execute implements Executor.
func (e *HTTPExecutor) Execute(ctx context.Context, name string, args map[string]any) Result {
	if !e.known[name] {
		return Failure(fmt.Errorf("%w: %s", ErrUnknownTool, name))
	}

	body, err := json.Marshal(args)
	if err != nil {
		return Failure(fmt.Errorf("encode arguments: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/"+name, bytes.NewReader(body))
	if err != nil {
		return Failure(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("Tool request failed")
		return Failure(fmt.Errorf("call %s: %w", name, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Failure(fmt.Errorf("read %s response: %w", name, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Failure(fmt.Errorf("%s returned status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return Success(nil)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Failure(fmt.Errorf("decode %s response: %w", name, err))
	}
	return Success(data)
}
