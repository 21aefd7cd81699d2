package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/harunnryd/kakehashi/internal/config"
	kerrors "github.com/harunnryd/kakehashi/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// Client talks to the substituted LLM backend. It is rebuilt from a fresh
// config snapshot at every turn start, so a settings change never applies
// mid-turn.
//
// The transport is deliberately hand-rolled over net/http: the decoder
// needs to see every raw SSE line (including the ones that fail to parse)
// to tell a misconfigured endpoint apart from stream noise, and SDK stream
// wrappers swallow exactly those lines. The wire shapes themselves marshal
// through the go-openai types.
type Client struct {
	cfg        config.BackendConfig
	httpClient *http.Client
}

func NewClient(cfg config.BackendConfig) (*Client, error) {
	timeout, err := config.DurationOrDefault(cfg.RequestTimeout, config.DefaultBackendRequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("backend request timeout: %w", err)
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.ProxyHost != "" && cfg.ProxyPort > 0 {
		proxyURL, err := url.Parse(fmt.Sprintf("http://%s:%d", cfg.ProxyHost, cfg.ProxyPort))
		if err != nil {
			return nil, fmt.Errorf("proxy address: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// Stream submits one completion request and returns the decoded event
// stream. The channel always yields Started first and Completed last;
// every failure mode is folded into Completed rather than surfaced as a
// second error path.
func (c *Client) Stream(ctx context.Context, messages []Message, tools []ToolDef) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		emit := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(Started{}) {
			return
		}

		resp, err := c.submit(ctx, messages, tools)
		if err != nil {
			emit(Completed{Err: err})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
			emit(Completed{Err: kerrors.Transport("request failed, status %d, body `%s`", resp.StatusCode, strings.TrimSpace(string(body)))})
			return
		}

		var d decoder
		cause := d.run(resp.Body, emit)
		if errors.Is(cause, kerrors.ErrTurnCancelled) {
			return
		}
		emit(Completed{Err: cause})
	}()

	return out
}

func (c *Client) submit(ctx context.Context, messages []Message, tools []ToolDef) (*http.Response, error) {
	payload := openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: toWireMessages(messages),
		Tools:    toWireTools(tools),
		Stream:   true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, kerrors.Transport("encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, kerrors.Transport("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, kerrors.Transport("submit request: %v", err)
	}
	return resp, nil
}

// Preconnect fires an unauthenticated GET at the base URL to warm up the
// connection pool. Any status code is acceptable; only reachability counts.
func (c *Client) Preconnect(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(c.cfg.BaseURL, "/"), nil)
	if err != nil {
		return
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("Pre-connect failed", "error", err)
		return
	}
	resp.Body.Close()
	slog.Debug("Pre-connect", "status", resp.StatusCode)
}

func (c *Client) completionsURL() string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
}

func toWireMessages(messages []Message) []openai.ChatCompletionMessage {
	wire := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		wire = append(wire, msg)
	}
	return wire
}

func toWireTools(tools []ToolDef) []openai.Tool {
	var wire []openai.Tool
	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			}
		}
		wire = append(wire, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return wire
}
