package langgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
)

// Options controls Client construction.
type Options struct {
	APIKey     string
	HTTPClient *http.Client
	BufferSize int
}

// Option mutates Options.
type Option func(*Options)

// WithAPIKey sets the X-Api-Key header sent on every request.
func WithAPIKey(key string) Option {
	return func(o *Options) { o.APIKey = key }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

// Client talks to a LangGraph-compatible graph execution service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	bufferSize int
}

// NewClient returns a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("langgraph: base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("langgraph: invalid base URL %q: %w", baseURL, err)
	}

	options := Options{BufferSize: 16}
	for _, opt := range opts {
		opt(&options)
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	if options.BufferSize <= 0 {
		options.BufferSize = 16
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     options.APIKey,
		httpClient: httpClient,
		bufferSize: options.BufferSize,
	}, nil
}

// Streams can run for minutes, so only connection setup is bounded here;
// callers bound the whole run through the context.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   15 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          32,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
		},
	}
}

// CreateThread creates a new server-side thread.
func (c *Client) CreateThread(ctx context.Context) (Thread, error) {
	const op = "threads.create"

	resp, err := c.do(ctx, op, "/threads", map[string]any{}, "application/json")
	if err != nil {
		return Thread{}, err
	}
	defer resp.Body.Close()

	var thread Thread
	if err := json.NewDecoder(resp.Body).Decode(&thread); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Thread{}, transportError(op, err)
		}
		return Thread{}, &ServiceError{Op: op, Reason: ReasonMalformed, Err: fmt.Errorf("decode thread: %w", err)}
	}
	if thread.ThreadID == "" {
		return Thread{}, &ServiceError{Op: op, Reason: ReasonMalformed, Err: errors.New("response carries no thread_id")}
	}
	return thread, nil
}

// StreamRun starts a run on threadID and returns its event stream. Events
// arrive in server order; the reader yields io.EOF once the stream ends and
// a *ServiceError if it breaks. Callers must Close the reader.
func (c *Client) StreamRun(ctx context.Context, threadID string, req RunRequest) (*schema.StreamReader[StreamEvent], error) {
	const op = "runs.stream"

	if threadID == "" {
		return nil, &ServiceError{Op: op, Reason: ReasonRejected, Err: errors.New("thread id is required")}
	}
	if req.StreamMode == "" {
		req.StreamMode = StreamModeValues
	}

	path := "/threads/" + url.PathEscape(threadID) + "/runs/stream"
	resp, err := c.do(ctx, op, path, req, "text/event-stream")
	if err != nil {
		return nil, err
	}

	reader, writer := schema.Pipe[StreamEvent](c.bufferSize)
	go pumpEvents(ctx, op, resp.Body, writer)
	return reader, nil
}

func (c *Client) do(ctx context.Context, op, path string, payload any, accept string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ServiceError{Op: op, Reason: ReasonMalformed, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Op: op, Reason: ReasonUnreachable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ServiceError{
			Op:     op,
			Reason: ReasonRejected,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data))),
		}
	}
	return resp, nil
}

// decodeEventData decodes a data payload. Valid JSON that is not an object
// yields a nil map.
func decodeEventData(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var value any
	if err := sonic.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	obj, _ := value.(map[string]any)
	return obj, nil
}
