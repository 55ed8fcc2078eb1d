// Package encapsia is a thin client for the Encapsia REST API. It covers
// only what the plugin commands need: running views, launching and polling
// tasks, and uploading blobs. The client never retries; failures carry a
// Kind so callers can tell connection-level errors from server errors.
package encapsia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/encapsia/encapsia-cli/internal/plugininfo"
)

const (
	defaultTimeout  = 5 * time.Minute
	taskPollInitial = 200 * time.Millisecond
	taskPollMax     = 5 * time.Second
)

// Client talks to one Encapsia host with one token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New builds a client for the given base URL (scheme required) and token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the base URL the client talks to.
func (c *Client) URL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, op, method, path string, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindServer, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindConnection, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{
			Kind:   KindServer,
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", bytes.TrimSpace(payload)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindServer, Op: op, Err: fmt.Errorf("decoding response failed: %w", err)}
	}
	return nil
}

// RunView runs a server-side view function and returns its raw result rows.
func (c *Client) RunView(ctx context.Context, namespace, view string) (json.RawMessage, error) {
	var reply struct {
		Result json.RawMessage `json:"result"`
	}
	path := fmt.Sprintf("/v1/views/%s/%s", url.PathEscape(namespace), url.PathEscape(view))
	if err := c.do(ctx, "run view "+namespace+"/"+view, http.MethodGet, path, "", nil, &reply); err != nil {
		return nil, err
	}
	return reply.Result, nil
}

// InstalledPlugins fetches the installed-plugin catalog including tags.
func (c *Client) InstalledPlugins(ctx context.Context) ([]plugininfo.CatalogEntry, error) {
	raw, err := c.RunView(ctx, "pluginsmanager", "plugins")
	if err != nil {
		return nil, err
	}
	var entries []plugininfo.CatalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, &Error{Kind: KindServer, Op: "decode plugin catalog", Err: err}
	}
	return entries, nil
}

// UploadBlob uploads raw bytes and returns the new blob id. Re-uploading
// the same bytes is safe: the server keys blobs by content.
func (c *Client) UploadBlob(ctx context.Context, r io.Reader) (string, error) {
	var reply struct {
		Result struct {
			BlobID string `json:"blob_id"`
		} `json:"result"`
	}
	err := c.do(ctx, "upload blob", http.MethodPost, "/v1/blobs", "application/octet-stream", r, &reply)
	if err != nil {
		return "", err
	}
	if reply.Result.BlobID == "" {
		return "", &Error{Kind: KindServer, Op: "upload blob", Err: fmt.Errorf("server returned no blob id")}
	}
	return reply.Result.BlobID, nil
}

// TaskResult is the final state of a completed task.
type TaskResult struct {
	Status string         `json:"status"`
	Output map[string]any `json:"output,omitempty"`
}

// RunTask launches a task function in the given namespace and polls until
// it completes. Polling backs off from 200ms to 5s; cancellation is via
// ctx. A task that finishes with a non-success status is a server error.
func (c *Client) RunTask(ctx context.Context, namespace, function string, params map[string]string) (*TaskResult, error) {
	op := "run task " + namespace + "/" + function

	body, err := json.Marshal(params)
	if err != nil {
		return nil, &Error{Kind: KindServer, Op: op, Err: err}
	}
	var launched struct {
		Result struct {
			TaskID string `json:"task_id"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/v1/tasks/%s/%s", url.PathEscape(namespace), url.PathEscape(function))
	if err := c.do(ctx, op, http.MethodPost, path, "application/json", bytes.NewReader(body), &launched); err != nil {
		return nil, err
	}
	taskID := launched.Result.TaskID
	if taskID == "" {
		return nil, &Error{Kind: KindServer, Op: op, Err: fmt.Errorf("server returned no task id")}
	}

	c.logger.Debug("polling task", slog.String("namespace", namespace), slog.String("task", taskID))
	return c.pollTask(ctx, op, namespace, taskID)
}

func (c *Client) pollTask(ctx context.Context, op, namespace, taskID string) (*TaskResult, error) {
	path := fmt.Sprintf("/v1/tasks/%s/%s", url.PathEscape(namespace), url.PathEscape(taskID))
	delay := taskPollInitial
	for {
		var reply struct {
			Result TaskResult `json:"result"`
		}
		if err := c.do(ctx, op, http.MethodGet, path, "", nil, &reply); err != nil {
			return nil, err
		}
		switch reply.Result.Status {
		case "finished":
			return &reply.Result, nil
		case "failed":
			return nil, &Error{Kind: KindServer, Op: op, Err: fmt.Errorf("task %s failed: %v", taskID, reply.Result.Output)}
		}

		select {
		case <-ctx.Done():
			return nil, &Error{Kind: KindConnection, Op: op, Err: ctx.Err()}
		case <-time.After(delay):
		}
		if delay *= 2; delay > taskPollMax {
			delay = taskPollMax
		}
	}
}

// WhoamiResult describes the identity behind the configured token.
type WhoamiResult struct {
	Email       string `json:"email"`
	Description string `json:"description,omitempty"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`
}

// Whoami reports the identity of the configured token.
func (c *Client) Whoami(ctx context.Context) (*WhoamiResult, error) {
	var reply struct {
		Result WhoamiResult `json:"result"`
	}
	if err := c.do(ctx, "whoami", http.MethodGet, "/v1/whoami", "", nil, &reply); err != nil {
		return nil, err
	}
	return &reply.Result, nil
}
