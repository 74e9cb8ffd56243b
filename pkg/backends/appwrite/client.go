package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

const defaultTimeout = 30 * time.Second

// Backend implements core.Backend and core.RowBackend over HTTP.
type Backend struct {
	endpoint string
	project  string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

var (
	_ core.Backend    = (*Backend)(nil)
	_ core.RowBackend = (*Backend)(nil)
)

// New creates an unconnected backend. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{logger: logger}
}

// Connect validates the endpoint and credentials. It makes no request;
// use Ping to verify them against the server.
// The "timeout" option sets the HTTP client timeout (default 30s).
func (b *Backend) Connect(_ context.Context, cfg core.BackendConfig) error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("appwrite endpoint is required")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid appwrite endpoint %q", cfg.Endpoint)
	}
	if cfg.ProjectID == "" {
		return fmt.Errorf("appwrite project id is required")
	}

	timeout := defaultTimeout
	if v, ok := cfg.Options["timeout"]; ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid timeout option %q: %w", v, err)
		}
		timeout = d
	}

	b.endpoint = strings.TrimRight(cfg.Endpoint, "/")
	b.project = cfg.ProjectID
	b.apiKey = cfg.APIKey
	if b.client == nil {
		b.client = &http.Client{Timeout: timeout}
	}
	b.logger.Debug("configured appwrite backend", "endpoint", b.endpoint, "project", b.project)
	return nil
}

// Close releases idle connections.
func (b *Backend) Close() error {
	if b.client != nil {
		b.client.CloseIdleConnections()
	}
	return nil
}

// apiErrorBody is the error document returned by Appwrite.
type apiErrorBody struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

// query builds a JSON-encoded Appwrite query.
func query(method string, values ...any) string {
	q := struct {
		Method string `json:"method"`
		Values []any  `json:"values,omitempty"`
	}{Method: method, Values: values}
	data, _ := json.Marshal(q)
	return string(data)
}

// do sends a request and decodes a JSON response into out (if non-nil).
// Non-2xx responses are returned as *core.APIError.
func (b *Backend) do(ctx context.Context, method, path string, queries []string, body, out any) error {
	if b.client == nil {
		return fmt.Errorf("appwrite backend not connected")
	}

	u := b.endpoint + path
	if len(queries) > 0 {
		v := url.Values{}
		for _, q := range queries {
			v.Add("queries[]", q)
		}
		u += "?" + v.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Appwrite-Project", b.project)
	if b.apiKey != "" {
		req.Header.Set("X-Appwrite-Key", b.apiKey)
	}
	req.Header.Set("X-Appwrite-Response-Format", "1.8.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	b.logger.Debug("appwrite request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &core.APIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var eb apiErrorBody
		if json.Unmarshal(data, &eb) == nil && eb.Message != "" {
			apiErr.Message = eb.Message
			apiErr.Type = eb.Type
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func escape(s string) string {
	return url.PathEscape(s)
}

func databasePath(databaseID string) string {
	return "/tablesdb/" + escape(databaseID)
}

func tablePath(databaseID, tableID string) string {
	return databasePath(databaseID) + "/tables/" + escape(tableID)
}
