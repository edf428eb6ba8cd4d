package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// Client calls a sentiment endpoint that speaks this package's API, either
// the local server or a platform deployment.
//
// Platform deployments expose each web function on its own host, so the
// three routes can be given independent URLs; NewClient derives all three
// from one base URL for the local server layout.
type Client struct {
	sentimentURL string
	batchURL     string
	healthURL    string
	httpClient   *http.Client
}

// NewClient creates a Client for a server rooted at baseURL
// (e.g. "http://127.0.0.1:8000").
func NewClient(baseURL string) *Client {
	base := strings.TrimSuffix(baseURL, "/")
	return &Client{
		sentimentURL: base + PathSentiment,
		batchURL:     base + PathBatch,
		healthURL:    base + PathHealth,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewEndpointClient creates a Client that posts analyses to endpointURL
// verbatim. Used for single-function deployments where the endpoint URL
// is the function itself. healthURL may be empty.
func NewEndpointClient(endpointURL, healthURL string) *Client {
	c := NewClient("")
	c.sentimentURL = endpointURL
	c.batchURL = strings.TrimSuffix(endpointURL, "/") + PathBatch
	c.healthURL = healthURL
	return c
}

// WithTimeout bounds each request, including reading the reply. The
// first call to a freshly deployed endpoint loads the model, so this
// should be generous. Values <= 0 keep the default.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.httpClient.Timeout = d
	}
	return c
}

// Analyze sends one text. A result with Status "error" returned by the
// server is not a Go error; transport failures and non-JSON replies are.
func (c *Client) Analyze(ctx context.Context, text string) (*model.Result, error) {
	var res model.Result
	if err := c.post(ctx, c.sentimentURL, model.AnalyzeRequest{Text: text}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AnalyzeBatch sends many texts in one request.
func (c *Client) AnalyzeBatch(ctx context.Context, texts []string) ([]model.Result, error) {
	var res []model.Result
	if err := c.post(ctx, c.batchURL, model.BatchRequest{Texts: texts}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Health calls the health endpoint.
func (c *Client) Health(ctx context.Context) (*model.Health, error) {
	if c.healthURL == "" {
		return nil, model.NewCLIError(model.ExitInvalidInput, "no health endpoint URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidInput, "invalid health URL", err)
	}
	req.Header.Set("Accept", "application/json")

	var h model.Health
	if err := c.do(req, &h, false); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "invalid endpoint URL", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out, true)
}

// do executes req and decodes the JSON reply into out. When
// resultBodies is true, 4xx/5xx replies that still carry a JSON result
// are decoded instead of treated as transport errors.
func (c *Client) do(req *http.Request, out any, resultBodies bool) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.WrapCLIError(model.ExitEndpointUnreachable,
			fmt.Sprintf("request to %s failed", req.URL.Redacted()), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.WrapCLIError(model.ExitEndpointUnreachable, "failed to read response", err)
	}

	if resp.StatusCode >= 400 && !(resultBodies && json.Valid(body) && bytes.HasPrefix(bytes.TrimSpace(body), []byte("{"))) {
		return model.NewCLIError(model.ExitEndpointUnreachable,
			fmt.Sprintf("%s returned HTTP %d: %s", req.URL.Redacted(), resp.StatusCode, truncate(body, 200)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return model.WrapCLIError(model.ExitEndpointUnreachable,
			fmt.Sprintf("unexpected response from %s", req.URL.Redacted()), err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
