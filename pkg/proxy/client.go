package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/net/html/charset"
)

// EndpointKind describes the response shape of a relay service
type EndpointKind string

// relay endpoint kinds
const (
	KindWrapJSON    EndpointKind = "wrap-json"    // returns {"contents": "..."} with the target body inside
	KindPassthrough EndpointKind = "passthrough"  // returns the target body as-is
)

// Endpoint is one relay service used to fetch remote pages on our behalf.
// The target URL is appended to the endpoint URL, query-escaped for
// wrap-json relays and raw for passthrough ones.
type Endpoint struct {
	URL  string
	Kind EndpointKind
}

// ExhaustedError reports that every relay endpoint failed for a target URL
type ExhaustedError struct {
	Target   string
	Attempts int
	LastErr  error
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d relay endpoints failed for %s: %v", e.Attempts, e.Target, e.LastErr)
}

// Unwrap returns the last attempt's error
func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Client fetches remote pages through an ordered list of relay endpoints.
// Endpoints are tried sequentially, each bounded by its own timeout; the
// first successful non-empty payload wins. The client is source-agnostic.
type Client struct {
	endpoints      []Endpoint
	attemptTimeout time.Duration
	maxBodySize    int64
	client         *http.Client
}

// New creates a relay fetch client with the given ordered endpoints
func New(endpoints []Endpoint, attemptTimeout time.Duration, maxBodySize int64) *Client {
	if attemptTimeout == 0 {
		attemptTimeout = 15 * time.Second
	}
	if maxBodySize == 0 {
		maxBodySize = 5 * 1024 * 1024
	}
	return &Client{
		endpoints:      endpoints,
		attemptTimeout: attemptTimeout,
		maxBodySize:    maxBodySize,
		client:         &http.Client{}, // per-attempt timeout comes from the request context
	}
}

// Fetch retrieves the raw content of target through the relay chain.
// Returns ExhaustedError when every endpoint fails.
func (c *Client) Fetch(ctx context.Context, target string) (string, error) {
	if _, err := url.ParseRequestURI(target); err != nil {
		return "", fmt.Errorf("parse target URL: %w", err)
	}

	var lastErr error
	for _, ep := range c.endpoints {
		content, err := c.attempt(ctx, ep, target)
		if err != nil {
			lgr.Printf("[WARN] relay %s failed for %s: %v", ep.URL, target, err)
			lastErr = err
			if ctx.Err() != nil {
				break // run budget spent, no point trying further relays
			}
			continue
		}
		return content, nil
	}

	return "", &ExhaustedError{Target: target, Attempts: len(c.endpoints), LastErr: lastErr}
}

// attempt fetches target through a single relay endpoint
func (c *Client) attempt(ctx context.Context, ep Endpoint, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	requestURL := ep.URL + target
	if ep.Kind == KindWrapJSON {
		requestURL = ep.URL + url.QueryEscape(target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	addBrowserHeaders(req)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // nothing useful to do with close error

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, c.maxBodySize)

	var content string
	switch ep.Kind {
	case KindWrapJSON:
		content, err = decodeWrapped(body)
		if err != nil {
			return "", err
		}
	default:
		// korean boards still serve EUC-KR now and then, decode by declared charset
		reader, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
		if err != nil {
			return "", fmt.Errorf("charset reader: %w", err)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		content = string(data)
	}

	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty payload")
	}
	return content, nil
}

// decodeWrapped extracts the target body from a {"contents": "..."} envelope
func decodeWrapped(r io.Reader) (string, error) {
	var wrapped struct {
		Contents string `json:"contents"`
	}
	if err := json.NewDecoder(r).Decode(&wrapped); err != nil {
		return "", fmt.Errorf("decode relay envelope: %w", err)
	}
	if wrapped.Contents == "" {
		return "", fmt.Errorf("relay envelope has no contents")
	}
	return wrapped.Contents, nil
}
