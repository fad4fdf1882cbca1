// Package api is the HTTP client for the warehouse backend.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/fleetview/errors"
	"github.com/grovetools/fleetview/logging"
	"github.com/grovetools/fleetview/pkg/clock"
	"github.com/grovetools/fleetview/pkg/session"
	"github.com/grovetools/fleetview/schema"
	"github.com/grovetools/fleetview/version"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTimeout applies to every request when none is configured.
const DefaultTimeout = 10 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Session *session.Session
	// HeartbeatTimeout marks robots whose last update is older than this as
	// disconnected. Zero trusts the backend status alone.
	HeartbeatTimeout time.Duration
	HTTPClient       *http.Client
	Clock            clock.Clock
	Logger           *logrus.Entry
}

// Client calls the backend REST API.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	session          *session.Session
	heartbeatTimeout time.Duration
	validator        *schema.Validator
	clock            clock.Clock
	logger           *logrus.Entry
}

// New creates a Client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.ConfigInvalid(fmt.Sprintf("invalid server base_url %q", opts.BaseURL))
	}
	validator, err := schema.Default()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to load snapshot schema")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("api")
	}
	return &Client{
		baseURL:          strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient:       opts.HTTPClient,
		session:          opts.Session,
		heartbeatTimeout: opts.HeartbeatTimeout,
		validator:        validator,
		clock:            opts.Clock,
		logger:           opts.Logger,
	}, nil
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Session returns the session the client authenticates with, if any.
func (c *Client) Session() *session.Session { return c.session }

// WithSession returns a copy of the client that authenticates as s.
func (c *Client) WithSession(s *session.Session) *Client {
	cp := *c
	cp.session = s
	return &cp
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.session.Valid() {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
	return req, nil
}

// do sends req and returns the body of a 2xx response. Other statuses become
// BACKEND_ERROR (or AUTH_FAILED for 401) carrying the backend's detail.
func (c *Client) do(req *http.Request) ([]byte, error) {
	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackend, fmt.Sprintf("request to %s failed", req.URL.Path))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackend, fmt.Sprintf("failed to read response from %s", req.URL.Path))
	}

	c.logger.WithFields(logrus.Fields{
		"method":   req.Method,
		"path":     req.URL.Path,
		"status":   resp.StatusCode,
		"duration": c.clock.Now().Sub(start),
	}).Debug("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := errorDetail(data)
		if resp.StatusCode == http.StatusUnauthorized {
			if detail == "" {
				detail = "unauthorized"
			}
			return nil, errors.AuthFailed(detail).WithDetail("status", resp.StatusCode)
		}
		return nil, errors.BackendStatus(req.URL.Path, resp.StatusCode, detail)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	data, err := c.do(req)
	if err != nil {
		return err
	}
	return decode(path, data, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	data, err := c.do(req)
	if err != nil {
		return err
	}
	return decode(path, data, out)
}

func decode(path string, data []byte, out interface{}) error {
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.ErrCodeBackend, fmt.Sprintf("failed to decode response from %s", path))
	}
	return nil
}

// errorDetail extracts a user-visible message from an error body. The
// backend answers {"detail": "..."}, or a list of field errors on
// validation failures.
func errorDetail(data []byte) string {
	var body struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	switch d := body.Detail.(type) {
	case string:
		return d
	case []interface{}:
		var parts []string
		for _, item := range d {
			if m, ok := item.(map[string]interface{}); ok {
				if msg, ok := m["msg"].(string); ok {
					parts = append(parts, msg)
					continue
				}
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "; ")
	case nil:
		return ""
	default:
		return fmt.Sprint(d)
	}
}
