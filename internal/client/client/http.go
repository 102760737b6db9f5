package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/bookexplorer/internal/logging"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20

	// RequestIDHeader carries a per-call id for correlating client and server logs.
	RequestIDHeader = "X-Request-ID"
)

// Gateway is the remote transport used by every component of the core.
// query may be nil; out may be nil when the payload is not needed.
type Gateway interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// TokenSource supplies the access token attached to outgoing calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, bool)
}

// Options configures an HTTPClient. Zero values fall back to defaults;
// RequestsPerSecond <= 0 disables pacing.
type Options struct {
	BaseURL             string
	Timeout             time.Duration
	RequestsPerSecond   float64
	Burst               int
	BreakerTimeout      time.Duration
	BreakerMinRequests  uint32
	BreakerFailureRatio float64

	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// HTTPClient is the REST implementation of Gateway.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     logging.Logger
}

var _ Gateway = (*HTTPClient)(nil)

// NewHTTPClient validates opts and builds a gateway. tokens may be nil, in
// which case every call is sent unauthenticated.
func NewHTTPClient(opts Options, tokens TokenSource, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    hc,
		tokens:  tokens,
		log:     log.With("component", "gateway"),
	}

	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	c.breaker = newBreaker(opts, c.log)
	return c, nil
}

func (c *HTTPClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *HTTPClient) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *HTTPClient) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *HTTPClient) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

type response struct {
	status int
	body   []byte
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return transportError(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	reqID := uuid.NewString()
	start := time.Now()

	var resp *response
	_, err := c.breaker.Execute(func() (any, error) {
		r, err := c.send(ctx, method, path, query, body, reqID)
		if err != nil {
			return nil, err
		}
		resp = r
		if r.status >= 500 {
			return nil, errServerStatus
		}
		return nil, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.log.Warn(ctx, "request rejected by circuit breaker", "method", method, "path", path, "request_id", reqID)
		return &APIError{Message: unavailableMessage, Kind: KindTransport, Err: err}
	case err != nil && resp == nil:
		c.log.Debug(ctx, "request failed", "method", method, "path", path, "request_id", reqID, "err", err)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return transportError(err)
	}

	c.log.Debug(ctx, "request done",
		"method", method,
		"path", path,
		"status", resp.status,
		"request_id", reqID,
		"elapsed", time.Since(start),
	)

	if resp.status < 200 || resp.status > 299 {
		return statusError(resp.status, resp.body)
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &APIError{Message: malformedPayloadMessage, StatusCode: resp.status, Kind: KindUnknown, Err: err}
	}
	return nil
}

// errServerStatus marks a 5xx answer as a failure for the breaker only.
var errServerStatus = errors.New("server status")

func (c *HTTPClient) send(ctx context.Context, method, path string, query url.Values, body any, reqID string) (*response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{Message: "cannot encode request", Kind: KindUnknown, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &APIError{Message: "cannot build request", Kind: KindUnknown, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token, ok := c.tokens.AccessToken(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &response{status: res.StatusCode, body: data}, nil
}
