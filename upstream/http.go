package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("sentinela-upstream")

// DefaultTimeout is the per-call deadline (spec.md §5: "per upstream call
// (configurable, default 30 s)").
const DefaultTimeout = 30 * time.Second

// tokenCache holds the bearer token issued by the upstream's auth
// endpoint, refreshed on 401.
type tokenCache struct {
	mu    sync.Mutex
	token string
}

func (c *tokenCache) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *tokenCache) set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Authenticator fetches a fresh bearer token. The composition root wires
// this to the upstream's own login endpoint.
type Authenticator func(ctx context.Context) (string, error)

// HTTPClient implements Client against a real HTTP upstream.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	auth    Authenticator
	tokens  *tokenCache
	log     *slog.Logger
}

// NewHTTPClient builds an HTTPClient.
func NewHTTPClient(baseURL string, httpClient *http.Client, auth Authenticator, log *slog.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPClient{baseURL: baseURL, http: httpClient, auth: auth, tokens: &tokenCache{}, log: log}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, span := tracer.Start(ctx, "upstream."+method+" "+path, trace.WithAttributes(
		attribute.String("upstream.method", method),
		attribute.String("upstream.path", path),
	))
	defer span.End()

	resp, err := c.doWithToken(ctx, method, path, body, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		resp, err = c.doWithToken(ctx, method, path, body, true)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
	}

	return c.decode(resp, out)
}

func (c *HTTPClient) doWithToken(ctx context.Context, method, path string, body any, forceRefresh bool) (*http.Response, error) {
	token := c.tokens.get()
	if token == "" || forceRefresh {
		fresh, err := c.auth(ctx)
		if err != nil {
			return nil, &Error{Code: "auth_failed", Retryable: true, Message: err.Error()}
		}
		c.tokens.set(fresh)
		token = fresh
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("upstream: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Code: "connection_error", Retryable: true, Message: err.Error()}
	}
	return resp, nil
}

func (c *HTTPClient) decode(resp *http.Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("upstream: decode response: %w", err)
		}
		return nil
	}

	upErr := &Error{
		StatusCode: resp.StatusCode,
		Retryable:  isRetryable(resp.StatusCode),
		Message:    http.StatusText(resp.StatusCode),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		upErr.Code = "rate_limited"
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			upErr.RetryAfter = secs
		}
	} else if resp.StatusCode == http.StatusNotFound {
		upErr.Code = "not_found"
	} else if resp.StatusCode == http.StatusConflict {
		upErr.Code = "conflict"
	} else {
		upErr.Code = "upstream_error"
	}
	return upErr
}

// isRetryable classifies status codes per spec.md §4.8: "all connection
// errors, timeouts, 429, 5xx".
func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (c *HTTPClient) VerifyClientByCPF(ctx context.Context, cpfDigits string, includeContracts bool) (*ClientRecord, bool, error) {
	var record ClientRecord
	path := fmt.Sprintf("/clients/by-cpf/%s?include_contracts=%v", cpfDigits, includeContracts)
	if err := c.do(ctx, http.MethodGet, path, nil, &record); err != nil {
		if upErr, ok := err.(*Error); ok && upErr.Code == "not_found" {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &record, true, nil
}

func (c *HTTPClient) CreateTicket(ctx context.Context, payload TicketPayload) (string, string, error) {
	var out struct {
		UpstreamID string `json:"upstream_id"`
		Protocol   string `json:"protocol"`
	}
	if err := c.do(ctx, http.MethodPost, "/tickets", payload, &out); err != nil {
		return "", "", err
	}
	return out.UpstreamID, out.Protocol, nil
}

func (c *HTTPClient) UpdateTicket(ctx context.Context, upstreamID string, patch map[string]any) error {
	return c.do(ctx, http.MethodPatch, "/tickets/"+upstreamID, patch, nil)
}

func (c *HTTPClient) GetTicketStatus(ctx context.Context, upstreamID string) (*TicketStatus, error) {
	var status TicketStatus
	if err := c.do(ctx, http.MethodGet, "/tickets/"+upstreamID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) SearchTicketsByCPF(ctx context.Context, cpfDigits string, limit int) ([]TicketStatus, error) {
	var out []TicketStatus
	path := fmt.Sprintf("/tickets/by-cpf/%s?limit=%d", cpfDigits, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetClientContracts(ctx context.Context, cpfDigits string) ([]Contract, error) {
	var out []Contract
	if err := c.do(ctx, http.MethodGet, "/clients/by-cpf/"+cpfDigits+"/contracts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CheckHealth(ctx context.Context) (*Health, error) {
	start := time.Now()
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &Health{Status: out.Status, ResponseTimeMS: time.Since(start).Milliseconds()}, nil
}

var _ Client = (*HTTPClient)(nil)
