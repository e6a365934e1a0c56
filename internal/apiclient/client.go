// Package apiclient talks to the choir HTTP API on behalf of the command line client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gichigi/choir/internal/core"
)

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
	group      singleflight.Group

	mu    sync.RWMutex
	token string
}

func New(baseURL, token string, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		log:        log,
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// APIError is a non-2xx response. It unwraps to the matching error class,
// so callers can use errors.Is with the core sentinels.
type APIError struct {
	Status   int
	Message  string
	Redirect string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return core.ErrValidation
	case http.StatusUnauthorized:
		return core.ErrNotAuthenticated
	case http.StatusPaymentRequired:
		return core.ErrNotEntitled
	case http.StatusForbidden:
		return core.ErrNotAuthorized
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusGatewayTimeout:
		return core.ErrTransport
	case http.StatusServiceUnavailable:
		return core.ErrUnavailable
	default:
		return nil
	}
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// doJSON sends in as the JSON body (when non-nil) and decodes the response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", core.ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api call",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error    string `json:"error"`
			Redirect string `json:"redirect"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp)
		return &APIError{Status: resp.StatusCode, Message: errResp.Error, Redirect: errResp.Redirect}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
