package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

const (
	dashboardPath = "/api/dashboard"
	sellPath      = "/api/sell"
	refillPath    = "/api/refill"
)

// StatusError is returned when the upstream answers with a non-2xx status
type StatusError struct {
	Status  int
	Message string
	cause   error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream responded %d", e.Status)
	}
	return fmt.Sprintf("upstream responded %d: %s", e.Status, e.Message)
}

// Unwrap exposes the sentinel the status maps to, if any
func (e *StatusError) Unwrap() error {
	return e.cause
}

// HTTPSource pulls from and sends commands to an upstream spreadsheet server
type HTTPSource struct {
	BaseURL    string
	HTTPClient *http.Client
}

// HTTPOption configures an HTTPSource
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.HTTPClient = c
		}
	}
}

// NewHTTPSource creates a source for the server at baseURL (e.g. http://localhost:3001)
func NewHTTPSource(baseURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *HTTPSource) Kind() string { return "http" }

// Pull fetches the whole dataset. Numbers are kept as json.Number so ids survive untouched.
func (s *HTTPSource) Pull(ctx context.Context) (*domain.RawDataset, error) {
	var ds domain.RawDataset
	if err := s.do(ctx, http.MethodGet, dashboardPath, "", nil, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (s *HTTPSource) Sell(ctx context.Context, cmd domain.SellCommand) error {
	return s.do(ctx, http.MethodPost, sellPath, cmd.CommandID, cmd, nil)
}

func (s *HTTPSource) Refill(ctx context.Context, cmd domain.RefillCommand) error {
	return s.do(ctx, http.MethodPost, refillPath, cmd.CommandID, cmd, nil)
}

func (s *HTTPSource) do(ctx context.Context, method, path, requestID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp, body != nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// statusError maps command rejections onto the sentinel errors
func statusError(resp *http.Response, command bool) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			msg = payload.Error
		} else if payload.Message != "" {
			msg = payload.Message
		}
	}

	e := &StatusError{Status: resp.StatusCode, Message: msg}
	if !command {
		return e
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		e.cause = ErrStockRowNotFound
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "insufficient"):
		e.cause = ErrInsufficientStock
	}
	return e
}
