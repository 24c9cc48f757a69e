// Package optimizer is the HTTP client for the external portfolio
// optimization service.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/portfolio-pilot/internal/portfolio"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"go.uber.org/zap"
)

// Client calls the optimization service.
type Client struct {
	baseURL         string
	path            string
	endpoint        string
	httpClient      *http.Client
	maxResponseSize int64
	validate        *validator.Validate
	logger          *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithPath overrides the endpoint path (default "/optimize").
func WithPath(path string) Option {
	return func(client *Client) {
		if path = strings.TrimSpace(path); path != "" {
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			client.path = path
		}
	}
}

// WithMaxResponseSize caps how many bytes of a response body are read.
func WithMaxResponseSize(size int64) Option {
	return func(client *Client) {
		if size > 0 {
			client.maxResponseSize = size
		}
	}
}

// WithTimeout sets the HTTP client timeout. Callers usually bound requests
// through the context instead.
func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		if timeout > 0 {
			client.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:         strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		path:            constants.DefaultOptimizerPath,
		httpClient:      &http.Client{Timeout: constants.DefaultOptimizerTimeout},
		maxResponseSize: constants.DefaultMaxResponseSizeBytes,
		validate:        validator.New(),
		logger:          logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.endpoint = c.baseURL + c.path
	return c
}

// Endpoint returns the full URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type optimizeRequest struct {
	Tickers []string `json:"tickers"`
}

type optimizeResponse struct {
	Portfolios []portfolio.Portfolio `json:"portfolios" validate:"required,dive"`
	Error      string                `json:"error"`
}

// Optimize requests candidate portfolios for tickers. Errors are either
// *ApplicationError (the service explained the failure) or *TransportError.
func (c *Client) Optimize(ctx context.Context, tickers []string) ([]portfolio.Portfolio, error) {
	payload, err := json.Marshal(optimizeRequest{Tickers: tickers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("calling optimization service",
		zap.String("op", "optimizer.Optimize"),
		zap.String("endpoint", c.endpoint),
		zap.Strings("tickers", tickers),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body",
				zap.String("op", "optimizer.Optimize"),
				zap.Error(closeErr),
			)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var decoded optimizeResponse
	decodeErr := json.Unmarshal(body, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && strings.TrimSpace(decoded.Error) != "" {
			return nil, &ApplicationError{Status: resp.StatusCode, Message: decoded.Error}
		}
		if msg := errorFieldOnly(body); msg != "" {
			return nil, &ApplicationError{Status: resp.StatusCode, Message: msg}
		}
		return nil, &TransportError{Status: resp.StatusCode}
	}

	if decodeErr != nil {
		if msg := errorFieldOnly(body); msg != "" {
			return nil, &ApplicationError{Status: resp.StatusCode, Message: msg}
		}
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)}
	}
	if strings.TrimSpace(decoded.Error) != "" {
		return nil, &ApplicationError{Status: resp.StatusCode, Message: decoded.Error}
	}
	if err := c.validate.Struct(decoded); err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}

	c.logger.Debug("optimization service call successful",
		zap.String("op", "optimizer.Optimize"),
		zap.Int("portfolios", len(decoded.Portfolios)),
	)

	return decoded.Portfolios, nil
}

// errorFieldOnly extracts a string "error" field from a body whose other
// fields did not decode.
func errorFieldOnly(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || strings.TrimSpace(envelope.Error) == "" {
		return ""
	}
	return envelope.Error
}
