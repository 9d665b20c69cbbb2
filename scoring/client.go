// Package scoring talks to the remote habitability scoring service.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"exohabit/planet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultBaseURL = "http://127.0.0.1:5000"

const maxBodySize = 4 << 20

type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient builds a client for baseURL. The http.Client has no timeout:
// calls end when they complete or their context is cancelled.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		logger:  logger.Named("scoring"),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Predict(ctx context.Context, req planet.PredictionRequest) (*Prediction, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &RequestError{Op: "predict", Err: err}
	}

	body, err := c.call(ctx, "predict", http.MethodPost, "/predict", payload)
	if err != nil {
		return nil, err
	}

	var resp *predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &RequestError{Op: "predict", Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp == nil {
		return nil, &RequestError{Op: "predict", Err: errNullBody}
	}
	return resp.toPrediction(), nil
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	body, err := c.call(ctx, "stats", http.MethodGet, "/stats", nil)
	if err != nil {
		return nil, err
	}

	var stats *Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, &RequestError{Op: "stats", Err: fmt.Errorf("decode response: %w", err)}
	}
	if stats == nil {
		return nil, &RequestError{Op: "stats", Err: errNullBody}
	}
	return stats, nil
}

func (c *Client) Rank(ctx context.Context, limit int) (*Ranking, error) {
	path := "/rank"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	body, err := c.call(ctx, "rank", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	ranking, err := decodeRanking(body)
	if err != nil {
		return nil, &RequestError{Op: "rank", Err: err}
	}
	return ranking, nil
}

// Ping probes the service root. Any HTTP response counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return &RequestError{Op: "ping", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RequestError{Op: "ping", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	c.logger.Debug("ping", zap.Int("status", resp.StatusCode))
	return nil
}

// call performs one request and returns the body of a 2xx response.
// Cancellation is returned as the context error, everything else as a
// *RequestError.
func (c *Client) call(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger := c.logger.With(zap.String("op", op), zap.String("request_id", requestID))
	logger.Debug("sending request", zap.String("method", method), zap.String("path", path))

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RequestError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	logger.Debug("request completed", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))
	return body, nil
}
