package kanbanize

import (
	"bytes"
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-kanbanize/pkg/clients"
	"github.com/ajitpratap0/tap-kanbanize/pkg/config"
	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
	"github.com/ajitpratap0/tap-kanbanize/pkg/json"
	"github.com/ajitpratap0/tap-kanbanize/pkg/metrics"
)

// APIKeyHeader carries the API key on every request
const APIKeyHeader = "apikey"

// maxErrorBody caps how much of a failed response is kept for the error
const maxErrorBody = 512

// Client calls the Kanbanize API for one board
type Client struct {
	config  *config.TapConfig
	http    *clients.HTTPClient
	metrics *metrics.Registry
	logger  *zap.Logger
}

// NewClient creates a client. The HTTP client is owned by the caller.
func NewClient(cfg *config.TapConfig, httpClient *clients.HTTPClient, registry *metrics.Registry, logger *zap.Logger) *Client {
	return &Client{
		config:  cfg,
		http:    httpClient,
		metrics: registry,
		logger:  logger,
	}
}

// HTTPConfig derives the transport settings from the tap configuration
func HTTPConfig(cfg *config.TapConfig) *clients.HTTPConfig {
	httpConfig := clients.DefaultHTTPConfig()
	httpConfig.EnableHTTP2 = cfg.EnableHTTP2
	if cfg.RequestTimeout > 0 {
		httpConfig.RequestTimeout = cfg.RequestTimeout
		httpConfig.ResponseHeaderTimeout = cfg.RequestTimeout
	}
	if cfg.UserAgent != "" {
		httpConfig.UserAgent = cfg.UserAgent
	}
	return httpConfig
}

// FetchAll calls the stream's API function and returns every record of the
// board. The API has no pagination: the whole board arrives in one response.
func (c *Client) FetchAll(ctx context.Context, stream Stream) ([]map[string]interface{}, error) {
	url := c.config.Endpoint(stream.Function)
	c.logger.Info("requesting records",
		zap.String("stream", stream.ID),
		zap.String("function", stream.Function),
		zap.String("board_id", c.config.BoardID))

	timer := c.metrics.HTTPRequestTimer(stream.ID)
	resp, err := c.http.Post(ctx, url, nil, map[string]string{
		APIKeyHeader:   c.config.APIKey,
		"Content-Type": "application/json",
	})
	if err != nil {
		timer.Stop(0, err)
		return nil, errors.Wrap(err, errors.ErrorTypeRequest, "kanbanize request failed").
			WithDetail("stream", stream.ID).
			WithDetail("function", stream.Function)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	timer.Stop(resp.StatusCode, readErr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf(errors.ErrorTypeRequest, "kanbanize returned %s", resp.Status).
			WithDetail("stream", stream.ID).
			WithDetail("status_code", resp.StatusCode).
			WithDetail("body", truncate(body, maxErrorBody))
	}
	if readErr != nil {
		return nil, errors.Wrap(readErr, errors.ErrorTypeRequest, "failed to read kanbanize response").
			WithDetail("stream", stream.ID)
	}

	return decodeRecords(body, stream.ID)
}

// decodeRecords parses a JSON array of objects, keeping numbers as text
func decodeRecords(body []byte, streamID string) ([]map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New(errors.ErrorTypeMalformedResponse, "response is not a JSON array").
			WithDetail("stream", streamID).
			WithDetail("body", truncate(body, maxErrorBody))
	}

	records := make([]map[string]interface{}, 0)
	if err := json.UnmarshalNumbers(trimmed, &records); err != nil {
		if err == json.ErrTrailingContent {
			return nil, errors.New(errors.ErrorTypeMalformedResponse, "response has content after the JSON array").
				WithDetail("stream", streamID).
				WithDetail("body", truncate(body, maxErrorBody))
		}
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedResponse, "response is not a JSON array of objects").
			WithDetail("stream", streamID)
	}
	for i, record := range records {
		if record == nil {
			return nil, errors.Newf(errors.ErrorTypeMalformedResponse, "response element %d is not an object", i).
				WithDetail("stream", streamID)
		}
	}
	return records, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
