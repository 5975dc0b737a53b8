// Package remote calls the simplification service. The service is
// untrusted on latency and availability; any non-success outcome is
// reported as a single error kind and left to the caller to absorb.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"klartext/internal/errors"
)

// Request is the service request body.
type Request struct {
	Input          string `json:"input"`
	Format         string `json:"format"`
	Mode           string `json:"mode"`
	MaxOutputChars int    `json:"max_output_chars"`
}

// Response is the service response body.
type Response struct {
	JobID            string `json:"job_id"`
	Status           string `json:"status"`
	ModelVersion     string `json:"model_version"`
	Output           string `json:"output"`
	ProcessingTimeMs int    `json:"processing_time_ms"`
	CacheHit         bool   `json:"cache_hit"`
}

// Client talks to one service endpoint.
type Client struct {
	endpoint   string
	maxChars   int
	httpClient *http.Client
}

// NewClient creates a client for the given endpoint. timeout bounds each
// call end to end.
func NewClient(endpoint string, maxChars int, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		maxChars:   maxChars,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Simplify submits one text fragment. Format is always "text": markup is
// handled by the scanner, never forwarded to the service.
func (c *Client) Simplify(ctx context.Context, text, mode string) (*Response, error) {
	body, err := json.Marshal(Request{
		Input:          text,
		Format:         "text",
		Mode:           mode,
		MaxOutputChars: c.maxChars,
	})
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewRemoteFailed(0, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.NewRemoteFailed(resp.StatusCode, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		// Error bodies have no fixed schema; pull the FastAPI-style
		// detail field when present.
		detail := gjson.GetBytes(raw, "detail").String()
		if detail == "" {
			detail = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, errors.NewRemoteFailed(resp.StatusCode, detail)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.NewRemoteFailed(resp.StatusCode, "malformed response body")
	}

	if out.Status == "failed" || out.Output == "" {
		return nil, errors.NewRemoteFailed(resp.StatusCode, "service reported failure")
	}

	return &out, nil
}
