package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/noah-isme/compliance-api/pkg/civil"
)

// Client calls a remote date-extraction endpoint.
//
// Request:  POST {endpoint} {"filename","contentType","content"(base64)}
// Response: {"date":"YYYY-MM-DD","confidence":0.93}
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client; a non-positive timeout defaults to 10s.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type extractResponse struct {
	Date       string  `json:"date"`
	Confidence float64 `json:"confidence"`
}

// Extract implements Extractor. Server errors are retried once.
func (c *Client) Extract(ctx context.Context, doc Document) (Result, error) {
	payload, err := json.Marshal(extractRequest{
		Filename:    doc.Name,
		ContentType: doc.ContentType,
		Content:     base64.StdEncoding.EncodeToString(doc.Data),
	})
	if err != nil {
		return Result{}, fmt.Errorf("ocr: encode request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, payload)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusNoContent:
		return Result{}, ErrNoDate
	case resp.StatusCode != http.StatusOK:
		return Result{}, fmt.Errorf("ocr: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("ocr: read body: %w", err)
	}
	var out extractResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{}, fmt.Errorf("ocr: decode json: %w", err)
	}
	if out.Date == "" {
		return Result{}, ErrNoDate
	}
	date, err := civil.Parse(out.Date)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: %w", err)
	}
	return Result{Date: date, Confidence: clamp(out.Confidence), Source: SourceRemote}, nil
}

func (c *Client) doWithRetry(ctx context.Context, payload []byte) (*http.Response, error) {
	resp, err := c.do(ctx, payload)
	shouldRetry := err != nil || resp.StatusCode >= http.StatusInternalServerError
	if !shouldRetry || ctx.Err() != nil {
		return resp, err
	}
	if resp != nil {
		resp.Body.Close()
	}
	return c.do(ctx, payload)
}

func (c *Client) do(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.httpClient.Do(req)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
