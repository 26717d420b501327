package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
)

// Client is a typed handle to one OpenAI-compatible gateway.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New builds a Client. httpClient may be nil, in which case a client with a
// generous transport timeout is created; callers govern the actual call
// duration through the context they pass to Stream/Complete.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: httpClient}
}

// Stream issues a streaming chat-completions call and returns the raw
// response body for pkg/sse to demultiplex. The caller must Close the
// returned io.ReadCloser. Cancelling ctx aborts the read immediately.
func (c *Client) Stream(ctx context.Context, req Request) (io.ReadCloser, http.Header, error) {
	req.Stream = true
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, gatewayErrorFromResponse(resp)
	}
	return resp.Body, resp.Header, nil
}

// Complete issues a non-streaming call and decodes the response. Used by
// the usage probe (max_tokens=1) when header-reported usage is absent.
func (c *Client) Complete(ctx context.Context, req Request) (*NonStreamResponse, http.Header, error) {
	req.Stream = false
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, gatewayErrorFromResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, apperrors.NewUnknownError(fmt.Errorf("reading gateway response: %w", err))
	}
	var out NonStreamResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, nil, apperrors.NewUnknownError(fmt.Errorf("decoding gateway response: %w", err))
	}
	return &out, resp.Header, nil
}

func (c *Client) do(ctx context.Context, req Request) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.NewUnknownError(fmt.Errorf("encoding gateway request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewUnknownError(fmt.Errorf("building gateway request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewUnknownError(fmt.Errorf("gateway request failed: %w", err))
	}
	return resp, nil
}

func gatewayErrorFromResponse(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
	return apperrors.NewGatewayError(resp.StatusCode, string(body))
}
