package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type requestBuilder func(ctx context.Context) (*http.Request, error)

type responseHandler func(resp *http.Response) error

// do runs one guarded request. Non-2xx answers become *HTTPStatusError.
func (c *Client) do(ctx context.Context, operation string, build requestBuilder, handle responseHandler) error {
	start := time.Now()
	err := c.guard.Do(ctx, operation, func(ctx context.Context) error {
		req, err := build(ctx)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("api %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return formatHTTPError(operation, resp)
		}
		if handle == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return handle(resp)
	}, countsAsFailure)

	duration := time.Since(start)
	outcome := outcomeOf(err)
	if c.observer != nil {
		c.observer.ObserveRequest(operation, outcome, duration)
	}
	c.logger.Debug("gateway_request",
		"operation", operation,
		"outcome", outcome,
		"duration_ms", float64(duration.Microseconds())/1000.0,
	)
	return err
}

func (c *Client) getJSON(ctx context.Context, operation, path string, query url.Values, out any) error {
	target := c.url(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, operation, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		copyHeaders(req.Header, c.jsonHeaders(ctx))
		req.Header.Del("Content-Type")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, decodeInto(operation, out))
}

func (c *Client) postJSON(ctx context.Context, operation, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}
	return c.do(ctx, operation, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		copyHeaders(req.Header, c.jsonHeaders(ctx))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, decodeInto(operation, out))
}

func decodeInto(operation string, out any) responseHandler {
	return func(resp *http.Response) error {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}
}

func formatHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			if v == "" {
				continue
			}
			dst.Add(key, v)
		}
	}
}
