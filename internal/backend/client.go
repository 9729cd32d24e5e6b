// Package backend is the typed client of the blood-bank REST API. Every call
// carries the session's bearer token and interprets the backend's
// {success, message, ...} envelope.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodyBytes = 8 << 20

// Client talks to the backend on behalf of one bearer token. The zero token
// is allowed for the public auth endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	now     func() time.Time
}

// New returns an anonymous client. baseURL includes any API prefix, such as
// https://bloodbank.example.org/api/v1.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		now:     time.Now,
	}
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token is the bearer token in use.
func (c *Client) Token() string { return c.token }

// Envelope is the part of every response shared by all endpoints.
type Envelope struct {
	Success        *bool  `json:"success"`
	Message        string `json:"message,omitempty"`
	AccountBlocked bool   `json:"accountBlocked,omitempty"`
}

// Message is the envelope of write endpoints that return nothing else.
type Message struct {
	Envelope
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	return c.do(ctx, op, http.MethodGet, path, q, nil, out)
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	return c.do(ctx, op, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, op, path string, body, out any) error {
	return c.do(ctx, op, http.MethodPut, path, nil, body, out)
}

func (c *Client) del(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body, out any) error {
	if c.token != "" {
		if claims, err := ParseTokenClaims(c.token); err == nil && claims.Expired(c.now()) {
			return &RequestError{Op: op, Status: http.StatusUnauthorized, Message: "Your session has expired, please log in again."}
		}
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Err: fmt.Errorf("encode body: %w", err)}
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	slog.DebugContext(ctx, "backend call", "op", op, "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "backend call failed", "op", op, "err", err)
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	var env Envelope
	envErr := json.Unmarshal(raw, &env)
	if env.AccountBlocked {
		return &RequestError{Op: op, Status: resp.StatusCode, Message: env.Message, Blocked: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.DebugContext(ctx, "backend call rejected", "op", op, "status", resp.StatusCode, "message", env.Message)
		return &RequestError{Op: op, Status: resp.StatusCode, Message: env.Message}
	}
	if envErr != nil {
		return &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", envErr)}
	}
	if env.Success != nil && !*env.Success {
		return &RequestError{Op: op, Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode %s: %w", op, err)}
		}
	}
	return nil
}

func escape(id string) string { return url.PathEscape(id) }
