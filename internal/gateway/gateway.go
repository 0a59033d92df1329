// Package gateway performs the client's HTTP calls through one shared,
// pinned-certificate HTTP client.
//
// Every call returns a Result instead of an error: exactly one of Body and
// Err is non-empty, and no failure (network, TLS, encoding, missing upload
// file, or a panic) escapes to the caller.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yasskadd/scrabble/internal/logging"
)

// MaxResponseSize bounds the response body read into a Result.
const MaxResponseSize = 32 << 20

// RequestIDHeader carries the per-call id to the server.
const RequestIDHeader = "X-Request-Id"

// Result is the outcome of one call as returned to the UI.
type Result struct {
	Body string `json:"body"`
	Err  string `json:"err"`
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == "" }

func failure(format string, args ...any) Result {
	return Result{Err: fmt.Sprintf(format, args...)}
}

// Request describes one call.
type Request struct {
	// URL is absolute, or relative to the gateway base URL.
	URL string
	// Body is sent as application/json when there is no file. With a PATCH
	// upload it is the value of the text part.
	Body string
	// FilePath, when set, turns the call into a multipart upload and the
	// Body is no longer sent as JSON.
	FilePath string
	// FieldKey names the text part of a PATCH upload.
	FieldKey string
}

// Gateway issues HTTP calls. It holds no per-call state and is safe for
// concurrent use.
type Gateway struct {
	client  *http.Client
	baseURL *url.URL
	logger  *slog.Logger
}

// New creates a gateway around client. baseURL, when not empty, resolves
// relative request URLs.
func New(client *http.Client, baseURL string) (*Gateway, error) {
	g := &Gateway{client: client, logger: logging.Gateway()}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("base URL %q is not absolute", baseURL)
		}
		g.baseURL = u
	}
	return g, nil
}

// Get performs a GET call.
func (g *Gateway) Get(ctx context.Context, req Request) Result {
	return g.Do(ctx, http.MethodGet, req)
}

// Post performs a POST call.
func (g *Gateway) Post(ctx context.Context, req Request) Result {
	return g.Do(ctx, http.MethodPost, req)
}

// Put performs a PUT call.
func (g *Gateway) Put(ctx context.Context, req Request) Result {
	return g.Do(ctx, http.MethodPut, req)
}

// Patch performs a PATCH call.
func (g *Gateway) Patch(ctx context.Context, req Request) Result {
	return g.Do(ctx, http.MethodPatch, req)
}

// Delete performs a DELETE call.
func (g *Gateway) Delete(ctx context.Context, req Request) Result {
	return g.Do(ctx, http.MethodDelete, req)
}

// Do performs a call with the given method.
func (g *Gateway) Do(ctx context.Context, method string, req Request) (res Result) {
	requestID := uuid.New().String()
	logger := g.logger.With("request_id", requestID, "method", method)

	defer func() {
		if p := recover(); p != nil {
			logger.Error("HTTP call panicked", "panic", p)
			res = failure("internal error: %v", p)
		}
	}()

	target, err := g.resolve(req.URL)
	if err != nil {
		logger.Warn("Invalid request URL", "url", req.URL, "error", err)
		return failure("invalid URL: %v", err)
	}
	logger = logger.With("url", target)

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.FilePath != "":
		data, ct, err := buildMultipart(method, req.FilePath, req.FieldKey, req.Body)
		if err != nil {
			logger.Warn("Failed to build upload", "file", req.FilePath, "error", err)
			return failure("%v", err)
		}
		body, contentType = bytes.NewReader(data), ct
	case req.Body != "":
		body, contentType = strings.NewReader(req.Body), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return failure("failed to create request: %v", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		logger.Warn("HTTP call failed", "error", err, "duration", time.Since(start))
		return failure("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		logger.Warn("Failed to read response", "status", resp.StatusCode, "error", err)
		return failure("failed to read response: %v", err)
	}

	logger.Debug("HTTP call completed",
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration", time.Since(start),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		if len(data) == 0 {
			return failure("%s", resp.Status)
		}
		return failure("%s: %s", resp.Status, data)
	}
	if len(data) == 0 {
		// Keep exactly one field populated.
		return Result{Body: "null"}
	}
	return Result{Body: string(data)}
}

func (g *Gateway) resolve(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
		}
		return u.String(), nil
	}
	if g.baseURL == nil {
		return "", fmt.Errorf("relative URL %q without a base URL", raw)
	}
	return g.baseURL.ResolveReference(u).String(), nil
}
