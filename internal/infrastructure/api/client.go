package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kirillkom/complaint-desk/internal/infrastructure/resilience"
)

const apiPrefix = "/api"

// HeaderSource supplies per-request authentication headers.
type HeaderSource interface {
	AuthHeaders(ctx context.Context) http.Header
	MultipartAuthHeaders(ctx context.Context) http.Header
}

// RequestObserver records one finished API call.
type RequestObserver interface {
	ObserveRequest(operation, outcome string, duration time.Duration)
}

type Options struct {
	Timeout    time.Duration
	HTTPClient *http.Client
	Guard      *resilience.Guard
	Observer   RequestObserver
	Logger     *slog.Logger
}

// Client is the shared transport of the complaint, evidence and auth
// gateways.
type Client struct {
	baseURL    string
	httpClient *http.Client
	guard      *resilience.Guard
	observer   RequestObserver
	logger     *slog.Logger

	mu      sync.RWMutex
	headers HeaderSource
}

func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if opts.Guard == nil {
		opts.Guard = resilience.NewGuard(resilience.Config{}, nil, opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		guard:      opts.Guard,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}
}

// WithCredentials attaches the session headers. The credential store itself
// depends on this client to log in, so it is wired after construction.
func (c *Client) WithCredentials(src HeaderSource) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers = src
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) url(path string) string {
	return c.baseURL + apiPrefix + path
}

func (c *Client) jsonHeaders(ctx context.Context) http.Header {
	c.mu.RLock()
	src := c.headers
	c.mu.RUnlock()
	if src == nil {
		h := http.Header{}
		h.Set("Content-Type", "application/json")
		return h
	}
	return src.AuthHeaders(ctx)
}

func (c *Client) multipartHeaders(ctx context.Context) http.Header {
	c.mu.RLock()
	src := c.headers
	c.mu.RUnlock()
	if src == nil {
		return http.Header{}
	}
	return src.MultipartAuthHeaders(ctx)
}
