package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultCooldown = 1 * time.Second

	// bodySnippetLen bounds how much of an error response body is kept
	// for diagnostics.
	bodySnippetLen = 200
)

// Request describes one HTTP or GraphQL call. Body, when non-nil, is
// JSON-encoded and sent with a JSON content type.
type Request struct {
	Method  string
	URL     string
	Query   map[string]string
	Headers map[string]string
	Body    any
}

// Response is a successful (2xx) provider response.
type Response struct {
	Status int
	Body   []byte
}

// Failure describes a fetch that did not produce a usable response: a
// non-success status after the single retry, or a transport-level error
// (Status 0). It is an error value; it never escapes as a panic and the
// coordinator treats it as a skippable per-item outcome.
type Failure struct {
	Provider domain.Provider
	URL      string
	Status   int
	Body     string
	Err      error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s fetch failed: %v", f.Provider, f.Err)
	}
	return fmt.Sprintf("%s fetch failed: status %d: %s", f.Provider, f.Status, f.Body)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Executor issues provider requests with a fixed timeout, optional
// client-side pacing, and a single retry on rate limiting. Adapters never
// see a transport error; everything surfaces as *Failure.
type Executor struct {
	provider domain.Provider
	client   *resty.Client
	limiter  *rate.Limiter
	cooldown time.Duration
	logger   *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.client.SetTimeout(d)
	}
}

// WithCooldown overrides the rate-limit cooldown before the single retry.
func WithCooldown(d time.Duration) Option {
	return func(e *Executor) {
		e.cooldown = d
	}
}

// WithLimiter sets a client-side request pacer, waited on before every
// request including pagination continuations.
func WithLimiter(l *rate.Limiter) Option {
	return func(e *Executor) {
		e.limiter = l
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// NewExecutor creates an Executor for one provider.
func NewExecutor(provider domain.Provider, opts ...Option) *Executor {
	e := &Executor{
		provider: provider,
		client:   resty.New().SetTimeout(DefaultTimeout),
		cooldown: DefaultCooldown,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs the request. On HTTP 429 it waits the cooldown and
// retries exactly once; a second rate limit or any other non-2xx status
// yields a *Failure carrying the status and a truncated body. Transport
// errors yield a *Failure with Status 0.
func (e *Executor) Execute(ctx context.Context, req *Request) (*Response, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, &Failure{Provider: e.provider, URL: req.URL, Err: err}
		}
	}

	resp, err := e.do(ctx, req)
	if err != nil {
		return nil, &Failure{Provider: e.provider, URL: req.URL, Err: err}
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		e.logger.Warn("rate limited, retrying once",
			zap.String("provider", e.provider.String()),
			zap.String("url", req.URL),
		)
		select {
		case <-ctx.Done():
			return nil, &Failure{Provider: e.provider, URL: req.URL, Err: ctx.Err()}
		case <-time.After(e.cooldown):
		}

		resp, err = e.do(ctx, req)
		if err != nil {
			return nil, &Failure{Provider: e.provider, URL: req.URL, Err: err}
		}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &Failure{
			Provider: e.provider,
			URL:      req.URL,
			Status:   resp.StatusCode(),
			Body:     truncate(resp.Body(), bodySnippetLen),
		}
	}

	return &Response{Status: resp.StatusCode(), Body: resp.Body()}, nil
}

func (e *Executor) do(ctx context.Context, req *Request) (*resty.Response, error) {
	r := e.client.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return r.Execute(method, req.URL)
}

func truncate(body []byte, n int) string {
	if len(body) > n {
		body = body[:n]
	}
	return string(body)
}
