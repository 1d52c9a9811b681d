// Package transport provides the retrying HTTP client used for every
// outbound backend call. It has no knowledge of the wire protocol: callers
// hand it a fully-formed request body and get back either a final HTTP
// response (possibly an error status) or a typed failure saying no final
// response was ever obtained. That distinction is what the session layer
// uses to decide whether a conversation's stream state must be invalidated.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Options configures retry and timeout behavior.
type Options struct {
	// MaxRetries is the number of retry attempts after the first try.
	// Default: 3
	MaxRetries int

	// BackoffBase is the delay before the first retry; each subsequent
	// retry doubles it. Default: 500ms
	BackoffBase time.Duration

	// BackoffCap bounds the computed delay. Default: 10s
	BackoffCap time.Duration

	// Timeout is the per-attempt request timeout. Zero means no per-attempt
	// timeout beyond the caller's context. Default: 0
	Timeout time.Duration
}

// withDefaults fills zero fields with the package defaults.
func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 10 * time.Second
	}
	return o
}

// Request describes one outbound HTTP call.
type Request struct {
	// Method is the HTTP method (typically POST for backend RPCs).
	Method string

	// URL is the absolute request URL.
	URL string

	// Body is the request body, replayed verbatim on every attempt.
	Body []byte

	// Headers are set on every attempt.
	Headers map[string]string
}

// Result is the outcome of a successful Send: a 2xx response together with
// how much work it took.
type Result struct {
	// Response is the final *http.Response. The caller owns the body.
	Response *http.Response

	// Attempts is the total number of attempts made (first try included).
	Attempts int

	// Elapsed is the wall-clock time spent, backoff waits included.
	Elapsed time.Duration
}

// Client is a retrying HTTP client. The zero value is not usable; use New.
type Client struct {
	// http performs the actual requests
	http *http.Client

	// opts holds retry configuration
	opts Options

	// logger receives per-attempt debug logs
	logger *slog.Logger

	// observe, when set, receives the attempt count of every Send (metrics hook)
	observe func(attempts int)
}

// New creates a Client around the given http.Client (pass nil for a default
// client with connection pooling).
func New(httpClient *http.Client, opts Options, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   false, // backend streams over HTTP/1.1 chunked bodies
			},
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: httpClient, opts: opts.withDefaults(), logger: logger}
}

// SetObserver registers a per-call attempts observer. Must be called before
// the client is shared across goroutines.
func (c *Client) SetObserver(observe func(attempts int)) {
	c.observe = observe
}

// Send performs the request with retries. It returns:
//
//   - (*Result, nil) on any 2xx response;
//   - (nil, *HTTPError) on a final non-retryable error status (4xx other
//     than 408/429, plus 501); the response body has been read into the
//     error and closed;
//   - (nil, *RetryExhaustedError) when the retry budget is spent without a
//     final answer;
//   - (nil, ctx.Err()) when the context is cancelled.
func (c *Client) Send(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	var lastErr error
	var retryAfter time.Duration

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.delayFor(attempt-1, retryAfter)
			retryAfter = 0
			c.logger.Debug("retrying backend request",
				"url", req.URL,
				"attempt", attempt,
				"max_retries", c.opts.MaxRetries,
				"backoff", delay,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.attempt(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !isTransient(err) {
				return nil, err
			}
			lastErr = err
			c.logger.Warn("backend request failed, will retry",
				"url", req.URL,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if c.observe != nil {
				c.observe(attempt + 1)
			}
			return &Result{
				Response: resp,
				Attempts: attempt + 1,
				Elapsed:  time.Since(start),
			}, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		resp.Body.Close()

		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}

		if !retryableStatus(resp.StatusCode) {
			return nil, httpErr
		}

		lastErr = httpErr
		retryAfter = httpErr.RetryAfter
		c.logger.Warn("backend returned retryable status",
			"url", req.URL,
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
	}

	if c.observe != nil {
		c.observe(c.opts.MaxRetries + 1)
	}
	return nil, &RetryExhaustedError{
		Attempts: c.opts.MaxRetries + 1,
		Elapsed:  time.Since(start),
		Last:     lastErr,
	}
}

// attempt performs a single request. The per-attempt timeout covers the
// whole exchange including the body; its cancel func is released when the
// caller closes the response body.
func (c *Client) attempt(ctx context.Context, req *Request) (*http.Response, error) {
	cancel := context.CancelFunc(func() {})
	if c.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
	}

	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelingBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelingBody releases an attempt's context when its body is closed.
type cancelingBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelingBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// delayFor computes the wait before retry number attempt (0-based). A
// server-supplied Retry-After overrides the computed backoff when it asks
// for a longer wait; a shorter one never shrinks the backoff.
func (c *Client) delayFor(attempt int, retryAfter time.Duration) time.Duration {
	delay := c.backoff(attempt)
	if retryAfter > delay {
		delay = retryAfter
	}
	return delay
}

// backoff computes the delay before retry number attempt (0-based) as
// base*2^attempt plus up to 25% jitter, capped.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.opts.BackoffBase << uint(attempt)
	if delay > c.opts.BackoffCap || delay <= 0 {
		delay = c.opts.BackoffCap
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	delay += jitter
	if delay > c.opts.BackoffCap {
		delay = c.opts.BackoffCap
	}
	return delay
}

// retryableStatus reports whether an HTTP status warrants another attempt:
// 5xx except 501, plus 429 and 408.
func retryableStatus(code int) bool {
	switch {
	case code == http.StatusNotImplemented:
		return false
	case code >= 500:
		return true
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// isTransient reports whether a transport-level error is worth retrying:
// resets, refusals, timeouts, DNS failures, broken pipes, unreachable hosts.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNRESET,
		syscall.ECONNREFUSED,
		syscall.EPIPE,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
		syscall.ETIMEDOUT,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	// A server closing the connection mid-response surfaces as EOF.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}

// parseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
