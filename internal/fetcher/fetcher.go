package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

const (
	// maxResponseBodyBytes limits the size of fetched responses.
	maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB
	defaultMaxRedirects  = 10
	fallbackUserAgent    = "Mozilla/5.0 (compatible; CouponCrawler/1.0)"

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
)

// Result is the outcome of a Fetch. Failures are reported only through OK;
// Err carries the last attempt's cause for logging.
type Result struct {
	Body       []byte
	Header     http.Header
	FinalURL   string
	StatusCode int
	Attempts   int
	Timeouts   int
	OK         bool
	Err        error
}

// Fetcher performs GET and HEAD requests under a RetryPolicy.
type Fetcher struct {
	client  *http.Client
	policy  RetryPolicy
	sleeper Sleeper
	pacer   *rate.Limiter
	agents  *UserAgents
	log     logger.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the underlying HTTP client. The client must not set its own Timeout.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) { f.sleeper = s }
}

// WithRateLimit spaces attempts at least interval apart. Zero disables pacing.
func WithRateLimit(interval time.Duration) Option {
	return func(f *Fetcher) {
		if interval > 0 {
			f.pacer = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithUserAgents sets the user agent rotation.
func WithUserAgents(agents []string) Option {
	return func(f *Fetcher) { f.agents = NewUserAgents(agents) }
}

// WithMaxRedirects bounds redirect chains.
func WithMaxRedirects(n int) Option {
	return func(f *Fetcher) { f.client.CheckRedirect = RedirectPolicy(n) }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) { f.log = logger.OrNop(l) }
}

// New creates a Fetcher governed by policy.
func New(policy RetryPolicy, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  NewHTTPClient(),
		policy:  policy,
		sleeper: timerSleeper{},
		agents:  NewUserAgents(nil),
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewHTTPClient returns a client with pooled connections and no overall timeout;
// each attempt is bounded by its own context deadline instead.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
			TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
		},
		CheckRedirect: RedirectPolicy(defaultMaxRedirects),
	}
}

// Policy returns the retry policy.
func (f *Fetcher) Policy() RetryPolicy {
	return f.policy
}

// Fetch GETs rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) Result {
	return f.Do(ctx, http.MethodGet, rawURL, headers)
}

// Do performs method against rawURL, retrying non-2xx responses, transport
// errors and timeouts until the policy is exhausted or ctx ends.
func (f *Fetcher) Do(ctx context.Context, method, rawURL string, headers http.Header) Result {
	var res Result

	for i := range f.policy.Attempts() {
		res.Attempts = i + 1

		if err := f.wait(ctx); err != nil {
			res.Err = err
			return res
		}

		out, timedOut := f.attempt(ctx, i, method, rawURL, headers)
		res.Body, res.Header, res.FinalURL, res.StatusCode, res.Err = out.Body, out.Header, out.FinalURL, out.StatusCode, out.Err
		if timedOut {
			res.Timeouts++
		}
		if out.Err == nil {
			res.OK = true
			return res
		}

		if ctx.Err() != nil || i == f.policy.MaxRetries {
			break
		}

		delay := f.policy.BackoffFor(i)
		f.log.Warn("Fetch attempt failed, retrying",
			logger.URL(rawURL),
			logger.Int("attempt", res.Attempts),
			logger.Duration("delay", delay),
			logger.Error(out.Err),
		)
		if err := f.sleeper.Sleep(ctx, delay); err != nil {
			res.Err = err
			return res
		}
	}

	f.log.Error("Fetch failed",
		logger.URL(rawURL),
		logger.Int("attempts", res.Attempts),
		logger.Int("timeouts", res.Timeouts),
		logger.Error(res.Err),
	)

	return res
}

func (f *Fetcher) wait(ctx context.Context) error {
	if f.pacer == nil {
		return ctx.Err()
	}
	return f.pacer.Wait(ctx)
}

// attempt runs one request under the timeout for attempt i.
func (f *Fetcher) attempt(
	ctx context.Context,
	i int,
	method, rawURL string,
	headers http.Header,
) (Result, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.policy.TimeoutFor(i))
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, method, rawURL, http.NoBody)
	if err != nil {
		return Result{Err: fmt.Errorf("create request: %w", err)}, false
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", f.agents.Pick())
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{Err: err}, isTimeout(ctx, err)
	}
	defer resp.Body.Close()

	out := Result{
		Header:     resp.Header,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		out.Err = fmt.Errorf("read body: %w", err)
		return out, isTimeout(ctx, err)
	}
	out.Body = body

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		out.Err = &StatusError{Code: resp.StatusCode}
	}

	return out, false
}

// isTimeout reports whether err came from the attempt deadline rather than
// cancellation of the parent context.
func isTimeout(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}
