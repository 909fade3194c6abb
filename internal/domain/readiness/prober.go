// Package readiness probes background services: it waits for TCP ports to
// accept connections and checks HTTP endpoints for an expected status.
package readiness

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// Default probe settings.
const (
	DefaultHost         = "localhost"
	DefaultPollInterval = time.Second
	DefaultDialTimeout  = time.Second
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultURLAttempts  = 1
)

// maxDrain bounds how much of a probe response body is read before closing.
const maxDrain = 64 << 10

// DialFunc opens a network connection. It matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// HTTPDoer sends HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds probe settings. Zero fields take the defaults.
type Config struct {
	Host         string
	PollInterval time.Duration
	DialTimeout  time.Duration
	HTTPTimeout  time.Duration
	URLAttempts  int
}

// DefaultConfig returns the default probe settings.
func DefaultConfig() Config {
	return Config{
		Host:         DefaultHost,
		PollInterval: DefaultPollInterval,
		DialTimeout:  DefaultDialTimeout,
		HTTPTimeout:  DefaultHTTPTimeout,
		URLAttempts:  DefaultURLAttempts,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
	if c.URLAttempts <= 0 {
		c.URLAttempts = d.URLAttempts
	}
	return c
}

// Prober performs readiness checks.
type Prober struct {
	cfg    Config
	dial   DialFunc
	client HTTPDoer
	logger ports.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithDialer replaces the TCP dialer.
func WithDialer(dial DialFunc) Option {
	return func(p *Prober) {
		p.dial = dial
	}
}

// WithHTTPClient replaces the HTTP client used by CheckURL.
func WithHTTPClient(client HTTPDoer) Option {
	return func(p *Prober) {
		p.client = client
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger ports.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// NewProber creates a Prober.
func NewProber(cfg Config, opts ...Option) *Prober {
	p := &Prober{
		cfg:    cfg.withDefaults(),
		dial:   (&net.Dialer{}).DialContext,
		client: &http.Client{},
		logger: ports.Discard,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective probe settings.
func (p *Prober) Config() Config {
	return p.cfg
}

// AwaitPort polls host:port until a TCP connection succeeds or timeout elapses.
// Every dial failure counts as not ready yet. On timeout or context
// cancellation it returns a ReadinessTimeout naming the port.
func (p *Prober) AwaitPort(ctx context.Context, port int, timeout time.Duration) error {
	log := ports.LoggerFromContextOr(ctx, p.logger)
	address := net.JoinHostPort(p.cfg.Host, strconv.Itoa(port))
	deadline := time.Now().Add(timeout)

	log.Debug(ctx, "waiting for port", ports.F("address", address), ports.F("timeout", timeout.String()))

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return failure.NewReadinessTimeout(port, timeout, err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return failure.NewReadinessTimeout(port, timeout, lastErr)
		}

		err := p.dialOnce(ctx, address, min(p.cfg.DialTimeout, remaining))
		if err == nil {
			log.Debug(ctx, "port ready", ports.F("address", address), ports.F("attempts", attempt))
			return nil
		}
		lastErr = err

		remaining = time.Until(deadline)
		if remaining <= 0 {
			return failure.NewReadinessTimeout(port, timeout, lastErr)
		}
		if err := sleep(ctx, min(p.cfg.PollInterval, remaining)); err != nil {
			return failure.NewReadinessTimeout(port, timeout, err)
		}
	}
}

func (p *Prober) dialOnce(ctx context.Context, address string, timeout time.Duration) error {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := p.dial(dialCtx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

// CheckURL issues a GET request to url. Transport errors are retried up to
// URLAttempts times, PollInterval apart, and then reported as ProbeUnreachable.
// A response whose status differs from a non-zero expectedStatus is an
// UnexpectedStatus failure and is not retried.
func (p *Prober) CheckURL(ctx context.Context, url string, expectedStatus int) error {
	log := ports.LoggerFromContextOr(ctx, p.logger)

	var lastErr error
	for attempt := 1; attempt <= p.cfg.URLAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.cfg.PollInterval); err != nil {
				return failure.NewProbeUnreachable(url, err)
			}
		}

		status, err := p.get(ctx, url)
		if err != nil {
			lastErr = err
			log.Debug(ctx, "url probe failed", ports.F("url", url), ports.F("attempt", attempt), ports.Err(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		log.Debug(ctx, "url probe answered", ports.F("url", url), ports.F("status", status))
		if expectedStatus != 0 && status != expectedStatus {
			return failure.NewUnexpectedStatus(url, expectedStatus, status)
		}
		return nil
	}

	return failure.NewProbeUnreachable(url, lastErr)
}

func (p *Prober) get(ctx context.Context, url string) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	return resp.StatusCode, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
