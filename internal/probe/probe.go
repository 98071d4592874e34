// Package probe checks whether offers and sources are reachable.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

const defaultProbeTimeout = 5 * time.Second

// Verdict is the outcome of a validity probe.
type Verdict int

const (
	// Valid means the link answered with a success status.
	Valid Verdict = iota
	// Invalid means the link answered with a non-success status.
	Invalid
	// Unverified means the probe itself failed. It is treated as valid.
	Unverified
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case Unverified:
		return "unverified"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Accepts reports whether the verdict lets the offer through. Probe failures
// fail open.
func (v Verdict) Accepts() bool {
	return v != Invalid
}

// ValidityProbe issues a HEAD request against a link with a short timeout.
type ValidityProbe struct {
	client  *http.Client
	timeout time.Duration
	agent   string
	log     logger.Logger
}

// NewValidityProbe creates a probe. A nil client uses http.DefaultClient.
func NewValidityProbe(client *http.Client, timeout time.Duration, userAgent string, log logger.Logger) *ValidityProbe {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &ValidityProbe{client: client, timeout: timeout, agent: userAgent, log: logger.OrNop(log)}
}

// Check probes link.
func (p *ValidityProbe) Check(ctx context.Context, link string) Verdict {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, http.NoBody)
	if err != nil {
		p.log.Debug("Probe request invalid", logger.URL(link), logger.Error(err))
		return Unverified
	}
	if p.agent != "" {
		req.Header.Set("User-Agent", p.agent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("Probe failed, assuming valid", logger.URL(link), logger.Error(err))
		return Unverified
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return Valid
	}

	p.log.Debug("Probe rejected link", logger.URL(link), logger.Int("status", resp.StatusCode))

	return Invalid
}

// IsValid probes link and applies the fail-open policy.
func (p *ValidityProbe) IsValid(ctx context.Context, link string) bool {
	return p.Check(ctx, link).Accepts()
}

// ErrSourceUnavailable is returned when a source's connectivity check fails.
var ErrSourceUnavailable = errors.New("source unavailable")

// ConnectivityCheck verifies outbound connectivity before a source runs.
type ConnectivityCheck struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// NewConnectivityCheck creates a check against url. An empty url disables it.
func NewConnectivityCheck(client *http.Client, url string, timeout time.Duration) *ConnectivityCheck {
	if client == nil {
		client = http.DefaultClient
	}
	return &ConnectivityCheck{client: client, url: url, timeout: timeout}
}

// Check returns ErrSourceUnavailable unless url answers 200.
func (c *ConnectivityCheck) Check(ctx context.Context) error {
	if c == nil || c.url == "" {
		return nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	return nil
}
